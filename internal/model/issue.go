package model

// IssueStatus 故障处理状态
type IssueStatus string

const (
	IssueStatusPending  IssueStatus = "PENDING"
	IssueStatusResolved IssueStatus = "RESOLVED"
	IssueStatusFailed   IssueStatus = "FAILED"
)

// FixType 修复方式
type FixType string

const (
	FixTypeReplace FixType = "REPLACE" // 更换部件（必然产生物料需求）
	FixTypeOther   FixType = "OTHER"   // 其他（无备件需求时不触发出库）
)

// Issue 故障条目表 — 对应 issues
//
// task_id 是弱引用：任务取消时置 null（"释放"），故障本身永不删除，
// 仍属于原请求，可被新任务重新绑定。
// "绑定在活动任务上的故障" = task_id 非空 且 所属任务非终态。
type Issue struct {
	IssueID     string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"issue_id"`
	RequestID   string      `gorm:"type:uuid;not null;index"                       json:"request_id"`
	TaskID      *string     `gorm:"type:uuid;index"                                json:"task_id,omitempty"`
	TypeErrorID string      `gorm:"type:uuid;not null"                             json:"type_error_id"`
	FixType     FixType     `gorm:"type:varchar(10);not null;default:'OTHER'"      json:"fix_type"`
	Status      IssueStatus `gorm:"type:varchar(10);not null;default:'PENDING'"    json:"status"`
	Description string      `gorm:"type:text"                                      json:"description,omitempty"`
	SoftDeleteModel

	// 关联
	TypeError       *TypeError       `gorm:"foreignKey:TypeErrorID;references:TypeErrorID" json:"type_error,omitempty"`
	IssueSpareParts []IssueSparePart `gorm:"foreignKey:IssueID;references:IssueID"         json:"issue_spare_parts,omitempty"`
}

// TableName 指定表名
func (Issue) TableName() string { return "issues" }

// NeedsMaterial 该故障是否需要仓库物料（有备件需求或修复方式为更换）
func (i *Issue) NeedsMaterial() bool {
	return len(i.IssueSpareParts) > 0 || i.FixType == FixTypeReplace
}

// IssueSparePart 故障-备件需求表 — 对应 issue_spare_parts
type IssueSparePart struct {
	IssueSparePartID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"issue_spare_part_id"`
	IssueID          string `gorm:"type:uuid;not null;index"                       json:"issue_id"`
	SparePartID      string `gorm:"type:uuid;not null"                             json:"spare_part_id"`
	Quantity         int    `gorm:"not null;default:1"                             json:"quantity"`
	BaseModel

	// 关联
	SparePart *SparePart `gorm:"foreignKey:SparePartID;references:SparePartID" json:"spare_part,omitempty"`
}

// TableName 指定表名
func (IssueSparePart) TableName() string { return "issue_spare_parts" }
