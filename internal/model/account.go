package model

// ── 角色 ──
//
// head       车间主管（报修方）
// head_staff 维修调度主管（建单、派工）
// staff      维修工（fixer）
// stockkeeper 仓管（出库执行）
const (
	RoleHead        = "head"
	RoleHeadStaff   = "head_staff"
	RoleStaff       = "staff"
	RoleStockkeeper = "stockkeeper"
	RoleAdmin       = "admin"
)

// Account 账号表 — 对应 accounts
type Account struct {
	AccountID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"account_id"`
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"username"`
	PasswordHash string `gorm:"type:varchar(100);not null"                     json:"-"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Phone        string `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	Role         string `gorm:"type:varchar(20);not null;default:'head'"       json:"role"`
	SoftDeleteModel
}

// TableName 指定表名
func (Account) TableName() string { return "accounts" }
