package model

// RequestStatus 报修请求状态
type RequestStatus string

const (
	RequestStatusPending     RequestStatus = "PENDING"      // 新报修，待调度确认
	RequestStatusInProgress  RequestStatus = "IN_PROGRESS"  // 已受理，任务进行中
	RequestStatusHeadConfirm RequestStatus = "HEAD_CONFIRM" // 任务全部完成，待报修人确认
	RequestStatusClosed      RequestStatus = "CLOSED"       // 报修人确认关闭
	RequestStatusHeadCancel  RequestStatus = "HEAD_CANCEL"  // 报修人主动取消
	RequestStatusRejected    RequestStatus = "REJECTED"     // 调度驳回
)

// requestTransitions 请求状态迁移表；未列出的 (from, to) 一律非法。
// CLOSED / HEAD_CANCEL / REJECTED 为吸收态，无出边。
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:     {RequestStatusInProgress, RequestStatusHeadCancel, RequestStatusRejected},
	RequestStatusInProgress:  {RequestStatusHeadConfirm, RequestStatusHeadCancel},
	RequestStatusHeadConfirm: {RequestStatusClosed},
}

// CanTransitionTo 校验状态迁移是否合法
func (s RequestStatus) CanTransitionTo(to RequestStatus) bool {
	for _, t := range requestTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal 是否为吸收态
func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// ActiveRequestStatuses 同一设备同一时刻至多一条处于这些状态的请求
var ActiveRequestStatuses = []RequestStatus{RequestStatusPending, RequestStatusInProgress}

// Request 报修请求表 — 对应 requests
type Request struct {
	RequestID     string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	RequesterID   string        `gorm:"type:uuid;not null"                             json:"requester_id"`
	DeviceID      string        `gorm:"type:uuid;not null;index"                       json:"device_id"`
	RequesterNote string        `gorm:"type:text"                                      json:"requester_note,omitempty"`
	Status        RequestStatus `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"status"`
	CheckerID     *string       `gorm:"type:uuid"                                      json:"checker_id,omitempty"`
	CheckerNote   string        `gorm:"type:text"                                      json:"checker_note,omitempty"`
	VersionedModel

	// 关联
	Requester *Account `gorm:"foreignKey:RequesterID;references:AccountID" json:"requester,omitempty"`
	Device    *Device  `gorm:"foreignKey:DeviceID;references:DeviceID"     json:"device,omitempty"`
	Tasks     []Task   `gorm:"foreignKey:RequestID;references:RequestID"   json:"tasks,omitempty"`
	Issues    []Issue  `gorm:"foreignKey:RequestID;references:RequestID"   json:"issues,omitempty"`
}

// TableName 指定表名
func (Request) TableName() string { return "requests" }

// Feedback 报修反馈表 — 对应 feedbacks
// 与请求关闭同一事务写入：要么都提交，要么都回滚
type Feedback struct {
	FeedbackID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"feedback_id"`
	RequestID   string `gorm:"type:uuid;not null"                             json:"request_id"`
	RequesterID string `gorm:"type:uuid;not null"                             json:"requester_id"`
	Content     string `gorm:"type:text;not null"                             json:"content"`
	BaseModel
}

// TableName 指定表名
func (Feedback) TableName() string { return "feedbacks" }
