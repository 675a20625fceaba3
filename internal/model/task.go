package model

import "time"

// TaskStatus 维修任务状态
type TaskStatus string

const (
	TaskStatusAwaitingSparePart TaskStatus = "AWAITING_SPARE_PART" // 备件不足，等待补货（库存闸门开启时使用）
	TaskStatusAwaitingFixer     TaskStatus = "AWAITING_FIXER"      // 待派工
	TaskStatusAssigned          TaskStatus = "ASSIGNED"            // 已派工
	TaskStatusCompleted         TaskStatus = "COMPLETED"           // 已完成
	TaskStatusCancelled         TaskStatus = "CANCELLED"           // 已取消
)

// taskTransitions 任务状态迁移表；COMPLETED / CANCELLED 无出边
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusAwaitingSparePart: {TaskStatusAwaitingFixer, TaskStatusCancelled},
	TaskStatusAwaitingFixer:     {TaskStatusAssigned, TaskStatusCancelled},
	TaskStatusAssigned:          {TaskStatusCompleted, TaskStatusCancelled},
}

// CanTransitionTo 校验状态迁移是否合法
func (s TaskStatus) CanTransitionTo(to TaskStatus) bool {
	for _, t := range taskTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal 是否为吸收态
func (s TaskStatus) Terminal() bool {
	return len(taskTransitions[s]) == 0
}

// TaskType 任务类型
type TaskType string

const (
	TaskTypeRepair TaskType = "REPAIR" // 原地维修
	TaskTypeRenew  TaskType = "RENEW"  // 整机换新
)

// Task 维修任务表 — 对应 tasks
//
// 不变式：
//   - fixer_id 只在 ASSIGNED 及之后有值
//   - device_renew_id 只在 type=RENEW 时有值
//   - 取消级联后 last_issues_data 保存取消时刻的故障快照（审计用，不再修改）
type Task struct {
	TaskID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"     json:"task_id"`
	RequestID      string     `gorm:"type:uuid;not null;index"                           json:"request_id"`
	DeviceID       string     `gorm:"type:uuid;not null"                                 json:"device_id"`
	Name           string     `gorm:"type:varchar(200)"                                  json:"name,omitempty"`
	Status         TaskStatus `gorm:"type:varchar(30);not null;default:'AWAITING_FIXER'" json:"status"`
	Type           TaskType   `gorm:"type:varchar(10);not null;default:'REPAIR'"         json:"type"`
	Priority       bool       `gorm:"not null;default:false"                             json:"priority"`
	FixerID        *string    `gorm:"type:uuid"                                          json:"fixer_id,omitempty"`
	FixerDate      *time.Time `json:"fixer_date,omitempty"`
	DeviceRenewID  *string    `gorm:"type:uuid"                                          json:"device_renew_id,omitempty"`
	CancelBy       *string    `gorm:"type:uuid"                                          json:"cancel_by,omitempty"`
	LastIssuesData string     `gorm:"type:jsonb;default:null"                            json:"last_issues_data,omitempty"`
	VersionedModel

	// 关联
	Request     *Request `gorm:"foreignKey:RequestID;references:RequestID"     json:"request,omitempty"`
	Device      *Device  `gorm:"foreignKey:DeviceID;references:DeviceID"       json:"device,omitempty"`
	Fixer       *Account `gorm:"foreignKey:FixerID;references:AccountID"       json:"fixer,omitempty"`
	DeviceRenew *Device  `gorm:"foreignKey:DeviceRenewID;references:DeviceID"  json:"device_renew,omitempty"`
	Issues      []Issue  `gorm:"foreignKey:TaskID;references:TaskID"           json:"issues,omitempty"`
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }
