package model

import "time"

// Notification 通知 outbox 表 — 对应 notifications
//
// 工作流事件在事务提交后写入本表，由后台协程异步排空并发布到 Redis。
// 发布失败只记日志并累加 attempts，绝不影响触发它的工作流操作。
type Notification struct {
	NotificationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	EventName      string     `gorm:"type:varchar(50);not null"                      json:"event_name"`
	TargetRole     string     `gorm:"type:varchar(20);not null"                      json:"target_role"`
	Payload        string     `gorm:"type:jsonb;not null"                            json:"payload"`
	SentAt         *time.Time `gorm:"index"                                          json:"sent_at,omitempty"`
	Attempts       int        `gorm:"not null;default:0"                             json:"attempts"`
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// ── 工作流事件名 ──
const (
	EventRequestCreated  = "request.created"
	EventRequestApproved = "request.approved"
	EventRequestRejected = "request.rejected"
	EventRequestAwait    = "request.await_confirm"
	EventRequestClosed   = "request.closed"
	EventTaskCreated     = "task.created"
	EventTaskAssigned    = "task.assigned"
	EventTaskCompleted   = "task.completed"
	EventTaskCancelled   = "task.cancelled"
	EventExportOpened    = "export.opened"
	EventExportDone      = "export.exported"
)
