package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Account      AccountRepository
	Device       DeviceRepository
	Request      RequestRepository
	Feedback     FeedbackRepository
	Task         TaskRepository
	Issue        IssueRepository
	SparePart    SparePartRepository
	Export       ExportTicketRepository
	Notification NotificationRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Account:      NewAccountRepo(db),
		Device:       NewDeviceRepo(db),
		Request:      NewRequestRepo(db),
		Feedback:     NewFeedbackRepo(db),
		Task:         NewTaskRepo(db),
		Issue:        NewIssueRepo(db),
		SparePart:    NewSparePartRepo(db),
		Export:       NewExportTicketRepo(db),
		Notification: NewNotificationRepo(db),
		db:           db,
	}
}

// BeginTx 开启事务
// db 未初始化时（单元测试注入 mock 实现）返回 nil 事务，
// 配合 WithTx(nil) 返回自身，使 Service 层事务代码无需感知测试环境
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	txRepo := NewRepository(tx)
	// mock 注入的字段不随事务切换（单元测试时 tx 恒为 nil，不会走到这里）
	return txRepo
}
