package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
)

// NotificationRepository 通知 outbox 数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListUnsent(ctx context.Context, limit int) ([]model.Notification, error)
	MarkSent(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) error
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实现
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListUnsent(ctx context.Context, limit int) ([]model.Notification, error) {
	var list []model.Notification
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *notificationRepo) MarkSent(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", id).
		Updates(map[string]interface{}{"sent_at": &now}).Error
}

func (r *notificationRepo) IncrementAttempts(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}
