package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// RequestRepository 报修请求数据访问接口
type RequestRepository interface {
	Create(ctx context.Context, request *model.Request) error
	GetByID(ctx context.Context, id string) (*model.Request, error)
	// GetActiveByDevice 查找设备上处于 PENDING/IN_PROGRESS 的请求。
	// 重复报修校验用：必须与随后的插入在同一事务内，且先对设备行加锁
	// （Device.GetForUpdate），两个并发创建才不会同时通过校验。
	GetActiveByDevice(ctx context.Context, deviceID string) (*model.Request, error)
	ListByRequesterSince(ctx context.Context, requesterID string, since time.Time) ([]model.Request, error)
	ListByDevice(ctx context.Context, deviceID string) ([]model.Request, error)
	Update(ctx context.Context, request *model.Request) error
}

// FeedbackRepository 报修反馈数据访问接口
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *model.Feedback) error
}

// ── Request Repository 实现 ──

type requestRepo struct {
	db *gorm.DB
}

// NewRequestRepo 创建 RequestRepository 实现
func NewRequestRepo(db *gorm.DB) RequestRepository {
	return &requestRepo{db: db}
}

func (r *requestRepo) Create(ctx context.Context, request *model.Request) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.Request, error) {
	var request model.Request
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Device").Preload("Device.MachineModel").Preload("Device.Area").
		Preload("Tasks").
		Preload("Issues").
		Where("request_id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepo) GetActiveByDevice(ctx context.Context, deviceID string) (*model.Request, error) {
	var request model.Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("device_id = ? AND status IN ?", deviceID, model.ActiveRequestStatuses).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepo) ListByRequesterSince(ctx context.Context, requesterID string, since time.Time) ([]model.Request, error) {
	var requests []model.Request
	err := r.db.WithContext(ctx).
		Preload("Device").Preload("Device.MachineModel").Preload("Device.Area").
		Preload("Tasks").
		Where("requester_id = ? AND created_at >= ?", requesterID, since).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *requestRepo) ListByDevice(ctx context.Context, deviceID string) ([]model.Request, error) {
	var requests []model.Request
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Tasks").
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *requestRepo) Update(ctx context.Context, request *model.Request) error {
	oldVersion := request.Version
	result := r.db.WithContext(ctx).
		Model(request).
		Where("request_id = ? AND version = ?", request.RequestID, oldVersion).
		Updates(map[string]interface{}{
			"status":       request.Status,
			"checker_id":   request.CheckerID,
			"checker_note": request.CheckerNote,
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	request.Version = oldVersion + 1
	return nil
}

// ── Feedback Repository 实现 ──

type feedbackRepo struct {
	db *gorm.DB
}

// NewFeedbackRepo 创建 FeedbackRepository 实现
func NewFeedbackRepo(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Create(ctx context.Context, feedback *model.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}
