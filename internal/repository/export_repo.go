package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// ExportTicketRepository 出库单数据访问接口
type ExportTicketRepository interface {
	Create(ctx context.Context, ticket *model.ExportTicket) error
	GetByID(ctx context.Context, id string) (*model.ExportTicket, error)
	// GetActiveByTask 查找任务名下非 CANCEL 的出库单。
	// 单活动出库单校验用：必须与插入同事务，且先锁任务行（Task.GetForUpdate）。
	GetActiveByTask(ctx context.Context, taskID string) (*model.ExportTicket, error)
	Update(ctx context.Context, ticket *model.ExportTicket) error
	List(ctx context.Context, status model.ExportStatus, offset, limit int) ([]model.ExportTicket, int64, error)
}

type exportTicketRepo struct {
	db *gorm.DB
}

// NewExportTicketRepo 创建 ExportTicketRepository 实现
func NewExportTicketRepo(db *gorm.DB) ExportTicketRepository {
	return &exportTicketRepo{db: db}
}

func (r *exportTicketRepo) Create(ctx context.Context, ticket *model.ExportTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *exportTicketRepo) GetByID(ctx context.Context, id string) (*model.ExportTicket, error) {
	var ticket model.ExportTicket
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", id).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *exportTicketRepo) GetActiveByTask(ctx context.Context, taskID string) (*model.ExportTicket, error) {
	var ticket model.ExportTicket
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("task_id = ? AND status != ?", taskID, model.ExportStatusCancel).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *exportTicketRepo) Update(ctx context.Context, ticket *model.ExportTicket) error {
	oldVersion := ticket.Version
	result := r.db.WithContext(ctx).
		Model(ticket).
		Where("ticket_id = ? AND version = ?", ticket.TicketID, oldVersion).
		Updates(map[string]interface{}{
			"status":  ticket.Status,
			"detail":  ticket.Detail,
			"version": oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	ticket.Version = oldVersion + 1
	return nil
}

func (r *exportTicketRepo) List(ctx context.Context, status model.ExportStatus, offset, limit int) ([]model.ExportTicket, int64, error) {
	var tickets []model.ExportTicket
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ExportTicket{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Task").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tickets).Error
	return tickets, total, err
}
