package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// TaskRepository 维修任务数据访问接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	// GetByID 读取任务及完整关系图（请求、设备、派工人、故障与备件需求、换新设备）
	GetByID(ctx context.Context, id string) (*model.Task, error)
	// GetForUpdate 加行锁读取（不带关联）；出库单唯一性校验与取消级联在锁内进行
	GetForUpdate(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	List(ctx context.Context, status model.TaskStatus, offset, limit int) ([]model.Task, int64, error)
	ListAssignedByFixer(ctx context.Context, fixerID string) ([]model.Task, error)
}

type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepo 创建 TaskRepository 实现
func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Request").Preload("Request.Requester").
		Preload("Device").Preload("Device.MachineModel").Preload("Device.Area").
		Preload("Fixer").
		Preload("DeviceRenew").Preload("DeviceRenew.MachineModel").
		Preload("Issues").
		Preload("Issues.TypeError").
		Preload("Issues.IssueSpareParts").
		Preload("Issues.IssueSpareParts.SparePart").
		Where("task_id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) GetForUpdate(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("task_id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) Update(ctx context.Context, task *model.Task) error {
	oldVersion := task.Version
	result := r.db.WithContext(ctx).
		Model(task).
		Where("task_id = ? AND version = ?", task.TaskID, oldVersion).
		Updates(map[string]interface{}{
			"status":           task.Status,
			"fixer_id":         task.FixerID,
			"fixer_date":       task.FixerDate,
			"device_renew_id":  task.DeviceRenewID,
			"cancel_by":        task.CancelBy,
			"last_issues_data": task.LastIssuesData,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	task.Version = oldVersion + 1
	return nil
}

func (r *taskRepo) List(ctx context.Context, status model.TaskStatus, offset, limit int) ([]model.Task, int64, error) {
	var tasks []model.Task
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Task{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Preload("Request").Preload("Request.Requester").
		Preload("Device").Preload("Device.MachineModel").
		Preload("Fixer").
		Order("priority DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	return tasks, total, err
}

func (r *taskRepo) ListAssignedByFixer(ctx context.Context, fixerID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Device").Preload("Device.MachineModel").Preload("Device.Area").
		Preload("Issues").Preload("Issues.TypeError").
		Where("fixer_id = ? AND status = ?", fixerID, model.TaskStatusAssigned).
		Order("fixer_date ASC").
		Find(&tasks).Error
	return tasks, err
}
