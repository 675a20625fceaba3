package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// DeviceRepository 设备数据访问接口
type DeviceRepository interface {
	Create(ctx context.Context, device *model.Device) error
	GetByID(ctx context.Context, id string) (*model.Device, error)
	// GetForUpdate 加行锁读取；用于重复报修校验与换新位置迁移，
	// 必须在事务连接上调用（通过 Repository.WithTx 注入）
	GetForUpdate(ctx context.Context, id string) (*model.Device, error)
	Update(ctx context.Context, device *model.Device) error
	ListNoPosition(ctx context.Context) ([]model.Device, error)
}

type deviceRepo struct {
	db *gorm.DB
}

// NewDeviceRepo 创建 DeviceRepository 实现
func NewDeviceRepo(db *gorm.DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) Create(ctx context.Context, device *model.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

func (r *deviceRepo) GetByID(ctx context.Context, id string) (*model.Device, error) {
	var device model.Device
	err := r.db.WithContext(ctx).
		Preload("MachineModel").
		Preload("Area").
		Where("device_id = ?", id).
		First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *deviceRepo) GetForUpdate(ctx context.Context, id string) (*model.Device, error) {
	var device model.Device
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("device_id = ?", id).
		First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *deviceRepo) Update(ctx context.Context, device *model.Device) error {
	oldVersion := device.Version
	result := r.db.WithContext(ctx).
		Model(device).
		Where("device_id = ? AND version = ?", device.DeviceID, oldVersion).
		Updates(map[string]interface{}{
			"area_id":    device.AreaID,
			"position_x": device.PositionX,
			"position_y": device.PositionY,
			"active":     device.Active,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	device.Version = oldVersion + 1
	return nil
}

func (r *deviceRepo) ListNoPosition(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.WithContext(ctx).
		Preload("MachineModel").
		Where("area_id IS NULL OR position_x IS NULL OR position_y IS NULL").
		Order("created_at DESC").
		Find(&devices).Error
	return devices, err
}
