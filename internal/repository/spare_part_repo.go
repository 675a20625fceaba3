package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// SparePartRepository 备件数据访问接口
type SparePartRepository interface {
	Create(ctx context.Context, part *model.SparePart) error
	GetByID(ctx context.Context, id string) (*model.SparePart, error)
	// Debit 条件扣减：quantity >= qty 时原子扣减，否则返回 ErrStockInsufficient。
	// 这是库存永不为负的唯一保障，调用方不做 read-then-write。
	Debit(ctx context.Context, id string, qty int) error
	// Restock 补货（原子加量）
	Restock(ctx context.Context, id string, qty int) error
	List(ctx context.Context, keyword string, lowStock bool, offset, limit int) ([]model.SparePart, int64, error)
	ListLowStock(ctx context.Context) ([]model.SparePart, error)
}

type sparePartRepo struct {
	db *gorm.DB
}

// NewSparePartRepo 创建 SparePartRepository 实现
func NewSparePartRepo(db *gorm.DB) SparePartRepository {
	return &sparePartRepo{db: db}
}

func (r *sparePartRepo) Create(ctx context.Context, part *model.SparePart) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *sparePartRepo) GetByID(ctx context.Context, id string) (*model.SparePart, error) {
	var part model.SparePart
	err := r.db.WithContext(ctx).
		Where("spare_part_id = ?", id).
		First(&part).Error
	if err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *sparePartRepo) Debit(ctx context.Context, id string, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&model.SparePart{}).
		Where("spare_part_id = ? AND quantity >= ?", id, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStockInsufficient
	}
	return nil
}

func (r *sparePartRepo) Restock(ctx context.Context, id string, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&model.SparePart{}).
		Where("spare_part_id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sparePartRepo) List(ctx context.Context, keyword string, lowStock bool, offset, limit int) ([]model.SparePart, int64, error) {
	var parts []model.SparePart
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SparePart{})
	if keyword != "" {
		db = db.Where("name ILIKE ?", "%"+keyword+"%")
	}
	if lowStock {
		db = db.Where("quantity < safety_stock AND safety_stock > 0")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("name ASC").Offset(offset).Limit(limit).Find(&parts).Error
	return parts, total, err
}

func (r *sparePartRepo) ListLowStock(ctx context.Context) ([]model.SparePart, error) {
	var parts []model.SparePart
	err := r.db.WithContext(ctx).
		Where("quantity < safety_stock AND safety_stock > 0").
		Order("name ASC").
		Find(&parts).Error
	return parts, err
}
