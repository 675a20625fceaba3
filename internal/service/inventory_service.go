package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
)

// ── 备件库存模块业务错误 ──

var (
	ErrSparePartNotFound = errors.New("备件不存在")
	ErrReportGenerate    = errors.New("生成库存报表失败")
)

// InventoryService 备件库存业务接口
//
// 库存的唯一扣减入口在出库服务（条件 UPDATE），本服务只负责
// 补货、查询与报表。低库存 = quantity < safety_stock 且 safety_stock > 0。
type InventoryService interface {
	List(ctx context.Context, req *dto.SparePartListRequest) ([]dto.SparePartResponse, int64, error)
	ListLowStock(ctx context.Context) ([]dto.SparePartResponse, error)
	// Restock 补货（原子加量）
	Restock(ctx context.Context, sparePartID string, req *dto.RestockRequest) (*dto.SparePartResponse, error)
	// StockReport 导出库存报表为 Excel，低库存行高亮
	StockReport(ctx context.Context) (*bytes.Buffer, string, error)
}

type inventoryService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewInventoryService 创建 InventoryService 实例
func NewInventoryService(repo *repository.Repository, logger *zap.Logger) InventoryService {
	return &inventoryService{
		repo:   repo,
		logger: logger,
	}
}

func (s *inventoryService) List(ctx context.Context, req *dto.SparePartListRequest) ([]dto.SparePartResponse, int64, error) {
	parts, total, err := s.repo.SparePart.List(ctx, req.Keyword, req.LowStock, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询备件列表失败", zap.Error(err))
		return nil, 0, err
	}

	resp := make([]dto.SparePartResponse, 0, len(parts))
	for i := range parts {
		resp = append(resp, toSparePartResponse(&parts[i]))
	}
	return resp, total, nil
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]dto.SparePartResponse, error) {
	parts, err := s.repo.SparePart.ListLowStock(ctx)
	if err != nil {
		s.logger.Error("查询低库存备件失败", zap.Error(err))
		return nil, err
	}

	resp := make([]dto.SparePartResponse, 0, len(parts))
	for i := range parts {
		resp = append(resp, toSparePartResponse(&parts[i]))
	}
	return resp, nil
}

func (s *inventoryService) Restock(ctx context.Context, sparePartID string, req *dto.RestockRequest) (*dto.SparePartResponse, error) {
	if err := s.repo.SparePart.Restock(ctx, sparePartID, req.Quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSparePartNotFound
		}
		s.logger.Error("备件补货失败", zap.String("spare_part_id", sparePartID), zap.Error(err))
		return nil, err
	}

	part, err := s.repo.SparePart.GetByID(ctx, sparePartID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("备件已补货",
		zap.String("spare_part_id", sparePartID),
		zap.Int("quantity", req.Quantity),
		zap.Int("current", part.Quantity))

	resp := toSparePartResponse(part)
	return &resp, nil
}

func (s *inventoryService) StockReport(ctx context.Context) (*bytes.Buffer, string, error) {
	parts, _, err := s.repo.SparePart.List(ctx, "", false, 0, 10000)
	if err != nil {
		s.logger.Error("查询备件失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("关闭 Excel 文件失败", zap.Error(err))
		}
	}()

	const sheet = "库存报表"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", ErrReportGenerate
	}
	// 低库存行高亮
	lowStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE4EC"}, Pattern: 1},
	})
	if err != nil {
		return nil, "", ErrReportGenerate
	}

	headers := []string{"备件名称", "当前库存", "安全库存", "有效期", "状态"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", ErrReportGenerate
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", headerStyle); err != nil {
		return nil, "", ErrReportGenerate
	}

	for i := range parts {
		p := &parts[i]
		row := i + 2
		low := p.SafetyStock > 0 && p.Quantity < p.SafetyStock

		status := "正常"
		if low {
			status = "低库存"
		}
		expires := ""
		if p.ExpiresAt != nil {
			expires = p.ExpiresAt.Format("2006-01-02")
		}

		values := []interface{}{p.Name, p.Quantity, p.SafetyStock, expires, status}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", ErrReportGenerate
			}
		}
		if low {
			start, _ := excelize.CoordinatesToCellName(1, row)
			end, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(sheet, start, end, lowStyle); err != nil {
				return nil, "", ErrReportGenerate
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 30); err != nil {
		return nil, "", ErrReportGenerate
	}
	if err := f.SetColWidth(sheet, "B", "E", 14); err != nil {
		return nil, "", ErrReportGenerate
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写入 Excel 缓冲失败", zap.Error(err))
		return nil, "", ErrReportGenerate
	}

	filename := fmt.Sprintf("stock-report-%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── DTO 转换 ──

func toSparePartResponse(p *model.SparePart) dto.SparePartResponse {
	resp := dto.SparePartResponse{
		ID:          p.SparePartID,
		Name:        p.Name,
		Quantity:    p.Quantity,
		SafetyStock: p.SafetyStock,
	}
	if p.ExpiresAt != nil {
		resp.ExpiresAt = p.ExpiresAt.Format("2006-01-02")
	}
	return resp
}
