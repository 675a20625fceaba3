package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
)

// ── 出库模块业务错误 ──

var (
	ErrExportNotFound      = errors.New("出库单不存在")
	ErrExportActiveExists  = errors.New("任务名下已有未取消的出库单")
	ErrExportInvalidState  = errors.New("出库单当前状态不允许此操作")
	ErrExportDetailInvalid = errors.New("出库明细与出库类型不匹配")
)

// ExportService 仓库出库业务接口
//
// 出库单状态机：WAITING → EXPORTED | CANCEL。
// 库存只在 WAITING → EXPORTED 时扣减，扣减与状态迁移同事务：
// 任一备件不足则全单回滚，出库单停留在 WAITING。
// CANCEL 不涉及库存（等待期间从未扣过），重复取消是静默 no-op。
type ExportService interface {
	// Open 手工开出库单（常规路径由派工自动开）
	Open(ctx context.Context, req *dto.OpenExportRequest) (*dto.ExportResponse, error)
	Get(ctx context.Context, ticketID string) (*dto.ExportResponse, error)
	List(ctx context.Context, req *dto.ExportListRequest) ([]dto.ExportResponse, int64, error)
	// MarkExported 仓管执行出库：扣减全部备件需求并转 EXPORTED
	MarkExported(ctx context.Context, ticketID string) (*dto.ExportResponse, error)
	// Cancel 作废出库单；已是终态时静默返回（任务取消级联要求幂等）
	Cancel(ctx context.Context, ticketID string) (*dto.ExportResponse, error)
}

type exportService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) ExportService {
	return &exportService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *exportService) Open(ctx context.Context, req *dto.OpenExportRequest) (*dto.ExportResponse, error) {
	// 明细必须与类型匹配
	exportType := model.ExportType(req.ExportType)
	switch exportType {
	case model.ExportTypeDevice:
		if req.DeviceID == "" {
			return nil, ErrExportDetailInvalid
		}
	case model.ExportTypeSparePart:
		if len(req.IssueIDs) == 0 {
			return nil, ErrExportDetailInvalid
		}
	default:
		return nil, ErrExportDetailInvalid
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	// 锁任务行后查重，保证每任务至多一张活动出库单
	if _, err := txRepo.Task.GetForUpdate(ctx, req.TaskID); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if _, err := txRepo.Export.GetActiveByTask(ctx, req.TaskID); err == nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrExportActiveExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}

	ticket := &model.ExportTicket{
		TaskID:     req.TaskID,
		ExportType: exportType,
		Detail: model.ExportDetail{
			DeviceID: req.DeviceID,
			IssueIDs: req.IssueIDs,
		},
		Status: model.ExportStatusWaiting,
	}
	if err := txRepo.Export.Create(ctx, ticket); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建出库单失败", zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventExportOpened, model.RoleStockkeeper, map[string]interface{}{
		"ticket_id":   ticket.TicketID,
		"task_id":     ticket.TaskID,
		"export_type": string(ticket.ExportType),
	})

	s.logger.Info("出库单已创建",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("task_id", ticket.TaskID))

	resp := toExportResponse(ticket)
	return &resp, nil
}

func (s *exportService) Get(ctx context.Context, ticketID string) (*dto.ExportResponse, error) {
	ticket, err := s.repo.Export.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	resp := toExportResponse(ticket)
	return &resp, nil
}

func (s *exportService) List(ctx context.Context, req *dto.ExportListRequest) ([]dto.ExportResponse, int64, error) {
	tickets, total, err := s.repo.Export.List(ctx, model.ExportStatus(req.Status), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询出库单列表失败", zap.Error(err))
		return nil, 0, err
	}

	resp := make([]dto.ExportResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, toExportResponse(&tickets[i]))
	}
	return resp, total, nil
}

func (s *exportService) MarkExported(ctx context.Context, ticketID string) (*dto.ExportResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	ticket, err := txRepo.Export.GetByID(ctx, ticketID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}

	if !ticket.Status.CanTransitionTo(model.ExportStatusExported) {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrExportInvalidState
	}

	// 备件出库逐项条件扣减；任一不足整单回滚，出库单留在 WAITING。
	// 并发双出库由乐观锁兜底：后提交的 Update 改不到行，扣减随之回滚。
	if ticket.ExportType == model.ExportTypeSparePart {
		if err := s.debitLocked(ctx, txRepo, ticket.Detail.IssueIDs); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			return nil, err
		}
	}

	ticket.Status = model.ExportStatusExported
	if err := txRepo.Export.Update(ctx, ticket); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("出库单状态更新失败", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventExportDone, model.RoleHeadStaff, map[string]interface{}{
		"ticket_id":   ticket.TicketID,
		"task_id":     ticket.TaskID,
		"export_type": string(ticket.ExportType),
	})

	s.logger.Info("出库完成",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("export_type", string(ticket.ExportType)))

	resp := toExportResponse(ticket)
	return &resp, nil
}

// debitLocked 在事务内扣减一张备件出库单的全部需求
func (s *exportService) debitLocked(ctx context.Context, txRepo *repository.Repository, issueIDs []string) error {
	issues, err := txRepo.Issue.ListByIDs(ctx, issueIDs)
	if err != nil {
		return err
	}

	// 同一备件跨故障汇总后一次扣减
	need := make(map[string]int)
	for i := range issues {
		for _, isp := range issues[i].IssueSpareParts {
			need[isp.SparePartID] += isp.Quantity
		}
	}

	for partID, qty := range need {
		if err := txRepo.SparePart.Debit(ctx, partID, qty); err != nil {
			s.logger.Warn("备件扣减失败",
				zap.String("spare_part_id", partID),
				zap.Int("quantity", qty),
				zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *exportService) Cancel(ctx context.Context, ticketID string) (*dto.ExportResponse, error) {
	ticket, err := s.repo.Export.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}

	// 终态幂等：重复取消、对已出库单的取消都静默返回现状
	if ticket.Status.Terminal() {
		resp := toExportResponse(ticket)
		return &resp, nil
	}

	ticket.Status = model.ExportStatusCancel
	if err := s.repo.Export.Update(ctx, ticket); err != nil {
		s.logger.Error("取消出库单失败", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("出库单已取消", zap.String("ticket_id", ticket.TicketID))

	resp := toExportResponse(ticket)
	return &resp, nil
}

// ── DTO 转换 ──

func toExportResponse(t *model.ExportTicket) dto.ExportResponse {
	return dto.ExportResponse{
		ID:         t.TicketID,
		TaskID:     t.TaskID,
		ExportType: string(t.ExportType),
		Detail: dto.ExportDetail{
			DeviceID: t.Detail.DeviceID,
			IssueIDs: t.Detail.IssueIDs,
		},
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}
