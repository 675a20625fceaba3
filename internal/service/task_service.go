package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/config"
	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
)

// ── 任务模块业务错误 ──

var (
	ErrTaskNotFound         = errors.New("任务不存在")
	ErrTaskInvalidState     = errors.New("任务当前状态不允许此操作")
	ErrTaskRequestRejected  = errors.New("请求已被驳回，无法创建任务")
	ErrTaskIssuesInvalid    = errors.New("存在无效或已被其他任务占用的故障")
	ErrTaskFixerInvalid     = errors.New("维修工不存在或角色不符")
	ErrTaskFixerDateInvalid = errors.New("派工日期格式无效，应为 YYYY-MM-DD")
	ErrTaskNotRenewal       = errors.New("仅换新任务可指定换新设备")
	ErrTaskRenewDeviceGone  = errors.New("换新设备不存在")
)

// TaskService 维修任务业务接口
//
// 任务状态机：AWAITING_SPARE_PART → AWAITING_FIXER → ASSIGNED →
// COMPLETED，任意非终态可转 CANCELLED。
//
// 关键编排：
//   - 派工时若存在需要物料的故障，同事务惰性创建出库单
//   - 换新任务指定新设备时，位置从旧设备整体迁移到新设备
//   - 取消级联：快照故障 → 释放故障 → 取消 WAITING 出库单，同一事务
type TaskService interface {
	// Create 调度建单，绑定一批故障。
	// 库存闸门开启时备件不足的任务进 AWAITING_SPARE_PART，否则直接 AWAITING_FIXER。
	Create(ctx context.Context, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	Get(ctx context.Context, taskID string) (*dto.TaskResponse, error)
	List(ctx context.Context, req *dto.TaskListRequest) ([]dto.TaskResponse, int64, error)
	// AssignFixer 派工：AWAITING_FIXER → ASSIGNED，需要物料时自动开出库单
	AssignFixer(ctx context.Context, taskID string, req *dto.AssignFixerRequest) (*dto.TaskResponse, error)
	// AssignRenewalDevice 指定换新设备并迁移位置（仅 type=RENEW）
	AssignRenewalDevice(ctx context.Context, taskID string, req *dto.AssignRenewalDeviceRequest) (*dto.TaskResponse, error)
	// ToAwaitingFixer 备件补足后放行：AWAITING_SPARE_PART → AWAITING_FIXER
	ToAwaitingFixer(ctx context.Context, taskID string) (*dto.TaskResponse, error)
	// Complete 维修工完成任务，随后触发所属请求的关闭评估
	Complete(ctx context.Context, taskID string) (*dto.TaskResponse, error)
	// Cancel 取消任务并级联：故障快照、释放、出库单作废
	Cancel(ctx context.Context, taskID, actorID string) (*dto.TaskResponse, error)
}

type taskService struct {
	cfg      *config.Config
	repo     *repository.Repository
	request  RequestService
	notifier Notifier
	logger   *zap.Logger
}

// NewTaskService 创建 TaskService 实例
// request 用于任务完成后的关闭评估
func NewTaskService(
	cfg *config.Config,
	repo *repository.Repository,
	request RequestService,
	notifier Notifier,
	logger *zap.Logger,
) TaskService {
	return &taskService{
		cfg:      cfg,
		repo:     repo,
		request:  request,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *taskService) Create(ctx context.Context, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, req.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.Status == model.RequestStatusRejected {
		return nil, ErrTaskRequestRejected
	}

	// 故障必须全部存在、属于该请求、且未被其他任务占用
	issues, err := s.repo.Issue.ListByIDs(ctx, req.IssueIDs)
	if err != nil {
		s.logger.Error("查询故障失败", zap.Error(err))
		return nil, err
	}
	if len(issues) != len(req.IssueIDs) {
		return nil, ErrTaskIssuesInvalid
	}
	for i := range issues {
		if issues[i].RequestID != request.RequestID || issues[i].TaskID != nil {
			return nil, ErrTaskIssuesInvalid
		}
	}

	taskType := model.TaskTypeRepair
	if req.Type == string(model.TaskTypeRenew) {
		taskType = model.TaskTypeRenew
	}

	status := model.TaskStatusAwaitingFixer
	if s.cfg.Feature.StockGateEnabled {
		ok, err := s.stockSufficient(ctx, issues)
		if err != nil {
			return nil, err
		}
		if !ok {
			status = model.TaskStatusAwaitingSparePart
		}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	task := &model.Task{
		RequestID: request.RequestID,
		DeviceID:  request.DeviceID,
		Name:      req.Name,
		Status:    status,
		Type:      taskType,
		Priority:  req.Priority,
	}
	if err := txRepo.Task.Create(ctx, task); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建任务失败", zap.Error(err))
		return nil, err
	}

	if err := txRepo.Issue.BindToTask(ctx, req.IssueIDs, task.TaskID); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("绑定故障失败", zap.String("task_id", task.TaskID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventTaskCreated, model.RoleHeadStaff, map[string]interface{}{
		"task_id":    task.TaskID,
		"request_id": task.RequestID,
		"status":     string(task.Status),
	})

	s.logger.Info("任务已创建",
		zap.String("task_id", task.TaskID),
		zap.String("request_id", task.RequestID),
		zap.String("status", string(task.Status)))

	task.Issues = issues
	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Get(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	task, err := s.repo.Task.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) List(ctx context.Context, req *dto.TaskListRequest) ([]dto.TaskResponse, int64, error) {
	tasks, total, err := s.repo.Task.List(ctx, model.TaskStatus(req.Status), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.Error(err))
		return nil, 0, err
	}

	resp := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, toTaskResponse(&tasks[i]))
	}
	return resp, total, nil
}

func (s *taskService) AssignFixer(ctx context.Context, taskID string, req *dto.AssignFixerRequest) (*dto.TaskResponse, error) {
	fixerDate, err := time.Parse("2006-01-02", req.FixerDate)
	if err != nil {
		return nil, ErrTaskFixerDateInvalid
	}

	fixer, err := s.repo.Account.GetByID(ctx, req.FixerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskFixerInvalid
		}
		return nil, err
	}
	if fixer.Role != model.RoleStaff {
		return nil, ErrTaskFixerInvalid
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	task, err := txRepo.Task.GetForUpdate(ctx, taskID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.FixerID != nil || !task.Status.CanTransitionTo(model.TaskStatusAssigned) {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrTaskInvalidState
	}

	task.Status = model.TaskStatusAssigned
	task.FixerID = &fixer.AccountID
	task.FixerDate = &fixerDate
	if err := txRepo.Task.Update(ctx, task); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("派工更新任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	// 需要仓库物料的故障存在时惰性开出库单：
	// 换新任务整机出库（DEVICE），维修任务备件出库（SPARE_PART）
	issues, err := txRepo.Issue.ListByTask(ctx, taskID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}

	var materialIssueIDs []string
	for i := range issues {
		if issues[i].NeedsMaterial() {
			materialIssueIDs = append(materialIssueIDs, issues[i].IssueID)
		}
	}

	var ticket *model.ExportTicket
	var opened bool
	if len(materialIssueIDs) > 0 {
		ticket, opened, err = s.ensureTicketLocked(ctx, txRepo, task, materialIssueIDs)
		if err != nil {
			if tx != nil {
				tx.Rollback()
			}
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventTaskAssigned, model.RoleStaff, map[string]interface{}{
		"task_id":    task.TaskID,
		"fixer_id":   fixer.AccountID,
		"fixer_date": req.FixerDate,
	})
	if opened {
		s.notifier.Emit(model.EventExportOpened, model.RoleStockkeeper, map[string]interface{}{
			"ticket_id":   ticket.TicketID,
			"task_id":     task.TaskID,
			"export_type": string(ticket.ExportType),
		})
	}

	s.logger.Info("任务已派工",
		zap.String("task_id", task.TaskID),
		zap.String("fixer_id", fixer.AccountID),
		zap.Bool("export_opened", opened))

	task.Fixer = fixer
	task.Issues = issues
	resp := toTaskResponse(task)
	if ticket != nil {
		export := toExportResponse(ticket)
		resp.Export = &export
	}
	return &resp, nil
}

// ensureTicketLocked 在已持有任务行锁的事务内保证任务名下有一张活动出库单。
// 已存在时直接复用（换新设备先于派工指定的场景），不存在时创建；
// 单活动出库单不变式靠任务行锁 + 事务内查重保证。
func (s *taskService) ensureTicketLocked(ctx context.Context, txRepo *repository.Repository, task *model.Task, issueIDs []string) (*model.ExportTicket, bool, error) {
	existing, err := txRepo.Export.GetActiveByTask(ctx, task.TaskID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	ticket := &model.ExportTicket{
		TaskID: task.TaskID,
		Status: model.ExportStatusWaiting,
	}
	if task.Type == model.TaskTypeRenew {
		// 换新设备已指定时整机出库明细指向新设备，否则先挂原设备，
		// 待 AssignRenewalDevice 修正
		deviceID := task.DeviceID
		if task.DeviceRenewID != nil {
			deviceID = *task.DeviceRenewID
		}
		ticket.ExportType = model.ExportTypeDevice
		ticket.Detail = model.ExportDetail{DeviceID: deviceID}
	} else {
		ticket.ExportType = model.ExportTypeSparePart
		ticket.Detail = model.ExportDetail{IssueIDs: issueIDs}
	}

	if err := txRepo.Export.Create(ctx, ticket); err != nil {
		s.logger.Error("创建出库单失败", zap.String("task_id", task.TaskID), zap.Error(err))
		return nil, false, err
	}
	return ticket, true, nil
}

func (s *taskService) AssignRenewalDevice(ctx context.Context, taskID string, req *dto.AssignRenewalDeviceRequest) (*dto.TaskResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	task, err := txRepo.Task.GetForUpdate(ctx, taskID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.Type != model.TaskTypeRenew {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrTaskNotRenewal
	}
	if task.Status.Terminal() {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrTaskInvalidState
	}

	oldDevice, err := txRepo.Device.GetForUpdate(ctx, task.DeviceID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}
	newDevice, err := txRepo.Device.GetForUpdate(ctx, req.DeviceID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskRenewDeviceGone
		}
		return nil, err
	}

	// 位置整体从旧设备迁到新设备，旧设备下架。
	// 同一事务内两次更新，区域视图不会出现两台设备同占一格的中间态。
	newDevice.AreaID = oldDevice.AreaID
	newDevice.PositionX = oldDevice.PositionX
	newDevice.PositionY = oldDevice.PositionY
	newDevice.Active = true
	oldDevice.ClearPosition()
	oldDevice.Active = false

	if err := txRepo.Device.Update(ctx, newDevice); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新换新设备失败", zap.Error(err))
		return nil, err
	}
	if err := txRepo.Device.Update(ctx, oldDevice); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("下架旧设备失败", zap.Error(err))
		return nil, err
	}

	task.DeviceRenewID = &newDevice.DeviceID
	if err := txRepo.Task.Update(ctx, task); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新任务换新设备失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	// 派工先行时整机出库单已存在且明细还指着故障设备，改指换新设备；
	// 尚无活动出库单时补开（换新设备先于派工指定的场景）
	var ticket *model.ExportTicket
	existing, err := txRepo.Export.GetActiveByTask(ctx, task.TaskID)
	switch {
	case err == nil:
		if existing.ExportType == model.ExportTypeDevice && existing.Status == model.ExportStatusWaiting &&
			existing.Detail.DeviceID != newDevice.DeviceID {
			existing.Detail = model.ExportDetail{DeviceID: newDevice.DeviceID}
			if err := txRepo.Export.Update(ctx, existing); err != nil {
				if tx != nil {
					tx.Rollback()
				}
				s.logger.Error("修正整机出库单明细失败",
					zap.String("ticket_id", existing.TicketID), zap.Error(err))
				return nil, err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		ticket = &model.ExportTicket{
			TaskID:     task.TaskID,
			ExportType: model.ExportTypeDevice,
			Detail:     model.ExportDetail{DeviceID: newDevice.DeviceID},
			Status:     model.ExportStatusWaiting,
		}
		if err := txRepo.Export.Create(ctx, ticket); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("创建整机出库单失败", zap.Error(err))
			return nil, err
		}
	default:
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	if ticket != nil {
		s.notifier.Emit(model.EventExportOpened, model.RoleStockkeeper, map[string]interface{}{
			"ticket_id":   ticket.TicketID,
			"task_id":     task.TaskID,
			"export_type": string(model.ExportTypeDevice),
		})
	}

	s.logger.Info("换新设备已指定，位置已迁移",
		zap.String("task_id", task.TaskID),
		zap.String("old_device_id", oldDevice.DeviceID),
		zap.String("new_device_id", newDevice.DeviceID))

	task.DeviceRenew = newDevice
	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) ToAwaitingFixer(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	task, err := s.repo.Task.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if !task.Status.CanTransitionTo(model.TaskStatusAwaitingFixer) {
		return nil, ErrTaskInvalidState
	}

	if s.cfg.Feature.StockGateEnabled {
		ok, err := s.stockSufficient(ctx, task.Issues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.ErrStockInsufficient
		}
	}

	task.Status = model.TaskStatusAwaitingFixer
	if err := s.repo.Task.Update(ctx, task); err != nil {
		s.logger.Error("任务放行失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Complete(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	task, err := txRepo.Task.GetForUpdate(ctx, taskID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if !task.Status.CanTransitionTo(model.TaskStatusCompleted) {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrTaskInvalidState
	}

	task.Status = model.TaskStatusCompleted
	if err := txRepo.Task.Update(ctx, task); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("完成任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	// 任务完成即视为其名下待处理故障已解决，与任务状态同事务落库；
	// 不然关闭评估会被 PENDING 故障永远卡住
	issues, err := txRepo.Issue.ListByTask(ctx, taskID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}
	for i := range issues {
		if issues[i].Status != model.IssueStatusPending {
			continue
		}
		if err := txRepo.Issue.UpdateStatus(ctx, issues[i].IssueID, model.IssueStatusResolved); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("解决故障失败",
				zap.String("issue_id", issues[i].IssueID), zap.Error(err))
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventTaskCompleted, model.RoleHeadStaff, map[string]interface{}{
		"task_id":    task.TaskID,
		"request_id": task.RequestID,
	})

	// 完成已落库，关闭评估失败不回滚任务状态；
	// 下一个任务完成或请求被再次评估时会补上
	if err := s.request.EvaluateClosure(ctx, task.RequestID); err != nil {
		s.logger.Error("关闭评估失败",
			zap.String("request_id", task.RequestID),
			zap.Error(err))
	}

	s.logger.Info("任务已完成", zap.String("task_id", task.TaskID))

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Cancel(ctx context.Context, taskID, actorID string) (*dto.TaskResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	task, err := txRepo.Task.GetForUpdate(ctx, taskID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if !task.Status.CanTransitionTo(model.TaskStatusCancelled) {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrTaskInvalidState
	}

	// 释放前先快照：审计需要知道取消那一刻任务上挂着什么
	issues, err := txRepo.Issue.ListByTask(ctx, taskID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}
	snapshot, err := json.Marshal(issues)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("故障快照序列化失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	task.Status = model.TaskStatusCancelled
	task.CancelBy = &actorID
	task.LastIssuesData = string(snapshot)
	if err := txRepo.Task.Update(ctx, task); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("取消任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	if err := txRepo.Issue.ReleaseByTask(ctx, taskID); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("释放故障失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	// 级联取消出库单：WAITING 作废；已 EXPORTED 的不回滚（物料已出库）
	ticket, err := txRepo.Export.GetActiveByTask(ctx, taskID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}
	if ticket != nil && ticket.Status.CanTransitionTo(model.ExportStatusCancel) {
		ticket.Status = model.ExportStatusCancel
		if err := txRepo.Export.Update(ctx, ticket); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("级联取消出库单失败", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventTaskCancelled, model.RoleHeadStaff, map[string]interface{}{
		"task_id":    task.TaskID,
		"request_id": task.RequestID,
		"cancel_by":  actorID,
	})

	s.logger.Info("任务已取消",
		zap.String("task_id", task.TaskID),
		zap.String("cancel_by", actorID),
		zap.Int("released_issues", len(issues)))

	resp := toTaskResponse(task)
	return &resp, nil
}

// stockSufficient 校验一批故障的备件需求是否全部有库存覆盖。
// 只读校验，真正的扣减在出库时以条件 UPDATE 原子完成。
func (s *taskService) stockSufficient(ctx context.Context, issues []model.Issue) (bool, error) {
	need := make(map[string]int)
	for i := range issues {
		for _, isp := range issues[i].IssueSpareParts {
			need[isp.SparePartID] += isp.Quantity
		}
	}

	for partID, qty := range need {
		part, err := s.repo.SparePart.GetByID(ctx, partID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		if part.Quantity < qty {
			return false, nil
		}
	}
	return true, nil
}

// ── DTO 转换 ──

func toTaskResponse(t *model.Task) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:        t.TaskID,
		RequestID: t.RequestID,
		Name:      t.Name,
		Status:    string(t.Status),
		Type:      string(t.Type),
		Priority:  t.Priority,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.FixerDate != nil {
		resp.FixerDate = t.FixerDate.Format("2006-01-02")
	}
	if t.CancelBy != nil {
		resp.CancelBy = *t.CancelBy
	}
	if t.Fixer != nil {
		acc := toAccountResponse(t.Fixer)
		resp.Fixer = &acc
	}
	if t.Device != nil {
		dev := toDeviceResponse(t.Device)
		resp.Device = &dev
	}
	if t.DeviceRenew != nil {
		dev := toDeviceResponse(t.DeviceRenew)
		resp.DeviceRenew = &dev
	}
	for i := range t.Issues {
		resp.Issues = append(resp.Issues, toIssueResponse(&t.Issues[i]))
	}
	return resp
}

func toIssueResponse(i *model.Issue) dto.IssueResponse {
	resp := dto.IssueResponse{
		ID:          i.IssueID,
		FixType:     string(i.FixType),
		Status:      string(i.Status),
		Description: i.Description,
	}
	if i.TaskID != nil {
		resp.TaskID = *i.TaskID
	}
	if i.TypeError != nil {
		resp.TypeError = i.TypeError.Name
	}
	for _, isp := range i.IssueSpareParts {
		spResp := dto.IssueSparePartResponse{
			SparePartID: isp.SparePartID,
			Quantity:    isp.Quantity,
		}
		if isp.SparePart != nil {
			spResp.Name = isp.SparePart.Name
		}
		resp.SpareParts = append(resp.SpareParts, spResp)
	}
	return resp
}
