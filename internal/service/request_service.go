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

// ── 报修模块业务错误 ──

var (
	ErrRequestNotFound     = errors.New("报修请求不存在")
	ErrRequestDeviceGone   = errors.New("设备不存在或已下架")
	ErrRequestDuplicate    = errors.New("该设备已有处理中的报修请求")
	ErrRequestNotOwner     = errors.New("只有报修人本人可以执行此操作")
	ErrRequestInvalidState = errors.New("请求当前状态不允许此操作")
)

// RequestService 报修请求业务接口
//
// 请求状态机：PENDING → IN_PROGRESS → HEAD_CONFIRM → CLOSED，
// 旁路出口 HEAD_CANCEL（报修人取消）与 REJECTED（调度驳回）。
// 所有迁移以 model.RequestStatus.CanTransitionTo 为准。
type RequestService interface {
	// Create 车间主管提交报修。同一设备已有活动请求时拒绝（防重复报修）。
	Create(ctx context.Context, req *dto.CreateRequestRequest, requesterID string) (*dto.RequestResponse, error)
	Get(ctx context.Context, requestID string) (*dto.RequestResponse, error)
	// ListMine 报修人近 90 天内的请求
	ListMine(ctx context.Context, requesterID string) ([]dto.RequestResponse, error)
	// Approve 调度受理：PENDING → IN_PROGRESS
	Approve(ctx context.Context, requestID, checkerID string, req *dto.ReviewRequestRequest) (*dto.RequestResponse, error)
	// Reject 调度驳回：PENDING → REJECTED
	Reject(ctx context.Context, requestID, checkerID string, req *dto.ReviewRequestRequest) (*dto.RequestResponse, error)
	// Confirm 报修人确认关闭：HEAD_CONFIRM → CLOSED，反馈与关闭同事务落库
	Confirm(ctx context.Context, requestID, requesterID string, req *dto.ConfirmRequestRequest) (*dto.ConfirmRequestResponse, error)
	// Cancel 报修人取消：PENDING/IN_PROGRESS → HEAD_CANCEL。
	// 不级联取消名下任务，任务由调度单独处置。
	Cancel(ctx context.Context, requestID, requesterID string) (*dto.RequestResponse, error)
	// EvaluateClosure 关闭评估：请求处于 IN_PROGRESS、名下任务全部终态
	// 且至少一个完成、无 PENDING 故障时，推进到 HEAD_CONFIRM。
	// 条件不满足是正常情况，不算错误。
	EvaluateClosure(ctx context.Context, requestID string) error
}

type requestService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewRequestService 创建 RequestService 实例
func NewRequestService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) RequestService {
	return &requestService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *requestService) Create(ctx context.Context, req *dto.CreateRequestRequest, requesterID string) (*dto.RequestResponse, error) {
	// 1. 设备必须存在且在役
	device, err := s.repo.Device.GetByID(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestDeviceGone
		}
		s.logger.Error("查询设备失败", zap.Error(err))
		return nil, err
	}
	if !device.Active {
		return nil, ErrRequestDeviceGone
	}

	// 2. 事务内：锁设备行 → 查活动请求 → 插入。
	//    两个并发创建会在设备行锁上串行化，第二个必然看见第一个的插入。
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	if _, err := txRepo.Device.GetForUpdate(ctx, req.DeviceID); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestDeviceGone
		}
		return nil, err
	}

	if _, err := txRepo.Request.GetActiveByDevice(ctx, req.DeviceID); err == nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrRequestDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("查询活动请求失败", zap.Error(err))
		return nil, err
	}

	request := &model.Request{
		RequesterID:   requesterID,
		DeviceID:      req.DeviceID,
		RequesterNote: req.RequesterNote,
		Status:        model.RequestStatusPending,
	}
	if err := txRepo.Request.Create(ctx, request); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建报修请求失败", zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventRequestCreated, model.RoleHeadStaff, map[string]interface{}{
		"request_id": request.RequestID,
		"device_id":  request.DeviceID,
	})

	s.logger.Info("报修请求已创建",
		zap.String("request_id", request.RequestID),
		zap.String("device_id", request.DeviceID))

	request.Device = device
	resp := toRequestResponse(request)
	return &resp, nil
}

func (s *requestService) Get(ctx context.Context, requestID string) (*dto.RequestResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	resp := toRequestResponse(request)
	return &resp, nil
}

func (s *requestService) ListMine(ctx context.Context, requesterID string) ([]dto.RequestResponse, error) {
	since := time.Now().AddDate(0, 0, -90)
	requests, err := s.repo.Request.ListByRequesterSince(ctx, requesterID, since)
	if err != nil {
		s.logger.Error("查询报修请求列表失败", zap.Error(err))
		return nil, err
	}

	resp := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, toRequestResponse(&requests[i]))
	}
	return resp, nil
}

func (s *requestService) Approve(ctx context.Context, requestID, checkerID string, req *dto.ReviewRequestRequest) (*dto.RequestResponse, error) {
	return s.review(ctx, requestID, checkerID, req.CheckerNote, model.RequestStatusInProgress, model.EventRequestApproved)
}

func (s *requestService) Reject(ctx context.Context, requestID, checkerID string, req *dto.ReviewRequestRequest) (*dto.RequestResponse, error) {
	return s.review(ctx, requestID, checkerID, req.CheckerNote, model.RequestStatusRejected, model.EventRequestRejected)
}

// review 受理与驳回共用路径，二者都只接受 PENDING 请求
func (s *requestService) review(ctx context.Context, requestID, checkerID, note string, to model.RequestStatus, event string) (*dto.RequestResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if !request.Status.CanTransitionTo(to) {
		return nil, ErrRequestInvalidState
	}

	request.Status = to
	request.CheckerID = &checkerID
	request.CheckerNote = note
	if err := s.repo.Request.Update(ctx, request); err != nil {
		s.logger.Error("更新报修请求失败", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	s.notifier.Emit(event, model.RoleHead, map[string]interface{}{
		"request_id": request.RequestID,
		"status":     string(request.Status),
	})

	resp := toRequestResponse(request)
	return &resp, nil
}

func (s *requestService) Confirm(ctx context.Context, requestID, requesterID string, req *dto.ConfirmRequestRequest) (*dto.ConfirmRequestResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.RequesterID != requesterID {
		return nil, ErrRequestNotOwner
	}
	if !request.Status.CanTransitionTo(model.RequestStatusClosed) {
		return nil, ErrRequestInvalidState
	}

	// 关闭与反馈同事务：要么都提交，要么都回滚
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	request.Status = model.RequestStatusClosed
	if err := txRepo.Request.Update(ctx, request); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("关闭报修请求失败", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	feedback := &model.Feedback{
		RequestID:   request.RequestID,
		RequesterID: requesterID,
		Content:     req.Content,
	}
	if err := txRepo.Feedback.Create(ctx, feedback); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建反馈失败", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.notifier.Emit(model.EventRequestClosed, model.RoleHeadStaff, map[string]interface{}{
		"request_id": request.RequestID,
	})

	s.logger.Info("报修请求已关闭", zap.String("request_id", request.RequestID))

	return &dto.ConfirmRequestResponse{
		Request:  toRequestResponse(request),
		Feedback: toFeedbackResponse(feedback),
	}, nil
}

func (s *requestService) Cancel(ctx context.Context, requestID, requesterID string) (*dto.RequestResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.RequesterID != requesterID {
		return nil, ErrRequestNotOwner
	}
	if !request.Status.CanTransitionTo(model.RequestStatusHeadCancel) {
		return nil, ErrRequestInvalidState
	}

	request.Status = model.RequestStatusHeadCancel
	if err := s.repo.Request.Update(ctx, request); err != nil {
		s.logger.Error("取消报修请求失败", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("报修请求已取消", zap.String("request_id", request.RequestID))

	resp := toRequestResponse(request)
	return &resp, nil
}

func (s *requestService) EvaluateClosure(ctx context.Context, requestID string) error {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}

	// 只有进行中的请求才可能推进到待确认
	if !request.Status.CanTransitionTo(model.RequestStatusHeadConfirm) {
		return nil
	}

	// 所有未取消任务必须已完成，且至少完成一个（全取消不算修好）
	completed := 0
	for i := range request.Tasks {
		switch request.Tasks[i].Status {
		case model.TaskStatusCancelled:
		case model.TaskStatusCompleted:
			completed++
		default:
			return nil
		}
	}
	if completed == 0 {
		return nil
	}

	// 仍有未处理故障则不推进（取消释放的故障会回到这里拦住）
	pending, err := s.repo.Issue.CountPendingByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("统计未处理故障失败", zap.String("request_id", requestID), zap.Error(err))
		return err
	}
	if pending > 0 {
		return nil
	}

	request.Status = model.RequestStatusHeadConfirm
	if err := s.repo.Request.Update(ctx, request); err != nil {
		s.logger.Error("推进请求到待确认失败", zap.String("request_id", requestID), zap.Error(err))
		return err
	}

	s.notifier.Emit(model.EventRequestAwait, model.RoleHead, map[string]interface{}{
		"request_id": request.RequestID,
		"status":     string(model.RequestStatusHeadConfirm),
	})

	s.logger.Info("请求已推进到待确认", zap.String("request_id", request.RequestID))
	return nil
}

// ── DTO 转换 ──

func toRequestResponse(r *model.Request) dto.RequestResponse {
	resp := dto.RequestResponse{
		ID:            r.RequestID,
		Status:        string(r.Status),
		RequesterNote: r.RequesterNote,
		CheckerNote:   r.CheckerNote,
		TaskCount:     len(r.Tasks),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
	if r.Requester != nil {
		acc := toAccountResponse(r.Requester)
		resp.Requester = &acc
	}
	if r.Device != nil {
		dev := toDeviceResponse(r.Device)
		resp.Device = &dev
	}
	return resp
}

func toFeedbackResponse(f *model.Feedback) dto.FeedbackResponse {
	return dto.FeedbackResponse{
		ID:        f.FeedbackID,
		RequestID: f.RequestID,
		Content:   f.Content,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}
