package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
)

var ErrDeviceNotFound = errors.New("设备不存在")

// DeviceService 设备视图业务接口
type DeviceService interface {
	Get(ctx context.Context, deviceID string) (*dto.DeviceResponse, error)
	// ListNoPosition 未投放设备（位置三元组不完整），换新选机用
	ListNoPosition(ctx context.Context) ([]dto.DeviceResponse, error)
	// History 设备维修历史（该设备名下全部报修请求）
	History(ctx context.Context, deviceID string) (*dto.DeviceHistoryResponse, error)
}

type deviceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDeviceService 创建 DeviceService 实例
func NewDeviceService(repo *repository.Repository, logger *zap.Logger) DeviceService {
	return &deviceService{
		repo:   repo,
		logger: logger,
	}
}

func (s *deviceService) Get(ctx context.Context, deviceID string) (*dto.DeviceResponse, error) {
	device, err := s.repo.Device.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	resp := toDeviceResponse(device)
	return &resp, nil
}

func (s *deviceService) ListNoPosition(ctx context.Context) ([]dto.DeviceResponse, error) {
	devices, err := s.repo.Device.ListNoPosition(ctx)
	if err != nil {
		s.logger.Error("查询未投放设备失败", zap.Error(err))
		return nil, err
	}

	resp := make([]dto.DeviceResponse, 0, len(devices))
	for i := range devices {
		resp = append(resp, toDeviceResponse(&devices[i]))
	}
	return resp, nil
}

func (s *deviceService) History(ctx context.Context, deviceID string) (*dto.DeviceHistoryResponse, error) {
	device, err := s.repo.Device.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	requests, err := s.repo.Request.ListByDevice(ctx, deviceID)
	if err != nil {
		s.logger.Error("查询设备维修历史失败", zap.String("device_id", deviceID), zap.Error(err))
		return nil, err
	}

	resp := &dto.DeviceHistoryResponse{
		Device:   toDeviceResponse(device),
		Requests: make([]dto.RequestResponse, 0, len(requests)),
	}
	for i := range requests {
		resp.Requests = append(resp.Requests, toRequestResponse(&requests[i]))
	}
	return resp, nil
}

// ── DTO 转换 ──

func toDeviceResponse(d *model.Device) dto.DeviceResponse {
	resp := dto.DeviceResponse{
		ID:          d.DeviceID,
		PositionX:   d.PositionX,
		PositionY:   d.PositionY,
		Active:      d.Active,
		Description: d.Description,
	}
	if d.MachineModel != nil {
		resp.MachineModel = d.MachineModel.Name
	}
	if d.Area != nil {
		resp.Area = d.Area.Name
	}
	return resp
}

func toAccountResponse(a *model.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:       a.AccountID,
		Username: a.Username,
		Name:     a.Name,
		Phone:    a.Phone,
		Role:     a.Role,
	}
}
