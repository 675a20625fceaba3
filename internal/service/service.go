package service

import (
	"go.uber.org/zap"

	"github.com/Sang-Dang/MMMS-Backend/config"
	"github.com/Sang-Dang/MMMS-Backend/internal/repository"
	"github.com/Sang-Dang/MMMS-Backend/pkg/jwt"
	"github.com/Sang-Dang/MMMS-Backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth      AuthService
	Request   RequestService
	Task      TaskService
	Export    ExportService
	Inventory InventoryService
	Device    DeviceService
	Calendar  CalendarService

	// Notify 由 main 负责 Start/Stop 生命周期
	Notify *NotifyService
}

// NewService 创建 Service 聚合
// rdb 可为 nil：黑名单与事件广播降级，工作流不受影响
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	notify := NewNotifyService(&cfg.Notify, repo, rdb, logger)
	request := NewRequestService(repo, notify, logger)

	return &Service{
		Auth:      NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Request:   request,
		Task:      NewTaskService(cfg, repo, request, notify, logger),
		Export:    NewExportService(repo, notify, logger),
		Inventory: NewInventoryService(repo, logger),
		Device:    NewDeviceService(repo, logger),
		Calendar:  NewCalendarService(repo, logger),
		Notify:    notify,
	}
}
