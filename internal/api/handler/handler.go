package handler

import "github.com/Sang-Dang/MMMS-Backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Request   *RequestHandler
	Task      *TaskHandler
	Export    *ExportHandler
	Device    *DeviceHandler
	SparePart *SparePartHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		Request:   NewRequestHandler(svc.Request),
		Task:      NewTaskHandler(svc.Task, svc.Calendar),
		Export:    NewExportHandler(svc.Export),
		Device:    NewDeviceHandler(svc.Device),
		SparePart: NewSparePartHandler(svc.Inventory),
	}
}
