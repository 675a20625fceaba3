package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Sang-Dang/MMMS-Backend/internal/service"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
	"github.com/Sang-Dang/MMMS-Backend/pkg/response"
)

// DeviceHandler 设备模块 HTTP 处理器
type DeviceHandler struct {
	deviceSvc service.DeviceService
}

// NewDeviceHandler 创建 DeviceHandler
func NewDeviceHandler(deviceSvc service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceSvc: deviceSvc}
}

// Get 查询设备详情
// GET /api/v1/devices/:id
func (h *DeviceHandler) Get(c *gin.Context) {
	result, err := h.deviceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// ListNoPosition 未投放设备列表（换新选机用）
// GET /api/v1/devices/no-position
func (h *DeviceHandler) ListNoPosition(c *gin.Context) {
	result, err := h.deviceSvc.ListNoPosition(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// History 设备维修历史
// GET /api/v1/devices/:id/history
func (h *DeviceHandler) History(c *gin.Context) {
	result, err := h.deviceSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *DeviceHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDeviceNotFound):
		response.NotFound(c, 15001, err.Error())
	case pkgerrors.IsStoreTimeout(err):
		response.GatewayTimeout(c, 50001, pkgerrors.ErrStoreTimeout.Error())
	default:
		response.InternalError(c)
	}
}
