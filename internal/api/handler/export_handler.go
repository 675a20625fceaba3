package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/service"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
	"github.com/Sang-Dang/MMMS-Backend/pkg/response"
)

// ExportHandler 仓库出库模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Open 手工开出库单
// POST /api/v1/exports
func (h *ExportHandler) Open(c *gin.Context) {
	var req dto.OpenExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.exportSvc.Open(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 查询出库单详情
// GET /api/v1/exports/:id
func (h *ExportHandler) Get(c *gin.Context) {
	result, err := h.exportSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// List 出库单列表
// GET /api/v1/exports
func (h *ExportHandler) List(c *gin.Context) {
	var req dto.ExportListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.exportSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// MarkExported 仓管执行出库（扣减库存）
// PUT /api/v1/exports/:id/export
func (h *ExportHandler) MarkExported(c *gin.Context) {
	result, err := h.exportSvc.MarkExported(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 作废出库单（幂等）
// PUT /api/v1/exports/:id/cancel
func (h *ExportHandler) Cancel(c *gin.Context) {
	result, err := h.exportSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// writeError 出库模块业务错误到 HTTP 状态码的映射
func (h *ExportHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNotFound):
		response.NotFound(c, 14001, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrExportActiveExists):
		response.Conflict(c, 14002, err.Error())
	case errors.Is(err, service.ErrExportInvalidState):
		response.UnprocessableEntity(c, 14003, err.Error())
	case errors.Is(err, service.ErrExportDetailInvalid):
		response.BadRequest(c, 14004, err.Error())
	case errors.Is(err, pkgerrors.ErrStockInsufficient):
		response.UnprocessableEntity(c, 14005, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被其他操作修改，请重试")
	case pkgerrors.IsStoreTimeout(err):
		response.GatewayTimeout(c, 50001, pkgerrors.ErrStoreTimeout.Error())
	default:
		response.InternalError(c)
	}
}
