package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/service"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
	"github.com/Sang-Dang/MMMS-Backend/pkg/response"
)

// SparePartHandler 备件库存模块 HTTP 处理器
type SparePartHandler struct {
	inventorySvc service.InventoryService
}

// NewSparePartHandler 创建 SparePartHandler
func NewSparePartHandler(inventorySvc service.InventoryService) *SparePartHandler {
	return &SparePartHandler{inventorySvc: inventorySvc}
}

// List 备件列表
// GET /api/v1/spare-parts
func (h *SparePartHandler) List(c *gin.Context) {
	var req dto.SparePartListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.inventorySvc.List(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListLowStock 低库存备件列表
// GET /api/v1/spare-parts/low-stock
func (h *SparePartHandler) ListLowStock(c *gin.Context) {
	result, err := h.inventorySvc.ListLowStock(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Restock 补货
// PUT /api/v1/spare-parts/:id/restock
func (h *SparePartHandler) Restock(c *gin.Context) {
	var req dto.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.inventorySvc.Restock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// StockReport 导出库存报表（.xlsx）
// GET /api/v1/spare-parts/report
func (h *SparePartHandler) StockReport(c *gin.Context) {
	buf, filename, err := h.inventorySvc.StockReport(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *SparePartHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSparePartNotFound):
		response.NotFound(c, 16001, err.Error())
	case pkgerrors.IsStoreTimeout(err):
		response.GatewayTimeout(c, 50001, pkgerrors.ErrStoreTimeout.Error())
	default:
		response.InternalError(c)
	}
}
