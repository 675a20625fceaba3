package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Sang-Dang/MMMS-Backend/internal/dto"
	"github.com/Sang-Dang/MMMS-Backend/internal/service"
	pkgerrors "github.com/Sang-Dang/MMMS-Backend/pkg/errors"
	"github.com/Sang-Dang/MMMS-Backend/pkg/response"
)

// RequestHandler 报修请求模块 HTTP 处理器
type RequestHandler struct {
	requestSvc service.RequestService
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(requestSvc service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// Create 提交报修
// POST /api/v1/requests
func (h *RequestHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.requestSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 查询报修详情
// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	result, err := h.requestSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// ListMine 我的报修列表（近 90 天）
// GET /api/v1/requests/mine
func (h *RequestHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Approve 调度受理报修
// PUT /api/v1/requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReviewRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.requestSvc.Approve(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Reject 调度驳回报修
// PUT /api/v1/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReviewRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.requestSvc.Reject(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Confirm 报修人确认关闭并提交反馈
// PUT /api/v1/requests/:id/confirm
func (h *RequestHandler) Confirm(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ConfirmRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.requestSvc.Confirm(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 报修人取消报修
// PUT /api/v1/requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// writeError 报修模块业务错误到 HTTP 状态码的映射
func (h *RequestHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrRequestDeviceGone):
		response.NotFound(c, 12002, err.Error())
	case errors.Is(err, service.ErrRequestDuplicate):
		response.Conflict(c, 12003, err.Error())
	case errors.Is(err, service.ErrRequestNotOwner):
		response.Forbidden(c, 12004, err.Error())
	case errors.Is(err, service.ErrRequestInvalidState):
		response.UnprocessableEntity(c, 12005, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被其他操作修改，请重试")
	case pkgerrors.IsStoreTimeout(err):
		response.GatewayTimeout(c, 50001, pkgerrors.ErrStoreTimeout.Error())
	default:
		response.InternalError(c)
	}
}
