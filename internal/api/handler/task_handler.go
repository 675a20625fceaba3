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

// TaskHandler 维修任务模块 HTTP 处理器
type TaskHandler struct {
	taskSvc     service.TaskService
	calendarSvc service.CalendarService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService, calendarSvc service.CalendarService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc, calendarSvc: calendarSvc}
}

// Create 建单
// POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.taskSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 查询任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	result, err := h.taskSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// List 任务列表
// GET /api/v1/tasks
func (h *TaskHandler) List(c *gin.Context) {
	var req dto.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.taskSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// AssignFixer 派工
// PUT /api/v1/tasks/:id/assign-fixer
func (h *TaskHandler) AssignFixer(c *gin.Context) {
	var req dto.AssignFixerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.taskSvc.AssignFixer(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// AssignRenewalDevice 指定换新设备
// PUT /api/v1/tasks/:id/renewal-device
func (h *TaskHandler) AssignRenewalDevice(c *gin.Context) {
	var req dto.AssignRenewalDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.taskSvc.AssignRenewalDevice(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// ToAwaitingFixer 备件补足后放行待派工
// PUT /api/v1/tasks/:id/awaiting-fixer
func (h *TaskHandler) ToAwaitingFixer(c *gin.Context) {
	result, err := h.taskSvc.ToAwaitingFixer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Complete 完成任务
// PUT /api/v1/tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	result, err := h.taskSvc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 取消任务（级联释放故障、作废出库单）
// PUT /api/v1/tasks/:id/cancel
func (h *TaskHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.OK(c, result)
}

// MyCalendar 当前维修工的任务日历（.ics）
// GET /api/v1/tasks/my-calendar
func (h *TaskHandler) MyCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.calendarSvc.FixerCalendar(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrCalendarFixerInvalid) {
			response.Forbidden(c, 13008, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// writeError 任务模块业务错误到 HTTP 状态码的映射
func (h *TaskHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrTaskRenewDeviceGone):
		response.NotFound(c, 13002, err.Error())
	case errors.Is(err, service.ErrTaskInvalidState),
		errors.Is(err, service.ErrTaskRequestRejected),
		errors.Is(err, service.ErrTaskNotRenewal):
		response.UnprocessableEntity(c, 13003, err.Error())
	case errors.Is(err, service.ErrTaskIssuesInvalid):
		response.UnprocessableEntity(c, 13004, err.Error())
	case errors.Is(err, service.ErrTaskFixerInvalid):
		response.UnprocessableEntity(c, 13005, err.Error())
	case errors.Is(err, service.ErrTaskFixerDateInvalid):
		response.BadRequest(c, 13006, err.Error())
	case errors.Is(err, service.ErrExportActiveExists):
		response.Conflict(c, 14002, err.Error())
	case errors.Is(err, pkgerrors.ErrStockInsufficient):
		response.UnprocessableEntity(c, 13007, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被其他操作修改，请重试")
	case pkgerrors.IsStoreTimeout(err):
		response.GatewayTimeout(c, 50001, pkgerrors.ErrStoreTimeout.Error())
	default:
		response.InternalError(c)
	}
}
