package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sang-Dang/MMMS-Backend/config"
	"github.com/Sang-Dang/MMMS-Backend/internal/api/handler"
	"github.com/Sang-Dang/MMMS-Backend/internal/api/middleware"
	"github.com/Sang-Dang/MMMS-Backend/internal/model"
	"github.com/Sang-Dang/MMMS-Backend/pkg/jwt"
	"github.com/Sang-Dang/MMMS-Backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
//
// 角色分工：
//
//	head        车间主管 — 报修、确认、取消
//	head_staff  维修调度 — 受理、建单、派工、取消任务
//	staff       维修工   — 完成任务、任务日历
//	stockkeeper 仓管     — 出库、补货、库存报表
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 10, time.Minute))
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 报修模块
			requests := authorized.Group("/requests")
			{
				requests.POST("", middleware.RoleAuth(model.RoleHead), h.Request.Create)
				requests.GET("/mine", middleware.RoleAuth(model.RoleHead), h.Request.ListMine)
				requests.GET("/:id", h.Request.Get)
				requests.PUT("/:id/approve", middleware.RoleAuth(model.RoleHeadStaff), h.Request.Approve)
				requests.PUT("/:id/reject", middleware.RoleAuth(model.RoleHeadStaff), h.Request.Reject)
				requests.PUT("/:id/confirm", middleware.RoleAuth(model.RoleHead), h.Request.Confirm)
				requests.PUT("/:id/cancel", middleware.RoleAuth(model.RoleHead), h.Request.Cancel)
			}

			// 任务模块
			tasks := authorized.Group("/tasks")
			{
				tasks.POST("", middleware.RoleAuth(model.RoleHeadStaff), h.Task.Create)
				tasks.GET("", middleware.RoleAuth(model.RoleHeadStaff), h.Task.List)
				tasks.GET("/my-calendar", middleware.RoleAuth(model.RoleStaff), h.Task.MyCalendar)
				tasks.GET("/:id", h.Task.Get)
				tasks.PUT("/:id/assign-fixer", middleware.RoleAuth(model.RoleHeadStaff), h.Task.AssignFixer)
				tasks.PUT("/:id/renewal-device", middleware.RoleAuth(model.RoleHeadStaff), h.Task.AssignRenewalDevice)
				tasks.PUT("/:id/awaiting-fixer", middleware.RoleAuth(model.RoleHeadStaff), h.Task.ToAwaitingFixer)
				tasks.PUT("/:id/complete", middleware.RoleAuth(model.RoleStaff), h.Task.Complete)
				tasks.PUT("/:id/cancel", middleware.RoleAuth(model.RoleHeadStaff), h.Task.Cancel)
			}

			// 出库模块
			exports := authorized.Group("/exports")
			{
				exports.POST("", middleware.RoleAuth(model.RoleHeadStaff), h.Export.Open)
				exports.GET("", middleware.RoleAuth(model.RoleStockkeeper, model.RoleHeadStaff), h.Export.List)
				exports.GET("/:id", h.Export.Get)
				exports.PUT("/:id/export", middleware.RoleAuth(model.RoleStockkeeper), h.Export.MarkExported)
				exports.PUT("/:id/cancel", middleware.RoleAuth(model.RoleStockkeeper, model.RoleHeadStaff), h.Export.Cancel)
			}

			// 设备模块
			devices := authorized.Group("/devices")
			{
				devices.GET("/no-position", middleware.RoleAuth(model.RoleHeadStaff), h.Device.ListNoPosition)
				devices.GET("/:id", h.Device.Get)
				devices.GET("/:id/history", h.Device.History)
			}

			// 备件模块
			spareParts := authorized.Group("/spare-parts")
			spareParts.Use(middleware.RoleAuth(model.RoleStockkeeper, model.RoleHeadStaff))
			{
				spareParts.GET("", h.SparePart.List)
				spareParts.GET("/low-stock", h.SparePart.ListLowStock)
				spareParts.GET("/report", h.SparePart.StockReport)
				spareParts.PUT("/:id/restock", middleware.RoleAuth(model.RoleStockkeeper), h.SparePart.Restock)
			}
		}
	}

	return r
}
