package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders 安全 HTTP 头中间件。
// 本服务只暴露 JSON API 和文件下载（维修日历 .ics、库存报表 .xlsx），
// 不渲染任何页面，CSP 直接收紧为 default-src 'none'。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		// 工单数据不进共享缓存
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}
