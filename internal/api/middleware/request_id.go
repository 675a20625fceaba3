package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// requestIDMaxLen 网关透传的 X-Request-ID 最大长度，超限视为无效
const requestIDMaxLen = 64

// RequestID 请求追踪 ID 中间件。
// 前端网关透传 X-Request-ID 时沿用（便于跨服务串联一次报修操作的日志），
// 缺失或不合规时生成新 UUID；最终写回响应头并注入 gin.Context。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if !validRequestID(rid) {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}

// validRequestID 只接受可见 ASCII，防止外部值注入访问日志
func validRequestID(rid string) bool {
	if rid == "" || len(rid) > requestIDMaxLen {
		return false
	}
	for i := 0; i < len(rid); i++ {
		if rid[i] <= 0x20 || rid[i] > 0x7e {
			return false
		}
	}
	return true
}
