package middleware

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	correlationIDKey    = "correlationID"
	correlationIDHeader = "X-Correlation-ID"
)

type correlationCtxKey struct{}

// 客户端传入的 ID 只接受 64 个以内的安全字符，否则重新生成。
var validCorrelationID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// CorrelationIDMiddleware 为请求分配 Correlation ID，
// 同时写入 gin 上下文、request context 与响应头，导出任务会沿用它。
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationIDHeader)
		if !validCorrelationID.MatchString(id) {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationCtxKey{}, id))
		c.Header(correlationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID 从 gin 上下文中取出 Correlation ID。
func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(correlationIDKey); id != "" {
		return id
	}
	return CorrelationIDFromContext(c.Request.Context())
}

// CorrelationIDFromContext returns the id stored by CorrelationIDMiddleware, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}
