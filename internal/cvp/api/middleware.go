package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adiology/cvp/pkg/apierror"
	"github.com/adiology/cvp/pkg/ginx"
)

// tenantKey gin 上下文里租户身份的键
const tenantKey = "api.tenant_id"

// TenantClaims JWT 载荷，tenant_id 为必填
type TenantClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// TenantID 从请求上下文取出已解析的租户身份
// 鉴权中间件保证通过后该值非空
func TenantID(ctx *gin.Context) string {
	return ctx.GetString(tenantKey)
}

// RequestIDMiddleware 为每个请求生成 request ID 并注入带字段的 logger
func RequestIDMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := uuid.NewString()
		ginx.SetRequestID(ctx, requestID)
		ctx.Header("X-Request-ID", requestID)

		reqLogger := logger.With().
			Str("request_id", requestID).
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Logger()
		ctx.Request = ctx.Request.WithContext(reqLogger.WithContext(ctx.Request.Context()))

		ctx.Next()
	}
}

// AuthMiddleware 解析 Bearer JWT 并绑定租户身份
// 缺失或非法的凭证一律 403，绝不退化为全局作用域
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortAccessDenied(ctx, "Missing bearer token")
			return
		}

		claims := &TenantClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			abortAccessDenied(ctx, "Invalid bearer token")
			return
		}
		if claims.TenantID == "" {
			abortAccessDenied(ctx, "Token carries no tenant identity")
			return
		}

		ctx.Set(tenantKey, claims.TenantID)

		// 后续日志都带上租户字段
		reqLogger := zerolog.Ctx(ctx.Request.Context()).With().
			Str("tenant_id", claims.TenantID).
			Logger()
		ctx.Request = ctx.Request.WithContext(reqLogger.WithContext(ctx.Request.Context()))

		ctx.Next()
	}
}

func abortAccessDenied(ctx *gin.Context, message string) {
	err := apierror.WrapError(apierror.ErrAccessDenied, message, nil)
	ctx.AbortWithStatusJSON(http.StatusForbidden,
		apierror.NewErrorResponse(ginx.RequestID(ctx), err))
}
