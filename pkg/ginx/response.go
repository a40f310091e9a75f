package ginx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adiology/cvp/pkg/apierror"
)

// requestIDKey 请求 ID 在 gin context 中的 key，由 API 层的中间件写入
const requestIDKey = "ginx.request_id"

// SetRequestID 记录当前请求的 ID，错误响应会带上它
func SetRequestID(ctx *gin.Context, requestID string) {
	ctx.Set(requestIDKey, requestID)
}

// RequestID 返回当前请求的 ID，没有则返回空串
func RequestID(ctx *gin.Context) string {
	return ctx.GetString(requestIDKey)
}

// renderResponse 渲染成功响应
func renderResponse(ctx *gin.Context, response any) {
	if response == nil {
		ctx.Status(http.StatusNoContent)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// renderError 渲染错误响应
// 如果 err 是 *apierror.Error 或 *apierror.ErrorResponse，直接序列化错误对象
// 否则使用默认的错误格式，不泄露内部错误文本以外的细节
func renderError(ctx *gin.Context, statusCode int, err error) {
	if apiErr, ok := err.(*apierror.Error); ok {
		// 使用错误对象中定义的 HTTP 状态码
		if apiErr.HTTPStatus > 0 {
			statusCode = apiErr.HTTPStatus
		}
		ctx.JSON(statusCode, apierror.NewErrorResponse(RequestID(ctx), apiErr))
		return
	}

	if errorResp, ok := err.(*apierror.ErrorResponse); ok {
		// 从第一个错误中获取 HTTP 状态码（如果有）
		if len(errorResp.Errors) > 0 && errorResp.Errors[0].HTTPStatus > 0 {
			statusCode = errorResp.Errors[0].HTTPStatus
		}
		ctx.JSON(statusCode, errorResp)
		return
	}

	ctx.JSON(statusCode, gin.H{"error": err.Error()})
}
