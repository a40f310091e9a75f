package provider

import (
	"context"
	"errors"
	"net"

	"github.com/adiology/cvp/pkg/apierror"
)

// 云厂商错误代码
// 代码命名沿用 EC2 风格，分为可重试和不可重试两类
const (
	// 可重试：容量、限流、临时不可用
	CodeInsufficientCapacity = "InsufficientInstanceCapacity"
	CodeRequestLimitExceeded = "RequestLimitExceeded"
	CodeServiceUnavailable   = "Unavailable"

	// 不可重试：鉴权、资源不存在、参数错误、状态冲突
	CodeAuthFailure      = "AuthFailure"
	CodeUnauthorized     = "UnauthorizedOperation"
	CodeInstanceNotFound = "InvalidInstanceID.NotFound"
	CodeGroupNotFound    = "InvalidGroup.NotFound"
	CodeKeyPairNotFound  = "InvalidKeyPair.NotFound"
	CodeInvalidParameter = "InvalidParameterValue"
	CodeIncorrectState   = "IncorrectInstanceState"
	CodeGroupDuplicate   = "InvalidGroup.Duplicate"
)

// APIError 云厂商返回的错误
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return "provider: [" + e.Code + "] " + e.Message
}

// AsAPIError 从错误链中提取 *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRetryable 判断错误是否可以重试
// 容量不足、限流、临时不可用和网络错误可重试；
// 鉴权失败、资源不存在、参数错误和终态冲突立即失败
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if apiErr, ok := AsAPIError(err); ok {
		switch apiErr.Code {
		case CodeInsufficientCapacity, CodeRequestLimitExceeded, CodeServiceUnavailable:
			return true
		default:
			return false
		}
	}

	// 调用方主动取消不重试
	if errors.Is(err, context.Canceled) {
		return false
	}

	// 单次调用超时或网络错误可重试
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// Translate 将云厂商错误翻译为平台错误
// 面向用户的消息来自 taxonomy，不透出云厂商的原始文本；原始错误挂在 RawError 上供日志使用
func Translate(err error) *apierror.Error {
	if err == nil {
		return nil
	}

	if apiErr, ok := AsAPIError(err); ok {
		switch apiErr.Code {
		case CodeInsufficientCapacity:
			return apierror.WrapError(apierror.ErrProviderCapacity, apierror.ErrProviderCapacity.Message, err)
		case CodeRequestLimitExceeded, CodeServiceUnavailable:
			return apierror.WrapError(apierror.ErrProviderRateLimited, apierror.ErrProviderRateLimited.Message, err)
		case CodeAuthFailure, CodeUnauthorized:
			return apierror.WrapError(apierror.ErrProviderAuth, apierror.ErrProviderAuth.Message, err)
		case CodeInstanceNotFound, CodeGroupNotFound, CodeKeyPairNotFound:
			return apierror.WrapError(apierror.ErrProviderResourceNotFound, apierror.ErrProviderResourceNotFound.Message, err)
		case CodeInvalidParameter:
			return apierror.WrapError(apierror.ErrValidation, apierror.ErrValidation.Message, err)
		case CodeIncorrectState:
			return apierror.WrapError(apierror.ErrInvalidStateTransition, apierror.ErrInvalidStateTransition.Message, err)
		default:
			return apierror.WrapError(apierror.ErrInternalError, apierror.ErrInternalError.Message, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apierror.WrapError(apierror.ErrTimeout, apierror.ErrTimeout.Message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apierror.WrapError(apierror.ErrNetwork, apierror.ErrNetwork.Message, err)
	}

	return apierror.WrapError(apierror.ErrInternalError, apierror.ErrInternalError.Message, err)
}
