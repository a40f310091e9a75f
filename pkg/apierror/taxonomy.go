package apierror

// 平台错误分类
// 每个错误都有固定的 Code 和面向用户的 Message，不携带云厂商的原始报错文本。
// 原始报错通过 WrapError 附加到 RawError，只用于服务端日志。
var (
	// ErrValidation 配置校验失败，在任何云厂商调用之前返回
	ErrValidation = &Error{
		Code:       "ValidationError",
		Message:    "The supplied VM configuration is invalid. Check the size class, OS and region and try again.",
		HTTPStatus: 400,
	}

	// ErrInsufficientBalance 预付费余额不足，创建请求被拒绝
	ErrInsufficientBalance = &Error{
		Code:       "InsufficientBalance",
		Message:    "Your prepaid balance is not sufficient to cover this VM. Top up your account and retry.",
		HTTPStatus: 402,
	}

	// ErrAccessDenied 租户身份缺失或试图访问其它租户的资源
	ErrAccessDenied = &Error{
		Code:       "AccessDenied",
		Message:    "You are not allowed to access this resource.",
		HTTPStatus: 403,
	}

	// ErrResourceNotFound 请求的资源不存在（或不属于当前租户）
	ErrResourceNotFound = &Error{
		Code:       "ResourceNotFound",
		Message:    "The requested resource does not exist.",
		HTTPStatus: 404,
	}

	// ErrInvalidStateTransition 当前状态不允许执行该操作
	// 调用方应刷新 VM 状态后再重试
	ErrInvalidStateTransition = &Error{
		Code:       "InvalidStateTransition",
		Message:    "The requested action is not valid for the VM's current status. Refresh the VM status and retry.",
		HTTPStatus: 409,
	}

	// ErrQuotaExceeded 租户 VM 配额已满
	ErrQuotaExceeded = &Error{
		Code:       "QuotaExceeded",
		Message:    "You have reached the maximum number of VMs allowed for your account.",
		HTTPStatus: 429,
	}

	// ErrProviderRateLimited 云厂商限流，重试策略耗尽后才会返回给用户
	ErrProviderRateLimited = &Error{
		Code:       "ProviderRateLimited",
		Message:    "The cloud provider is throttling requests. Please retry in a moment.",
		HTTPStatus: 429,
	}

	// ErrCredential 访问凭据生成或删除失败
	ErrCredential = &Error{
		Code:       "CredentialError",
		Message:    "Failed to provision access credentials for the VM.",
		HTTPStatus: 500,
	}

	// ErrIsolationGroup 网络隔离组创建、修改或删除失败
	ErrIsolationGroup = &Error{
		Code:       "IsolationGroupError",
		Message:    "Failed to configure the network isolation group for the VM.",
		HTTPStatus: 502,
	}

	// ErrProviderAuth 平台对云厂商的鉴权失败，不可重试
	ErrProviderAuth = &Error{
		Code:       "ProviderAuthError",
		Message:    "The platform could not authenticate with the cloud provider. Contact support.",
		HTTPStatus: 502,
	}

	// ErrProviderResourceNotFound 云厂商侧资源不存在，不可重试
	ErrProviderResourceNotFound = &Error{
		Code:       "ProviderResourceNotFound",
		Message:    "The cloud provider no longer knows about this resource.",
		HTTPStatus: 404,
	}

	// ErrNetwork 与云厂商的网络通信失败
	ErrNetwork = &Error{
		Code:       "NetworkError",
		Message:    "A network error occurred while talking to the cloud provider. Please retry.",
		HTTPStatus: 502,
	}

	// ErrProviderCapacity 云厂商容量不足，重试策略耗尽后才会返回给用户
	ErrProviderCapacity = &Error{
		Code:       "ProviderCapacityError",
		Message:    "The cloud provider does not have capacity for this VM right now. Try a different size or region, or retry later.",
		HTTPStatus: 503,
	}

	// ErrTimeout 轮询等待超过时限
	ErrTimeout = &Error{
		Code:       "Timeout",
		Message:    "The operation did not complete within the allowed time.",
		HTTPStatus: 504,
	}

	// ErrInternalError 内部错误
	ErrInternalError = &Error{
		Code:       "InternalError",
		Message:    "An internal error has occurred. Retry your request, and contact support if the problem persists.",
		HTTPStatus: 500,
	}
)
