// Package apierror 提供 AWS 风格的错误类型，用于所有服务的统一错误处理
//
// 错误响应格式为 JSON：
//
//	{
//	    "errors": [
//	        {
//	            "code": "InvalidStateTransition",
//	            "message": "The requested action is not valid for the VM's current status."
//	        }
//	    ],
//	    "requestID": "ea966190-f9aa-478e-9ede-example"
//	}
//
// 使用示例：
//
//	// 创建错误
//	err := apierror.NewErrorWithStatus("ResourceNotFound", "The VM 'vm-1a2b3c4d' does not exist", 404)
//
//	// 包装预定义错误，附加原始错误（只进日志，不进响应）
//	err := apierror.WrapError(apierror.ErrIsolationGroup, "Failed to create isolation group", rawErr)
//
//	// 在 gin 中使用
//	c.JSON(err.HTTPStatus, apierror.NewErrorResponse(requestID, err))
//
// 预定义的平台错误变量（可在代码中直接使用，见 taxonomy.go）：
//
//   - ErrValidation: 配置校验失败
//   - ErrInsufficientBalance: 预付费余额不足
//   - ErrAccessDenied: 租户越权访问
//   - ErrResourceNotFound: 资源不存在
//   - ErrInvalidStateTransition: 状态机不允许该操作
//   - ErrQuotaExceeded: 租户配额已满
//   - ErrProviderRateLimited: 云厂商限流
//   - ErrCredential: 凭据生成失败
//   - ErrIsolationGroup: 隔离组配置失败
//   - ErrProviderAuth: 云厂商鉴权失败
//   - ErrProviderResourceNotFound: 云厂商侧资源不存在
//   - ErrNetwork: 网络错误
//   - ErrProviderCapacity: 云厂商容量不足
//   - ErrTimeout: 轮询超时
//   - ErrInternalError: 内部错误
//
// 错误判定统一使用 errors.Is（按 Code 比较）：
//
//	if errors.Is(err, apierror.ErrInvalidStateTransition) { ... }
package apierror
