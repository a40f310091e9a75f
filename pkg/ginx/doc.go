// Package ginx 提供 gin handler 的泛型适配器
//
// 业务 handler 的签名为 func(ctx *gin.Context, req *Req) (*Resp, error)，
// ginx 负责参数绑定、校验和响应渲染，handler 只关心业务逻辑：
//
//	router.POST("/vms/run", ginx.Adapt(h.RunVM))
//
// 参数绑定顺序：JSON body > URI 参数 > Query 参数。
// 如果请求结构体实现了 IsValid() error，绑定后会自动调用。
//
// 错误渲染：*apierror.Error 使用其自带的 HTTP 状态码和 Code/Message 序列化，
// 其它错误统一按 500 渲染，不泄露内部细节。
package ginx
