/*
Package main 是 chatgate 命令行入口。

# 子命令

  - serve      启动 HTTP 网关（API 服务器 + Prometheus metrics 服务器）
  - chat       直接向供应商发送一条消息并打印回复
  - models     列出供应商的模型，实时发现失败时回退到内置列表
  - providers  列出支持的供应商
  - health     检查运行中服务的 /health
  - version    打印构建信息

# 中间件顺序

Recovery → RequestID → SecurityHeaders → RequestLogger → Metrics →
OTelTracing → CORS → RateLimiter → Auth。健康检查与 /version 不需要鉴权。
*/
package main
