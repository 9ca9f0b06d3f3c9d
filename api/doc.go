// Package api 定义 ChatGate HTTP API 的请求与响应结构。
//
// # 端点概览
//
//   - POST /api/v1/turns：无状态发送一轮对话（调用方提供完整历史）
//   - GET  /api/v1/models：模型发现，失败时回退到缓存或静态列表
//   - GET  /api/v1/providers：静态提供商目录
//   - POST /api/v1/conversations，GET /api/v1/conversations/{id}
//   - POST /api/v1/conversations/{id}/messages：使用当前激活配置聊天
//   - GET/PUT /api/v1/configs，GET /api/v1/configs/active
//
// # 认证
//
// 配置了 API Key 时使用 X-API-Key 请求头；配置了 JWT 密钥时使用
// Authorization: Bearer <token>。供应商凭据使用 X-Provider-Key 请求头
// 或请求体字段传递，从不出现在查询串中。
package api
