/*
Package handlers 提供 chatgate HTTP API 的请求处理器实现。

# 概述

handlers 包实现了所有 HTTP 端点的请求处理逻辑：无状态对话、模型发现、
会话与配置管理、健康检查，以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，路径参数通过 r.PathValue 读取。

# 核心类型

  - TurnHandler         — POST /api/v1/turns，转发一轮对话到供应商
  - ModelsHandler       — GET /api/v1/models 与 /api/v1/providers
  - ConversationHandler — 会话创建、查询与发送消息
  - ConfigHandler       — 提供商配置保存与查询（凭据掩码输出）
  - HealthHandler       — 服务健康检查（/health, /healthz, /ready）
  - Response / ErrorInfo — 统一 JSON 响应结构

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteErrorWithData
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码映射，上游状态码单独放在 upstream_status
  - 可扩展健康检查：RegisterCheck 注册 PingCheck 等实现
*/
package handlers
