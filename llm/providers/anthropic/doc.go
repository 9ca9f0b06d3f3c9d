// Copyright 2026 ChatGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 anthropic 提供 Anthropic Claude Messages API 的请求构建与响应解码。
Claude API 与 OpenAI 格式有显著差异，本包只负责协议映射，不做任何 I/O。

# 协议差异

  - 认证使用 x-api-key 请求头（非 Bearer Token）
  - 必须携带固定的 anthropic-version 请求头
  - 回复文本位于 content[0].text
  - 模型列表可能位于 data 或 models 字段，条目使用 id 或 name

# 支持能力

  - Chat（POST /v1/messages）
  - 模型列表查询（GET /v1/models）
*/
package anthropic
