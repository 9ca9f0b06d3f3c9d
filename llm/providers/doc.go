// Copyright 2026 ChatGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是各厂商编解码子包（openaicompat、openai、mistral、anthropic、
gemini）的公共基础层。所有函数都是纯函数，不做任何网络 I/O；
发送请求由 llm/gateway 负责。

# 核心函数

  - NewJSONRequest — 序列化请求体并构建 llm.WireRequest
  - BearerTokenHeaders — 标准 Bearer Token 认证头
  - CheckStatus — 2xx 以外的状态统一映射为 HTTP_FAILURE{status, body}
  - DecodeJSON / MissingKey — 结构不匹配统一映射为 UNPARSABLE_RESPONSE
  - SortedUnique — 模型列表去空、去重、排序
  - ReadBody — 有上限的响应体读取，超限时报告 truncated，错误体附 TruncatedMarker

# 约定

  - 请求体中的输出 token 上限固定为 MaxTokens（4096）
  - 凭据只出现在请求头或 URL 查询参数中，绝不出现在请求体中
*/
package providers
