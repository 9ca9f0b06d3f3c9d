// Copyright 2026 ChatGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 gemini 提供 Google Gemini REST API（generativelanguage.googleapis.com）
的请求构建与响应解码，不依赖 openaicompat 兼容层。

# 协议差异

  - 凭据通过 URL 查询参数 key= 传递（百分号编码），请求头中不携带任何认证信息
  - 请求体仅包含最新一条用户消息
  - 回复文本位于 candidates[0].content.parts[0].text
  - 模型列表条目形如 models/<id>，解码时去掉最后一个 "/" 及之前的部分

# 支持能力

  - Chat（POST {base}/{model}:generateContent?key=...）
  - 模型列表查询（GET {base}?key=...）
*/
package gemini
