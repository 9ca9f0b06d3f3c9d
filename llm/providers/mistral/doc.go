// Copyright 2026 ChatGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 mistral 是 Mistral AI 的薄封装。Mistral AI 使用 OpenAI 兼容的 API 格式，
本包只负责把基础 URL（默认 https://api.mistral.ai/v1）解析为具体端点，
请求体与响应解码全部委托 openaicompat。

# 端点

  - Chat: POST {base}/chat/completions
  - 模型列表: GET {base}/models
*/
package mistral
