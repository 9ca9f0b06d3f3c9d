// Copyright (c) ChatGate Authors.
// Licensed under the MIT License.

/*
Package types 提供 chatgate 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、session、api 等上层模块
提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Turn / Role       — 对话轮次（user / assistant，system 仅用于本地提示）
  - ConfigRecord      — Provider 配置记录（凭据、模型、自定义端点、是否激活）
  - Error / ErrorCode — 结构化错误体系：MissingCredential、InvalidCustomEndpoint、
    HTTPFailure{status, body}、UnparsableResponse 以及超时与传输错误

# 主要能力

  - 错误工具链：AsError / IsErrorCode / GetErrorCode
  - 常用错误构造：NewMissingCredentialError / NewHTTPFailureError 等
  - 回放过滤：ReplayableTurns / LatestUserText
*/
package types
