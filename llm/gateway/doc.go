// Copyright 2026 ChatGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 gateway 是无状态的单次调用编排器：把规范化的请求翻译成厂商 HTTP
调用，再把响应翻译回纯文本或模型列表。每次调用都是独立的，调用之间
不共享任何可变状态，可以安全并发。

# 调用流程

	Idle → Validating → Building → Sending → Decoding → Succeeded
	                ↘          ↘         ↘          ↘
	                                Failed

  - Validating: Provider 必须已知；凭据去除首尾空白后不能为空
    （否则 MISSING_CREDENTIAL，且不发起任何网络请求）
  - Building: 按 Provider 分发到对应编解码子包；Custom 端点非法时返回
    INVALID_CUSTOM_ENDPOINT
  - Sending: 单次请求，默认 60 秒超时；超时返回 UPSTREAM_TIMEOUT，
    其他网络错误返回 TRANSPORT。不做任何重试
  - Decoding: 非 2xx 返回 HTTP_FAILURE{status, body}；结构不匹配返回
    UNPARSABLE_RESPONSE

# 核心接口

  - Gateway.SendTurn — 发送一轮对话，返回助手回复文本
  - Gateway.FetchModels — 查询厂商实时模型列表（排序、去重）
  - BuildChat / DecodeChat / BuildModels / DecodeModels — 纯函数分发
  - Observer — 订阅阶段变化与调用结果（指标、审计）
*/
package gateway
