// 版权所有 2024 ChatGate Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义 chatgate 的 Provider 抽象层基础类型：厂商枚举、静态注册表、
凭据规范化以及无 I/O 的 WireRequest。

# 概述

不同厂商在端点、鉴权方式和响应结构上互不兼容。本包只描述"是谁、在哪、
如何鉴权"，具体的请求构建与响应解码由 llm/providers 下各子包完成，
调度与传输由 llm/gateway 完成。

# 核心类型

  - [ProviderKind]：封闭的厂商枚举（openai / mistral / anthropic / google / custom）
  - [ProviderInfo]：显示名、基础 URL、鉴权方案与静态回退模型列表
  - [WireRequest]：方法、URL、请求头与请求体，可通过 ToHTTP 转为 *http.Request

# 注册表

  - [Lookup] / [Providers] / [FallbackModels]：只读静态目录
  - [ParseProviderKind]：名称解析，接受 claude / gemini 等别名

# 凭据

  - [NormalizeCredential]：去除首尾空白；空字符串不得用于任何网络调用
  - [MaskCredential]：日志脱敏
*/
package llm
