// Copyright 2026 ChatGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 session 是网关之外的会话与配置存储。网关本身无状态，每次调用都由
本包提供完整的历史消息。

# 存储能力

所有持久化都通过窄接口 KV 完成：

	Load(ctx, key) ([]byte, bool, error)
	Save(ctx, key, value) error

内置实现：

  - MemoryKV — 进程内 map，测试与单机使用
  - RedisKV — 基于 internal/cache（go-redis）
  - SQLKV — 基于 GORM，支持 postgres / mysql / sqlite
  - MongoKV — 基于 mongo-driver v2

# 核心类型

  - Store — 会话（有序消息列表）与 Provider 配置记录的读写；
    同一会话的追加操作在进程内串行执行
  - Chat — 完整的一轮对话：读取激活配置 → 追加用户消息 → 调用网关 →
    追加助手回复；失败时追加一条 system 提示消息（不会回放给厂商）
*/
package session
