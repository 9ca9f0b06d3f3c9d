// 版权所有 2024 ChatGate Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 封装 go-redis 客户端，为会话存储与模型目录提供字节级的
Redis 读写能力。

# 概述

Manager 负责连接生命周期管理，包括初始化、健康检查与优雅关闭。
所有键自动带上配置的前缀，便于多个实例共享同一个 Redis。
支持可选 TLS 加密连接（使用 internal/tlsutil 的加固配置）。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/Set/Ping/Close
  - Config：地址、密码、连接池、默认 TTL、TLS 与健康检查间隔

# 错误语义

键不存在时 Get 返回 ErrCacheMiss，可用 IsCacheMiss 判断。
*/
package cache
