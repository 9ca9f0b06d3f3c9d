// 版权所有 2024 ChatGate Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理，支持按驱动名称打开
postgres / mysql / sqlite，并提供健康检查、统计信息采集与事务执行。

# 概述

本包通过 PoolManager 封装 GORM 与 database/sql 的连接池配置，
统一管理连接生命周期、空闲回收与最大连接数限制。后台健康检查
定时探活，异常时通过 zap 日志输出诊断信息。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Snapshot()、Close() 等生命周期方法。
  - PoolConfig：连接池配置，包含最大空闲连接数、最大打开连接数、
    连接最大生命周期、空闲超时与健康检查间隔。
  - Snapshot：某一时刻的连接占用，供 Prometheus 上报。

# 主要能力

  - 连接池调优：通过 MaxIdleConns/MaxOpenConns/ConnMaxLifetime 精细控制。
  - 健康检查：后台定时 PingContext 探活，输出连接数与空闲数。
  - 方言选择：Dialector/Open 按驱动名称选择 GORM 方言，sqlite 使用
    纯 Go 实现（glebarez/sqlite），无需 cgo。
  - 事务管理：WithTransaction 提供单次事务执行，不做自动重试。
  - 关闭语义：Close 后所有调用返回 ErrPoolClosed，健康检查随之停止。
*/
package database
