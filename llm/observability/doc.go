// Copyright 2026 ChatGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 observability 基于 OpenTelemetry Metrics API 记录网关调用指标。
Metrics 实现 gateway.Observer，注册到 Gateway 后自动记录每次调用；
模型目录的降级与缓存命中通过 RecordListing 上报。

# 指标

  - chatgate.gateway.calls — 调用次数（provider、operation、outcome）
  - chatgate.gateway.errors — 失败次数（provider、operation、error_code、phase）
  - chatgate.gateway.duration — 调用耗时直方图（秒）
  - chatgate.gateway.active — 进行中的调用数
  - chatgate.catalog.listings — 模型列表来源（live / cache / fallback）

导出由 internal/telemetry 初始化的 MeterProvider 负责（OTLP gRPC）。
*/
package observability
