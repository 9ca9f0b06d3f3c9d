/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖入站 HTTP、出站网关调用、
模型列表来源与数据库连接池四个维度。

# 核心类型

  - Collector：指标收集器，所有指标注册到调用方注入的 Registerer，
    测试中可使用独立的 prometheus.Registry 互不干扰。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 网关指标：按 provider/operation/outcome 统计调用次数与耗时，
    失败按 error_code/phase 分组，并维护进行中调用数。
    Collector 实现 gateway.Observer，可直接通过 gateway.WithObserver 挂载。
  - 模型列表指标：按 provider/source（live/cache/fallback）计数，
    Collector 实现 catalog.Recorder。
  - 数据库指标：活跃/空闲连接数 Gauge。
*/
package metrics
