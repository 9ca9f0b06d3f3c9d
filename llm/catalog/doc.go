// Package catalog 在网关的模型发现之上提供调用方侧的列表策略。
//
// 发现失败从不阻塞调用方：先尝试实时拉取，失败时依次回退到最近一次成功
// 缓存的列表和提供商的静态回退列表，并在 Listing 中标明来源。
// 缓存按提供商、端点与凭证摘要分键；凭证缺失或被拒（401/403）时只给静态列表。
//
//   - Models: 单个提供商，相同请求并发时合并为一次上游调用；
//     合并的拉取不随任一调用方取消，调用方自己的 ctx 结束时立即回退
//   - RefreshAll: 多个配置记录并发刷新，先校验全部记录再发请求
//   - Begin / Ticket.Current: 调用方据此丢弃已被新请求取代的结果
package catalog
