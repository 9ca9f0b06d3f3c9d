// Package tlsutil 提供集中式 TLS 与出站 HTTP 客户端配置，
// 为网关的供应商调用和 Redis 连接提供安全加固的设置（TLS 1.2+，仅 AEAD 密码套件）。
//
// 出站客户端拒绝跨主机重定向：Google 的凭据位于查询串中，
// 跟随重定向会把它带到另一台主机。
package tlsutil
