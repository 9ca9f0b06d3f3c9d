// Package config 提供 ChatGate 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 CHATGATE_）的顺序叠加，
// 环境变量名由结构体的 env 标签逐级拼接而成，例如
// CHATGATE_GATEWAY_TIMEOUT、CHATGATE_SESSION_BACKEND。
package config
