package llm

import "strings"

// NormalizeCredential 去除凭据两端空白。调用方在任何网络调用前必须检查结果非空。
func NormalizeCredential(s string) string {
	return strings.TrimSpace(s)
}

// MaskCredential 返回可写入日志的凭据表示，只保留末尾 4 位。
func MaskCredential(s string) string {
	s = NormalizeCredential(s)
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return "***" + s[len(s)-4:]
}
