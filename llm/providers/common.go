package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/types"
)

// MaxTokens 是所有厂商请求体中固定的输出 token 上限。
const MaxTokens = 4096

// MaxResponseBytes 限制读取的响应体大小，防止异常上游占满内存。
const MaxResponseBytes = 8 << 20

// NewJSONRequest 将 payload 序列化为 JSON 并构建 WireRequest。
// payload 为 nil 时不带请求体（用于 GET）。
func NewJSONRequest(method, url string, payload any) (*llm.WireRequest, error) {
	w := &llm.WireRequest{
		Method: method,
		URL:    url,
		Header: make(http.Header),
	}
	w.Header.Set("Accept", "application/json")
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		w.Body = body
		w.Header.Set("Content-Type", "application/json")
	}
	return w, nil
}

// BearerTokenHeaders 设置标准的 Bearer token 认证头。
func BearerTokenHeaders(h http.Header, credential string) {
	h.Set("Authorization", "Bearer "+credential)
}

// CheckStatus 将 2xx 以外的状态映射为 HTTPFailure{status, body}。
// body 按原文保留（非法 UTF-8 会被替换），为空时即为空字符串。
func CheckStatus(provider string, status int, body []byte) error {
	if status >= 200 && status <= 299 {
		return nil
	}
	return types.NewHTTPFailureError(provider, status, strings.ToValidUTF8(string(body), "�"))
}

// DecodeJSON 解析 JSON；任何结构错误都转换为 UnparsableResponse，绝不向上抛出原始解析错误。
func DecodeJSON(provider string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return types.NewUnparsableResponseError(provider, "response body is not the expected JSON shape").WithCause(err)
	}
	return nil
}

// MissingKey 报告响应中缺失的 key 路径。
func MissingKey(provider, path string) error {
	return types.NewUnparsableResponseError(provider, fmt.Sprintf("response is missing %s", path))
}

// TruncatedMarker 追加在被截断的错误响应体末尾。
const TruncatedMarker = "…[truncated]"

// ReadBody 读取响应体，最多 MaxResponseBytes 字节。
// 多读一个字节来判断是否溢出；溢出时返回前 MaxResponseBytes 字节且 truncated 为 true。
func ReadBody(r io.Reader) (body []byte, truncated bool, err error) {
	body, err = io.ReadAll(io.LimitReader(r, MaxResponseBytes+1))
	if err != nil {
		return nil, false, err
	}
	if len(body) > MaxResponseBytes {
		return body[:MaxResponseBytes], true, nil
	}
	return body, false, nil
}

// SortedUnique 去除空字符串、去重并按字典序排序。
func SortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// JoinURL 拼接基础 URL 与路径，避免出现重复斜杠。
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// SafeCloseBody 安全关闭 HTTP 响应体并忽略错误
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
