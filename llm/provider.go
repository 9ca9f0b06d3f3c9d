package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ProviderKind 是受支持的厂商枚举（封闭集合），按此做 switch 分发。
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderMistral   ProviderKind = "mistral"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderGoogle    ProviderKind = "google"
	ProviderCustom    ProviderKind = "custom" // OpenAI 兼容的自定义端点，URL 运行时提供
)

// String returns the wire name of the provider.
func (k ProviderKind) String() string { return string(k) }

// OpenAICompatible reports whether the provider speaks the OpenAI chat completions dialect.
func (k ProviderKind) OpenAICompatible() bool {
	switch k {
	case ProviderOpenAI, ProviderMistral, ProviderCustom:
		return true
	}
	return false
}

// ParseProviderKind 解析 Provider 名称（大小写不敏感，接受常见别名）。
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "chatgpt":
		return ProviderOpenAI, nil
	case "mistral", "mistralai":
		return ProviderMistral, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "google", "gemini":
		return ProviderGoogle, nil
	case "custom", "openai-compatible", "openaicompat":
		return ProviderCustom, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// AuthScheme 描述凭据在请求中的放置方式。
type AuthScheme string

const (
	AuthBearer AuthScheme = "bearer" // Authorization: Bearer <credential>
	AuthHeader AuthScheme = "header" // <HeaderName>: <credential>
	AuthQuery  AuthScheme = "query"  // ?<QueryParam>=<credential>
)

// Auth is the per-vendor credential placement.
type Auth struct {
	Scheme     AuthScheme `json:"scheme"`
	HeaderName string     `json:"header_name,omitempty"`
	QueryParam string     `json:"query_param,omitempty"`
}

// ProviderInfo 是静态 Provider 元数据。
// BaseURL 为空表示运行时提供（Custom）。
type ProviderInfo struct {
	Kind           ProviderKind `json:"kind"`
	DisplayName    string       `json:"display_name"`
	BaseURL        string       `json:"base_url,omitempty"`
	Auth           Auth         `json:"auth"`
	FallbackModels []string     `json:"fallback_models"`
}

// WireRequest is a fully built vendor request. Building one performs no I/O.
type WireRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// ToHTTP converts the wire request into an *http.Request bound to ctx.
func (w *WireRequest) ToHTTP(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if w.Body != nil {
		body = bytes.NewReader(w.Body)
	}
	req, err := http.NewRequestWithContext(ctx, w.Method, w.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range w.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}
