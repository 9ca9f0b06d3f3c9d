package api

import (
	"time"

	"github.com/BaSui01/chatgate/types"
)

// =============================================================================
// 对话轮次
// =============================================================================

// Turn 是 API 中的一条消息。
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// TurnRequest 是无状态发送请求，Prior 为按时间顺序排列的历史。
type TurnRequest struct {
	Provider       string `json:"provider"`
	Credential     string `json:"credential"`
	Model          string `json:"model"`
	CustomEndpoint string `json:"custom_endpoint,omitempty"`
	Prior          []Turn `json:"prior,omitempty"`
	Text           string `json:"text"`
}

// TurnResponse 是供应商回复。
type TurnResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Text     string `json:"text"`
}

// =============================================================================
// 模型发现
// =============================================================================

// ModelsResponse 是模型列表。Source 为 live、cache 或 fallback；
// 非 live 时 Error 说明实时发现失败的原因。
type ModelsResponse struct {
	Provider  string     `json:"provider"`
	Models    []string   `json:"models"`
	Source    string     `json:"source"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Error     *Problem   `json:"error,omitempty"`
}

// Problem 是嵌入在成功响应中的非致命错误。
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProviderInfo 是静态提供商目录中的一项。
type ProviderInfo struct {
	Kind           string   `json:"kind"`
	DisplayName    string   `json:"display_name"`
	BaseURL        string   `json:"base_url,omitempty"`
	AuthScheme     string   `json:"auth_scheme"`
	FallbackModels []string `json:"fallback_models"`
}

// =============================================================================
// 会话与配置
// =============================================================================

// CreateConversationResponse 返回新会话 ID。
type CreateConversationResponse struct {
	ID string `json:"id"`
}

// ConversationResponse 是完整会话。
type ConversationResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []Turn    `json:"turns"`
}

// MessageRequest 向会话发送一条用户消息。
type MessageRequest struct {
	Text string `json:"text"`
}

// ConfigRequest 保存一个提供商配置。
type ConfigRequest struct {
	Provider       string `json:"provider"`
	Credential     string `json:"credential"`
	SelectedModel  string `json:"selected_model"`
	CustomEndpoint string `json:"custom_endpoint,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// ConfigResponse 是对外展示的配置，凭据只给出掩码。
type ConfigResponse struct {
	Provider       string `json:"provider"`
	Credential     string `json:"credential"`
	SelectedModel  string `json:"selected_model"`
	CustomEndpoint string `json:"custom_endpoint,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// =============================================================================
// 转换
// =============================================================================

// TurnFrom 转换领域消息。
func TurnFrom(t types.Turn) Turn {
	return Turn{Role: string(t.Role), Text: t.Text, CreatedAt: t.CreatedAt}
}

// TurnsFrom 转换领域消息列表。
func TurnsFrom(ts []types.Turn) []Turn {
	out := make([]Turn, len(ts))
	for i, t := range ts {
		out[i] = TurnFrom(t)
	}
	return out
}

// ToDomain 转换为领域消息。
func (t Turn) ToDomain() types.Turn {
	return types.Turn{Role: types.Role(t.Role), Text: t.Text, CreatedAt: t.CreatedAt}
}

// ToDomain 转换为领域配置记录。
func (c ConfigRequest) ToDomain() types.ConfigRecord {
	return types.ConfigRecord{
		Provider:       c.Provider,
		Credential:     c.Credential,
		SelectedModel:  c.SelectedModel,
		CustomEndpoint: c.CustomEndpoint,
		IsActive:       c.IsActive,
	}
}
