package anthropic

import (
	"net/http"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/providers"
	"github.com/BaSui01/chatgate/types"
)

const (
	// Version is the anthropic-version header value every request carries.
	Version = "2023-06-01"

	headerAPIKey  = "x-api-key"
	headerVersion = "anthropic-version"
)

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
}

type claudeModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type claudeModelsResponse struct {
	Data   *[]claudeModel `json:"data"`
	Models *[]claudeModel `json:"models"`
}

func setHeaders(h http.Header, credential string) {
	h.Set(headerAPIKey, credential)
	h.Set(headerVersion, Version)
}

// BuildChatRequest 构建 POST {messagesURL}。
// 角色原样映射（user / assistant），不做 system 角色转换。
func BuildChatRequest(messagesURL, credential, model string, turns []types.Turn) (*llm.WireRequest, error) {
	msgs := make([]claudeMessage, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == types.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, claudeMessage{Role: role, Content: t.Text})
	}
	w, err := providers.NewJSONRequest(http.MethodPost, messagesURL, claudeRequest{
		Model:     model,
		MaxTokens: providers.MaxTokens,
		Messages:  msgs,
	})
	if err != nil {
		return nil, err
	}
	setHeaders(w.Header, credential)
	return w, nil
}

// DecodeChat 提取 content[0].text。
func DecodeChat(provider string, status int, body []byte) (string, error) {
	if err := providers.CheckStatus(provider, status, body); err != nil {
		return "", err
	}
	var resp claudeResponse
	if err := providers.DecodeJSON(provider, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", providers.MissingKey(provider, "content[0]")
	}
	if resp.Content[0].Text == nil {
		return "", providers.MissingKey(provider, "content[0].text")
	}
	return *resp.Content[0].Text, nil
}

// BuildModelsRequest 构建 GET {modelsURL}。
func BuildModelsRequest(modelsURL, credential string) (*llm.WireRequest, error) {
	w, err := providers.NewJSONRequest(http.MethodGet, modelsURL, nil)
	if err != nil {
		return nil, err
	}
	setHeaders(w.Header, credential)
	return w, nil
}

// DecodeModels 先取 data，缺失时回退到 models；条目优先 id，其次 name。
// 空字符串丢弃，结果去重排序；为空时返回 UnparsableResponse。
func DecodeModels(provider string, status int, body []byte) ([]string, error) {
	if err := providers.CheckStatus(provider, status, body); err != nil {
		return nil, err
	}
	var resp claudeModelsResponse
	if err := providers.DecodeJSON(provider, body, &resp); err != nil {
		return nil, err
	}
	var items []claudeModel
	switch {
	case resp.Data != nil:
		items = *resp.Data
	case resp.Models != nil:
		items = *resp.Models
	}
	ids := make([]string, 0, len(items))
	for _, m := range items {
		if m.ID != "" {
			ids = append(ids, m.ID)
			continue
		}
		ids = append(ids, m.Name)
	}
	ids = providers.SortedUnique(ids)
	if len(ids) == 0 {
		return nil, types.NewUnparsableResponseError(provider, "model list is empty")
	}
	return ids, nil
}
