package gemini

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/providers"
	"github.com/BaSui01/chatgate/types"
)

type geminiPart struct {
	Text *string `json:"text,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiModelsResponse struct {
	Models *[]struct {
		Name string `json:"name"`
	} `json:"models"`
}

// withKey 将凭据作为 key 查询参数追加到 URL 上（百分号编码）。
func withKey(rawURL, credential string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "key=" + url.QueryEscape(credential)
}

// ChatURL returns {base}/{model}:generateContent?key={credential}.
// The model is a single path segment, so '/', '?' and '#' are escaped.
func ChatURL(baseURL, model, credential string) string {
	return withKey(providers.JoinURL(baseURL, url.PathEscape(model))+":generateContent", credential)
}

// ModelsURL returns {base}?key={credential}.
func ModelsURL(baseURL, credential string) string {
	return withKey(strings.TrimRight(baseURL, "/"), credential)
}

// BuildChatRequest 构建 generateContent 请求。只发送最新一条用户消息，
// 之前的 assistant 回复不会回放给 Gemini。
func BuildChatRequest(baseURL, credential, model string, turns []types.Turn) (*llm.WireRequest, error) {
	text := types.LatestUserText(turns)
	return providers.NewJSONRequest(http.MethodPost, ChatURL(baseURL, model, credential), geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: &text}}}},
		GenerationConfig: geminiGenerationConfig{MaxOutputTokens: providers.MaxTokens},
	})
}

// DecodeChat 提取 candidates[0].content.parts[0].text。
func DecodeChat(provider string, status int, body []byte) (string, error) {
	if err := providers.CheckStatus(provider, status, body); err != nil {
		return "", err
	}
	var resp geminiResponse
	if err := providers.DecodeJSON(provider, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", providers.MissingKey(provider, "candidates[0]")
	}
	c := resp.Candidates[0].Content
	if c == nil {
		return "", providers.MissingKey(provider, "candidates[0].content")
	}
	if len(c.Parts) == 0 {
		return "", providers.MissingKey(provider, "candidates[0].content.parts[0]")
	}
	if c.Parts[0].Text == nil {
		return "", providers.MissingKey(provider, "candidates[0].content.parts[0].text")
	}
	return *c.Parts[0].Text, nil
}

// BuildModelsRequest 构建 GET {base}?key=...，不设置认证请求头。
func BuildModelsRequest(baseURL, credential string) (*llm.WireRequest, error) {
	return providers.NewJSONRequest(http.MethodGet, ModelsURL(baseURL, credential), nil)
}

// DecodeModels 解析 {"models":[{"name":"models/<id>"}]}。
func DecodeModels(provider string, status int, body []byte) ([]string, error) {
	if err := providers.CheckStatus(provider, status, body); err != nil {
		return nil, err
	}
	var resp geminiModelsResponse
	if err := providers.DecodeJSON(provider, body, &resp); err != nil {
		return nil, err
	}
	if resp.Models == nil {
		return nil, providers.MissingKey(provider, "models")
	}
	ids := make([]string, 0, len(*resp.Models))
	for _, m := range *resp.Models {
		ids = append(ids, StripModelPrefix(m.Name))
	}
	ids = providers.SortedUnique(ids)
	if len(ids) == 0 {
		return nil, types.NewUnparsableResponseError(provider, "model list is empty")
	}
	return ids, nil
}

// StripModelPrefix 去掉最后一个 "/" 及其之前的所有内容。
func StripModelPrefix(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
