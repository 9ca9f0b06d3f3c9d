package openai

import (
	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/providers"
	"github.com/BaSui01/chatgate/llm/providers/openaicompat"
	"github.com/BaSui01/chatgate/types"
)

// ChatURL returns {base}/chat/completions; an empty base means llm.OpenAIBaseURL.
func ChatURL(baseURL string) string {
	if baseURL == "" {
		baseURL = llm.OpenAIBaseURL
	}
	return providers.JoinURL(baseURL, "chat/completions")
}

// ModelsURL returns {base}/models; an empty base means llm.OpenAIBaseURL.
func ModelsURL(baseURL string) string {
	if baseURL == "" {
		baseURL = llm.OpenAIBaseURL
	}
	return providers.JoinURL(baseURL, "models")
}

// BuildChatRequest builds a chat completions request against baseURL.
func BuildChatRequest(baseURL, credential, model string, turns []types.Turn) (*llm.WireRequest, error) {
	return openaicompat.BuildChatRequest(ChatURL(baseURL), credential, model, turns)
}

// BuildModelsRequest builds the model listing request against baseURL.
func BuildModelsRequest(baseURL, credential string) (*llm.WireRequest, error) {
	return openaicompat.BuildModelsRequest(ModelsURL(baseURL), credential)
}
