// =============================================================================
// chatgate OpenAI-Compatible Codec
// =============================================================================
// Shared request builder and response decoder for every provider that speaks
// the OpenAI chat completions dialect: OpenAI, Mistral and user supplied
// custom endpoints. Only the URLs differ between them.
// =============================================================================

package openaicompat

import (
	"net/http"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/providers"
	"github.com/BaSui01/chatgate/types"
)

// Message is one entry of the OpenAI messages array.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat completions request body.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// chatResponse uses pointers so that a missing key can be told apart from an empty value.
type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelsResponse struct {
	Data *[]struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ConvertTurns maps turns to OpenAI messages, keeping order and roles.
func ConvertTurns(turns []types.Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, Message{Role: string(t.Role), Content: t.Text})
	}
	return out
}

// BuildChatRequest builds POST {chatURL} with Bearer auth.
func BuildChatRequest(chatURL, credential, model string, turns []types.Turn) (*llm.WireRequest, error) {
	w, err := providers.NewJSONRequest(http.MethodPost, chatURL, ChatRequest{
		Model:     model,
		Messages:  ConvertTurns(turns),
		MaxTokens: providers.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	providers.BearerTokenHeaders(w.Header, credential)
	return w, nil
}

// DecodeChat extracts choices[0].message.content.
func DecodeChat(provider string, status int, body []byte) (string, error) {
	if err := providers.CheckStatus(provider, status, body); err != nil {
		return "", err
	}
	var resp chatResponse
	if err := providers.DecodeJSON(provider, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", providers.MissingKey(provider, "choices[0]")
	}
	msg := resp.Choices[0].Message
	if msg == nil {
		return "", providers.MissingKey(provider, "choices[0].message")
	}
	if msg.Content == nil {
		return "", providers.MissingKey(provider, "choices[0].message.content")
	}
	return *msg.Content, nil
}

// BuildModelsRequest builds GET {modelsURL} with Bearer auth.
func BuildModelsRequest(modelsURL, credential string) (*llm.WireRequest, error) {
	w, err := providers.NewJSONRequest(http.MethodGet, modelsURL, nil)
	if err != nil {
		return nil, err
	}
	providers.BearerTokenHeaders(w.Header, credential)
	return w, nil
}

// DecodeModels normalizes {data: [{id}]} into a sorted list of ids.
// An empty result is reported as UnparsableResponse.
func DecodeModels(provider string, status int, body []byte) ([]string, error) {
	if err := providers.CheckStatus(provider, status, body); err != nil {
		return nil, err
	}
	var resp modelsResponse
	if err := providers.DecodeJSON(provider, body, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, providers.MissingKey(provider, "data")
	}
	ids := make([]string, 0, len(*resp.Data))
	for _, m := range *resp.Data {
		ids = append(ids, m.ID)
	}
	ids = providers.SortedUnique(ids)
	if len(ids) == 0 {
		return nil, types.NewUnparsableResponseError(provider, "model list is empty")
	}
	return ids, nil
}
