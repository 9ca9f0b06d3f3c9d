package gateway

import (
	"fmt"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/providers"
	"github.com/BaSui01/chatgate/llm/providers/anthropic"
	"github.com/BaSui01/chatgate/llm/providers/gemini"
	"github.com/BaSui01/chatgate/llm/providers/mistral"
	"github.com/BaSui01/chatgate/llm/providers/openai"
	"github.com/BaSui01/chatgate/llm/providers/openaicompat"
	"github.com/BaSui01/chatgate/types"
)

// Target selects the vendor endpoint of a call.
// BaseURL overrides the registry default for hosted providers and is ignored for Custom.
type Target struct {
	Provider       llm.ProviderKind
	BaseURL        string
	CustomEndpoint string
}

func (t Target) base() string {
	if t.BaseURL != "" {
		return t.BaseURL
	}
	info, _ := llm.Lookup(t.Provider)
	return info.BaseURL
}

func unknownProvider(kind llm.ProviderKind) error {
	return types.NewError(types.ErrUnknownProvider, fmt.Sprintf("unknown provider %q", kind))
}

// BuildChat builds the vendor chat request. Pure, no I/O.
func BuildChat(t Target, credential, model string, turns []types.Turn) (*llm.WireRequest, error) {
	switch t.Provider {
	case llm.ProviderOpenAI:
		return openai.BuildChatRequest(t.base(), credential, model, turns)
	case llm.ProviderMistral:
		return mistral.BuildChatRequest(t.base(), credential, model, turns)
	case llm.ProviderCustom:
		chatURL, err := openaicompat.DeriveChatURL(t.CustomEndpoint)
		if err != nil {
			return nil, err
		}
		return openaicompat.BuildChatRequest(chatURL, credential, model, turns)
	case llm.ProviderAnthropic:
		return anthropic.BuildChatRequest(providers.JoinURL(t.base(), "messages"), credential, model, turns)
	case llm.ProviderGoogle:
		return gemini.BuildChatRequest(t.base(), credential, model, turns)
	default:
		return nil, unknownProvider(t.Provider)
	}
}

// DecodeChat extracts the assistant text from a vendor response.
func DecodeChat(kind llm.ProviderKind, status int, body []byte) (string, error) {
	switch kind {
	case llm.ProviderOpenAI, llm.ProviderMistral, llm.ProviderCustom:
		return openaicompat.DecodeChat(kind.String(), status, body)
	case llm.ProviderAnthropic:
		return anthropic.DecodeChat(kind.String(), status, body)
	case llm.ProviderGoogle:
		return gemini.DecodeChat(kind.String(), status, body)
	default:
		return "", unknownProvider(kind)
	}
}

// BuildModels builds the model listing request. Pure, no I/O.
func BuildModels(t Target, credential string) (*llm.WireRequest, error) {
	switch t.Provider {
	case llm.ProviderOpenAI:
		return openai.BuildModelsRequest(t.base(), credential)
	case llm.ProviderMistral:
		return mistral.BuildModelsRequest(t.base(), credential)
	case llm.ProviderCustom:
		modelsURL, err := openaicompat.DeriveModelsURL(t.CustomEndpoint)
		if err != nil {
			return nil, err
		}
		return openaicompat.BuildModelsRequest(modelsURL, credential)
	case llm.ProviderAnthropic:
		return anthropic.BuildModelsRequest(providers.JoinURL(t.base(), "models"), credential)
	case llm.ProviderGoogle:
		return gemini.BuildModelsRequest(t.base(), credential)
	default:
		return nil, unknownProvider(t.Provider)
	}
}

// DecodeModels normalizes a vendor listing into a sorted, deduplicated list.
func DecodeModels(kind llm.ProviderKind, status int, body []byte) ([]string, error) {
	switch kind {
	case llm.ProviderOpenAI, llm.ProviderMistral, llm.ProviderCustom:
		return openaicompat.DecodeModels(kind.String(), status, body)
	case llm.ProviderAnthropic:
		return anthropic.DecodeModels(kind.String(), status, body)
	case llm.ProviderGoogle:
		return gemini.DecodeModels(kind.String(), status, body)
	default:
		return nil, unknownProvider(kind)
	}
}
