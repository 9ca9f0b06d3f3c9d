package llm

import (
	"sort"
)

// Default vendor endpoints.
const (
	OpenAIBaseURL    = "https://api.openai.com/v1"
	MistralBaseURL   = "https://api.mistral.ai/v1"
	AnthropicBaseURL = "https://api.anthropic.com/v1"
	GoogleBaseURL    = "https://generativelanguage.googleapis.com/v1beta/models"
)

// registry is the static catalog of supported vendors. Read-only after init.
var registry = map[ProviderKind]ProviderInfo{
	ProviderOpenAI: {
		Kind:        ProviderOpenAI,
		DisplayName: "OpenAI",
		BaseURL:     OpenAIBaseURL,
		Auth:        Auth{Scheme: AuthBearer},
		FallbackModels: []string{
			"gpt-3.5-turbo",
			"gpt-4",
			"gpt-4-turbo",
			"gpt-4o",
			"gpt-4o-mini",
		},
	},
	ProviderMistral: {
		Kind:        ProviderMistral,
		DisplayName: "Mistral AI",
		BaseURL:     MistralBaseURL,
		Auth:        Auth{Scheme: AuthBearer},
		FallbackModels: []string{
			"codestral-latest",
			"mistral-large-latest",
			"mistral-medium-latest",
			"mistral-small-latest",
			"open-mistral-nemo",
		},
	},
	ProviderAnthropic: {
		Kind:        ProviderAnthropic,
		DisplayName: "Anthropic (Claude)",
		BaseURL:     AnthropicBaseURL,
		Auth:        Auth{Scheme: AuthHeader, HeaderName: "x-api-key"},
		FallbackModels: []string{
			"claude-3-5-haiku-latest",
			"claude-3-5-sonnet-latest",
			"claude-3-haiku-20240307",
			"claude-3-opus-latest",
		},
	},
	ProviderGoogle: {
		Kind:        ProviderGoogle,
		DisplayName: "Google (Gemini)",
		BaseURL:     GoogleBaseURL,
		Auth:        Auth{Scheme: AuthQuery, QueryParam: "key"},
		FallbackModels: []string{
			"gemini-1.5-flash",
			"gemini-1.5-pro",
			"gemini-2.0-flash",
		},
	},
	ProviderCustom: {
		Kind:           ProviderCustom,
		DisplayName:    "Custom (OpenAI-compatible)",
		Auth:           Auth{Scheme: AuthBearer},
		FallbackModels: []string{},
	},
}

// Lookup returns the static metadata for a provider.
// The returned FallbackModels slice is a copy.
func Lookup(kind ProviderKind) (ProviderInfo, bool) {
	info, ok := registry[kind]
	if !ok {
		return ProviderInfo{}, false
	}
	info.FallbackModels = append([]string(nil), info.FallbackModels...)
	return info, true
}

// FallbackModels returns the static model list used before discovery succeeds.
// Unknown providers yield an empty list.
func FallbackModels(kind ProviderKind) []string {
	info, ok := Lookup(kind)
	if !ok {
		return []string{}
	}
	return info.FallbackModels
}

// Providers returns all supported providers sorted by kind.
func Providers() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(registry))
	for kind := range registry {
		info, _ := Lookup(kind)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
