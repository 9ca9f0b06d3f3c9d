package gateway

import (
	"testing"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChat_BaseOverride(t *testing.T) {
	tests := []struct {
		kind llm.ProviderKind
		base string
		want string
	}{
		{llm.ProviderOpenAI, "http://proxy:8080/v1", "http://proxy:8080/v1/chat/completions"},
		{llm.ProviderMistral, "http://proxy:8080/v1/", "http://proxy:8080/v1/chat/completions"},
		{llm.ProviderAnthropic, "http://proxy:8080/v1", "http://proxy:8080/v1/messages"},
		{llm.ProviderGoogle, "http://proxy:8080/v1beta/models", "http://proxy:8080/v1beta/models/gemini-1.5-pro:generateContent?key=k"},
	}
	for _, tt := range tests {
		w, err := BuildChat(Target{Provider: tt.kind, BaseURL: tt.base}, "k", "gemini-1.5-pro", nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, w.URL, tt.kind)
	}
}

func TestBuildChat_CustomIgnoresBaseURL(t *testing.T) {
	w, err := BuildChat(Target{
		Provider:       llm.ProviderCustom,
		BaseURL:        "http://ignored",
		CustomEndpoint: "http://localhost:11434/v1",
	}, "k", "llama3", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", w.URL)
}

func TestDispatch_UnknownProvider(t *testing.T) {
	_, err := BuildChat(Target{Provider: "nope"}, "k", "m", nil)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownProvider))
	_, err = BuildModels(Target{Provider: "nope"}, "k")
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownProvider))
	_, err = DecodeChat("nope", 200, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownProvider))
	_, err = DecodeModels("nope", 200, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownProvider))
}

func TestDecodeChat_FixturesPerShape(t *testing.T) {
	fixtures := map[llm.ProviderKind]string{
		llm.ProviderOpenAI:    `{"choices":[{"message":{"content":"A"}}]}`,
		llm.ProviderMistral:   `{"choices":[{"message":{"content":"A"}}]}`,
		llm.ProviderCustom:    `{"choices":[{"message":{"content":"A"}}]}`,
		llm.ProviderAnthropic: `{"content":[{"text":"A"}]}`,
		llm.ProviderGoogle:    `{"candidates":[{"content":{"parts":[{"text":"A"}]}}]}`,
	}
	for kind, body := range fixtures {
		text, err := DecodeChat(kind, 200, []byte(body))
		require.NoError(t, err, kind)
		assert.Equal(t, "A", text)
	}
}
