package mistral

import (
	"testing"

	"github.com/BaSui01/chatgate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChatRequest(t *testing.T) {
	w, err := BuildChatRequest("", "m-key", "mistral-large-latest", []types.Turn{
		types.NewUserTurn("bonjour"),
		types.NewAssistantTurn("salut"),
		types.NewUserTurn("ça va ?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.mistral.ai/v1/chat/completions", w.URL)
	assert.Equal(t, "Bearer m-key", w.Header.Get("Authorization"))
	assert.JSONEq(t, `{
		"model":"mistral-large-latest",
		"messages":[
			{"role":"user","content":"bonjour"},
			{"role":"assistant","content":"salut"},
			{"role":"user","content":"ça va ?"}
		],
		"max_tokens":4096
	}`, string(w.Body))
}

func TestBuildModelsRequest(t *testing.T) {
	w, err := BuildModelsRequest("", "m-key")
	require.NoError(t, err)
	assert.Equal(t, "https://api.mistral.ai/v1/models", w.URL)
	assert.Nil(t, w.Body)
}
