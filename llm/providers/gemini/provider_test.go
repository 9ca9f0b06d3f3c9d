package gemini

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuildChatRequest_URLAndHeaders(t *testing.T) {
	w, err := BuildChatRequest(llm.GoogleBaseURL, "AIza key&x=1", "gemini-1.5-pro",
		[]types.Turn{types.NewUserTurn("hi")})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, w.Method)
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent?key=AIza+key%26x%3D1",
		w.URL)
	assert.Empty(t, w.Header.Get("Authorization"))
	assert.Empty(t, w.Header.Get("x-api-key"))
	assert.Empty(t, w.Header.Get("x-goog-api-key"))
	assert.NotContains(t, string(w.Body), "AIza")
}

func TestChatURL_ModelIsOnePathSegment(t *testing.T) {
	raw := ChatURL(llm.GoogleBaseURL, "tuned/a?b#c", "k")
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/tuned%2Fa%3Fb%23c:generateContent?key=k", raw)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Empty(t, u.Fragment)
	assert.Equal(t, "k", u.Query().Get("key"))
	assert.Equal(t, "/v1beta/models/tuned/a?b#c:generateContent", u.Path)
}

func TestBuildChatRequest_OnlyLatestUserTurn(t *testing.T) {
	turns := []types.Turn{
		types.NewUserTurn("first question"),
		types.NewAssistantTurn("first answer"),
		types.NewUserTurn("second question"),
	}
	w, err := BuildChatRequest(llm.GoogleBaseURL, "k", "gemini-1.5-flash", turns)
	require.NoError(t, err)

	var body struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			MaxOutputTokens int `json:"maxOutputTokens"`
		} `json:"generationConfig"`
	}
	require.NoError(t, json.Unmarshal(w.Body, &body))
	require.Len(t, body.Contents, 1)
	require.Len(t, body.Contents[0].Parts, 1)
	assert.Equal(t, "second question", body.Contents[0].Parts[0].Text)
	assert.Equal(t, 4096, body.GenerationConfig.MaxOutputTokens)
	assert.NotContains(t, string(w.Body), "first answer")
}

func TestBuildChatRequest_BaseOverride(t *testing.T) {
	w, err := BuildChatRequest("http://127.0.0.1:9000/v1beta/models/", "k", "m", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/v1beta/models/m:generateContent?key=k", w.URL)
}

func TestDecodeChat(t *testing.T) {
	text, err := DecodeChat("google", 200, []byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hallo"}]},"finishReason":"STOP"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Hallo", text)

	for name, body := range map[string]string{
		"no candidates":    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"empty candidates": `{"candidates":[]}`,
		"no content":       `{"candidates":[{"finishReason":"SAFETY"}]}`,
		"no parts":         `{"candidates":[{"content":{"role":"model"}}]}`,
		"no text":          `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`,
		"array body":       `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeChat("google", 200, []byte(body))
			assert.True(t, types.IsErrorCode(err, types.ErrUnparsableResponse), "got %v", err)
		})
	}
}

func TestDecodeChat_HTTPFailure(t *testing.T) {
	_, err := DecodeChat("google", 400, []byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrHTTPFailure, e.Code)
	assert.Equal(t, 400, e.HTTPStatus)
	assert.Contains(t, e.Body, "API key not valid")
}

func TestBuildModelsRequest(t *testing.T) {
	w, err := BuildModelsRequest(llm.GoogleBaseURL, "k/1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, w.Method)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models?key=k%2F1", w.URL)
	assert.Empty(t, w.Header.Get("Authorization"))
	assert.Nil(t, w.Body)
}

func TestDecodeModels(t *testing.T) {
	ids, err := DecodeModels("google", 200, []byte(`{"models":[{"name":"models/gemini-1.5-pro"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-1.5-pro"}, ids)

	ids, err = DecodeModels("google", 200, []byte(`{"models":[
		{"name":"models/gemini-2.0-flash"},
		{"name":"tunedModels/x/gemini-1.5-flash"},
		{"name":"models/gemini-2.0-flash"},
		{"name":"models/"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-1.5-flash", "gemini-2.0-flash"}, ids)
}

func TestDecodeModels_Failures(t *testing.T) {
	for _, body := range []string{`{}`, `{"models":[]}`, `{"models":[{"name":"models/"}]}`, `{"data":[{"id":"x"}]}`} {
		_, err := DecodeModels("google", 200, []byte(body))
		assert.True(t, types.IsErrorCode(err, types.ErrUnparsableResponse), "body %s: %v", body, err)
	}
}

func TestStripModelPrefix(t *testing.T) {
	assert.Equal(t, "gemini-pro", StripModelPrefix("models/gemini-pro"))
	assert.Equal(t, "gemini-pro", StripModelPrefix("gemini-pro"))
	assert.Equal(t, "c", StripModelPrefix("a/b/c"))
	assert.Equal(t, "", StripModelPrefix("models/"))
}

// The credential always round-trips through the key query parameter unchanged.
func TestProperty_CredentialInQuery(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cred := rapid.StringN(1, 40, -1).Draw(t, "credential")
		model := rapid.StringMatching(`[a-z][a-z0-9.\-]{0,15}`).Draw(t, "model")

		w, err := BuildChatRequest(llm.GoogleBaseURL, cred, model, []types.Turn{types.NewUserTurn("x")})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		u, err := url.Parse(w.URL)
		if err != nil {
			t.Fatalf("parse %q: %v", w.URL, err)
		}
		if got := u.Query().Get("key"); got != cred {
			t.Fatalf("key = %q, want %q", got, cred)
		}
		if w.Header.Get("Authorization") != "" {
			t.Fatalf("unexpected Authorization header")
		}
	})
}
