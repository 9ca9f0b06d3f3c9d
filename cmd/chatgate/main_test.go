package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatgate/llm"
)

// =============================================================================
// 🧪 子命令测试：chat / models / providers / health
// =============================================================================

// newVendor 模拟 OpenAI 兼容厂商，只接受 Bearer k。
func newVendor(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/chat/completions":
			_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/models":
			_, _ = io.WriteString(w, `{"data":[{"id":"gpt-b"},{"id":"gpt-a"},{"id":"gpt-b"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig 写入把 openai 基础 URL 指向 base 的配置文件。
func writeConfig(t *testing.T, base string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway:\n  openai_base_url: "+base+"\n"), 0o600))
	return path
}

func TestRunChat(t *testing.T) {
	vendor := newVendor(t)
	cfgPath := writeConfig(t, vendor.URL+"/v1")

	tests := []struct {
		name    string
		args    []string
		envKey  string
		want    string
		wantErr string
	}{
		{
			name: "custom endpoint with key flag",
			args: []string{"--provider", "custom", "--endpoint", vendor.URL + "/v1", "--key", "k", "--model", "local", "ping"},
			want: "pong\n",
		},
		{
			name:   "hosted provider with key from env",
			args:   []string{"--config", cfgPath, "--provider", "openai", "hello", "there"},
			envKey: "k",
			want:   "pong\n",
		},
		{
			name:    "rejected key",
			args:    []string{"--config", cfgPath, "--provider", "openai", "--key", "wrong", "ping"},
			wantErr: "HTTP 401",
		},
		{
			name:    "missing key",
			args:    []string{"--config", cfgPath, "--provider", "openai", "ping"},
			wantErr: "no API key configured for openai",
		},
		{
			name:    "custom without model",
			args:    []string{"--provider", "custom", "--endpoint", vendor.URL + "/v1", "--key", "k", "ping"},
			wantErr: "model is required",
		},
		{
			name:    "empty text",
			args:    []string{"--provider", "openai", "--key", "k", "  "},
			wantErr: "message text is required",
		},
		{
			name:    "unknown provider",
			args:    []string{"--provider", "cohere", "--key", "k", "ping"},
			wantErr: "cohere",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(providerKeyEnv, tt.envKey)
			var out bytes.Buffer
			err := runChat(tt.args, &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, out.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunModels(t *testing.T) {
	vendor := newVendor(t)
	cfgPath := writeConfig(t, vendor.URL+"/v1")

	t.Run("live listing is sorted and deduplicated", func(t *testing.T) {
		t.Setenv(providerKeyEnv, "k")
		var out bytes.Buffer
		require.NoError(t, runModels([]string{"--provider", "custom", "--endpoint", vendor.URL + "/v1/chat/completions"}, &out))
		assert.Equal(t, "# custom models (live)\ngpt-a\ngpt-b\n", out.String())
	})

	t.Run("rejected key falls back to static list", func(t *testing.T) {
		t.Setenv(providerKeyEnv, "")
		var out bytes.Buffer
		require.NoError(t, runModels([]string{"--config", cfgPath, "--provider", "openai", "--key", "wrong"}, &out))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.GreaterOrEqual(t, len(lines), 2)
		assert.Equal(t, "# openai models (fallback)", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "# live discovery failed: HTTP 401"), lines[1])
		assert.Equal(t, llm.FallbackModels(llm.ProviderOpenAI), lines[2:])
	})

	t.Run("invalid custom endpoint", func(t *testing.T) {
		t.Setenv(providerKeyEnv, "k")
		var out bytes.Buffer
		require.NoError(t, runModels([]string{"--provider", "custom", "--endpoint", "not a url"}, &out))
		assert.Contains(t, out.String(), "# custom models (fallback)")
		assert.Contains(t, out.String(), "the custom endpoint URL is not valid")
	})

	t.Run("unknown provider", func(t *testing.T) {
		var out bytes.Buffer
		assert.Error(t, runModels([]string{"--provider", "cohere"}, &out))
	})
}

func TestRunProviders(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runProviders(&out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(llm.Providers())+1)
	assert.Regexp(t, `^KIND\s+NAME\s+AUTH\s+BASE URL$`, lines[0])
	for i, info := range llm.Providers() {
		assert.True(t, strings.HasPrefix(lines[i+1], string(info.Kind)+" "), lines[i+1])
	}
	assert.Contains(t, out.String(), "(runtime)")
	assert.Contains(t, out.String(), llm.OpenAIBaseURL)
}

func TestRunHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	stopped := httptest.NewServer(http.NotFoundHandler())
	stoppedURL := stopped.URL
	stopped.Close()

	tests := []struct {
		name    string
		addr    string
		wantErr string
	}{
		{name: "healthy", addr: healthy.URL + "/"},
		{name: "unhealthy", addr: unhealthy.URL, wantErr: "status 503"},
		{name: "unreachable", addr: stoppedURL, wantErr: "health check failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runHealthCheck([]string{"--addr", tt.addr}, &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "OK\n", out.String())
		})
	}
}

func TestPrintVersionAndUsage(t *testing.T) {
	var out bytes.Buffer
	printVersion(&out)
	assert.Contains(t, out.String(), "ChatGate "+Version)

	out.Reset()
	printUsage(&out)
	for _, cmd := range []string{"serve", "chat", "models", "providers", "health", "version"} {
		assert.Contains(t, out.String(), cmd)
	}
}
