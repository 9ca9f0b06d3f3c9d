package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/providers"
	"github.com/BaSui01/chatgate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingDoer 记录所有请求并返回固定响应。
type recordingDoer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	status   int
	body     string
	err      error
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b []byte
	if req.Body != nil {
		b, _ = io.ReadAll(req.Body)
	}
	d.requests = append(d.requests, req)
	d.bodies = append(d.bodies, b)
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func (d *recordingDoer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func newTestGateway(t *testing.T, d Doer, opts ...Option) *Gateway {
	t.Helper()
	return New(append([]Option{WithDoer(d), WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

var allProviders = []llm.ProviderKind{
	llm.ProviderOpenAI,
	llm.ProviderMistral,
	llm.ProviderAnthropic,
	llm.ProviderGoogle,
	llm.ProviderCustom,
}

const customEndpoint = "https://llm.internal/v1/chat/completions"

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestSendTurn_MissingCredentialMakesNoCalls(t *testing.T) {
	for _, kind := range allProviders {
		for _, cred := range []string{"", "   ", "\t\n"} {
			d := &recordingDoer{status: 200}
			g := newTestGateway(t, d)

			_, err := g.SendTurn(context.Background(), TurnRequest{
				Provider:       kind,
				Credential:     cred,
				Model:          "m",
				CustomEndpoint: "not a url",
				Text:           "hi",
			})
			assert.True(t, types.IsErrorCode(err, types.ErrMissingCredential), "%s: %v", kind, err)
			assert.Zero(t, d.calls(), kind)

			_, err = g.FetchModels(context.Background(), ModelsRequest{Provider: kind, Credential: cred})
			assert.True(t, types.IsErrorCode(err, types.ErrMissingCredential), "%s: %v", kind, err)
			assert.Zero(t, d.calls(), kind)
		}
	}
}

func TestCustom_InvalidEndpointMakesNoCalls(t *testing.T) {
	for _, endpoint := range []string{"", "not a url", "/v1/chat/completions"} {
		d := &recordingDoer{status: 200}
		g := newTestGateway(t, d)

		_, err := g.SendTurn(context.Background(), TurnRequest{
			Provider: llm.ProviderCustom, Credential: "k", Model: "m", CustomEndpoint: endpoint, Text: "hi",
		})
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidCustomEndpoint), "%q: %v", endpoint, err)

		_, err = g.FetchModels(context.Background(), ModelsRequest{
			Provider: llm.ProviderCustom, Credential: "k", CustomEndpoint: endpoint,
		})
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidCustomEndpoint), "%q: %v", endpoint, err)
		assert.Zero(t, d.calls())
	}
}

func TestSendTurn_UnknownProviderAndEmptyModel(t *testing.T) {
	d := &recordingDoer{status: 200}
	g := newTestGateway(t, d)

	_, err := g.SendTurn(context.Background(), TurnRequest{Provider: "cohere", Credential: "k", Model: "m"})
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownProvider))

	_, err = g.SendTurn(context.Background(), TurnRequest{Provider: llm.ProviderOpenAI, Credential: "k", Model: " "})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	assert.Zero(t, d.calls())
}

// ---------------------------------------------------------------------------
// Wire shape
// ---------------------------------------------------------------------------

func TestSendTurn_PerProviderRequest(t *testing.T) {
	tests := []struct {
		kind     llm.ProviderKind
		reply    string
		wantURL  string
		checkHdr func(t *testing.T, h http.Header)
	}{
		{
			kind:    llm.ProviderOpenAI,
			reply:   `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`,
			wantURL: "https://api.openai.com/v1/chat/completions",
			checkHdr: func(t *testing.T, h http.Header) {
				assert.Equal(t, "Bearer sk-1", h.Get("Authorization"))
			},
		},
		{
			kind:    llm.ProviderMistral,
			reply:   `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`,
			wantURL: "https://api.mistral.ai/v1/chat/completions",
			checkHdr: func(t *testing.T, h http.Header) {
				assert.Equal(t, "Bearer sk-1", h.Get("Authorization"))
			},
		},
		{
			kind:    llm.ProviderCustom,
			reply:   `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`,
			wantURL: customEndpoint,
			checkHdr: func(t *testing.T, h http.Header) {
				assert.Equal(t, "Bearer sk-1", h.Get("Authorization"))
			},
		},
		{
			kind:    llm.ProviderAnthropic,
			reply:   `{"content":[{"type":"text","text":"ok"}]}`,
			wantURL: "https://api.anthropic.com/v1/messages",
			checkHdr: func(t *testing.T, h http.Header) {
				assert.Equal(t, "sk-1", h.Get("x-api-key"))
				assert.Equal(t, "2023-06-01", h.Get("anthropic-version"))
				assert.Empty(t, h.Get("Authorization"))
			},
		},
		{
			kind:    llm.ProviderGoogle,
			reply:   `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`,
			wantURL: "https://generativelanguage.googleapis.com/v1beta/models/m:generateContent?key=sk-1",
			checkHdr: func(t *testing.T, h http.Header) {
				assert.Empty(t, h.Get("Authorization"))
				assert.Empty(t, h.Get("x-api-key"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d := &recordingDoer{status: 200, body: tt.reply}
			g := newTestGateway(t, d)

			text, err := g.SendTurn(context.Background(), TurnRequest{
				Provider:       tt.kind,
				Credential:     "  sk-1  ",
				Model:          "m",
				CustomEndpoint: customEndpoint,
				Text:           "hello",
			})
			require.NoError(t, err)
			assert.Equal(t, "ok", text)
			require.Equal(t, 1, d.calls())

			req := d.requests[0]
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, tt.wantURL, req.URL.String())
			tt.checkHdr(t, req.Header)
			assert.NotContains(t, string(d.bodies[0]), "sk-1")
		})
	}
}

func TestSendTurn_ReplaysPriorInOrderWithoutSystemNotes(t *testing.T) {
	d := &recordingDoer{status: 200, body: `{"choices":[{"message":{"content":"fine"}}]}`}
	g := newTestGateway(t, d)

	prior := []types.Turn{
		types.NewUserTurn("a"),
		types.NewAssistantTurn("b"),
		types.NewTurn(types.RoleSystem, "Error: [HTTP_FAILURE] openai: unexpected status 500"),
		types.NewUserTurn("c"),
		types.NewAssistantTurn("d"),
	}
	_, err := g.SendTurn(context.Background(), TurnRequest{
		Provider: llm.ProviderOpenAI, Credential: "k", Model: "gpt-4o", Prior: prior, Text: "e",
	})
	require.NoError(t, err)

	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(d.bodies[0], &body))
	var got []string
	for _, m := range body.Messages {
		got = append(got, m.Role+":"+m.Content)
	}
	assert.Equal(t, []string{"user:a", "assistant:b", "user:c", "assistant:d", "user:e"}, got)
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestNon2xxIsHTTPFailureForEveryProvider(t *testing.T) {
	for _, kind := range allProviders {
		t.Run(string(kind), func(t *testing.T) {
			d := &recordingDoer{status: 401, body: "unauthorized"}
			g := newTestGateway(t, d)

			_, err := g.SendTurn(context.Background(), TurnRequest{
				Provider: kind, Credential: "k", Model: "m", CustomEndpoint: customEndpoint, Text: "hi",
			})
			e, ok := types.AsError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, types.ErrHTTPFailure, e.Code)
			assert.Equal(t, 401, e.HTTPStatus)
			assert.Equal(t, "unauthorized", e.Body)

			_, err = g.FetchModels(context.Background(), ModelsRequest{
				Provider: kind, Credential: "k", CustomEndpoint: customEndpoint,
			})
			e, ok = types.AsError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, types.ErrHTTPFailure, e.Code)
			assert.Equal(t, 401, e.HTTPStatus)
			assert.Equal(t, "unauthorized", e.Body)

			assert.Equal(t, 2, d.calls(), "no retries")
		})
	}
}

func TestSendTurn_Timeout(t *testing.T) {
	blocking := DoerFunc(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})
	g := newTestGateway(t, blocking, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := g.SendTurn(context.Background(), TurnRequest{
		Provider: llm.ProviderAnthropic, Credential: "k", Model: "m", Text: "hi",
	})
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchModels_TransportErrorRedactsKey(t *testing.T) {
	calls := 0
	g := newTestGateway(t, DoerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("connection refused")}
	}))

	_, err := g.FetchModels(context.Background(), ModelsRequest{Provider: llm.ProviderGoogle, Credential: "secret-key"})
	require.True(t, types.IsErrorCode(err, types.ErrTransport), "got %v", err)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, calls)
}

func TestSendTurn_CallerCancellationIsTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := newTestGateway(t, DoerFunc(func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	}))
	_, err := g.SendTurn(ctx, TurnRequest{Provider: llm.ProviderOpenAI, Credential: "k", Model: "m", Text: "x"})
	assert.True(t, types.IsErrorCode(err, types.ErrTransport), "got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendTurn_UnparsableBody(t *testing.T) {
	d := &recordingDoer{status: 200, body: `{"unexpected":true}`}
	g := newTestGateway(t, d)
	for _, kind := range allProviders {
		_, err := g.SendTurn(context.Background(), TurnRequest{
			Provider: kind, Credential: "k", Model: "m", CustomEndpoint: customEndpoint, Text: "hi",
		})
		assert.True(t, types.IsErrorCode(err, types.ErrUnparsableResponse), "%s: %v", kind, err)
	}
}

func TestOversizedBody(t *testing.T) {
	huge := strings.Repeat("x", providers.MaxResponseBytes+10)

	t.Run("2xx is unparsable", func(t *testing.T) {
		g := newTestGateway(t, &recordingDoer{status: 200, body: huge})
		_, err := g.SendTurn(context.Background(), TurnRequest{
			Provider: llm.ProviderOpenAI, Credential: "k", Model: "m", Text: "hi",
		})
		require.True(t, types.IsErrorCode(err, types.ErrUnparsableResponse), "got %v", err)
		assert.Contains(t, err.Error(), "exceeds")
	})

	t.Run("error body is marked", func(t *testing.T) {
		g := newTestGateway(t, &recordingDoer{status: 502, body: huge})
		_, err := g.FetchModels(context.Background(), ModelsRequest{Provider: llm.ProviderOpenAI, Credential: "k"})
		e, ok := types.AsError(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, types.ErrHTTPFailure, e.Code)
		assert.Equal(t, 502, e.HTTPStatus)
		assert.True(t, strings.HasSuffix(e.Body, providers.TruncatedMarker))
		assert.Len(t, e.Body, providers.MaxResponseBytes+len(providers.TruncatedMarker))
	})
}

// ---------------------------------------------------------------------------
// Discovery
// ---------------------------------------------------------------------------

func TestFetchModels_Idempotent(t *testing.T) {
	fixtures := map[llm.ProviderKind]string{
		llm.ProviderOpenAI:    `{"data":[{"id":"gpt-4o"},{"id":"gpt-4"},{"id":"gpt-4o"}]}`,
		llm.ProviderMistral:   `{"object":"list","data":[{"id":"mistral-small-latest"},{"id":"codestral-latest"}]}`,
		llm.ProviderCustom:    `{"data":[{"id":"llama3"}]}`,
		llm.ProviderAnthropic: `{"data":[{"id":"claude-3-5-sonnet-latest"},{"name":"claude-3-opus"}]}`,
		llm.ProviderGoogle:    `{"models":[{"name":"models/gemini-1.5-pro"}]}`,
	}
	want := map[llm.ProviderKind][]string{
		llm.ProviderOpenAI:    {"gpt-4", "gpt-4o"},
		llm.ProviderMistral:   {"codestral-latest", "mistral-small-latest"},
		llm.ProviderCustom:    {"llama3"},
		llm.ProviderAnthropic: {"claude-3-5-sonnet-latest", "claude-3-opus"},
		llm.ProviderGoogle:    {"gemini-1.5-pro"},
	}

	for kind, body := range fixtures {
		t.Run(string(kind), func(t *testing.T) {
			d := &recordingDoer{status: 200, body: body}
			g := newTestGateway(t, d)
			req := ModelsRequest{Provider: kind, Credential: "k", CustomEndpoint: customEndpoint}

			first, err := g.FetchModels(context.Background(), req)
			require.NoError(t, err)
			second, err := g.FetchModels(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, want[kind], first)
			assert.Equal(t, first, second)
			assert.Equal(t, http.MethodGet, d.requests[0].Method)
		})
	}
}

func TestFetchModels_ListingURLs(t *testing.T) {
	tests := map[llm.ProviderKind]string{
		llm.ProviderOpenAI:    "https://api.openai.com/v1/models",
		llm.ProviderMistral:   "https://api.mistral.ai/v1/models",
		llm.ProviderAnthropic: "https://api.anthropic.com/v1/models",
		llm.ProviderGoogle:    "https://generativelanguage.googleapis.com/v1beta/models?key=k",
		llm.ProviderCustom:    "https://llm.internal/v1/models",
	}
	for kind, wantURL := range tests {
		d := &recordingDoer{status: 500}
		g := newTestGateway(t, d)
		_, _ = g.FetchModels(context.Background(), ModelsRequest{Provider: kind, Credential: "k", CustomEndpoint: customEndpoint})
		require.Equal(t, 1, d.calls())
		assert.Equal(t, wantURL, d.requests[0].URL.String(), kind)
	}
}

func TestFetchModels_RealServerWithBaseOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" || r.URL.Path != "/v1/models" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"models":[{"name":"claude-b"},{"id":"claude-a"}]}`)
	}))
	defer srv.Close()

	g := New(WithLogger(zaptest.NewLogger(t)), WithBaseURL(llm.ProviderAnthropic, srv.URL+"/v1"))
	ids, err := g.FetchModels(context.Background(), ModelsRequest{Provider: llm.ProviderAnthropic, Credential: "k"})
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-a", "claude-b"}, ids)

	_, err = g.FetchModels(context.Background(), ModelsRequest{Provider: llm.ProviderAnthropic, Credential: "wrong"})
	assert.True(t, types.IsErrorCode(err, types.ErrHTTPFailure))
}

// ---------------------------------------------------------------------------
// Observer
// ---------------------------------------------------------------------------

type phaseRecorder struct {
	mu       sync.Mutex
	phases   []Phase
	finished []Call
	errs     []error
}

func (r *phaseRecorder) OnPhase(_ context.Context, c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, c.Phase)
}

func (r *phaseRecorder) OnFinish(_ context.Context, c Call, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, c)
	r.errs = append(r.errs, err)
}

func TestObserver_Phases(t *testing.T) {
	rec := &phaseRecorder{}
	d := &recordingDoer{status: 200, body: `{"choices":[{"message":{"content":"x"}}]}`}
	g := newTestGateway(t, d, WithObserver(rec))

	_, err := g.SendTurn(context.Background(), TurnRequest{Provider: llm.ProviderOpenAI, Credential: "k", Model: "m", Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, []Phase{
		PhaseIdle, PhaseValidating, PhaseBuilding, PhaseSending, PhaseDecoding, PhaseSucceeded,
	}, rec.phases)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, OpChat, rec.finished[0].Operation)
	assert.Equal(t, 200, rec.finished[0].Status)
	assert.NoError(t, rec.errs[0])

	rec.phases = nil
	_, err = g.FetchModels(context.Background(), ModelsRequest{Provider: llm.ProviderOpenAI})
	require.Error(t, err)
	assert.Equal(t, []Phase{PhaseIdle, PhaseValidating, PhaseFailed}, rec.phases)
	require.Len(t, rec.finished, 2)
	assert.Equal(t, PhaseValidating, rec.finished[1].FailedIn)
	assert.True(t, rec.finished[1].Phase.Terminal())
}

func TestCallState_NoTransitionAfterTerminal(t *testing.T) {
	rec := &phaseRecorder{}
	g := newTestGateway(t, &recordingDoer{status: 200}, WithObserver(rec))

	c := g.begin(context.Background(), OpChat, llm.ProviderOpenAI, "m")
	c.call.Phase = PhaseFailed
	c.enter(PhaseSending)

	assert.Equal(t, PhaseFailed, c.call.Phase)
	assert.Equal(t, []Phase{PhaseIdle}, rec.phases)
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	d := &recordingDoer{status: 200, body: `{"choices":[{"message":{"content":"same"}}]}`}
	g := newTestGateway(t, d)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := g.SendTurn(context.Background(), TurnRequest{
				Provider: llm.ProviderOpenAI, Credential: "k", Model: "m", Text: "q",
			})
			assert.NoError(t, err)
			assert.Equal(t, "same", text)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, d.calls())
}
