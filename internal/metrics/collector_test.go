package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("test", reg, zap.NewNop()), reg
}

func TestNewCollector(t *testing.T) {
	collector, reg := newTestCollector(t)

	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.gatewayCallsTotal)
	assert.NotNil(t, collector.catalogListingsTotal)

	// 同一注册表重复注册会 panic
	assert.Panics(t, func() { NewCollector("test", reg, nil) })
	assert.NotPanics(t, func() { NewCollector("other", reg, nil) })
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordHTTPRequest("GET", "/api/v1/models", 200, 100*time.Millisecond, 0, 2048)
	collector.RecordHTTPRequest("GET", "/api/v1/models", 204, 50*time.Millisecond, 0, 0)
	collector.RecordHTTPRequest("POST", "/api/v1/turns", 502, 50*time.Millisecond, 128, 64)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/v1/models", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/turns", "5xx")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.httpRequestDuration))
}

func TestCollector_GatewayObserver(t *testing.T) {
	collector, _ := newTestCollector(t)

	status := http.StatusOK
	body := `{"choices":[{"message":{"content":"hi"}}]}`
	gw := gateway.New(
		gateway.WithDoer(gateway.DoerFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}, nil
		})),
		gateway.WithObserver(collector),
	)
	ctx := context.Background()

	_, err := gw.SendTurn(ctx, gateway.TurnRequest{Provider: llm.ProviderOpenAI, Credential: "k", Model: "m", Text: "x"})
	require.NoError(t, err)

	status, body = http.StatusUnauthorized, "unauthorized"
	_, err = gw.SendTurn(ctx, gateway.TurnRequest{Provider: llm.ProviderOpenAI, Credential: "k", Model: "m", Text: "x"})
	require.Error(t, err)

	_, err = gw.FetchModels(ctx, gateway.ModelsRequest{Provider: llm.ProviderAnthropic, Credential: " "})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.gatewayCallsTotal.WithLabelValues("openai", "chat", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.gatewayCallsTotal.WithLabelValues("openai", "chat", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.gatewayErrorsTotal.WithLabelValues("openai", "chat", "HTTP_FAILURE", "decoding")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.gatewayErrorsTotal.WithLabelValues("anthropic", "models", "MISSING_CREDENTIAL", "validating")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.gatewayActiveCalls.WithLabelValues("openai", "chat")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.gatewayActiveCalls.WithLabelValues("anthropic", "models")))
}

func TestCollector_RecordListing(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordListing(context.Background(), "google", "fallback")
	collector.RecordListing(context.Background(), "google", "fallback")
	collector.RecordListing(context.Background(), "google", "live")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.catalogListingsTotal.WithLabelValues("google", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.catalogListingsTotal.WithLabelValues("google", "live")))
}

func TestCollector_RecordDBConnections(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordDBConnections("sqlite", 10, 5)

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("sqlite")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("sqlite")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector, _ := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
			collector.RecordListing(context.Background(), "openai", "live")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/test", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.catalogListingsTotal.WithLabelValues("openai", "live")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(201))
	assert.Equal(t, "3xx", statusCode(304))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(0))
}
