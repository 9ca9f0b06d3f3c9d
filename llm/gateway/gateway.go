package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/chatgate/internal/tlsutil"
	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/providers"
	"github.com/BaSui01/chatgate/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single vendor round trip.
const DefaultTimeout = 60 * time.Second

const instrumentationName = "github.com/BaSui01/chatgate/llm/gateway"

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// TurnRequest is the input of SendTurn. Prior is replayed in order before Text.
type TurnRequest struct {
	Provider       llm.ProviderKind
	Credential     string
	Model          string
	CustomEndpoint string
	Prior          []types.Turn
	Text           string
}

// ModelsRequest is the input of FetchModels.
type ModelsRequest struct {
	Provider       llm.ProviderKind
	Credential     string
	CustomEndpoint string
}

// --- 选项 ---

// Option configures a Gateway.
type Option func(*Gateway)

// WithDoer replaces the HTTP transport (tests use a recording double).
func WithDoer(d Doer) Option {
	return func(g *Gateway) {
		g.doer = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTimeout sets the per-call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithBaseURL overrides the default base URL of a hosted provider.
func WithBaseURL(kind llm.ProviderKind, baseURL string) Option {
	return func(g *Gateway) {
		if baseURL != "" {
			g.baseURLs[kind] = baseURL
		}
	}
}

// WithObserver registers an observer. May be repeated.
func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		if o != nil {
			g.observers = append(g.observers, o)
		}
	}
}

// WithTracerProvider sets the tracer provider; the global one is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gateway) {
		if tp != nil {
			g.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// --- Gateway ---

// Gateway is stateless per call and safe for concurrent use.
type Gateway struct {
	doer      Doer
	logger    *zap.Logger
	timeout   time.Duration
	baseURLs  map[llm.ProviderKind]string
	observers []Observer
	tracer    trace.Tracer
}

// New creates a Gateway.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		logger:   zap.NewNop(),
		timeout:  DefaultTimeout,
		baseURLs: make(map[llm.ProviderKind]string),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.doer == nil {
		g.doer = tlsutil.SecureHTTPClient(g.timeout)
	}
	g.logger = g.logger.With(zap.String("component", "gateway"))
	return g
}

// Timeout returns the per-call timeout.
func (g *Gateway) Timeout() time.Duration { return g.timeout }

func (g *Gateway) target(kind llm.ProviderKind, customEndpoint string) Target {
	return Target{Provider: kind, BaseURL: g.baseURLs[kind], CustomEndpoint: customEndpoint}
}

// SendTurn sends Prior followed by a new user turn and returns the assistant text.
// System turns in Prior are never sent.
func (g *Gateway) SendTurn(ctx context.Context, req TurnRequest) (string, error) {
	c := g.begin(ctx, OpChat, req.Provider, req.Model)
	ctx, span := g.startSpan(ctx, c)

	var text string
	err := func() error {
		c.enter(PhaseValidating)
		credential, err := validate(req.Provider, req.Credential)
		if err != nil {
			return err
		}
		if strings.TrimSpace(req.Model) == "" {
			return types.NewError(types.ErrInvalidRequest, "model is required").WithProvider(req.Provider.String())
		}

		c.enter(PhaseBuilding)
		turns := append(types.ReplayableTurns(req.Prior), types.NewUserTurn(req.Text))
		w, err := BuildChat(g.target(req.Provider, req.CustomEndpoint), credential, req.Model, turns)
		if err != nil {
			return err
		}

		status, body, err := g.roundTrip(ctx, c, w)
		if err != nil {
			return err
		}

		c.enter(PhaseDecoding)
		text, err = DecodeChat(req.Provider, status, body)
		return err
	}()

	g.finish(ctx, c, span, err)
	if err != nil {
		return "", err
	}
	return text, nil
}

// FetchModels queries the vendor for its live model list.
// The result is sorted and deduplicated; an empty listing is UNPARSABLE_RESPONSE.
func (g *Gateway) FetchModels(ctx context.Context, req ModelsRequest) ([]string, error) {
	c := g.begin(ctx, OpModels, req.Provider, "")
	ctx, span := g.startSpan(ctx, c)

	var ids []string
	err := func() error {
		c.enter(PhaseValidating)
		credential, err := validate(req.Provider, req.Credential)
		if err != nil {
			return err
		}

		c.enter(PhaseBuilding)
		w, err := BuildModels(g.target(req.Provider, req.CustomEndpoint), credential)
		if err != nil {
			return err
		}

		status, body, err := g.roundTrip(ctx, c, w)
		if err != nil {
			return err
		}

		c.enter(PhaseDecoding)
		ids, err = DecodeModels(req.Provider, status, body)
		return err
	}()

	g.finish(ctx, c, span, err)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// validate 校验 Provider 与凭据，返回去除首尾空白后的凭据。
func validate(kind llm.ProviderKind, credential string) (string, error) {
	if _, ok := llm.Lookup(kind); !ok {
		return "", unknownProvider(kind)
	}
	credential = llm.NormalizeCredential(credential)
	if credential == "" {
		return "", types.NewMissingCredentialError(kind.String())
	}
	return credential, nil
}

// roundTrip 执行唯一一次网络请求并读取完整响应体。
func (g *Gateway) roundTrip(ctx context.Context, c *callState, w *llm.WireRequest) (int, []byte, error) {
	c.enter(PhaseSending)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := w.ToHTTP(ctx)
	if err != nil {
		return 0, nil, types.NewError(types.ErrInvalidRequest, "failed to build HTTP request").
			WithProvider(c.call.Provider.String()).WithCause(err)
	}

	g.logger.Debug("sending request",
		zap.String("call_id", c.call.ID),
		zap.String("provider", c.call.Provider.String()),
		zap.String("method", w.Method),
		zap.String("url", redactURL(w.URL)))

	resp, err := g.doer.Do(httpReq)
	if err != nil {
		return 0, nil, transportError(ctx, c.call.Provider, err)
	}
	defer providers.SafeCloseBody(resp.Body)

	c.call.Status = resp.StatusCode
	body, truncated, err := providers.ReadBody(resp.Body)
	if err != nil {
		return 0, nil, transportError(ctx, c.call.Provider, err)
	}
	if truncated {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			c.enter(PhaseDecoding)
			return 0, nil, types.NewUnparsableResponseError(c.call.Provider.String(),
				fmt.Sprintf("response body exceeds %d bytes", providers.MaxResponseBytes))
		}
		body = append(body, providers.TruncatedMarker...)
	}
	return resp.StatusCode, body, nil
}

// transportError 将网络层错误分类为 UPSTREAM_TIMEOUT 或 TRANSPORT。
// URL 中的查询串会被抹掉。
func transportError(ctx context.Context, kind llm.ProviderKind, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewError(types.ErrUpstreamTimeout, "upstream did not respond in time").
			WithProvider(kind.String()).WithCause(err)
	}
	return types.NewError(types.ErrTransport, "request failed").WithProvider(kind.String()).WithCause(err)
}

// redactURL 去掉查询串，避免把 Google 的 key 写进日志。
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// --- 调用生命周期 ---

type callState struct {
	g    *Gateway
	ctx  context.Context
	call Call
}

func (g *Gateway) begin(ctx context.Context, op Operation, kind llm.ProviderKind, model string) *callState {
	c := &callState{
		g:   g,
		ctx: ctx,
		call: Call{
			ID:        uuid.NewString(),
			Operation: op,
			Provider:  kind,
			Model:     model,
			Phase:     PhaseIdle,
			Started:   time.Now(),
		},
	}
	c.notify()
	return c
}

func (c *callState) enter(p Phase) {
	if c.call.Phase.Terminal() {
		return
	}
	c.call.Phase = p
	c.notify()
}

func (c *callState) notify() {
	for _, o := range c.g.observers {
		o.OnPhase(c.ctx, c.call)
	}
}

func (g *Gateway) startSpan(ctx context.Context, c *callState) (context.Context, trace.Span) {
	ctx, span := g.tracer.Start(ctx, "chatgate/gateway."+string(c.call.Operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.call_id", c.call.ID),
			attribute.String("llm.provider", c.call.Provider.String()),
			attribute.String("llm.model", c.call.Model),
		))
	c.ctx = ctx
	return ctx, span
}

func (g *Gateway) finish(ctx context.Context, c *callState, span trace.Span, err error) {
	defer span.End()
	duration := time.Since(c.call.Started)

	fields := []zap.Field{
		zap.String("call_id", c.call.ID),
		zap.String("operation", string(c.call.Operation)),
		zap.String("provider", c.call.Provider.String()),
		zap.Duration("duration", duration),
	}
	if c.call.Model != "" {
		fields = append(fields, zap.String("model", c.call.Model))
	}
	if c.call.Status != 0 {
		fields = append(fields, zap.Int("status", c.call.Status))
		span.SetAttributes(attribute.Int("http.response.status_code", c.call.Status))
	}

	if err != nil {
		c.call.FailedIn = c.call.Phase
		c.call.Phase = PhaseFailed
		code := types.GetErrorCode(err)
		span.SetAttributes(
			attribute.String("gateway.phase", string(c.call.FailedIn)),
			attribute.String("gateway.error_code", string(code)),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		g.logger.Warn("gateway call failed", append(fields,
			zap.String("failed_in", string(c.call.FailedIn)),
			zap.String("code", string(code)),
			zap.Error(err))...)
	} else {
		c.call.Phase = PhaseSucceeded
		span.SetAttributes(attribute.String("gateway.phase", string(PhaseSucceeded)))
		span.SetStatus(codes.Ok, "")
		g.logger.Debug("gateway call succeeded", fields...)
	}

	c.notify()
	for _, o := range g.observers {
		o.OnFinish(ctx, c.call, duration, err)
	}
}
