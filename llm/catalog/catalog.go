package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Source 标明模型列表的来源。
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

const (
	keyPrefix       = "models:"
	refreshParallel = 4
)

// Fetcher 拉取实时模型列表。*gateway.Gateway 满足该接口。
type Fetcher interface {
	FetchModels(ctx context.Context, req gateway.ModelsRequest) ([]string, error)
}

// Store 是缓存列表的键值存储，与 session.KV 的方法集一致。
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Recorder 接收每次列表结果的来源。
type Recorder interface {
	RecordListing(ctx context.Context, provider, source string)
}

// Listing 是一次列表请求的结果。Err 保留实时发现失败的原因。
type Listing struct {
	Provider  llm.ProviderKind `json:"provider"`
	Models    []string         `json:"models"`
	Source    Source           `json:"source"`
	FetchedAt time.Time        `json:"fetched_at,omitempty"`
	Err       error            `json:"-"`
}

type cachedListing struct {
	Models    []string  `json:"models"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Option 配置 Catalog。
type Option func(*Catalog)

// WithStore 设置缓存存储。未设置时不缓存。
func WithStore(s Store) Option {
	return func(c *Catalog) { c.store = s }
}

// WithTTL 设置缓存列表的有效期，0 表示永不过期。
func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) { c.ttl = ttl }
}

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder 添加列表来源记录器。
func WithRecorder(r Recorder) Option {
	return func(c *Catalog) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// Catalog 封装模型发现的回退与合并策略。
type Catalog struct {
	fetcher   Fetcher
	store     Store
	ttl       time.Duration
	logger    *zap.Logger
	recorders []Recorder

	group      singleflight.Group
	generation atomic.Uint64
	now        func() time.Time
}

// New 创建 Catalog。
func New(fetcher Fetcher, opts ...Option) *Catalog {
	c := &Catalog{
		fetcher: fetcher,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "catalog"))
	return c
}

// Models 返回提供商的模型列表。实时发现的任何失败都回退到缓存或静态列表，
// 只有未知提供商才返回错误。
func (c *Catalog) Models(ctx context.Context, req gateway.ModelsRequest) (Listing, error) {
	if _, ok := llm.Lookup(req.Provider); !ok {
		return Listing{}, types.NewError(types.ErrUnknownProvider,
			"unknown provider "+string(req.Provider)).WithProvider(string(req.Provider))
	}

	// 共享的拉取不随第一个调用方取消，耗时由 Fetcher 自身的超时约束。
	ch := c.group.DoChan(cacheKey(req), func() (any, error) {
		return c.resolve(context.WithoutCancel(ctx), req), nil
	})

	var listing Listing
	select {
	case res := <-ch:
		listing = res.Val.(Listing)
		listing.Models = append([]string(nil), listing.Models...)
	case <-ctx.Done():
		listing = abandoned(req.Provider, ctx.Err())
	}

	for _, r := range c.recorders {
		r.RecordListing(ctx, string(req.Provider), string(listing.Source))
	}
	return listing, nil
}

// abandoned 是调用方自身 ctx 结束时的回退结果。
func abandoned(kind llm.ProviderKind, cause error) Listing {
	code := types.ErrTransport
	if errors.Is(cause, context.DeadlineExceeded) {
		code = types.ErrUpstreamTimeout
	}
	return Listing{
		Provider: kind,
		Models:   llm.FallbackModels(kind),
		Source:   SourceFallback,
		Err:      types.NewError(code, "model discovery abandoned").WithProvider(string(kind)).WithCause(cause),
	}
}

func (c *Catalog) resolve(ctx context.Context, req gateway.ModelsRequest) Listing {
	key := cacheKey(req)

	models, err := c.fetcher.FetchModels(ctx, req)
	if err == nil {
		now := c.now()
		c.save(ctx, key, cachedListing{Models: models, FetchedAt: now})
		return Listing{Provider: req.Provider, Models: models, Source: SourceLive, FetchedAt: now}
	}

	c.logger.Warn("model discovery failed, falling back",
		zap.String("provider", string(req.Provider)),
		zap.String("error_code", string(types.GetErrorCode(err))),
		zap.Error(err))

	if credentialRejected(err) {
		return Listing{Provider: req.Provider, Models: llm.FallbackModels(req.Provider),
			Source: SourceFallback, Err: err}
	}
	if cached, ok := c.load(ctx, key); ok {
		return Listing{Provider: req.Provider, Models: cached.Models, Source: SourceCache,
			FetchedAt: cached.FetchedAt, Err: err}
	}
	return Listing{Provider: req.Provider, Models: llm.FallbackModels(req.Provider),
		Source: SourceFallback, Err: err}
}

func (c *Catalog) load(ctx context.Context, key string) (cachedListing, bool) {
	if c.store == nil {
		return cachedListing{}, false
	}
	data, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warn("failed to load cached models", zap.String("key", key), zap.Error(err))
		return cachedListing{}, false
	}
	if !ok {
		return cachedListing{}, false
	}
	var cached cachedListing
	if err := json.Unmarshal(data, &cached); err != nil || len(cached.Models) == 0 {
		return cachedListing{}, false
	}
	if c.ttl > 0 && c.now().Sub(cached.FetchedAt) > c.ttl {
		return cachedListing{}, false
	}
	return cached, true
}

func (c *Catalog) save(ctx context.Context, key string, cached cachedListing) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := c.store.Save(ctx, key, data); err != nil {
		c.logger.Warn("failed to cache models", zap.String("key", key), zap.Error(err))
	}
}

// RefreshAll 并发刷新多个配置记录的模型列表，结果按提供商索引。
// 任何记录的提供商未知或重复时，不发起请求直接返回错误。
func (c *Catalog) RefreshAll(ctx context.Context, recs []types.ConfigRecord) (map[llm.ProviderKind]Listing, error) {
	reqs := make([]gateway.ModelsRequest, 0, len(recs))
	seen := make(map[llm.ProviderKind]struct{}, len(recs))
	for _, rec := range recs {
		kind, err := llm.ParseProviderKind(rec.Provider)
		if err != nil {
			return nil, types.NewError(types.ErrUnknownProvider, err.Error())
		}
		if _, dup := seen[kind]; dup {
			return nil, types.NewError(types.ErrInvalidRequest,
				"duplicate config record for provider "+string(kind)).WithProvider(string(kind))
		}
		seen[kind] = struct{}{}
		reqs = append(reqs, gateway.ModelsRequest{Provider: kind, Credential: rec.Credential, CustomEndpoint: rec.CustomEndpoint})
	}

	var (
		mu  sync.Mutex
		out = make(map[llm.ProviderKind]Listing, len(reqs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshParallel)

	for _, req := range reqs {
		kind := req.Provider
		g.Go(func() error {
			listing, err := c.Models(gctx, req)
			if err != nil {
				return err
			}
			mu.Lock()
			out[kind] = listing
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- 代次票据 ---

// Ticket 标记一次列表请求开始时的代次。
type Ticket struct {
	gen uint64
	c   *Catalog
}

// Begin 开启新的一代，之前发出的票据全部失效。
func (c *Catalog) Begin() Ticket {
	return Ticket{gen: c.generation.Add(1), c: c}
}

// Current 报告票据是否仍是最新一代。结果为 false 时调用方应丢弃该结果。
func (t Ticket) Current() bool {
	return t.c != nil && t.c.generation.Load() == t.gen
}

// --- 键 ---

// cacheKey 同时用于缓存与合并。不同凭证可能看到不同的模型，键包含凭证摘要。
func cacheKey(req gateway.ModelsRequest) string {
	return keyPrefix + string(req.Provider) +
		":" + digest(strings.TrimSpace(req.CustomEndpoint)) +
		":" + digest(llm.NormalizeCredential(req.Credential))
}

// credentialRejected 报告错误是否说明凭证本身无效；此时不返回任何缓存列表。
func credentialRejected(err error) bool {
	e, ok := types.AsError(err)
	if !ok {
		return false
	}
	switch e.Code {
	case types.ErrMissingCredential:
		return true
	case types.ErrHTTPFailure:
		return e.HTTPStatus == 401 || e.HTTPStatus == 403
	}
	return false
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
