package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/BaSui01/chatgate/api/handlers"
	"github.com/BaSui01/chatgate/config"
	"github.com/BaSui01/chatgate/internal/cache"
	"github.com/BaSui01/chatgate/internal/database"
	"github.com/BaSui01/chatgate/internal/metrics"
	"github.com/BaSui01/chatgate/internal/server"
	"github.com/BaSui01/chatgate/internal/telemetry"
	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/catalog"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/llm/observability"
	"github.com/BaSui01/chatgate/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// publicPaths 不需要鉴权
var publicPaths = []string{"/health", "/healthz", "/ready", "/version"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ChatGate 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	otel   *telemetry.Providers

	registry  *prometheus.Registry
	collector *metrics.Collector

	gateway *gateway.Gateway
	catalog *catalog.Catalog
	store   *session.Store
	pool    *database.PoolManager
	closers []func() error

	health *handlers.HealthHandler

	httpManager    *server.Manager
	metricsManager *server.Manager

	// 限流清理与连接池指标协程的生命周期
	cancel context.CancelFunc
}

// NewServer 组装所有组件，不监听端口。gwOpts 追加在默认网关选项之后。
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers, gwOpts ...gateway.Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		otel:     otelProviders,
		registry: prometheus.NewRegistry(),
		health:   handlers.NewHealthHandler(logger),
	}
	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.collector = metrics.NewCollector("chatgate", s.registry, logger)

	otelMetrics, err := observability.NewMetrics(otelProviders.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create otel metrics: %w", err)
	}

	opts := append(gatewayOptions(cfg.Gateway, logger),
		gateway.WithObserver(s.collector),
		gateway.WithObserver(otelMetrics),
		gateway.WithTracerProvider(otelProviders.TracerProvider()),
	)
	s.gateway = gateway.New(append(opts, gwOpts...)...)

	kv, err := s.openKV(ctx)
	if err != nil {
		s.closeAll()
		return nil, err
	}
	s.store = session.NewStore(kv, logger)

	s.catalog = catalog.New(s.gateway,
		catalog.WithStore(kv),
		catalog.WithTTL(cfg.Gateway.CatalogTTL),
		catalog.WithLogger(logger),
		catalog.WithRecorder(s.collector),
		catalog.WithRecorder(otelMetrics),
	)
	return s, nil
}

// gatewayOptions 把配置映射为网关选项，CLI 子命令也使用它
func gatewayOptions(cfg config.GatewayConfig, logger *zap.Logger) []gateway.Option {
	return []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithTimeout(cfg.Timeout),
		gateway.WithBaseURL(llm.ProviderOpenAI, cfg.OpenAIBaseURL),
		gateway.WithBaseURL(llm.ProviderMistral, cfg.MistralBaseURL),
		gateway.WithBaseURL(llm.ProviderAnthropic, cfg.AnthropicBaseURL),
		gateway.WithBaseURL(llm.ProviderGoogle, cfg.GoogleBaseURL),
	}
}

// openKV 按 session.backend 选择存储，并注册对应的就绪检查
func (s *Server) openKV(ctx context.Context) (session.KV, error) {
	switch s.cfg.Session.Backend {
	case config.BackendMemory, "":
		return session.NewMemoryKV(), nil

	case config.BackendRedis:
		rc := s.cfg.Redis
		m, err := cache.NewManager(cache.Config{
			Addr:                rc.Addr,
			Password:            rc.Password,
			DB:                  rc.DB,
			KeyPrefix:           s.cfg.Session.KeyPrefix,
			PoolSize:            rc.PoolSize,
			MinIdleConns:        rc.MinIdleConns,
			TLSEnabled:          rc.TLSEnabled,
			HealthCheckInterval: 30 * time.Second,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		kv := session.NewRedisKV(m)
		s.closers = append(s.closers, kv.Close)
		s.health.RegisterCheck(handlers.NewPingCheck("redis", m.Ping))
		return kv, nil

	case config.BackendSQL:
		dc := s.cfg.Database
		pool, err := database.Open(dc.Driver, dc.DSN(), database.PoolConfig{
			MaxIdleConns:        dc.MaxIdleConns,
			MaxOpenConns:        dc.MaxOpenConns,
			ConnMaxLifetime:     dc.ConnMaxLifetime,
			ConnMaxIdleTime:     10 * time.Minute,
			HealthCheckInterval: 30 * time.Second,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		kv, err := session.NewSQLKV(pool)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		s.pool = pool
		s.closers = append(s.closers, kv.Close)
		s.health.RegisterCheck(handlers.NewPingCheck("database", pool.Ping))
		return kv, nil

	case config.BackendMongo:
		mc := s.cfg.Mongo
		kv, err := session.DialMongoKV(ctx, session.MongoOptions{
			URI:        mc.URI,
			Database:   mc.Database,
			Collection: mc.Collection,
			Timeout:    mc.Timeout,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, kv.Close)
		s.health.RegisterCheck(handlers.NewPingCheck("mongo", kv.Ping))
		return kv, nil
	}
	return nil, fmt.Errorf("unsupported session backend %q", s.cfg.Session.Backend)
}

// =============================================================================
// 🧭 路由
// =============================================================================

// Handler 返回完整的 API 处理链。ctx 控制限流清理协程。
func (s *Server) Handler(ctx context.Context) http.Handler {
	turns := handlers.NewTurnHandler(s.gateway, s.logger)
	models := handlers.NewModelsHandler(s.catalog, s.logger)
	conversations := handlers.NewConversationHandler(s.store, session.NewChat(s.store, s.gateway, s.logger), s.logger)
	configs := handlers.NewConfigHandler(s.store, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health.HandleHealth)
	mux.HandleFunc("GET /healthz", s.health.HandleHealth)
	mux.HandleFunc("GET /ready", s.health.HandleReady)
	mux.HandleFunc("GET /version", s.health.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("POST /api/v1/turns", turns.HandleSend)
	mux.HandleFunc("GET /api/v1/models", models.HandleModels)
	mux.HandleFunc("GET /api/v1/providers", models.HandleProviders)

	mux.HandleFunc("POST /api/v1/conversations", conversations.HandleCreate)
	mux.HandleFunc("GET /api/v1/conversations/{id}", conversations.HandleGet)
	mux.HandleFunc("POST /api/v1/conversations/{id}/messages", conversations.HandleMessage)

	mux.HandleFunc("GET /api/v1/configs", configs.HandleList)
	mux.HandleFunc("PUT /api/v1/configs", configs.HandleSave)
	mux.HandleFunc("GET /api/v1/configs/active", configs.HandleActive)

	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		Metrics(s.collector),
		OTelTracing(s.otel.TracerProvider(), otel.GetTextMapPropagator()),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}
	auth := AuthConfig{
		APIKeys:   s.cfg.Server.APIKeys,
		JWTSecret: s.cfg.Server.JWTSecret,
		JWTIssuer: s.cfg.Server.JWTIssuer,
		SkipPaths: publicPaths,
	}
	if auth.Enabled() {
		chain = append(chain, Auth(auth, s.logger))
	} else {
		s.logger.Warn("no API keys or JWT secret configured, API is unauthenticated")
	}

	return Chain(mux, chain...)
}

// =============================================================================
// 🚀 启动与关闭
// =============================================================================

// Start 启动 API 与 metrics 服务器（非阻塞）
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	apiCfg := server.DefaultConfig()
	apiCfg.Addr = ":" + strconv.Itoa(s.cfg.Server.HTTPPort)
	apiCfg.ReadTimeout = s.cfg.Server.ReadTimeout
	apiCfg.WriteTimeout = s.cfg.Server.WriteTimeout
	apiCfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout
	s.httpManager = server.NewManager(s.Handler(ctx), apiCfg, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	if s.cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
		metricsCfg := server.DefaultConfig()
		metricsCfg.Name = "metrics"
		metricsCfg.Addr = ":" + strconv.Itoa(s.cfg.Server.MetricsPort)
		s.metricsManager = server.NewManager(mux, metricsCfg, s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	if s.pool != nil {
		go s.reportPoolStats(ctx)
	}

	s.logger.Info("ChatGate started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("session_backend", s.cfg.Session.Backend))
	return nil
}

func (s *Server) reportPoolStats(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.pool.Snapshot()
			s.collector.RecordDBConnections(snap.Dialect, snap.Open, snap.Idle)
		}
	}
}

// Wait 阻塞直到 ctx 结束（通常由信号触发）或任一服务器异常退出
func (s *Server) Wait(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if s.metricsManager != nil {
		go func() {
			select {
			case err := <-s.metricsManager.Errors():
				cancel(fmt.Errorf("metrics server: %w", err))
			case <-ctx.Done():
			}
		}()
	}
	if err := s.httpManager.Wait(ctx); err != nil {
		return err
	}
	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器并释放存储连接
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("api server: %w", err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.closeAll(); err != nil {
		errs = append(errs, err)
	}
	if err := s.otel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Server) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
