// =============================================================================
// ChatGate 主入口
// =============================================================================
// 多供应商 LLM 网关服务，也可作为命令行客户端直接调用供应商
//
// 使用方法:
//
//	chatgate serve                                  # 启动服务
//	chatgate serve --config chatgate.yaml           # 指定配置文件
//	chatgate chat --provider openai --model gpt-4o "Hello"
//	chatgate models --provider custom --endpoint http://localhost:11434/v1
//	chatgate providers                              # 列出支持的供应商
//	chatgate health --addr http://localhost:8080    # 健康检查
//	chatgate version                                # 显示版本信息
//
// 供应商凭据通过 --key 或环境变量 CHATGATE_PROVIDER_KEY 提供。
// =============================================================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/chatgate/config"
	"github.com/BaSui01/chatgate/internal/telemetry"
	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/catalog"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/session"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// providerKeyEnv 命令行子命令读取供应商凭据的环境变量
const providerKeyEnv = "CHATGATE_PROVIDER_KEY"

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "chat":
		err = runChat(os.Args[2:], os.Stdout)
	case "models":
		err = runModels(os.Args[2:], os.Stdout)
	case "providers":
		err = runProviders(os.Stdout)
	case "health":
		err = runHealthCheck(os.Args[2:], os.Stdout)
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ChatGate",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx := context.Background()

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
		otelProviders = &telemetry.Providers{}
	}

	srv, err := NewServer(ctx, cfg, logger, otelProviders)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		_ = srv.Shutdown(ctx)
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	waitErr := srv.Wait(sigCtx)
	if waitErr == nil {
		logger.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown finished with errors", zap.Error(err))
	}

	logger.Info("ChatGate stopped")
	return waitErr
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 💬 chat / models / providers 命令
// =============================================================================

// clientFlags 是 chat 与 models 共用的参数
type clientFlags struct {
	configPath string
	provider   string
	key        string
	endpoint   string
}

func (c *clientFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config file (YAML)")
	fs.StringVar(&c.provider, "provider", "openai", "Provider: openai, mistral, anthropic, google, custom")
	fs.StringVar(&c.key, "key", "", "Provider credential (defaults to $"+providerKeyEnv+")")
	fs.StringVar(&c.endpoint, "endpoint", "", "Custom OpenAI-compatible endpoint URL")
}

func (c *clientFlags) credential() string {
	if c.key != "" {
		return c.key
	}
	return os.Getenv(providerKeyEnv)
}

// newClientGateway 创建命令行使用的网关，日志只输出警告以上
func newClientGateway(c *clientFlags) (*gateway.Gateway, llm.ProviderKind, *zap.Logger, error) {
	kind, err := llm.ParseProviderKind(c.provider)
	if err != nil {
		return nil, "", nil, err
	}
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, "", nil, err
	}
	logCfg := cfg.Log
	logCfg.Level = "warn"
	logCfg.Format = "console"
	logCfg.OutputPaths = []string{"stderr"}
	logger := initLogger(logCfg)
	return gateway.New(gatewayOptions(cfg.Gateway, logger)...), kind, logger, nil
}

func runChat(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	var c clientFlags
	c.register(fs)
	model := fs.String("model", "", "Model identifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return errors.New("message text is required")
	}

	gw, kind, logger, err := newClientGateway(&c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if *model == "" {
		if fallback := llm.FallbackModels(kind); len(fallback) > 0 {
			*model = fallback[0]
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reply, err := gw.SendTurn(ctx, gateway.TurnRequest{
		Provider:       kind,
		Credential:     c.credential(),
		Model:          *model,
		CustomEndpoint: c.endpoint,
		Text:           text,
	})
	if err != nil {
		return errors.New(strings.TrimPrefix(session.FailureNote(err), "Error: "))
	}
	fmt.Fprintln(out, reply)
	return nil
}

func runModels(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	var c clientFlags
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	gw, kind, logger, err := newClientGateway(&c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listing, err := catalog.New(gw, catalog.WithLogger(logger)).Models(ctx, gateway.ModelsRequest{
		Provider:       kind,
		Credential:     c.credential(),
		CustomEndpoint: c.endpoint,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "# %s models (%s)\n", kind, listing.Source)
	if listing.Err != nil {
		// 厂商错误体可能跨多行，压成一行以保持注释格式
		note := strings.Fields(strings.TrimPrefix(session.FailureNote(listing.Err), "Error: "))
		fmt.Fprintf(out, "# live discovery failed: %s\n", strings.Join(note, " "))
	}
	for _, m := range listing.Models {
		fmt.Fprintln(out, m)
	}
	return nil
}

func runProviders(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tAUTH\tBASE URL")
	for _, info := range llm.Providers() {
		base := info.BaseURL
		if base == "" {
			base = "(runtime)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Kind, info.DisplayName, info.Auth.Scheme, base)
	}
	return tw.Flush()
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(*addr, "/") + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	fmt.Fprintln(out, "OK")
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "ChatGate %s\n", Version)
	fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `ChatGate - multi-provider LLM gateway

Usage:
  chatgate <command> [options]

Commands:
  serve       Start the HTTP gateway
  chat        Send one message to a provider and print the reply
  models      List the models of a provider (falls back to a built-in list)
  providers   List supported providers
  health      Check server health
  version     Show version information
  help        Show this help message

Options for 'chat' and 'models':
  --provider <kind>   openai, mistral, anthropic, google, custom
  --key <credential>  Provider credential (or $CHATGATE_PROVIDER_KEY)
  --endpoint <url>    Custom endpoint URL (provider custom)
  --model <id>        Model identifier ('chat' only)
  --config <path>     Configuration file (gateway timeout and base URLs)

Examples:
  chatgate serve --config /etc/chatgate/config.yaml
  chatgate chat --provider anthropic --model claude-3-5-sonnet-latest "Hello"
  chatgate models --provider custom --endpoint http://localhost:11434/v1
  chatgate health --addr http://localhost:8080`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
