package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-copilot/internal/api"
	"github.com/miradorstack/mirador-copilot/internal/cache"
	"github.com/miradorstack/mirador-copilot/internal/config"
	"github.com/miradorstack/mirador-copilot/internal/engine"
	"github.com/miradorstack/mirador-copilot/internal/extractors"
	"github.com/miradorstack/mirador-copilot/internal/llm"
	"github.com/miradorstack/mirador-copilot/internal/metrics"
	"github.com/miradorstack/mirador-copilot/internal/services"
	"github.com/miradorstack/mirador-copilot/internal/telemetry"
	"github.com/miradorstack/mirador-copilot/internal/utils"
	"github.com/miradorstack/mirador-copilot/internal/workflow"
)

var version = "dev"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting mirador-copilot", slog.String("grpc_address", cfg.Server.Address), slog.String("http_address", cfg.Server.HTTPAddress), slog.String("version", version))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, version)
	if err != nil {
		logger.Warn("tracing disabled", slog.Any("error", err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		cacheProvider = newCacheProvider(cfg.Cache, logger)
	}
	defer cacheProvider.Close()

	generator, err := llm.New(llm.Options{
		Provider: cfg.LLM.Provider,
		Ollama: llm.OllamaConfig{
			BaseURL:      cfg.LLM.BaseURL,
			GeneratePath: cfg.LLM.GeneratePath,
			Model:        cfg.LLM.Model,
			Timeout:      cfg.LLM.Timeout,
		},
	})
	if err != nil {
		logger.Error("failed to configure text generator", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Cache.Enabled {
		generator = llm.NewCachedGenerator(generator, cacheProvider, cfg.Cache.SummaryTTL, logger)
	}

	ruleEngine, err := engine.NewRuleEngine(cfg.Recommendations.Path, logger)
	if err != nil {
		logger.Error("failed to load recommendation catalog", slog.Any("error", err))
		os.Exit(1)
	}

	pipeline := engine.NewPipeline(
		logger,
		extractors.NewLogsExtractor(),
		extractors.NewMetricExtractorWithThresholds(cfg.Analysis.Thresholds),
		engine.NewCausalityEngine(),
		ruleEngine,
		engine.NewReportComposer(generator),
		engine.WithStageDelay(cfg.Workflow.StageDelay),
	)
	controller := workflow.NewController(logger, pipeline, workflow.WithMaxConcurrentJobs(cfg.Workflow.MaxConcurrentJobs))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var grpcServer *api.Server
	if cfg.Server.Address != "" {
		grpcServer, err = api.NewServer(cfg.Server, logger, services.NewIncidentService(logger, controller))
		if err != nil {
			logger.Error("failed to create gRPC server", slog.Any("error", err))
			os.Exit(1)
		}
		go func() {
			logger.Info("gRPC server listening", slog.String("address", grpcServer.Address()))
			if serveErr := grpcServer.Start(); serveErr != nil {
				logger.Error("gRPC server exited", slog.Any("error", serveErr))
				stop()
			}
		}()
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		gin.SetMode(gin.ReleaseMode)
		httpServer = &http.Server{
			Addr:         cfg.Server.HTTPAddress,
			Handler:      api.NewHTTPHandler(logger, controller, cfg.Server.CORSOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go serveHTTP(httpServer, "http server", logger, stop)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go serveHTTP(metricsServer, "metrics server", logger, stop)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http shutdown", slog.String("address", srv.Addr), slog.Any("error", err))
		}
	}

	drained := make(chan struct{})
	go func() {
		controller.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn("analysis jobs still running at shutdown", slog.Int("jobs", countRunning(controller)))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", slog.Any("error", err))
	}
	logger.Info("mirador-copilot stopped")
}

func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if cfg.Addr == "" {
		logger.Info("summary cache using in-process memory")
		return cache.NewMemoryProvider()
	}
	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		TLS:          cfg.TLS,
	})
	if err != nil {
		logger.Warn("valkey cache unavailable, falling back to memory", slog.Any("error", err))
		return cache.NewMemoryProvider()
	}
	return provider
}

func serveHTTP(srv *http.Server, name string, logger *slog.Logger, stop context.CancelFunc) {
	logger.Info(name+" listening", slog.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(name+" exited", slog.Any("error", err))
		stop()
	}
}

func countRunning(controller *workflow.Controller) int {
	n := 0
	for _, job := range controller.ListJobs() {
		if !job.Status.Terminal() {
			n++
		}
	}
	return n
}
