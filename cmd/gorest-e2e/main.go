// cmd/gorest-e2e/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/gorest-e2e/internal/config"
	"github.com/FairForge/gorest-e2e/internal/gorest"
	"github.com/FairForge/gorest-e2e/internal/logging"
	"github.com/FairForge/gorest-e2e/internal/scenario"
	"github.com/FairForge/gorest-e2e/internal/suite"
)

func main() {
	configPath := flag.String("config", config.GetEnvOrDefault("GOREST_CONFIG", ""), "path to a YAML config file")
	flag.Parse()
	os.Exit(run(*configPath))
}

func run(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, err := logging.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	formats := make([]gorest.Format, 0, len(cfg.Suite.Formats))
	for _, f := range cfg.Suite.Formats {
		format, err := gorest.ParseFormat(f)
		if err != nil {
			logger.Error("invalid format", zap.Error(err))
			return 2
		}
		formats = append(formats, format)
	}

	metrics := gorest.NewMetrics()
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	opts := []gorest.Option{
		gorest.WithTimeout(cfg.Client.Timeout),
		gorest.WithUserAgent(cfg.Client.UserAgent),
		gorest.WithMetrics(metrics),
	}
	if cfg.Client.RatePerSecond > 0 {
		opts = append(opts, gorest.WithPacing(cfg.Client.RatePerSecond, cfg.Client.Burst))
	}
	client := gorest.NewClient(cfg.Target.BaseURL, logger, opts...)

	if cfg.Target.Token == "" {
		logger.Warn("no token configured, authenticated steps will fail")
	}
	if cfg.Target.LowLimitToken == "" {
		logger.Info("no low limit token configured, skipping rate limit scenarios")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("running suite",
		zap.String("target", cfg.Target.BaseURL),
		zap.Strings("formats", cfg.Suite.Formats))

	reports := suite.New(client, suite.Options{
		Token:          cfg.Target.Token,
		LowLimitToken:  cfg.Target.LowLimitToken,
		RateLimitCalls: cfg.Suite.RateLimitCalls,
	}, logger).Run(ctx, formats...)

	if !summarize(logger, reports) {
		return 1
	}
	return 0
}

// summarize logs one line per scenario and every failure, and reports
// whether everything passed.
func summarize(logger *zap.Logger, reports []*scenario.Report) bool {
	passed := true
	for _, r := range reports {
		fields := []zap.Field{
			zap.String("scenario", r.Scenario),
			zap.Int("passed", r.Count(scenario.StatusPassed)),
			zap.Int("failed", r.Count(scenario.StatusFailed)),
			zap.Int("tolerated", r.Count(scenario.StatusTolerated)),
			zap.Int("not_run", r.Count(scenario.StatusNotRun)),
			zap.Duration("duration", r.Duration),
		}
		if r.Passed() {
			logger.Info("scenario passed", fields...)
		} else {
			passed = false
			logger.Error("scenario failed", append(fields, zap.Error(r.Err()))...)
		}
		if r.TeardownErr != nil {
			logger.Warn("teardown failed", zap.String("scenario", r.Scenario), zap.Error(r.TeardownErr))
		}
	}
	return passed
}
