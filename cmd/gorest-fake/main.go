// cmd/gorest-fake/main.go
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
	"github.com/FairForge/gorest-e2e/internal/fakeapi"
	"github.com/FairForge/gorest-e2e/internal/logging"
)

func main() {
	configPath := flag.String("config", config.GetEnvOrDefault("GOREST_CONFIG", ""), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	// The suite's own tokens are accepted too, so one config serves both.
	tokens := make(map[string]int, len(cfg.Fake.Tokens)+2)
	for _, t := range cfg.Fake.Tokens {
		tokens[t.Token] = t.Limit
	}
	if t := cfg.Target.Token; t != "" {
		if _, ok := tokens[t]; !ok {
			tokens[t] = 0
		}
	}
	if t := cfg.Target.LowLimitToken; t != "" {
		if _, ok := tokens[t]; !ok {
			tokens[t] = cfg.Suite.RateLimitCalls
		}
	}

	fake := fakeapi.New(fakeapi.Options{
		Tokens:    tokens,
		Window:    cfg.Fake.Window,
		SeedUsers: cfg.Fake.SeedUsers,
	}, logger)

	server := &http.Server{
		Addr:              cfg.Fake.Addr,
		Handler:           fake.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("fake gorest API started",
		zap.String("addr", cfg.Fake.Addr),
		zap.String("base_path", fakeapi.BasePath),
		zap.Int("seed_users", cfg.Fake.SeedUsers),
		zap.Int("tokens", len(tokens)))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}
