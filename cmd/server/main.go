// Command server starts the Excel Interviewer HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/excel-interviewer/internal/adapter/ai/real"
	"github.com/fairyhunter13/excel-interviewer/internal/adapter/ai/stub"
	httpserver "github.com/fairyhunter13/excel-interviewer/internal/adapter/httpserver"
	"github.com/fairyhunter13/excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/excel-interviewer/internal/adapter/spreadsheet/xlsx"
	"github.com/fairyhunter13/excel-interviewer/internal/app"
	"github.com/fairyhunter13/excel-interviewer/internal/config"
	"github.com/fairyhunter13/excel-interviewer/internal/domain"
	"github.com/fairyhunter13/excel-interviewer/internal/usecase"
)

func main() {
	// Load .env in local development; the file is absent in containers.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	interviewCfg, err := config.LoadInterview()
	if err != nil {
		slog.Error("interview config invalid", slog.Any("error", err))
		os.Exit(1)
	}

	// AI client: the stub keeps the service fully operable without an
	// upstream key, scoring deterministically.
	var aicl domain.AIClient
	if cfg.AIProvider == "stub" || cfg.OpenRouterAPIKey == "" {
		slog.Info("ai client initialized", slog.String("provider", "stub"))
		aicl = stub.New()
	} else {
		slog.Info("ai client initialized", slog.String("provider", cfg.AIProvider), slog.String("model", cfg.ChatModel))
		aicl = real.New(cfg)
	}

	analyzer := xlsx.New(logger)

	attempts, baseDelay := cfg.GetRetrySettings()
	gen := usecase.NewGenerator(aicl, interviewCfg.SkillAreas, attempts, baseDelay, cfg.ChatMaxTokens, logger)
	eval := usecase.NewEvaluator(aicl, analyzer, interviewCfg.TextRubric, interviewCfg.ExcelRubric, attempts, baseDelay, cfg.ChatMaxTokens, logger)

	sessions := usecase.NewRegistry(func() *usecase.Session {
		return usecase.NewSession(cfg, gen, eval, logger)
	})

	srv := httpserver.NewServer(cfg, sessions)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
