package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gabrbl/tilde-news-summary/internal/config"
	"github.com/gabrbl/tilde-news-summary/internal/enrich"
	"github.com/gabrbl/tilde-news-summary/internal/explorer"
	"github.com/gabrbl/tilde-news-summary/internal/httpapi"
	"github.com/gabrbl/tilde-news-summary/internal/llm"
	"github.com/gabrbl/tilde-news-summary/internal/market"
	"github.com/gabrbl/tilde-news-summary/internal/news"
	"github.com/gabrbl/tilde-news-summary/internal/quotes"
	"github.com/gabrbl/tilde-news-summary/internal/scheduler"
	"github.com/gabrbl/tilde-news-summary/internal/store"
	"github.com/gabrbl/tilde-news-summary/internal/util"
)

func main() {
	// Load .env before reading config so env overrides see the values.
	_ = godotenv.Load()

	cfgPath := "config/server.yaml"
	if p := os.Getenv("EXPLORER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Stores.
	seriesStore := store.NewParquetStore(cfg.Storage.DataDir)
	summaryStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening summary store: %v", err)
	}
	defer summaryStore.Close()

	// News sources: Alpaca plus the public RSS feeds.
	rssClient := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:         15 * time.Second,
		RequestsPerSec:  2,
		MaxRetryElapsed: 30 * time.Second,
	})
	sources := []news.Source{
		news.NewGoogleNewsSource(rssClient),
		news.NewGlobeNewswireSource(rssClient),
	}
	if cfg.Alpaca.APIKey != "" {
		sources = append(sources, news.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL))
	}

	var summarizer news.Summarizer
	if cfg.LLM.APIKey != "" {
		client := llm.NewClient(cfg.LLM.APIKey, llm.WithBaseURL(cfg.LLM.BaseURL))
		summarizer = llm.NewSummarizer(client, cfg.LLM.Model)
	} else {
		logger.Info("no LLM API key configured, news summaries disabled")
	}
	newsSvc := news.NewService(sources, summarizer, logger)

	// Quotes provider and explorer sessions.
	provider := quotes.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	detect := market.DetectParams{
		LeftWindow:       cfg.Detector.LeftWindow,
		RightWindow:      cfg.Detector.RightWindow,
		MinProminencePct: cfg.Detector.MinProminencePct,
	}
	registry := explorer.NewRegistry(explorer.Deps{
		Provider:  provider,
		Fetch:     enrich.NewsFetcher(newsSvc),
		Summaries: summaryStore,
		Detect:    detect,
		Logger:    logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go registry.Run(ctx, cfg.Sessions.SweepInterval, cfg.Sessions.MaxIdle)

	// Recurring archive refresh.
	archiver := scheduler.NewArchiver(provider, seriesStore, cfg.Archive.Symbols, logger)
	if err := archiver.Start(cfg.Archive.Schedule); err != nil {
		log.Fatalf("starting archiver: %v", err)
	}
	defer archiver.Stop()

	geom := explorer.ChartGeometry{
		PopoverWidth: cfg.Popover.Width,
		Margin:       cfg.Popover.Margin,
		OffsetY:      cfg.Popover.OffsetY,
	}
	srv := httpapi.NewServer(newsSvc, provider, registry, seriesStore, detect, geom, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("explorer server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
