package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"github.com/arbmon/crypto_arb_monitor/internal/infrastructure/logger"
	"github.com/arbmon/crypto_arb_monitor/internal/infrastructure/marketdata"
	"github.com/arbmon/crypto_arb_monitor/internal/infrastructure/storage"
	"github.com/arbmon/crypto_arb_monitor/internal/usecase"
	"github.com/arbmon/crypto_arb_monitor/internal/web"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MarketData struct {
		BaseURL          string `yaml:"base_url"`
		FetchTimeoutMs   int    `yaml:"fetch_timeout_ms"`
		SymbolCacheTTLMs int    `yaml:"symbol_cache_ttl_ms"`
	} `yaml:"market_data"`
	Exchanges []string `yaml:"exchanges"`
	Monitor   struct {
		DefaultThresholdPct    float64 `yaml:"default_threshold_pct"`
		DefaultIntervalMs      int     `yaml:"default_interval_ms"`
		FailureEscalationTicks int     `yaml:"failure_escalation_ticks"`
	} `yaml:"monitor"`
	Alerts struct {
		DedupWindowMs int `yaml:"dedup_window_ms"`
	} `yaml:"alerts"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// .env may override the market-data endpoint for local runs
	_ = godotenv.Load()

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "arbmon.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	baseURL := cfg.MarketData.BaseURL
	if v := os.Getenv("GOMARKET_BASE_URL"); v != "" {
		baseURL = v
	}
	fetchTimeout := time.Duration(cfg.MarketData.FetchTimeoutMs) * time.Millisecond
	client := marketdata.NewClient(baseURL, fetchTimeout, log)

	exchanges := cfg.Exchanges
	if len(exchanges) == 0 {
		exchanges = domain.KnownExchanges
	}

	aggregator := usecase.NewAggregator(client, fetchTimeout, log)
	cbboEngine := usecase.NewCbboEngine()
	detector := usecase.NewArbitrageDetector(cbboEngine)

	marketService := usecase.NewMarketService(client, aggregator, cbboEngine, detector, store, store,
		usecase.MarketServiceConfig{
			SymbolCacheTTL: time.Duration(cfg.MarketData.SymbolCacheTTLMs) * time.Millisecond,
			DedupWindow:    time.Duration(cfg.Alerts.DedupWindowMs) * time.Millisecond,
		}, log)

	hub := web.NewHub(log)

	monitorLogger, err := logger.NewFileLogger("monitor.log", cfg.Logging.Level)
	if err != nil {
		log.Error("Failed to init monitor logger, using default", zap.Error(err))
		monitorLogger = log
	}
	monitorService := usecase.NewMonitorService(aggregator, detector, marketService, hub, store,
		usecase.MonitorConfig{
			DefaultThresholdPct:    cfg.Monitor.DefaultThresholdPct,
			DefaultInterval:        time.Duration(cfg.Monitor.DefaultIntervalMs) * time.Millisecond,
			FailureEscalationTicks: cfg.Monitor.FailureEscalationTicks,
		}, monitorLogger)

	// Pick up sessions that were active before the last shutdown.
	if err := monitorService.Resume(context.Background()); err != nil {
		log.Error("Failed to resume sessions", zap.Error(err))
	}

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, marketService, monitorService, hub, exchanges, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	monitorService.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}
