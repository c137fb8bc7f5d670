package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"github.com/arbmon/crypto_arb_monitor/internal/infrastructure/marketdata"
	"github.com/arbmon/crypto_arb_monitor/internal/usecase"
	"go.uber.org/zap"
)

// One-shot arbitrage check against live market data, printed as JSON.
func main() {
	var (
		symbolFlag    = flag.String("symbol", "BTC-USDT", "trading pair, any accepted format")
		exchangesFlag = flag.String("exchanges", "okx,binance,bybit,deribit", "comma-separated exchange list")
		threshold     = flag.Float64("threshold", 0.5, "spread threshold in percent")
		baseURL       = flag.String("base-url", marketdata.DefaultBaseURL, "market-data API base URL")
		timeout       = flag.Duration("timeout", 5*time.Second, "per-exchange fetch timeout")
	)
	flag.Parse()

	symbol, err := domain.ParseSymbol(*symbolFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad symbol: %v\n", err)
		os.Exit(1)
	}
	exchanges := strings.Split(*exchangesFlag, ",")
	if err := domain.ValidateExchanges(exchanges); err != nil {
		fmt.Fprintf(os.Stderr, "bad exchanges: %v\n", err)
		os.Exit(1)
	}

	log := zap.NewNop()
	client := marketdata.NewClient(*baseURL, *timeout, log)
	aggregator := usecase.NewAggregator(client, *timeout, log)
	cbboEngine := usecase.NewCbboEngine()
	detector := usecase.NewArbitrageDetector(cbboEngine)

	ctx, cancel := context.WithTimeout(context.Background(), 2*(*timeout))
	defer cancel()

	set := aggregator.Aggregate(ctx, symbol, exchanges)
	cbbo := cbboEngine.Compute(set)

	out := map[string]interface{}{
		"cbbo":             cbbo,
		"failed_exchanges": set.FailedExchanges(),
	}

	signal, err := detector.Detect(set, *threshold)
	if err != nil {
		out["no_signal_reason"] = err.Error()
	} else {
		out["signal"] = signal
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
