package domain_test

import (
	"errors"
	"testing"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
)

func TestParseSymbolAcceptedFormats(t *testing.T) {
	want := domain.CanonicalSymbol{Base: "BTC", Quote: "USDT"}

	inputs := []string{"BTC/USDT", "BTC-USDT", "BTC_USDT", "BTCUSDT", "btc-usdt", " BTC/USDT "}
	for _, in := range inputs {
		got, err := domain.ParseSymbol(in)
		if err != nil {
			t.Fatalf("ParseSymbol(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseSymbol(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseSymbolSuffixResolution(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.CanonicalSymbol
	}{
		{"ETHBTC", domain.CanonicalSymbol{Base: "ETH", Quote: "BTC"}},
		{"SOLUSDC", domain.CanonicalSymbol{Base: "SOL", Quote: "USDC"}},
		{"XRPUSD", domain.CanonicalSymbol{Base: "XRP", Quote: "USD"}},
		{"DOGEEUR", domain.CanonicalSymbol{Base: "DOGE", Quote: "EUR"}},
	}

	for _, tt := range tests {
		got, err := domain.ParseSymbol(tt.raw)
		if err != nil {
			t.Fatalf("ParseSymbol(%q) failed: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseSymbol(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseSymbolInvalid(t *testing.T) {
	inputs := []string{"", "USDT", "BTC-", "-USDT", "BTC/USDT/EXTRA", "BTC USDT", "BT$-USDT", "XYZABC"}
	for _, in := range inputs {
		_, err := domain.ParseSymbol(in)
		if !errors.Is(err, domain.ErrInvalidSymbolFormat) {
			t.Errorf("ParseSymbol(%q) error = %v, want ErrInvalidSymbolFormat", in, err)
		}
	}
}

func TestCanonicalSymbolFormats(t *testing.T) {
	sym := domain.CanonicalSymbol{Base: "ETH", Quote: "USDT"}
	if sym.String() != "ETH-USDT" {
		t.Errorf("String() = %q, want ETH-USDT", sym.String())
	}
	if sym.APIFormat() != "ETH_USDT" {
		t.Errorf("APIFormat() = %q, want ETH_USDT", sym.APIFormat())
	}
}

func TestValidateExchanges(t *testing.T) {
	if err := domain.ValidateExchanges([]string{"okx", "binance", "bybit", "deribit"}); err != nil {
		t.Fatalf("known exchanges rejected: %v", err)
	}
	if err := domain.ValidateExchanges([]string{"okx", "ftx"}); !errors.Is(err, domain.ErrUnknownExchange) {
		t.Errorf("expected ErrUnknownExchange, got %v", err)
	}
}
