package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSymbolFormat = errors.New("invalid symbol format")

// CanonicalSymbol is a normalized base/quote trading pair. It is the
// only symbol representation used past the market-data boundary.
type CanonicalSymbol struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

func (c CanonicalSymbol) String() string {
	return c.Base + "-" + c.Quote
}

// APIFormat returns the underscore form expected by the GoMarket API
// (BTC-USDT -> BTC_USDT).
func (c CanonicalSymbol) APIFormat() string {
	return c.Base + "_" + c.Quote
}

func (c CanonicalSymbol) IsZero() bool {
	return c.Base == "" && c.Quote == ""
}

// knownQuotes resolves concatenated symbols like BTCUSDT. Longer
// suffixes come first so USDT matches before USD.
var knownQuotes = []string{"USDT", "USDC", "USD", "BTC", "ETH", "EUR"}

// ParseSymbol normalizes any of the accepted upstream spellings of a
// trading pair: BTC/USDT, BTC-USDT, BTC_USDT or BTCUSDT. The result is
// identical regardless of the source formatting.
func ParseSymbol(raw string) (CanonicalSymbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return CanonicalSymbol{}, fmt.Errorf("%w: empty symbol", ErrInvalidSymbolFormat)
	}

	for _, sep := range []string{"/", "-", "_"} {
		if strings.Contains(s, sep) {
			parts := strings.Split(s, sep)
			if len(parts) != 2 {
				return CanonicalSymbol{}, fmt.Errorf("%w: %q", ErrInvalidSymbolFormat, raw)
			}
			return newCanonicalSymbol(parts[0], parts[1], raw)
		}
	}

	// No delimiter: split on a known quote-currency suffix.
	for _, quote := range knownQuotes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return newCanonicalSymbol(strings.TrimSuffix(s, quote), quote, raw)
		}
	}

	return CanonicalSymbol{}, fmt.Errorf("%w: %q", ErrInvalidSymbolFormat, raw)
}

func newCanonicalSymbol(base, quote, raw string) (CanonicalSymbol, error) {
	if base == "" || quote == "" || !isAlphanumeric(base) || !isAlphanumeric(quote) {
		return CanonicalSymbol{}, fmt.Errorf("%w: %q", ErrInvalidSymbolFormat, raw)
	}
	return CanonicalSymbol{Base: base, Quote: quote}, nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
