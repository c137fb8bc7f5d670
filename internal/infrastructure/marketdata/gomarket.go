package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://gomarket-api.goquant.io/api"

// Client talks to the GoMarket aggregation API. The upstream is loose
// about payload shapes, so all decoding happens here and only typed
// domain values cross this boundary.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ListSymbols fetches the exchange's listed instruments. The upstream
// answers in one of three shapes: a bare list of strings, a list of
// name-bearing objects, or a wrapper object keyed "symbols" or "data".
func (c *Client) ListSymbols(ctx context.Context, exchange, instrumentType string) ([]domain.CanonicalSymbol, error) {
	url := fmt.Sprintf("%s/symbols/%s/%s", c.baseURL, exchange, instrumentType)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	names, err := decodeSymbolList(body)
	if err != nil {
		return nil, fmt.Errorf("symbols payload from %s: %w", exchange, err)
	}

	symbols := make([]domain.CanonicalSymbol, 0, len(names))
	for _, name := range names {
		sym, err := domain.ParseSymbol(name)
		if err != nil {
			c.logger.Debug("skipping unparseable symbol",
				zap.String("exchange", exchange),
				zap.String("raw", name))
			continue
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// FetchQuote fetches the L1 orderbook for one exchange. All failure
// paths resolve to a *FetchFailure: transport errors and bad statuses
// are retryable, an unparseable payload is not.
func (c *Client) FetchQuote(ctx context.Context, exchange string, symbol domain.CanonicalSymbol) (domain.Quote, *domain.FetchFailure) {
	url := fmt.Sprintf("%s/orderbook/%s/%s/1", c.baseURL, exchange, symbol.APIFormat())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Quote{}, &domain.FetchFailure{Exchange: exchange, Reason: err.Error(), Retryable: false}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Quote{}, &domain.FetchFailure{Exchange: exchange, Reason: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Quote{}, &domain.FetchFailure{
			Exchange:  exchange,
			Reason:    fmt.Sprintf("http status %d", resp.StatusCode),
			Retryable: true,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Quote{}, &domain.FetchFailure{Exchange: exchange, Reason: err.Error(), Retryable: true}
	}

	var book struct {
		Bids [][]flexFloat `json:"bids"`
		Asks [][]flexFloat `json:"asks"`
	}
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.Quote{}, &domain.FetchFailure{
			Exchange:  exchange,
			Reason:    "malformed orderbook payload: " + err.Error(),
			Retryable: false,
		}
	}

	quote := domain.Quote{
		Exchange:  exchange,
		Symbol:    symbol,
		FetchedAt: time.Now().UTC(),
	}
	if len(book.Bids) > 0 && len(book.Bids[0]) > 0 {
		quote.BidPrice = float64(book.Bids[0][0])
		if len(book.Bids[0]) > 1 {
			quote.BidSize = float64(book.Bids[0][1])
		}
	}
	if len(book.Asks) > 0 && len(book.Asks[0]) > 0 {
		quote.AskPrice = float64(book.Asks[0][0])
		if len(book.Asks[0]) > 1 {
			quote.AskSize = float64(book.Asks[0][1])
		}
	}

	return quote, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: http status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// symbolEntry accepts either a bare string or an object exposing a
// name-like attribute.
type symbolEntry struct {
	Name string
}

func (e *symbolEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Name = s
		return nil
	}
	var obj struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Name != "" {
		e.Name = obj.Name
	} else {
		e.Name = obj.Symbol
	}
	return nil
}

func decodeSymbolList(data []byte) ([]string, error) {
	var list []symbolEntry
	if err := json.Unmarshal(data, &list); err == nil {
		return entryNames(list), nil
	}

	var wrapper struct {
		Symbols []symbolEntry `json:"symbols"`
		Data    []symbolEntry `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil {
		if wrapper.Symbols != nil {
			return entryNames(wrapper.Symbols), nil
		}
		if wrapper.Data != nil {
			return entryNames(wrapper.Data), nil
		}
	}

	return nil, fmt.Errorf("unrecognized shape")
}

func entryNames(entries []symbolEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names
}

// flexFloat decodes a JSON number that some upstreams encode as a
// string ("42750.5") and others as a number (42750.5).
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
