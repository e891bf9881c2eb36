package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"StockDash/internal/model"
)

// Fetcher defines the interface for fetching market data.
// start is inclusive, end is exclusive. A symbol or range with no data yields
// an empty slice and a nil error.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time, interval string) ([]model.OHLCV, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
