// Package rates converts currencies using the open.er-api.com latest-rates feed.
package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/araneaimer/nitebot/internal/webapi"
)

const (
	DefaultBaseURL = "https://open.er-api.com"
	// CacheTTL matches the feed's hourly refresh.
	CacheTTL = time.Hour
)

var ErrUnknownCurrency = errors.New("unknown currency")

type table struct {
	rates map[string]float64
	at    time.Time
}

type Client struct {
	BaseURL string
	api     *webapi.Client
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]table
}

func New() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		api:     webapi.New("rates", 10*time.Second),
		now:     time.Now,
		cache:   map[string]table{},
	}
}

// Convert returns amount in `to` and the unit rate from→to.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	rates, err := c.latest(ctx, from)
	if err != nil {
		return 0, 0, err
	}
	rate, ok := rates[to]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return amount * rate, rate, nil
}

func (c *Client) latest(ctx context.Context, base string) (map[string]float64, error) {
	c.mu.Lock()
	t, ok := c.cache[base]
	c.mu.Unlock()
	if ok && c.now().Sub(t.at) < CacheTTL {
		return t.rates, nil
	}

	var out struct {
		Result    string             `json:"result"`
		ErrorType string             `json:"error-type"`
		Rates     map[string]float64 `json:"rates"`
	}
	err := c.api.GetJSON(ctx, strings.TrimRight(c.BaseURL, "/")+"/v6/latest/"+url.PathEscape(base), http.Header{}, &out)
	if webapi.StatusCode(err) == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, base)
	}
	if err != nil {
		return nil, err
	}
	if out.Result != "success" {
		if out.ErrorType == "unsupported-code" {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, base)
		}
		return nil, fmt.Errorf("rates: %s", out.ErrorType)
	}

	c.mu.Lock()
	c.cache[base] = table{rates: out.Rates, at: c.now()}
	c.mu.Unlock()
	return out.Rates, nil
}
