// Package ecb provides a client for the European Central Bank exchange-rate API
package ecb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://data-api.ecb.europa.eu/service/data/EXR"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	// lookback is how far before a date the client searches for a
	// published rate (weekends and TARGET holidays have none).
	lookback = 7
)

// ErrRateNotFound is returned when no reference rate was published within
// the lookback window.
var ErrRateNotFound = errors.New("exchange rate not found")

// Client fetches daily euro reference rates and caches them in memory
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	rates      *cache.Cache
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new ECB client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		rates:   cache.New(24*time.Hour, 48*time.Hour),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Series     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ECB API error: %s (status: %d, series: %s)", e.Message, e.StatusCode, e.Series)
}

// Rate returns units of quote per one unit of base on date.
func (c *Client) Rate(ctx context.Context, base, quote string, date time.Time) (float64, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	if base == quote {
		return 1, nil
	}
	baseRate, err := c.euroRate(ctx, base, date)
	if err != nil {
		return 0, err
	}
	quoteRate, err := c.euroRate(ctx, quote, date)
	if err != nil {
		return 0, err
	}
	return quoteRate / baseRate, nil
}

// Convert converts amount from one currency to another at the rate of date.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error) {
	if amount == 0 {
		return 0, nil
	}
	r, err := c.Rate(ctx, from, to, date)
	if err != nil {
		return 0, err
	}
	return amount * r, nil
}

// Preload fetches every rate for currency in [from, to] with one request and
// fills the cache, carrying the last published rate over days without one.
func (c *Client) Preload(ctx context.Context, currency string, from, to time.Time) error {
	currency = strings.ToUpper(currency)
	if currency == "EUR" {
		return nil
	}
	from, to = day(from), day(to)
	obs, err := c.fetch(ctx, currency, from.AddDate(0, 0, -lookback), to)
	if err != nil {
		return err
	}

	i := 0
	var last float64
	for d := from.AddDate(0, 0, -lookback); !d.After(to); d = d.AddDate(0, 0, 1) {
		for i < len(obs) && !obs[i].date.After(d) {
			last = obs[i].rate
			i++
		}
		if last > 0 && !d.Before(from) {
			c.rates.Set(cacheKey(currency, d), last, cache.DefaultExpiration)
		}
	}
	c.logger.Debug().Str("currency", currency).Int("observations", len(obs)).Msg("ECB rates preloaded")
	return nil
}

// euroRate returns units of currency per one euro on or before date.
func (c *Client) euroRate(ctx context.Context, currency string, date time.Time) (float64, error) {
	if currency == "EUR" {
		return 1, nil
	}
	date = day(date)
	key := cacheKey(currency, date)
	if v, found := c.rates.Get(key); found {
		return v.(float64), nil
	}

	obs, err := c.fetch(ctx, currency, date.AddDate(0, 0, -lookback), date)
	if err != nil {
		return 0, err
	}
	for _, o := range obs {
		c.rates.Set(cacheKey(currency, o.date), o.rate, cache.DefaultExpiration)
	}
	if len(obs) == 0 {
		return 0, fmt.Errorf("%w: %s on or before %s", ErrRateNotFound, currency, date.Format("2006-01-02"))
	}

	latest := obs[len(obs)-1].rate
	c.rates.Set(key, latest, cache.DefaultExpiration)
	return latest, nil
}

type observation struct {
	date time.Time
	rate float64
}

// fetch returns the ascending observations of the daily EUR reference series
// for currency. A 404 means the window has no data.
func (c *Client) fetch(ctx context.Context, currency string, from, to time.Time) ([]observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	series := fmt.Sprintf("D.%s.EUR.SP00.A", currency)
	params := url.Values{}
	params.Set("startPeriod", from.Format("2006-01-02"))
	params.Set("endPeriod", to.Format("2006-01-02"))
	params.Set("format", "jsondata")
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, series, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("series", series).Str("from", params.Get("startPeriod")).Str("to", params.Get("endPeriod")).Msg("ECB API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), Series: series}
	}

	var data response
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return data.observations()
}

// response is the subset of the SDMX-JSON message the client reads
type response struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]*float64 `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
	Structure struct {
		Dimensions struct {
			Observation []struct {
				ID     string `json:"id"`
				Values []struct {
					ID string `json:"id"`
				} `json:"values"`
			} `json:"observation"`
		} `json:"dimensions"`
	} `json:"structure"`
}

func (r response) observations() ([]observation, error) {
	if len(r.DataSets) == 0 {
		return nil, nil
	}
	var periods []string
	for _, dim := range r.Structure.Dimensions.Observation {
		if dim.ID == "TIME_PERIOD" {
			for _, v := range dim.Values {
				periods = append(periods, v.ID)
			}
		}
	}

	var out []observation
	for _, s := range r.DataSets[0].Series {
		for idx, values := range s.Observations {
			if len(values) == 0 || values[0] == nil || *values[0] <= 0 {
				continue
			}
			pos, err := strconv.Atoi(idx)
			if err != nil || pos < 0 || pos >= len(periods) {
				return nil, fmt.Errorf("observation %q has no time period", idx)
			}
			date, err := time.Parse("2006-01-02", periods[pos])
			if err != nil {
				return nil, fmt.Errorf("invalid time period %q: %w", periods[pos], err)
			}
			out = append(out, observation{date: date, rate: *values[0]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cacheKey(currency string, date time.Time) string {
	return fmt.Sprintf("rate-%s-%s", currency, date.Format("2006-01-02"))
}

var (
	_ interfaces.FXClient  = (*Client)(nil)
	_ interfaces.Converter = (*Client)(nil)
)
