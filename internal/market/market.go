// Package market builds the data file behind the static market
// dashboard: latest quotes for a fixed ticker list, a month of closes for
// the chart tickers, news headlines and an optional generated commentary.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bkit-dev/bkit/internal/lockfile"
)

// DefaultOutput is the data file path relative to the project root.
const DefaultOutput = "files/data/market_data.json"

// DefaultBaseURL is the chart and search API host.
const DefaultBaseURL = "https://query2.finance.yahoo.com"

// DefaultConcurrency caps in-flight requests.
const DefaultConcurrency = 6

// HistoryLength is how many trading days the chart shows.
const HistoryLength = 10

// Tickers are quoted on every run: indices, commodities, crypto, FX and
// treasury yields.
var Tickers = []string{
	"^GSPC", "^IXIC", "^DJI", "^VIX", "^RUT",
	"CL=F", "BZ=F", "GC=F", "SI=F",
	"BTC-USD", "ETH-USD",
	"KRW=X", "DX-Y.NYB", "EURUSD=X", "JPY=X", "GBPUSD=X",
	"^TNX", "^TYX", "^FVX", "^IRX",
}

// HistoryTickers also get a month of daily closes.
var HistoryTickers = []string{"^GSPC", "^IXIC", "^DJI", "^VIX", "^RUT", "BTC-USD"}

// YieldTickers report changes in basis points.
var YieldTickers = []string{"^TNX", "^TYX", "^FVX", "^IRX"}

// ErrNoQuotes is returned when every quote request failed.
var ErrNoQuotes = errors.New("market: all quote requests failed")

// timeUnix converts API timestamps; labels are in UTC.
var timeUnix = func(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// Data is the dashboard document.
type Data struct {
	LastUpdated string             `json:"lastUpdated"`
	Indices     map[string]Quote   `json:"indices"`
	History     map[string]History `json:"history"`
	Commentary  *Commentary        `json:"commentary,omitempty"`
}

// Fetcher pulls market data over HTTP.
type Fetcher struct {
	client      *http.Client
	baseURL     string
	concurrency int
	log         *zap.Logger
	commentator Commentator
	now         func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

// WithBaseURL points the fetcher at another API host.
func WithBaseURL(u string) Option { return func(f *Fetcher) { f.baseURL = u } }

// WithConcurrency caps in-flight requests.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *zap.Logger) Option { return func(f *Fetcher) { f.log = l } }

// WithCommentator enables commentary generation.
func WithCommentator(c Commentator) Option { return func(f *Fetcher) { f.commentator = c } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(f *Fetcher) { f.now = now } }

// NewFetcher creates a fetcher with the defaults applied.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     DefaultBaseURL,
		concurrency: DefaultConcurrency,
		log:         zap.NewNop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch collects quotes, history, headlines and commentary. Individual
// ticker failures are logged and skipped; only a run with no quotes at
// all fails.
func (f *Fetcher) Fetch(ctx context.Context) (*Data, error) {
	data := &Data{
		LastUpdated: f.now().UTC().Format(time.RFC3339),
		Indices:     map[string]Quote{},
		History:     map[string]History{},
	}

	f.log.Info("fetching quotes", zap.Int("tickers", len(Tickers)))
	if err := f.fetchQuotes(ctx, data); err != nil {
		return nil, err
	}

	f.log.Info("fetching history", zap.Int("tickers", len(HistoryTickers)))
	changes := f.fetchHistory(ctx, data)

	f.log.Info("fetching headlines")
	marketNews := f.headlines(ctx, "SPY", 5)
	cryptoNews := f.headlines(ctx, "BTC-USD", 3)

	if f.commentator == nil {
		f.log.Warn("no commentator configured, skipping commentary")
		return data, nil
	}
	prompt := BuildPrompt(PromptInput{
		Date:       f.now(),
		Indices:    data.Indices,
		Changes:    changes,
		MarketNews: marketNews,
		CryptoNews: cryptoNews,
	})
	c, err := f.commentator.Commentary(ctx, prompt)
	if err != nil {
		f.log.Error("commentary generation failed", zap.Error(err))
		return data, nil
	}
	data.Commentary = c
	return data, nil
}

func (f *Fetcher) fetchQuotes(ctx context.Context, data *Data) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, symbol := range Tickers {
		g.Go(func() error {
			q, err := f.quote(gctx, symbol)
			if err != nil {
				f.log.Warn("quote failed", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			mu.Lock()
			data.Indices[symbol] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fetching quotes: %w", err)
	}
	if len(data.Indices) == 0 {
		return ErrNoQuotes
	}
	return nil
}

// fetchHistory fills data.History and returns the month change per
// symbol.
func (f *Fetcher) fetchHistory(ctx context.Context, data *Data) map[string]string {
	var mu sync.Mutex
	changes := map[string]string{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, symbol := range HistoryTickers {
		g.Go(func() error {
			res, err := f.chart(gctx, symbol, "1mo")
			if err != nil {
				f.log.Warn("history failed", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			var closes []*float64
			if len(res.Indicators.Quote) > 0 {
				closes = res.Indicators.Quote[0].Close
			}
			h, change := buildHistory(historyPoints(res.Timestamp, closes), HistoryLength)
			mu.Lock()
			data.History[symbol] = h
			if change != "" {
				changes[symbol] = change
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return changes
}

// ─── API ───

type chartResult struct {
	Meta struct {
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		PreviousClose      float64 `json:"previousClose"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
	} `json:"chart"`
}

type searchResponse struct {
	News []struct {
		Title string `json:"title"`
	} `json:"news"`
}

func (f *Fetcher) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("requesting %s: status %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

func (f *Fetcher) chart(ctx context.Context, symbol, rng string) (*chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s", f.baseURL, url.PathEscape(symbol), rng)
	var resp chartResponse
	if err := f.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: empty result", symbol)
	}
	return &resp.Chart.Result[0], nil
}

func (f *Fetcher) quote(ctx context.Context, symbol string) (Quote, error) {
	res, err := f.chart(ctx, symbol, "2d")
	if err != nil {
		return Quote{}, err
	}
	prev := res.Meta.PreviousClose
	if prev == 0 {
		prev = res.Meta.ChartPreviousClose
	}
	return FormatQuote(symbol, res.Meta.RegularMarketPrice, prev), nil
}

// headlines returns up to n news titles for query. Failures yield none.
func (f *Fetcher) headlines(ctx context.Context, query string, n int) []string {
	u := fmt.Sprintf("%s/v1/finance/search?q=%s&newsCount=%d", f.baseURL, url.QueryEscape(query), n)
	var resp searchResponse
	if err := f.getJSON(ctx, u, &resp); err != nil {
		f.log.Warn("headlines failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	titles := make([]string, 0, n)
	for _, item := range resp.News {
		if len(titles) == n {
			break
		}
		titles = append(titles, item.Title)
	}
	return titles
}

// Write saves data as indented JSON, replacing path atomically.
func Write(path string, data *Data) error {
	if err := lockfile.WriteJSON(path, data); err != nil {
		return fmt.Errorf("writing market data: %w", err)
	}
	return nil
}
