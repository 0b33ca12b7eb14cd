package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- FormatQuote ---

func TestFormatQuote(t *testing.T) {
	tests := []struct {
		name      string
		symbol    string
		price     float64
		prevClose float64
		want      Quote
	}{
		{"index up", "^GSPC", 5123.456, 5000, Quote{"5,123.46", "▲ 2.5%", "+2.47", StatusUp}},
		{"fx down", "KRW=X", 1385.42, 1390, Quote{"1,385.4", "▼ 0.3%", "-0.33", StatusDown}},
		{"cheap crypto", "DOGE-USD", 0.5, 0.4, Quote{"0.5000", "▲ 25.0%", "+25.00", StatusUp}},
		{"vix rising", "^VIX", 15, 14, Quote{"15.00", "⚠ Alert", "+7.14", StatusWarn}},
		{"vix falling", "^VIX", 13, 14, Quote{"13.00", "Stable", "-7.14", StatusDown}},
		{"yield up", "^TNX", 4.25, 4.20, Quote{"4.25", "▲ 5.0bp", "+1.19", StatusWarn}},
		{"missing price", "^GSPC", 0, 100, Quote{"0.00", "", "0.00", StatusNeutral}},
		{"missing close", "^DJI", 100, 0, Quote{"0.00", "", "0.00", StatusNeutral}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatQuote(tt.symbol, tt.price, tt.prevClose)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FormatQuote(%s) mismatch (-want +got):\n%s", tt.symbol, diff)
			}
		})
	}
}

// --- History ---

func fp(v float64) *float64 { return &v }

const jan1 = 1767225600 // 2026-01-01T00:00:00Z

func TestHistoryPoints_SkipsMissingCloses(t *testing.T) {
	pts := historyPoints(
		[]int64{jan1, jan1 + 86400, jan1 + 2*86400},
		[]*float64{fp(100.123), nil, fp(101.456)},
	)
	want := []point{{"1/1", 100.12}, {"1/3", 101.46}}
	if diff := cmp.Diff(want, pts, cmp.AllowUnexported(point{})); diff != "" {
		t.Errorf("historyPoints mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildHistory_KeepsTail(t *testing.T) {
	var pts []point
	for i := 0; i < 12; i++ {
		pts = append(pts, point{label: fmt.Sprintf("1/%d", i+1), close: float64(100 + i)})
	}
	h, change := buildHistory(pts, 10)

	require.Len(t, h.Values, 10)
	assert.Equal(t, "1/3", h.Labels[0])
	assert.Equal(t, 111.0, h.Values[9])
	assert.Equal(t, "11.00", change)
}

func TestBuildHistory_Empty(t *testing.T) {
	h, change := buildHistory(nil, 10)
	assert.Empty(t, h.Labels)
	assert.NotNil(t, h.Values)
	assert.Empty(t, change)
}

// --- Fetch ---

type fakeCommentator struct {
	mu     sync.Mutex
	prompt string
}

func (f *fakeCommentator) Commentary(_ context.Context, prompt string) (*Commentary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = prompt
	return &Commentary{Brief: "Quiet day."}, nil
}

// yahooStub serves chart and search responses. Symbols in failing return
// 500.
func yahooStub(t *testing.T, failing ...string) *httptest.Server {
	t.Helper()
	fail := map[string]bool{}
	for _, s := range failing {
		fail[s] = true
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		if fail[symbol] || fail["*"] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("range") == "1mo" {
			fmt.Fprintf(w, `{"chart":{"result":[{"meta":{},"timestamp":[%d,%d,%d],"indicators":{"quote":[{"close":[100,110,120]}]}}]}}`,
				jan1, jan1+86400, jan1+2*86400)
			return
		}
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":110,"chartPreviousClose":100}}]}}`)
	})
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		var news []map[string]string
		for i := 1; i <= 7; i++ {
			news = append(news, map[string]string{"title": fmt.Sprintf("%s news %d", q, i)})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"news": news})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func fixedClock() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestFetch_ToleratesFailures(t *testing.T) {
	ts := yahooStub(t, "CL=F")
	c := &fakeCommentator{}
	f := NewFetcher(
		WithHTTPClient(ts.Client()),
		WithBaseURL(ts.URL),
		WithCommentator(c),
		WithClock(fixedClock),
	)

	data, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	assert.Equal(t, "2026-01-02T03:04:05Z", data.LastUpdated)
	assert.Len(t, data.Indices, len(Tickers)-1)
	assert.NotContains(t, data.Indices, "CL=F")
	assert.Equal(t, Quote{"110.00", "▲ 10.0%", "+10.00", StatusUp}, data.Indices["^GSPC"])

	require.Len(t, data.History, len(HistoryTickers))
	if diff := cmp.Diff(History{Labels: []string{"1/1", "1/2", "1/3"}, Values: []float64{100, 110, 120}}, data.History["BTC-USD"]); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, data.Commentary)
	assert.Equal(t, "Quiet day.", data.Commentary.Brief)
	assert.Contains(t, c.prompt, "- S&P 500: 110.00 (Daily: +10.00%, 1-Month: 20.00%)")
	assert.Contains(t, c.prompt, "- SPY news 5")
	assert.NotContains(t, c.prompt, "SPY news 6")
	assert.Contains(t, c.prompt, "- BTC-USD news 3")
	assert.NotContains(t, c.prompt, "BTC-USD news 4")
	assert.Contains(t, c.prompt, "written in Korean")
}

func TestFetch_AllFail(t *testing.T) {
	ts := yahooStub(t, "*")
	f := NewFetcher(WithHTTPClient(ts.Client()), WithBaseURL(ts.URL))

	_, err := f.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrNoQuotes), "got %v", err)
}

func TestFetch_NoCommentator(t *testing.T) {
	ts := yahooStub(t)
	f := NewFetcher(WithHTTPClient(ts.Client()), WithBaseURL(ts.URL), WithConcurrency(2))

	data, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	assert.Nil(t, data.Commentary)
	assert.Len(t, data.Indices, len(Tickers))
}

// --- Output ---

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files", "data", "market_data.json")
	in := &Data{
		LastUpdated: "2026-01-02T03:04:05Z",
		Indices:     map[string]Quote{"^GSPC": {"1.00", "▲ 1.0%", "+1.00", StatusUp}},
		History:     map[string]History{},
	}
	if err := Write(path, in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"indices\"")
	assert.NotContains(t, string(raw), "commentary")

	var out Data
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Indices, out.Indices)
}

func TestParseCommentary(t *testing.T) {
	c, err := ParseCommentary("```json\n{\"brief\":\"b\",\"topics\":[{\"title\":\"Fed\",\"description\":\"d\"}],\"events\":[]}\n```")
	if err != nil {
		t.Fatalf("ParseCommentary failed: %v", err)
	}
	assert.Equal(t, "b", c.Brief)
	assert.Equal(t, []Topic{{"Fed", "d"}}, c.Topics)

	_, err = ParseCommentary("not json")
	assert.Error(t, err)
}

func TestBuildPrompt_MissingData(t *testing.T) {
	p := BuildPrompt(PromptInput{Date: fixedClock(), Language: "English"})
	assert.Contains(t, p, "- VIX: N/A (Daily: N/A%, 1-Month: N/A%)")
	assert.Contains(t, p, "No news fetched")
	assert.Contains(t, p, "Friday, January 2, 2026")
	assert.Contains(t, p, "written in English")
}
