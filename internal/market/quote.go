package market

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Quote status values drive the dashboard's colour classes.
const (
	StatusUp      = "up"
	StatusDown    = "down"
	StatusWarn    = "warn"
	StatusNeutral = "neu"
)

// Quote is one ticker's latest close as the dashboard renders it.
type Quote struct {
	Price         string `json:"price"`
	ChangeText    string `json:"changeText"`
	ChangePercent string `json:"changePercent"`
	Status        string `json:"status"`
}

var printer = message.NewPrinter(language.English)

func isYield(symbol string) bool {
	for _, y := range YieldTickers {
		if y == symbol {
			return true
		}
	}
	return false
}

func isCrypto(symbol string) bool { return strings.Contains(symbol, "-USD") }

// decimals is the number of fraction digits shown for symbol at price.
func decimals(symbol string, price float64) int {
	switch {
	case symbol == "KRW=X":
		return 1
	case isCrypto(symbol) && price < 10:
		return 4
	}
	return 2
}

// formatPrice groups thousands: 5123.456 with 2 digits is "5,123.46".
func formatPrice(price float64, digits int) string {
	switch digits {
	case 1:
		return printer.Sprintf("%.1f", price)
	case 4:
		return printer.Sprintf("%.4f", price)
	}
	return printer.Sprintf("%.2f", price)
}

func arrow(diff float64) string {
	if diff >= 0 {
		return "▲ "
	}
	return "▼ "
}

// FormatQuote builds the quote for symbol from its price and previous
// close. A missing price or close yields a neutral zero quote.
func FormatQuote(symbol string, price, prevClose float64) Quote {
	q := Quote{Price: "0.00", ChangePercent: "0.00", Status: StatusNeutral}
	if price == 0 || prevClose == 0 {
		return q
	}
	diff := price - prevClose
	pct := diff / prevClose * 100

	q.Price = formatPrice(price, decimals(symbol, price))
	q.ChangePercent = fmt.Sprintf("%+.2f", pct)

	switch {
	case symbol == "^VIX":
		if diff >= 0 {
			q.ChangeText, q.Status = "⚠ Alert", StatusWarn
		} else {
			q.ChangeText, q.Status = "Stable", StatusDown
		}
	case isYield(symbol):
		q.ChangeText = fmt.Sprintf("%s%.1fbp", arrow(diff), math.Abs(diff*100))
		q.Status = StatusDown
		if diff >= 0 {
			q.Status = StatusWarn
		}
	default:
		q.ChangeText = fmt.Sprintf("%s%.1f%%", arrow(diff), math.Abs(pct))
		q.Status = StatusDown
		if diff >= 0 {
			q.Status = StatusUp
		}
	}
	return q
}

// History is the closing-price series behind the main chart and the
// sparklines.
type History struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// point is one trading day.
type point struct {
	label string
	close float64
}

// historyPoints keeps the days with a close, rounded to cents.
func historyPoints(timestamps []int64, closes []*float64) []point {
	var pts []point
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		d := timeUnix(ts)
		pts = append(pts, point{
			label: fmt.Sprintf("%d/%d", int(d.Month()), d.Day()),
			close: math.Round(*closes[i]*100) / 100,
		})
	}
	return pts
}

// buildHistory returns the last n points and the month change in percent
// (oldest close of the range against the newest), formatted to 2 digits.
func buildHistory(pts []point, n int) (History, string) {
	h := History{Labels: []string{}, Values: []float64{}}
	if len(pts) == 0 {
		return h, ""
	}
	tail := pts
	if len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	for _, p := range tail {
		h.Labels = append(h.Labels, p.label)
		h.Values = append(h.Values, p.close)
	}
	first, last := pts[0].close, tail[len(tail)-1].close
	if first == 0 {
		return h, ""
	}
	return h, fmt.Sprintf("%.2f", (last-first)/first*100)
}
