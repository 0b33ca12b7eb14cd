package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel generates the commentary.
const DefaultModel = "gemini-2.5-flash"

// Commentary is the generated daily market note.
type Commentary struct {
	Brief  string  `json:"brief"`
	Topics []Topic `json:"topics"`
	Events []Event `json:"events"`
}

// Topic is one theme of the day.
type Topic struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Event is an upcoming release or earnings date.
type Event struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// Commentator writes commentary for a prompt.
type Commentator interface {
	Commentary(ctx context.Context, prompt string) (*Commentary, error)
}

// Gemini generates commentary with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini commentator. An empty model selects
// DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Commentary implements Commentator.
func (g *Gemini) Commentary(ctx context.Context, prompt string) (*Commentary, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   commentarySchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generating commentary: %w", err)
	}
	return ParseCommentary(resp.Text())
}

var commentarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"brief": {Type: genai.TypeString},
		"topics": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":       {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"title", "description"},
			},
		},
		"events": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"date":        {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"date", "description"},
			},
		},
	},
	Required: []string{"brief", "topics", "events"},
}

// ParseCommentary decodes model output, tolerating a ```json fence.
func ParseCommentary(text string) (*Commentary, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	var c Commentary
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("parsing commentary: %w", err)
	}
	return &c, nil
}

// PromptInput is the market snapshot the commentary is written from.
type PromptInput struct {
	Date       time.Time
	Indices    map[string]Quote
	Changes    map[string]string
	MarketNews []string
	CryptoNews []string
	// Language of the commentary; empty means Korean.
	Language string
}

// Dates in the prompt are Seoul calendar dates.
var seoul = time.FixedZone("KST", 9*60*60)

var promptTickers = []struct{ symbol, name string }{
	{"^GSPC", "S&P 500"},
	{"^IXIC", "NASDAQ"},
	{"^DJI", "Dow Jones"},
	{"^VIX", "VIX"},
	{"BTC-USD", "Bitcoin"},
}

// BuildPrompt renders the commentary request.
func BuildPrompt(in PromptInput) string {
	lang := in.Language
	if lang == "" {
		lang = "Korean"
	}
	date := in.Date.In(seoul).Format("Monday, January 2, 2006")

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert financial analyst. Today's date is %s.\n", date)
	b.WriteString("Based on the following US market data at the close:\n")
	b.WriteString("1. Daily Performance & 1-Month Trend:\n")
	for _, t := range promptTickers {
		price, daily := "N/A", "N/A"
		if q, ok := in.Indices[t.symbol]; ok {
			price, daily = q.Price, q.ChangePercent
		}
		month := in.Changes[t.symbol]
		if month == "" {
			month = "N/A"
		}
		fmt.Fprintf(&b, "- %s: %s (Daily: %s%%, 1-Month: %s%%)\n", t.name, price, daily, month)
	}

	b.WriteString("\n2. Latest Mainstream Market News Headlines (S&P 500 & Economy):\n")
	writeHeadlines(&b, in.MarketNews)
	b.WriteString("\n3. Latest Crypto News Headlines (Bitcoin):\n")
	writeHeadlines(&b, in.CryptoNews)

	fmt.Fprintf(&b, `
Write a daily US market commentary based strictly on the provided headlines and the 1-month trends, not just the daily change.
It must be accurate for today (%s).
Rules for market trends:
1. If the 1-month trend is strongly negative but the daily change is slightly positive, describe it as a short rebound within a broader downtrend, not as continued strength.
2. Only call the market strong if both the daily and 1-month trends are positive.
3. For events, list only real upcoming US economic releases or earnings from today onward. Do not invent past events.
Return JSON with "brief" (1-2 sentences), "topics" (4 items with "title" and "description") and "events" (items with "date" and "description").
Keep the tone professional and objective, written in %s.
`, date, lang)
	return b.String()
}

func writeHeadlines(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("No news fetched\n")
		return
	}
	for _, n := range items {
		b.WriteString("- " + n + "\n")
	}
}
