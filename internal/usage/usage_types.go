package usage

import "time"

// Operations recorded by the Gemini gateway.
const (
	OpSuggest = "suggest"
	OpImage   = "image"
	OpCompare = "compare"
)

// maxEvents bounds the recent-event log kept in usage.json.
const maxEvents = 200

// UsageData is the document stored in .lista/usage.json.
type UsageData struct {
	Version   string          `json:"version"`
	Events    []UsageEvent    `json:"events,omitempty"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// UsageEvent is one Gemini call.
type UsageEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	Model        string    `json:"model"`
	Operation    string    `json:"operation"`
	Surface      string    `json:"surface"` // cli, tui, http
	RequestID    string    `json:"request_id,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Failed       bool      `json:"failed,omitempty"`
}

// AggregatedStats holds counters broken down by dimension.
type AggregatedStats struct {
	Total       TokenCounts            `json:"total"`
	ByModel     map[string]TokenCounts `json:"by_model"`
	ByOperation map[string]TokenCounts `json:"by_operation"`
	BySurface   map[string]TokenCounts `json:"by_surface"`
	ByDay       map[string]TokenCounts `json:"by_day"`
}

// TokenCounts holds input/output sums and the number of calls behind them.
type TokenCounts struct {
	Calls    int64 `json:"calls"`
	Failures int64 `json:"failures,omitempty"`
	Input    int64 `json:"input"`
	Output   int64 `json:"output"`
	Total    int64 `json:"total"`
}

// Add records one call.
func (tc *TokenCounts) Add(input, output int, failed bool) {
	tc.Calls++
	if failed {
		tc.Failures++
	}
	tc.Input += int64(input)
	tc.Output += int64(output)
	tc.Total += int64(input + output)
}

func newAggregate() AggregatedStats {
	return AggregatedStats{
		ByModel:     make(map[string]TokenCounts),
		ByOperation: make(map[string]TokenCounts),
		BySurface:   make(map[string]TokenCounts),
		ByDay:       make(map[string]TokenCounts),
	}
}
