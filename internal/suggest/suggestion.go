// Package suggest turns free-text product searches into an ordered list of
// product suggestions with generated photos.
//
// The flow is: keystrokes -> Controller (debounce, generation tokens) ->
// Pipeline (candidate names, then one image per candidate in parallel) ->
// Snapshot handed to whatever renders the list. Only the run started for the
// latest query is ever applied.
package suggest

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxCandidates is the most product names a single query produces.
const MaxCandidates = 6

// Suggestion is a candidate product name paired with an optional image
// reference. A nil ImageURL means no image could be generated.
type Suggestion struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"imageUrl"`
}

// HasImage reports whether an image reference is present.
func (s Suggestion) HasImage() bool {
	return s.ImageURL != nil && *s.ImageURL != ""
}

// CandidateSource returns up to MaxCandidates product names for a query.
type CandidateSource interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// ImageSource returns an image reference for one product name.
type ImageSource interface {
	GenerateImage(ctx context.Context, productName string) (string, error)
}

// Gateway is the AI service boundary the pipeline consumes.
type Gateway interface {
	CandidateSource
	ImageSource
}

// NormalizeQuery trims surrounding whitespace and composes the query to NFC so
// "leite" typed with combining marks counts the same as the precomposed form.
func NormalizeQuery(q string) string {
	return norm.NFC.String(strings.TrimSpace(q))
}

// QueryLength returns the length of a normalized query in runes.
func QueryLength(q string) int {
	return utf8.RuneCountInString(q)
}
