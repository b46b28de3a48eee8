package suggest

import (
	"context"
	"strings"

	"listacerta/internal/logging"
)

// FetchCandidates asks the gateway for product names matching query.
//
// Failures never escape: a transport error, quota error or malformed response
// all yield an empty slice, which callers treat as "no suggestions". Order is
// the gateway's relevance order; entries without a name are dropped and the
// result is capped at MaxCandidates.
func FetchCandidates(ctx context.Context, src CandidateSource, query string) []string {
	names, err := src.Suggest(ctx, query)
	if err != nil {
		logging.SuggestWarn("Candidate fetch failed for %q: %v", query, err)
		return nil
	}

	out := make([]string, 0, min(len(names), MaxCandidates))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			logging.SuggestDebug("Dropping blank candidate for %q", query)
			continue
		}
		out = append(out, name)
		if len(out) == MaxCandidates {
			break
		}
	}

	logging.SuggestDebug("Query %q produced %d candidates", query, len(out))
	return out
}
