package suggest

import (
	"context"

	"listacerta/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Pipeline runs one suggestion request end to end: candidate names first,
// then one image per candidate, all images in flight at once.
type Pipeline struct {
	gateway Gateway
	images  bool
	limit   int
}

// PipelineOptions tunes a Pipeline.
type PipelineOptions struct {
	// Images enables one generated image per candidate.
	Images bool
	// Limit caps the candidate count below MaxCandidates. Zero means MaxCandidates.
	Limit int
}

// NewPipeline creates a pipeline over gw.
func NewPipeline(gw Gateway, opts PipelineOptions) *Pipeline {
	limit := opts.Limit
	if limit <= 0 || limit > MaxCandidates {
		limit = MaxCandidates
	}
	return &Pipeline{gateway: gw, images: opts.Images, limit: limit}
}

// Run produces the suggestions for an already normalized query. It never
// returns an error; an empty result is the only failure signal.
func (p *Pipeline) Run(ctx context.Context, query string) []Suggestion {
	timer := logging.StartTimer(logging.CategorySuggest, "Pipeline.Run")
	defer timer.Stop()

	names := FetchCandidates(ctx, p.gateway, query)
	if len(names) == 0 {
		return nil
	}
	if len(names) > p.limit {
		names = names[:p.limit]
	}
	if !p.images {
		out := make([]Suggestion, len(names))
		for i, name := range names {
			out[i] = Suggestion{Name: name}
		}
		return out
	}
	return p.attachImages(ctx, names)
}

// attachImages generates one image per name concurrently and waits for every
// request to settle. The result has exactly len(names) entries in input order;
// a failed image leaves that entry's ImageURL nil.
func (p *Pipeline) attachImages(ctx context.Context, names []string) []Suggestion {
	out := make([]Suggestion, len(names))

	// Goroutines never return an error, so one failure does not cancel its
	// siblings; each writes only its own slot.
	var g errgroup.Group
	for i, name := range names {
		out[i].Name = name
		g.Go(func() error {
			ref, err := p.gateway.GenerateImage(ctx, name)
			if err != nil {
				logging.SuggestWarn("Image generation failed for %q: %v", name, err)
				return nil
			}
			if ref == "" {
				return nil
			}
			out[i].ImageURL = &ref
			return nil
		})
	}
	_ = g.Wait()

	return out
}
