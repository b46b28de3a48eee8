package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errQuota = errors.New("quota exceeded")

// scriptedGateway is a Gateway whose answers are set per query and per
// product name. Gates let a test hold a call until it decides to release it.
type scriptedGateway struct {
	mu sync.Mutex

	candidates  map[string][]string
	suggestErr  error
	imageErrs   map[string]error
	noImage     map[string]bool
	suggestGate map[string]chan struct{}
	imageGate   map[string]chan struct{}
	honorCancel bool

	suggestCalls []string
	imageCalls   []string
	settled      []string
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{
		candidates:  make(map[string][]string),
		imageErrs:   make(map[string]error),
		noImage:     make(map[string]bool),
		suggestGate: make(map[string]chan struct{}),
		imageGate:   make(map[string]chan struct{}),
	}
}

func (g *scriptedGateway) Suggest(ctx context.Context, query string) ([]string, error) {
	g.mu.Lock()
	g.suggestCalls = append(g.suggestCalls, query)
	gate := g.suggestGate[query]
	names := g.candidates[query]
	err := g.suggestErr
	g.mu.Unlock()

	if gate != nil {
		if err := g.wait(ctx, gate); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]string(nil), names...), nil
}

func (g *scriptedGateway) GenerateImage(ctx context.Context, name string) (string, error) {
	g.mu.Lock()
	g.imageCalls = append(g.imageCalls, name)
	gate := g.imageGate[name]
	err := g.imageErrs[name]
	empty := g.noImage[name]
	g.mu.Unlock()

	if gate != nil {
		if err := g.wait(ctx, gate); err != nil {
			return "", err
		}
	}

	g.mu.Lock()
	g.settled = append(g.settled, name)
	g.mu.Unlock()

	if err != nil {
		return "", err
	}
	if empty {
		return "", nil
	}
	return imageRef(name), nil
}

func (g *scriptedGateway) wait(ctx context.Context, gate chan struct{}) error {
	if !g.honorCancel {
		<-gate
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *scriptedGateway) SuggestCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.suggestCalls...)
}

func (g *scriptedGateway) ImageCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.imageCalls...)
}

func (g *scriptedGateway) Settled() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.settled...)
}

func imageRef(name string) string {
	return fmt.Sprintf("data:image/jpeg;base64,%s", name)
}

func strPtr(s string) *string { return &s }
