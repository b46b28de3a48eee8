package suggest

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		len  int
	}{
		{"trims", "  leite  ", "leite", 5},
		{"composes accents", "cafe\u0301", "caf\u00e9", 4},
		{"blank", "   ", "", 0},
		{"two letters", " le ", "le", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeQuery(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if n := QueryLength(got); n != tt.len {
				t.Errorf("QueryLength(%q) = %d, want %d", got, n, tt.len)
			}
		})
	}
}

func TestFetchCandidates(t *testing.T) {
	gw := newScriptedGateway()
	gw.candidates["bolacha"] = []string{" Oreo ", "", "Passatempo", "Trakinas", "Negresco", "Bono", "Club Social", "Tostines"}

	got := FetchCandidates(context.Background(), gw, "bolacha")
	want := []string{"Oreo", "Passatempo", "Trakinas", "Negresco", "Bono", "Club Social"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchCandidates() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchCandidates_ErrorYieldsEmpty(t *testing.T) {
	gw := newScriptedGateway()
	gw.suggestErr = errQuota

	got := FetchCandidates(context.Background(), gw, "leite")
	assert.Empty(t, got)
}

func TestPipeline_AttachesImagesInOrder(t *testing.T) {
	gw := newScriptedGateway()
	gw.candidates["leite"] = []string{"Leite Integral", "Leite Desnatado"}

	p := NewPipeline(gw, PipelineOptions{Images: true})
	got := p.Run(context.Background(), "leite")

	want := []Suggestion{
		{Name: "Leite Integral", ImageURL: strPtr(imageRef("Leite Integral"))},
		{Name: "Leite Desnatado", ImageURL: strPtr(imageRef("Leite Desnatado"))},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, []string{"Leite Integral", "Leite Desnatado"}, gw.ImageCalls())
}

func TestPipeline_ImageFailureKeepsCandidate(t *testing.T) {
	gw := newScriptedGateway()
	gw.candidates["cafe"] = []string{"Pilão", "Melitta", "3 Corações"}
	gw.imageErrs["Melitta"] = errQuota
	gw.noImage["3 Corações"] = true

	got := NewPipeline(gw, PipelineOptions{Images: true}).Run(context.Background(), "cafe")
	require.Len(t, got, 3)

	assert.Equal(t, "Pilão", got[0].Name)
	assert.True(t, got[0].HasImage())
	assert.Equal(t, "Melitta", got[1].Name)
	assert.Nil(t, got[1].ImageURL)
	assert.Equal(t, "3 Corações", got[2].Name)
	assert.Nil(t, got[2].ImageURL)
}

func TestPipeline_OrderSurvivesShuffledSettling(t *testing.T) {
	names := []string{"Arroz Tio João", "Arroz Camil", "Arroz Prato Fino", "Arroz Namorado"}
	gw := newScriptedGateway()
	gw.candidates["arroz"] = names
	for _, n := range names {
		gw.imageGate[n] = make(chan struct{})
	}

	done := make(chan []Suggestion, 1)
	go func() {
		done <- NewPipeline(gw, PipelineOptions{Images: true}).Run(context.Background(), "arroz")
	}()

	require.Eventually(t, func() bool { return len(gw.ImageCalls()) == len(names) },
		time.Second, time.Millisecond, "all image requests should be in flight at once")

	release := []int{2, 0, 3, 1}
	for i, idx := range release {
		close(gw.imageGate[names[idx]])
		require.Eventually(t, func() bool { return len(gw.Settled()) == i+1 }, time.Second, time.Millisecond)
	}

	got := <-done
	want := make([]Suggestion, len(names))
	for i, n := range names {
		want[i] = Suggestion{Name: n, ImageURL: strPtr(imageRef(n))}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{names[2], names[0], names[3], names[1]}, gw.Settled())
}

func TestPipeline_NoCandidatesSkipsImages(t *testing.T) {
	gw := newScriptedGateway()
	gw.suggestErr = errQuota

	got := NewPipeline(gw, PipelineOptions{Images: true}).Run(context.Background(), "leite")
	assert.Empty(t, got)
	assert.Empty(t, gw.ImageCalls())
}

func TestPipeline_WithoutImagesAndLimit(t *testing.T) {
	gw := newScriptedGateway()
	gw.candidates["sabao"] = []string{"Omo", "Ariel", "Brilhante", "Tixan"}

	got := NewPipeline(gw, PipelineOptions{Limit: 2}).Run(context.Background(), "sabao")
	want := []Suggestion{{Name: "Omo"}, {Name: "Ariel"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, gw.ImageCalls())
}
