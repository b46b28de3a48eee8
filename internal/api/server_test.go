package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"listacerta/internal/shopping"
	"listacerta/internal/store"
	"listacerta/internal/suggest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubComparer struct {
	mu  sync.Mutex
	loc shopping.Location
	err error
}

func (s *stubComparer) ComparePrices(_ context.Context, items []shopping.Item, loc shopping.Location) (*shopping.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = loc
	if s.err != nil {
		return nil, s.err
	}
	cmp := &shopping.Comparison{}
	for _, name := range []string{"Assaí", "Carrefour"} {
		m := shopping.Supermarket{Name: name, Address: "Centro"}
		for _, it := range items {
			m.Items = append(m.Items, shopping.ItemPrice{Name: it.Name, Price: 10})
			m.TotalCost += 10 * it.Quantity
		}
		cmp.Supermarkets = append(cmp.Supermarkets, m)
	}
	return cmp, nil
}

type stubGateway struct{}

func (stubGateway) Suggest(_ context.Context, q string) ([]string, error) {
	if q == "erro" {
		return nil, errors.New("quota exceeded")
	}
	return []string{q + " Integral", q + " Desnatado"}, nil
}

func (stubGateway) GenerateImage(_ context.Context, name string) (string, error) {
	return "data:image/jpeg;base64," + name, nil
}

type testEnv struct {
	srv      *httptest.Server
	comparer *stubComparer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(store.DriverModernc, filepath.Join(t.TempDir(), "lista.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cmp := &stubComparer{}
	svc := shopping.NewService(st, cmp)
	server := NewServer(svc, Options{
		Pipeline:        suggest.NewPipeline(stubGateway{}, suggest.PipelineOptions{Images: true}),
		DefaultLocation: shopping.Location{City: "Curitiba", State: "PR"},
	})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, comparer: cmp}
}

func (s *stubComparer) lastCity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc.City
}

func (s *stubComparer) failWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestItemsLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var items []shopping.Item
	resp := env.do(t, http.MethodGet, "/api/items", nil, &items)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, items)

	var created shopping.Item
	resp = env.do(t, http.MethodPost, "/api/items", addItemRequest{Name: "Queijo Minas", Quantity: 0.5}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 0.5, created.Quantity)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	done := true
	var updated shopping.Item
	resp = env.do(t, http.MethodPatch, "/api/items/"+itoa(created.ID), updateItemRequest{Completed: &done}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, updated.Completed)

	qty := 2.0
	resp = env.do(t, http.MethodPatch, "/api/items/"+itoa(created.ID), updateItemRequest{Quantity: &qty, Completed: &done}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, updated.Quantity)
	assert.True(t, updated.Completed, "unchanged completed flag is not toggled")

	resp = env.do(t, http.MethodDelete, "/api/items/"+itoa(created.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var apiErr map[string]string
	resp = env.do(t, http.MethodDelete, "/api/items/"+itoa(created.ID), nil, &apiErr)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, apiErr["error"])
}

func TestItemValidation(t *testing.T) {
	env := newTestEnv(t)
	var apiErr map[string]string

	resp := env.do(t, http.MethodPost, "/api/items", addItemRequest{Name: "  "}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/items", map[string]any{"nome": "Arroz"}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")

	resp = env.do(t, http.MethodPatch, "/api/items/abc", updateItemRequest{}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPatch, "/api/items/1", updateItemRequest{}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPurchaseAndReuse(t *testing.T) {
	env := newTestEnv(t)

	var apiErr map[string]string
	resp := env.do(t, http.MethodPost, "/api/purchases", nil, &apiErr)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "empty list")

	var item shopping.Item
	env.do(t, http.MethodPost, "/api/items", addItemRequest{Name: "Café Pilão 500g", Quantity: 2, ImageURL: "data:image/jpeg;base64,AA"}, &item)

	var rec shopping.PurchaseRecord
	resp = env.do(t, http.MethodPost, "/api/purchases", nil, &rec)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, rec.Items, 1)

	var history []shopping.PurchaseRecord
	env.do(t, http.MethodGet, "/api/purchases", nil, &history)
	require.Len(t, history, 1)
	assert.Equal(t, rec.ID, history[0].ID)

	var items []shopping.Item
	env.do(t, http.MethodGet, "/api/items", nil, &items)
	assert.Empty(t, items)

	var reused shopping.Item
	resp = env.do(t, http.MethodPost, "/api/purchases/"+rec.ID+"/items/"+itoa(item.ID)+"/reuse", nil, &reused)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Café Pilão 500g", reused.Name)
	assert.Empty(t, reused.ImageURL)

	resp = env.do(t, http.MethodPost, "/api/purchases/nope/items/1/reuse", nil, &apiErr)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCompare(t *testing.T) {
	env := newTestEnv(t)
	var apiErr map[string]string

	resp := env.do(t, http.MethodPost, "/api/compare", compareRequest{City: "Recife", State: "PE"}, &apiErr)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no pending items")

	env.do(t, http.MethodPost, "/api/items", addItemRequest{Name: "Arroz", Quantity: 2}, nil)

	var cmp shopping.Comparison
	resp = env.do(t, http.MethodPost, "/api/compare", compareRequest{City: "Recife", State: "PE"}, &cmp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, cmp.Supermarkets, 2)
	assert.Equal(t, "Recife", env.comparer.lastCity())

	resp = env.do(t, http.MethodPost, "/api/compare", nil, &cmp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Curitiba", env.comparer.lastCity(), "falls back to the configured location")

	resp = env.do(t, http.MethodPost, "/api/compare", compareRequest{City: "Recife"}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/compare", compareRequest{City: "Recife", State: "XX"}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, apiErr["error"], "unknown state")

	env.comparer.failWith(errors.New("quota exceeded"))
	resp = env.do(t, http.MethodPost, "/api/compare", compareRequest{City: "Recife", State: "PE"}, &apiErr)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, apiErr["error"], "quota exceeded")
}

func TestCompare_EmptyChunkedBodyUsesDefault(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/items", addItemRequest{Name: "Arroz", Quantity: 1}, nil)

	// An opaque reader has no known length, so the client sends it chunked.
	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/compare", io.NopCloser(strings.NewReader("")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Curitiba", env.comparer.lastCity())

	req, err = http.NewRequest(http.MethodPost, env.srv.URL+"/api/compare", io.NopCloser(strings.NewReader(`{"city":`)))
	require.NoError(t, err)
	bad, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode, "truncated JSON is still rejected")
}

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t)

	var got []suggest.Suggestion
	resp := env.do(t, http.MethodGet, "/api/suggestions?q=leite", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got, 2)
	assert.Equal(t, "leite Integral", got[0].Name)
	assert.True(t, got[0].HasImage())

	resp = env.do(t, http.MethodGet, "/api/suggestions?q=le", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, got)

	resp = env.do(t, http.MethodGet, "/api/suggestions?q=erro", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, got, "gateway failures degrade to an empty list")
}

func TestSuggestionsDisabled(t *testing.T) {
	st, err := store.Open(store.DriverModernc, filepath.Join(t.TempDir(), "lista.db"))
	require.NoError(t, err)
	defer st.Close()

	h := NewServer(shopping.NewService(st, nil), Options{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/suggestions?q=leite", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-7", rec.Header().Get(RequestIDHeader))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	st, err := store.Open(store.DriverModernc, filepath.Join(t.TempDir(), "lista.db"))
	require.NoError(t, err)
	defer st.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- NewServer(shopping.NewService(st, nil), Options{}).Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
