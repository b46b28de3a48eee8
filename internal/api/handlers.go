package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"listacerta/internal/shopping"
	"listacerta/internal/suggest"

	"github.com/go-chi/chi/v5"
)

type addItemRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	ImageURL string  `json:"imageUrl"`
}

type updateItemRequest struct {
	Completed *bool    `json:"completed"`
	Quantity  *float64 `json:"quantity"`
}

type compareRequest struct {
	City  string   `json:"city"`
	State string   `json:"state"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints whose body may be absent,
// including chunked requests that turn out to be empty.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Items(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if items == nil {
		items = []shopping.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := s.svc.AddItem(r.Context(), req.Name, req.Quantity, req.ImageURL)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Completed == nil && req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	ctx := r.Context()
	item, err := s.svc.Item(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be positive")
			return
		}
		if item, err = s.svc.SetQuantity(ctx, id, *req.Quantity); err != nil {
			writeErr(w, err)
			return
		}
	}
	if req.Completed != nil && *req.Completed != item.Completed {
		if item, err = s.svc.ToggleItem(ctx, id); err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.RemoveItem(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPurchases(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.History(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []shopping.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) completePurchase(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.CompletePurchase(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) reuseItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	item, err := s.svc.ReuseItem(r.Context(), chi.URLParam(r, "id"), itemID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	loc := shopping.Location{City: req.City, State: req.State, Lat: req.Lat, Lon: req.Lon}
	if strings.TrimSpace(loc.City) == "" && strings.TrimSpace(loc.State) == "" && !loc.HasCoordinates() {
		loc = s.location
	}

	cmp, err := s.svc.ComparePrices(r.Context(), loc)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "suggestions are not configured")
		return
	}
	q := suggest.NormalizeQuery(r.URL.Query().Get("q"))
	if suggest.QueryLength(q) < s.minQuery {
		writeJSON(w, http.StatusOK, []suggest.Suggestion{})
		return
	}
	out := s.pipeline.Run(r.Context(), q)
	if out == nil {
		out = []suggest.Suggestion{}
	}
	writeJSON(w, http.StatusOK, out)
}
