package journal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/timetabler/core/search/journal"
)

type memStore struct{ entries []journal.Entry }

func (m *memStore) Append(_ context.Context, e journal.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Query(_ context.Context, q journal.Query) ([]journal.Entry, error) {
	var res []journal.Entry
	for _, e := range m.entries {
		if q.RunID != "" && e.RunID != q.RunID {
			continue
		}
		if q.Service != "" && e.Service != q.Service {
			continue
		}
		res = append(res, e)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestMoveHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	now := time.Now()
	for i, run := range []string{"r1", "r1", "r2"} {
		if err := store.Append(context.Background(), journal.Entry{
			RunID: run, Timestamp: now, Iteration: i + 1, Service: "1", Target: "1-j1#2",
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	h := NewMoveHandler(store, "tok")

	req := httptest.NewRequest(http.MethodGet, "/api/journal/moves?run_id=r1", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []journal.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/journal/moves", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestMoveHandler_EmptyAndBadTime(t *testing.T) {
	h := NewMoveHandler(&memStore{}, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/journal/moves?run_id=none", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty list, got %q", body)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/journal/moves?start=yesterday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}
