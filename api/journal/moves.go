package journal

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/timetabler/core/search/journal"
)

// NewMoveHandler returns an HTTP handler exposing accepted moves via
// GET /api/journal/moves. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
func NewMoveHandler(store journal.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		params := r.URL.Query()
		q := journal.Query{RunID: params.Get("run_id"), Service: params.Get("service")}
		var err error
		if q.Start, err = parseTime(params.Get("start")); err != nil {
			http.Error(w, "start: "+err.Error(), http.StatusBadRequest)
			return
		}
		if q.End, err = parseTime(params.Get("end")); err != nil {
			http.Error(w, "end: "+err.Error(), http.StatusBadRequest)
			return
		}
		entries, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
