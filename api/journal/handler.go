// Package journal exposes the plan journal via GET /api/journal.
package journal

import (
	"encoding/json"
	"net/http"
	"time"

	corejournal "github.com/kilianp07/dayplan/core/journal"
)

// NewHandler returns an HTTP handler exposing journal records.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(store corejournal.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := corejournal.Query{
			UserID: r.URL.Query().Get("user_id"),
			PlanID: r.URL.Query().Get("plan_id"),
			Kind:   corejournal.Kind(r.URL.Query().Get("kind")),
		}
		for _, p := range []struct {
			key string
			dst *time.Time
		}{{"start", &q.Start}, {"end", &q.End}} {
			s := r.URL.Query().Get(p.key)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+p.key+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*p.dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []corejournal.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
