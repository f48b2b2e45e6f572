// Package debughttp exposes a read-only chi router for local introspection
// of a corestore.Store: its current snapshot, registered listeners, and
// queue/worker-pool stats. It is never required and is not a network
// protocol for the store itself — store-to-store communication stays out
// of scope; this is a one-way debug export.
package debughttp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corestorelabs/corestore"
)

// NewRouter builds a chi.Router exposing GET /snapshot, GET /listeners,
// GET /event-handlers, and GET /stats over store.
func NewRouter(store *corestore.Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.Snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(snap)
	})

	r.Get("/listeners", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.Listeners())
	})

	r.Get("/event-handlers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.EventHandlers())
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.Stats())
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
