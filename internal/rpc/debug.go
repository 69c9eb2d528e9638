package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DebugMux builds a tiny chi router exposing operational endpoints the gRPC
// surface has no room for: a liveness probe and a resident-session snapshot
// for local troubleshooting. It is meant to be served on a separate port
// from the Agent Service (never the gRPC listener itself), matching the
// teacher's pattern of an auxiliary HTTP mux alongside the main API.
func DebugMux(srv *Server) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/debug/sessions", func(w http.ResponseWriter, req *http.Request) {
		headers, err := srv.manager.ListSessions(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(headers)
	})

	return r
}
