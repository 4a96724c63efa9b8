package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lox/pokerroom/internal/lobby"
)

// registerAdminRoutes wires the read-only introspection surface (§1
// Non-goals excludes mutating admin actions, but a liveness/stats endpoint
// is ambient ops tooling). Grounded on internal/server/server.go's
// ensureRoutes/handleHealth/handleGames, trimmed of every mutating
// /admin/games/* handler since this server has no equivalent "restart a
// game with new params" operation to expose.
func registerAdminRoutes(mux *http.ServeMux, lb *lobby.Lobby, startedAt time.Time) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(lb.List())
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		tables := lb.List()
		var connected, hands int
		for _, t := range tables {
			connected += t.ConnectedSeats
			hands += int(t.HandNumber)
		}
		fmt.Fprintf(w, "Uptime: %s\n", time.Since(startedAt).Round(time.Second))
		fmt.Fprintf(w, "Tables: %d\n", len(tables))
		fmt.Fprintf(w, "Connected seats: %d\n", connected)
		fmt.Fprintf(w, "Hands dealt (sum across tables): %d\n", hands)
	})
}
