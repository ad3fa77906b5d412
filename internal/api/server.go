package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"markfleet/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, fleetH *FleetHandler, courseH *CourseHandler, followH *FollowHandler, assignH *AssignHandler, statsH *StatsHandler, feedH *FeedHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// Fleet and course snapshots.
	mux.HandleFunc("GET /api/fleet", fleetH.HandleFleet)
	mux.HandleFunc("GET /api/course", courseH.HandleCourse)

	// Operator edits: moving a mark retargets its buoys immediately.
	mux.HandleFunc("POST /api/marks/{id}/position", courseH.HandleSetPosition)
	mux.HandleFunc("PUT /api/marks/{id}/position", courseH.HandleSetPosition)

	// Follow controller tuning and manual-mode batching.
	mux.HandleFunc("GET /api/follow/settings", followH.HandleGetSettings)
	mux.HandleFunc("PUT /api/follow/settings", followH.HandleSetSettings)
	mux.HandleFunc("GET /api/follow/mode", followH.HandleGetMode)
	mux.HandleFunc("PUT /api/follow/mode", followH.HandleSetMode)
	mux.HandleFunc("GET /api/follow/pending", followH.HandlePending)
	mux.HandleFunc("POST /api/follow/deploy", followH.HandleDeploy)

	// Auto-assignment.
	mux.HandleFunc("POST /api/assign/auto", assignH.HandleAuto)

	mux.Handle("GET /api/stats", statsH)

	// Live fleet feed for operator UIs.
	if feedH != nil {
		mux.HandleFunc("GET /api/ws", feedH.HandleFeed)
	}

	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
