package api

import (
	"log/slog"
	"net/http"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	feedInterval  = 2 * time.Second
	feedWriteWait = 10 * time.Second
)

// FeedHandler pushes periodic fleet snapshots over a websocket.
type FeedHandler struct {
	fleet    FleetSource
	upgrader ws.Upgrader
}

func NewFeedHandler(fleet FleetSource) *FeedHandler {
	return &FeedHandler{
		fleet: fleet,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local operator UI, same-origin checks add nothing here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	slog.Debug("Fleet feed client connected", "remote", r.RemoteAddr)

	// Reader goroutine drains control frames and signals disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	for {
		buoys, err := h.fleet.ListBuoys(r.Context())
		if err != nil {
			slog.Error("Failed to list buoys for feed", "error", err)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		if err := conn.WriteJSON(FleetResponse{Buoys: buoys}); err != nil {
			slog.Debug("Fleet feed client gone", "remote", r.RemoteAddr, "error", err)
			return
		}

		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
