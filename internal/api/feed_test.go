package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"

	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

func TestFeedHandler_PushesSnapshot(t *testing.T) {
	fleet := &fakeFleet{buoys: []model.Buoy{
		{ID: "b1", Name: "Buoy 1", State: model.StateIdle, Position: geo.Point{Lat: 37.8, Lng: -122.28}},
		{ID: "b2", Name: "Buoy 2", State: model.StateHoldingPosition, Position: geo.Point{Lat: 37.81, Lng: -122.27}},
	}}
	h := NewFeedHandler(fleet)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleFeed))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got FleetResponse
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(got.Buoys) != 2 {
		t.Fatalf("buoys: got %d, want 2", len(got.Buoys))
	}
	if got.Buoys[0].ID != "b1" || got.Buoys[1].State != model.StateHoldingPosition {
		t.Errorf("snapshot: %+v", got.Buoys)
	}
}
