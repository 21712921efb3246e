package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// liveMessage wraps each websocket frame pushed to dashboard clients.
type liveMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// handleLive upgrades the connection and pushes the corridor snapshot on
// a short interval until the client disconnects. Polling the engine keeps
// the core free of push plumbing; the snapshot is cheap to build.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: detect client disconnect
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	push := func() error {
		return conn.WriteJSON(liveMessage{
			Type: "corridor_status",
			Data: s.sched.Snapshot(s.recentLimit(r, 20)),
		})
	}
	if err := push(); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := push(); err != nil {
				return
			}
		}
	}
}
