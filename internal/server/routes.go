package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/viper"

	"github.com/Ieysn/watch-party/internal/signaling"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// An empty or "*" allowedorigin admits every origin; anything else
	// must match the Origin header exactly.
	CheckOrigin: func(r *http.Request) bool {
		allowed := viper.GetString("allowedorigin")
		if allowed == "" || allowed == "*" {
			return true
		}
		return r.Header.Get("Origin") == allowed
	},
}

// HealthCheck reports relay liveness.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Upgrade the HTTP connection to a WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "err", err)
			return
		}

		// Create a new client. The uuid is the participant identity the
		// registry keys slot ownership on.
		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.New().String(),
			Send: make(chan *signaling.Message, 256),
		}

		// Register the client with the hub
		client.Hub.Register <- client

		// Start the client's read and write pumps in separate goroutines
		// These methods will handle the client's lifecycle
		go client.WritePump()
		go client.ReadPump()
	}
}

// NewMux assembles the relay's HTTP surface: the websocket endpoint, the
// health check, and (when staticdir is set) the browser app itself.
func NewMux(hub *signaling.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthCheck)
	mux.HandleFunc("/ws", ServeWs(hub))

	if staticDir := viper.GetString("staticdir"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	return mux
}
