package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// statusPush is how often /ws sends a status snapshot.
const statusPush = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionFunc returns a JSON-encodable snapshot of the streaming session.
type SessionFunc func() any

// StatusHandler serves the session status as JSON and pushes it over a
// websocket.
type StatusHandler struct {
	session SessionFunc
	format  FormatFunc
	http    *Broadcaster
	webrtc  *WebRTCHandler
	every   time.Duration
}

// NewStatusHandler creates a status handler. webrtc may be nil.
func NewStatusHandler(session SessionFunc, format FormatFunc, b *Broadcaster, webrtc *WebRTCHandler) *StatusHandler {
	return &StatusHandler{
		session: session,
		format:  format,
		http:    b,
		webrtc:  webrtc,
		every:   statusPush,
	}
}

func (h *StatusHandler) snapshot() map[string]any {
	format := h.format()
	peers := 0
	if h.webrtc != nil {
		peers = h.webrtc.PeerCount()
	}
	return map[string]any{
		"session":          h.session(),
		"sample_rate":      int(format.SampleRate),
		"channels":         format.NumChannels,
		"listeners":        h.http.ListenerCount(),
		"webrtc_listeners": peers,
	}
}

// ServeHTTP answers GET /api/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(h.snapshot())
}

// ServeWS upgrades the request and pushes a status snapshot every second
// until the client goes away.
func (h *StatusHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: upgrade error: %v", err)
		return
	}
	defer ws.Close()

	// Clients only ever send close frames; reading is how we notice them.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WS: read error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.every)
	defer ticker.Stop()

	for {
		if err := ws.WriteJSON(h.snapshot()); err != nil {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-ticker.C:
		}
	}
}
