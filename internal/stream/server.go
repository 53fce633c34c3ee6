package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
)

// Monitor is the optional HTTP server for listening in on a running loop.
type Monitor struct {
	broadcaster *Broadcaster
	webrtc      *WebRTCHandler
	status      *StatusHandler
	mux         *http.ServeMux
}

// NewMonitor wires the listen and status endpoints around b.
func NewMonitor(b *Broadcaster, format FormatFunc, session SessionFunc, ffmpeg string) *Monitor {
	m := &Monitor{
		broadcaster: b,
		webrtc:      NewWebRTCHandler(b, format),
		mux:         http.NewServeMux(),
	}
	m.status = NewStatusHandler(session, format, b, m.webrtc)

	m.mux.Handle("/stream", NewHTTPHandler(b, format, ffmpeg))
	m.mux.Handle("/offer", m.webrtc)
	m.mux.Handle("/api/status", m.status)
	m.mux.HandleFunc("/ws", m.status.ServeWS)
	return m
}

// Handler returns the monitor's routes.
func (m *Monitor) Handler() http.Handler {
	return m.mux
}

// ListenAndServe serves on port until ctx is cancelled.
func (m *Monitor) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("monitor listen: %w", err)
	}
	return m.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (m *Monitor) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{Handler: m.mux}

	go func() {
		<-ctx.Done()
		m.webrtc.Close()
		server.Close()
	}()

	log.Printf("monitor live on %s", ln.Addr())
	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
