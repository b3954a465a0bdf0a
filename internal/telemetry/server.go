// SPDX-License-Identifier: MIT

// Package telemetry exposes per-buffer quality metrics to websocket
// subscribers, e.g. a monitoring dashboard watching a live stream's
// enhancement quality.
package telemetry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"voicepipe/internal/enhance"
)

// Server broadcasts enhancement metrics to all connected websocket clients,
// rate limited so a fast processing loop cannot flood subscribers. It
// implements enhance.MetricsSink.
//
// The clients map is mutex-guarded; Send is called from the processing loop
// and connection handling runs on the HTTP server's goroutines.
type Server struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
	server    *http.Server
	log       *logrus.Logger

	lastSend     time.Time
	sendInterval time.Duration
}

// NewServer builds a metrics broadcaster listening on the given port. Serve
// must be called to start accepting connections.
func NewServer(port int, sendInterval time.Duration, log *logrus.Logger) *Server {
	s := &Server{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // monitoring endpoint, no origin restriction
			},
		},
		log:          log,
		sendInterval: sendInterval,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/metrics", s.handleWebSocket)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.mux,
	}
	return s
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler { return s.mux }

// Serve starts the HTTP server in its own goroutine.
func (s *Server) Serve() {
	go func() {
		s.log.WithField("addr", s.server.Addr).Info("telemetry server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("telemetry server failed")
		}
	}()
}

// handleWebSocket upgrades the connection, registers the client, and watches
// for disconnect. Clients only receive; anything they send is discarded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.log.WithField("clients", total).Debug("telemetry client connected")

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.clientsMu.Lock()
				delete(s.clients, conn)
				remaining := len(s.clients)
				s.clientsMu.Unlock()
				conn.Close()
				s.log.WithField("clients", remaining).Debug("telemetry client disconnected")
				return
			}
		}
	}()
}

// Send broadcasts one metrics snapshot to every connected client. Snapshots
// arriving faster than the configured interval are dropped, not queued.
// Clients that fail a write are disconnected and forgotten.
func (s *Server) Send(m enhance.Metrics) error {
	now := time.Now()
	if now.Sub(s.lastSend) < s.sendInterval {
		return nil
	}
	s.lastSend = now

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("telemetry: marshal metrics: %w", err)
	}

	s.clientsMu.Lock()
	for client := range s.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(s.clients, client)
		}
	}
	s.clientsMu.Unlock()

	return nil
}

// Close disconnects every client and shuts down the HTTP server.
func (s *Server) Close() error {
	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
	s.clientsMu.Unlock()

	return s.server.Close()
}

var _ enhance.MetricsSink = (*Server)(nil)
