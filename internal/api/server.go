// Package api is the optional local control surface. It injects the same
// commands as the keyboard and streams operator messages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/bryanchriswhite/grab/internal/logger"
	"github.com/bryanchriswhite/grab/internal/loop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// ErrNotLoopback is returned when asked to listen beyond the local host
var ErrNotLoopback = errors.New("control API only listens on loopback addresses")

// Controller is the part of the capture loop the API drives
type Controller interface {
	Enqueue(cmd loop.Command) bool
	State() loop.State
}

// ConfigSource provides the effective configuration
type ConfigSource interface {
	Get() *config.Config
}

// Server represents the HTTP control server
type Server struct {
	router   *mux.Router
	ctrl     Controller
	cfg      ConfigSource
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(ctrl Controller, cfg ConfigSource) *Server {
	s := &Server{
		router: mux.NewRouter(),
		ctrl:   ctrl,
		cfg:    cfg,
		hub:    NewHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: localOrigin,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/config", s.handleConfig).Methods("GET")
	api.HandleFunc("/commands", s.handleListCommands).Methods("GET")
	api.HandleFunc("/commands/{name}", s.handleCommand).Methods("POST")
	api.HandleFunc("/events", s.handleEvents)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish forwards an operator message to event subscribers
func (s *Server) Publish(msg string) {
	s.hub.Publish(msg)
}

// Start serves on address:port until ctx is cancelled
func (s *Server) Start(ctx context.Context, address string, port int) error {
	if !isLoopback(address) {
		return fmt.Errorf("%w: %s", ErrNotLoopback, address)
	}

	addr := net.JoinHostPort(address, strconv.Itoa(port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithComponent("api").Info().Str("address", "http://"+addr).Msg("Control API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("control API: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		http.Error(w, "configuration unavailable", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Get())
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, loop.Commands())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cmd, ok := loop.ParseCommand(name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown command %q", name), http.StatusNotFound)
		return
	}

	if !s.ctrl.Enqueue(cmd) {
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
		return
	}

	logger.WithComponent("api").Debug().Str("command", name).Msg("Command queued")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "queued",
		"command": name,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	messages := s.hub.Subscribe()
	defer s.hub.Unsubscribe(messages)

	// The client never sends; reading only detects when it goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg := <-messages:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				logger.WithComponent("api").Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// localOrigin accepts websocket clients without an Origin header and pages
// served from the local host
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return isLoopback(u.Hostname())
}
