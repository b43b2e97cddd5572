package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Roomdrop/internal/config"
	"github.com/BioHazard786/Roomdrop/internal/relay"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

// Server is the relay's HTTP surface: websocket upgrades, the room REST API
// and a health check.
type Server struct {
	hub      *relay.Hub
	cfg      *config.Server
	upgrader websocket.Upgrader
}

// New creates a Server that hands websocket connections to hub.
func New(cfg *config.Server, hub *relay.Hub) *Server {
	s := &Server{hub: hub, cfg: cfg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.cors)

	r.HandleFunc("/ws", s.ServeWs).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.createRoom).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/rooms/{id}", s.getRoom).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// ServeWs upgrades the request and starts the connection's pumps.
func (s *Server) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := relay.NewClient(s.hub, conn, s.cfg.SendBuffer)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Directory().CreateRoom()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rooms.ErrIDSpaceExhausted) {
			status = http.StatusServiceUnavailable
		}
		slog.Error("create room failed", "err", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	slog.Info("room created", "room", room.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": room.ID})
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := s.hub.Directory().GetRoom(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Room not found"})
		return
	}
	writeJSON(w, http.StatusOK, room.Public())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Relay is healthy. %d rooms open.\n", s.hub.Directory().Len())
}

// cors answers preflight requests and stamps the allowed origin on every
// response.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if s.cfg.AllowedOrigin != "*" {
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.AllowedOrigin
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "err", err)
	}
}
