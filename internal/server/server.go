// Package server exposes the lobby over HTTP and WebSocket.
package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/jason-s-yu/chessofcards/internal/auth"
	"github.com/jason-s-yu/chessofcards/internal/lobby"
	"github.com/jason-s-yu/chessofcards/internal/match"
	"github.com/sirupsen/logrus"
	qr "github.com/skip2/go-qrcode"
)

const qrSize = 256

// Options configures a Server.
type Options struct {
	PublicURL      string
	AllowedOrigins []string
}

// Server routes WebSocket clients to lobby games and matches.
type Server struct {
	lobby *lobby.Lobby
	seats *auth.Seats
	opts  Options
	log   *logrus.Entry

	mu    sync.Mutex
	conns map[string]*client
}

// New builds a Server and hooks it into lb so match events reach clients.
func New(lb *lobby.Lobby, seats *auth.Seats, opts Options, log *logrus.Entry) *Server {
	s := &Server{
		lobby: lb,
		seats: seats,
		opts:  opts,
		log:   log.WithField("component", "server"),
		conns: make(map[string]*client),
	}
	lb.OnMatch = s.attachMatch
	return s
}

// RegisterRoutes returns the HTTP handler for every endpoint.
func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.websocketHandler)
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("GET /games/{code}/qr.png", s.qrHandler)
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// originPatterns turns the allowed origins into host patterns for Accept.
func (s *Server) originPatterns() []string {
	if len(s.opts.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	var out []string
	for _, o := range s.opts.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	pending, active := s.lobby.Counts()
	s.mu.Lock()
	conns := len(s.conns)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"pending":     pending,
		"active":      active,
		"connections": conns,
	})
}

// qrHandler renders the invite link for a game as a PNG.
func (s *Server) qrHandler(w http.ResponseWriter, r *http.Request) {
	code := lobby.NormalizeCode(r.PathValue("code"))
	if !s.lobby.Exists(code) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	png, err := qr.Encode(s.inviteURL(code), qr.Medium, qrSize)
	if err != nil {
		s.log.WithError(err).WithField("game_code", code).Error("QR encode failed")
		http.Error(w, "could not render code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(png)
}

func (s *Server) inviteURL(code string) string {
	return s.opts.PublicURL + "/?code=" + url.QueryEscape(code)
}

func (s *Server) qrURL(code string) string {
	return s.opts.PublicURL + "/games/" + code + "/qr.png"
}

// attachMatch wires a new or resumed match to the connections in its seats.
func (s *Server) attachMatch(m *match.Match) {
	m.SendFn = func(_ engine.Side, connID string, ev match.Event) {
		s.sendTo(connID, ev)
	}
	snap := m.Snapshot()
	for _, seat := range []struct {
		side   engine.Side
		connID string
	}{{engine.Host, snap.Host.ConnectionID}, {engine.Guest, snap.Guest.ConnectionID}} {
		s.mu.Lock()
		c := s.conns[seat.connID]
		s.mu.Unlock()
		if c != nil {
			c.bind(m, seat.side)
		}
	}
}

// sendTo queues v for connID. Unknown connections are ignored.
func (s *Server) sendTo(connID string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[connID]
	if !ok {
		return
	}
	select {
	case c.out <- v:
	default:
		s.log.WithField("conn_id", connID).Warn("Outbound queue full, dropping message")
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.id] = c
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c.id)
	close(c.out)
}
