package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/jason-s-yu/chessofcards/internal/match"
	"github.com/sirupsen/logrus"
)

const (
	outboundQueueLen = 64
	writeTimeout     = 5 * time.Second
	readLimit        = 16 << 10
)

// client is one WebSocket connection and the seat it holds, if any.
type client struct {
	id  string
	out chan any
	// log carries only conn_id and is never reassigned. Use logger for
	// seat fields.
	log *logrus.Entry

	mu   sync.Mutex
	m    *match.Match
	side engine.Side
}

func (c *client) bind(m *match.Match, side engine.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m, c.side = m, side
}

func (c *client) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m, c.side = nil, engine.SideNone
}

func (c *client) seat() (*match.Match, engine.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m, c.side
}

// logger returns the connection logger with the current seat attached.
func (c *client) logger() *logrus.Entry {
	m, side := c.seat()
	if m == nil {
		return c.log
	}
	return c.log.WithFields(logrus.Fields{"game_code": m.Code, "side": side})
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		s.log.WithError(err).Warn("WebSocket accept failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	id := uuid.NewString()
	c := &client{
		id:  id,
		out: make(chan any, outboundQueueLen),
		log: s.log.WithField("conn_id", id),
	}
	s.register(c)
	c.log.Debug("Client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, conn, c)
	}()

	s.readLoop(ctx, conn, c)

	s.lobby.Cancel(c.id)
	if m, side := c.seat(); m != nil {
		m.Disconnect(side)
	}
	s.unregister(c)
	<-writerDone
	conn.Close(websocket.StatusNormalClosure, "")
	c.logger().Debug("Client disconnected")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				c.logger().WithError(err).Debug("Read ended")
			}
			return
		}
		// A bad frame costs the client an error event, not the connection.
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger().WithError(err).Debug("Malformed message")
			s.sendTo(c.id, errorEvent{Type: EventError, Message: errMalformed.Error()})
			continue
		}
		s.dispatch(c, env)
	}
}

// writeLoop drains the outbound queue until it is closed.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for v := range c.out {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, conn, v)
		cancel()
		if err != nil {
			c.logger().WithError(err).Debug("Write failed")
			conn.CloseNow()
			for range c.out {
			}
			return
		}
	}
}
