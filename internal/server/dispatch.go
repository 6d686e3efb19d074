package server

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/jason-s-yu/chessofcards/internal/match"
)

// Envelope is every client-to-server message.
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Server-only event types. Match events use the match package's names.
const (
	EventGameCreated        match.EventType = "game_created"
	EventPendingGameDeleted match.EventType = "pending_game_deleted"
	EventSeatToken          match.EventType = "seat_token"
	EventError              match.EventType = "error"
)

type gameCreated struct {
	Type      match.EventType       `json:"type"`
	Code      string                `json:"code"`
	Duration  engine.DurationOption `json:"duration"`
	InviteURL string                `json:"inviteUrl"`
	QRURL     string                `json:"qrUrl"`
}

type pendingGameDeleted struct {
	Type match.EventType `json:"type"`
	Code string          `json:"code"`
}

type seatToken struct {
	Type  match.EventType `json:"type"`
	Code  string          `json:"code"`
	Side  engine.Side     `json:"side"`
	Token string          `json:"token"`
}

type errorEvent struct {
	Type    match.EventType `json:"type"`
	Action  string          `json:"action,omitempty"`
	Message string          `json:"message"`
}

// wireCard is a card as clients name it, matching the view encoding.
type wireCard struct {
	Kind string `json:"kind"`
	Suit string `json:"suit"`
}

func (w wireCard) card() (engine.Card, bool) { return engine.ParseCard(w.Kind + w.Suit) }

type wirePlacement struct {
	Card wireCard `json:"card"`
	Lane int      `json:"lane"`
	Row  int      `json:"row"`
}

type createGameData struct {
	HostName string                `json:"hostName"`
	Duration engine.DurationOption `json:"duration"`
}

type joinGameData struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type reconnectData struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type makeMoveData struct {
	Placements []wirePlacement `json:"placements"`
	// RearrangedHand is the hand order after the placed cards leave it.
	RearrangedHand []wireCard `json:"rearrangedHand,omitempty"`
}

type cardsData struct {
	Cards []wireCard `json:"cards"`
}

type chatData struct {
	Text string `json:"text"`
}

type chatReadData struct {
	Index int `json:"index"`
}

var (
	errNotSeated  = errors.New("not in a game")
	errNotHosting = errors.New("no pending game to delete")
	errMalformed  = errors.New("malformed message")
)

func (s *Server) dispatch(c *client, env Envelope) {
	var err error
	switch env.Action {
	case "create_game":
		err = s.handleCreate(c, env.Data)
	case "delete_pending_game":
		err = s.handleDeletePending(c)
	case "join_game":
		err = s.handleJoin(c, env.Data)
	case "reconnect":
		err = s.handleReconnect(c, env.Data)
	case "make_move":
		err = s.handleMove(c, env.Data)
	case "pass_move":
		err = s.withSeat(c, func(m *match.Match, side engine.Side) { m.Pass(side) })
	case "resign":
		err = s.withSeat(c, func(m *match.Match, side engine.Side) { m.Resign(side) })
	case "offer_draw":
		err = s.withSeat(c, func(m *match.Match, side engine.Side) { m.OfferDraw(side) })
	case "accept_draw":
		err = s.withSeat(c, func(m *match.Match, side engine.Side) { m.AcceptDraw(side) })
	case "rearrange_hand":
		var d cardsData
		if err = decode(env.Data, &d); err != nil {
			break
		}
		cards, ok := parseCards(d.Cards)
		if !ok {
			err = errors.New("unknown card")
			break
		}
		err = s.withSeat(c, func(m *match.Match, side engine.Side) { m.RearrangeHand(side, cards) })
	case "send_chat":
		var d chatData
		if err = decode(env.Data, &d); err != nil {
			break
		}
		err = s.withSeat(c, func(m *match.Match, side engine.Side) { m.SendChat(side, d.Text) })
	case "mark_chat_read":
		var d chatReadData
		if err = decode(env.Data, &d); err != nil {
			break
		}
		err = s.withSeat(c, func(m *match.Match, side engine.Side) { m.MarkChatRead(side, d.Index) })
	default:
		err = errors.New("unknown action")
	}
	if err != nil {
		c.logger().WithError(err).WithField("action", env.Action).Debug("Action failed")
		s.sendTo(c.id, errorEvent{Type: EventError, Action: env.Action, Message: err.Error()})
	}
}

func (s *Server) withSeat(c *client, fn func(m *match.Match, side engine.Side)) error {
	m, side := c.seat()
	if m == nil {
		return errNotSeated
	}
	fn(m, side)
	return nil
}

// inLiveMatch reports whether c already plays an unfinished game.
func inLiveMatch(c *client) bool {
	m, _ := c.seat()
	return m != nil && !m.HasEnded()
}

func (s *Server) handleCreate(c *client, raw json.RawMessage) error {
	var d createGameData
	if err := decode(raw, &d); err != nil {
		return err
	}
	if inLiveMatch(c) {
		return errors.New("already in a game")
	}
	pg, err := s.lobby.Create(c.id, d.HostName, d.Duration)
	if err != nil {
		return err
	}
	s.sendTo(c.id, gameCreated{
		Type:      EventGameCreated,
		Code:      pg.Code,
		Duration:  pg.Duration,
		InviteURL: s.inviteURL(pg.Code),
		QRURL:     s.qrURL(pg.Code),
	})
	return s.issueSeat(c, pg.Code, pg.ID, engine.Host)
}

func (s *Server) handleDeletePending(c *client) error {
	code, ok := s.lobby.Cancel(c.id)
	if !ok {
		return errNotHosting
	}
	s.sendTo(c.id, pendingGameDeleted{Type: EventPendingGameDeleted, Code: code})
	return nil
}

func (s *Server) handleJoin(c *client, raw json.RawMessage) error {
	var d joinGameData
	if err := decode(raw, &d); err != nil {
		return err
	}
	if inLiveMatch(c) {
		return errors.New("already in a game")
	}
	// The lobby's OnMatch hook binds both connections before the opening
	// state goes out.
	m, err := s.lobby.Join(d.Code, c.id, d.Name)
	if err != nil {
		return err
	}
	return s.issueSeat(c, m.Code, m.ID, engine.Guest)
}

func (s *Server) handleReconnect(c *client, raw json.RawMessage) error {
	var d reconnectData
	if err := decode(raw, &d); err != nil {
		return err
	}
	claims, err := s.seats.Parse(d.Token)
	if err != nil {
		return err
	}
	m, err := s.lobby.Seat(claims.Code, claims.MatchID)
	if err != nil {
		return err
	}
	// Bind first so the state broadcast after reconnecting reaches c.
	prev, prevSide := c.seat()
	c.bind(m, claims.Side)
	if res := m.Reconnect(claims.Side, c.id, d.Name); len(res) > 0 {
		if prev != nil {
			c.bind(prev, prevSide)
		} else {
			c.unbind()
		}
		s.sendTo(c.id, match.Event{Type: match.EventActionRejected, Results: res})
	}
	return nil
}

func (s *Server) handleMove(c *client, raw json.RawMessage) error {
	var d makeMoveData
	if err := decode(raw, &d); err != nil {
		return err
	}
	mv := make(engine.Move, len(d.Placements))
	for i, p := range d.Placements {
		card, ok := p.Card.card()
		if !ok {
			return errors.New("unknown card")
		}
		mv[i] = engine.PlaceCardAttempt{Card: card, Lane: p.Lane, Row: p.Row}
	}
	var rearranged []engine.Card
	if d.RearrangedHand != nil {
		var ok bool
		if rearranged, ok = parseCards(d.RearrangedHand); !ok {
			return errors.New("unknown card")
		}
	}
	m, side := c.seat()
	if m == nil {
		return errNotSeated
	}
	_, err := m.Move(side, mv, rearranged)
	return err
}

func (s *Server) issueSeat(c *client, code string, matchID uuid.UUID, side engine.Side) error {
	tok, err := s.seats.Issue(code, matchID, side, c.id)
	if err != nil {
		return err
	}
	s.sendTo(c.id, seatToken{Type: EventSeatToken, Code: code, Side: side, Token: tok})
	return nil
}

func parseCards(in []wireCard) ([]engine.Card, bool) {
	out := make([]engine.Card, len(in))
	for i, w := range in {
		c, ok := w.card()
		if !ok {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
