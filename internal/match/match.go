// Package match hosts one engine.Game for two connected clients. It owns the
// lock around the game, the per-side clocks, disconnect grace timers,
// auto-passing and persistence.
package match

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/jason-s-yu/chessofcards/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	persistTimeout  = 2 * time.Second
	persistQueueLen = 128
)

// OnGameEndFunc runs once when a match finishes, with the lock held.
type OnGameEndFunc func(code string, wonBy engine.Side, reason engine.GameOverReason)

// SendFunc delivers an event to the connection currently holding side. The
// connection may already be gone.
type SendFunc func(side engine.Side, connID string, ev Event)

// Config wires a Match to its collaborators. Nil stores disable persistence.
type Config struct {
	DisconnectGrace time.Duration
	Live            store.Live
	Archive         store.Archive
	Logger          *logrus.Entry
	// Now must be the same clock the engine.Game was built with.
	Now func() time.Time
}

type persistOp struct {
	name string
	fn   func(ctx context.Context) error
}

// Match is a running game plus everything needed to host it.
type Match struct {
	ID   uuid.UUID
	Code string
	Mu   sync.Mutex

	game *engine.Game
	cfg  Config
	log  *logrus.Entry

	// Clocks: time charged to each side, indexed by engine.Side.
	elapsed    [3]time.Duration
	turnStart  time.Time
	clockTimer *time.Timer
	clockGen   int

	graceTimers [3]*time.Timer

	actionIndex int
	finished    bool
	persistQ    chan persistOp
	persistDone chan struct{}

	SendFn    SendFunc
	OnGameEnd OnGameEndFunc
}

// New wraps a freshly created game. Call Start once callbacks are set.
func New(g *engine.Game, cfg Config) *Match {
	return NewWithID(uuid.New(), g, cfg)
}

// NewWithID is New with a caller-chosen match id, so seat tokens issued
// before the match existed can name it.
func NewWithID(id uuid.UUID, g *engine.Game, cfg Config) *Match {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Match{
		ID:          id,
		Code:        g.Code(),
		game:        g,
		cfg:         cfg,
		log:         cfg.Logger.WithFields(logrus.Fields{"game_code": g.Code(), "match_id": id}),
		persistQ:    make(chan persistOp, persistQueueLen),
		persistDone: make(chan struct{}),
	}
	go m.persistLoop()
	return m
}

// Resume rebuilds a match parked in the live store. Both players come back
// disconnected; Start gives each the usual grace period to reconnect.
func Resume(ag store.ActiveGame, opts engine.Options, cfg Config) *Match {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	opts.Now = cfg.Now
	now := cfg.Now()
	snap := ag.Snapshot
	snap.Host.DisconnectedAt = &now
	snap.Guest.DisconnectedAt = &now

	id := ag.MatchID
	if id == uuid.Nil {
		id = uuid.New()
	}
	m := NewWithID(id, engine.Restore(snap, opts), cfg)
	m.elapsed[engine.Host] = time.Duration(ag.HostElapsedMs) * time.Millisecond
	m.elapsed[engine.Guest] = time.Duration(ag.GuestElapsedMs) * time.Millisecond
	m.log.Info("Match resumed from store")
	return m
}

// Start begins the host's clock and publishes the opening state.
func (m *Match) Start() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.turnStart = m.cfg.Now()
	m.log.WithFields(logrus.Fields{
		"host":     m.game.Name(engine.Host),
		"guest":    m.game.Name(engine.Guest),
		"duration": m.game.Duration(),
	}).Info("Match started")
	m.logAction(engine.SideNone, "match_start", nil)
	for _, side := range []engine.Side{engine.Host, engine.Guest} {
		if m.game.DisconnectedAt(side) != nil {
			m.startGrace(side)
		}
	}
	m.settle()
	m.afterChange()
}

// Done is closed once the match has finished and its writes are flushed.
func (m *Match) Done() <-chan struct{} { return m.persistDone }

// SideOf maps a connection id to the side it holds.
func (m *Match) SideOf(connID string) (engine.Side, bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.game.SideOf(connID)
}

// HasEnded reports whether the game is over.
func (m *Match) HasEnded() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.game.HasEnded()
}

// View returns side's projection with live clock values.
func (m *Match) View(side engine.Side) engine.PlayerView {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.viewFor(side)
}

// Snapshot returns the game state.
func (m *Match) Snapshot() engine.Snapshot {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.game.Snapshot()
}

// ---------------------------------------------------------------------------
// Player actions
// ---------------------------------------------------------------------------

// Move plays placements for side. The error is only non-nil when the
// game's hand bookkeeping is broken.
func (m *Match) Move(side engine.Side, mv engine.Move, rearranged []engine.Card) ([]engine.Result, error) {
	var moveErr error
	results := m.apply(side, "make_move", map[string]any{"placements": mv}, func() []engine.Result {
		res, err := m.game.MakeMove(side, mv, rearranged)
		if err != nil {
			moveErr = err
			return []engine.Result{engine.ResultInvalidMove}
		}
		return res
	})
	if moveErr != nil {
		m.log.WithError(moveErr).WithField("side", side).Error("Move rejected by hand check")
	}
	return results, moveErr
}

func (m *Match) Pass(side engine.Side) []engine.Result {
	return m.apply(side, "pass_move", nil, func() []engine.Result { return m.game.PassMove(side) })
}

func (m *Match) Resign(side engine.Side) []engine.Result {
	return m.apply(side, "resign", nil, func() []engine.Result { return m.game.Resign(side) })
}

// OfferDraw records an offer and tells the opponent about it.
func (m *Match) OfferDraw(side engine.Side) []engine.Result {
	return m.apply(side, "offer_draw", nil, func() []engine.Result {
		res := m.game.OfferDraw(side)
		if len(res) == 0 {
			m.send(side.Opponent(), Event{Type: EventDrawOffered, Side: side})
		}
		return res
	})
}

func (m *Match) AcceptDraw(side engine.Side) []engine.Result {
	return m.apply(side, "accept_draw", nil, func() []engine.Result { return m.game.AcceptDrawOffer(side) })
}

func (m *Match) RearrangeHand(side engine.Side, cards []engine.Card) []engine.Result {
	return m.apply(side, "rearrange_hand", map[string]any{"cards": cards}, func() []engine.Result {
		return m.game.RearrangeHand(side, cards)
	})
}

func (m *Match) SendChat(side engine.Side, text string) []engine.Result {
	return m.apply(side, "send_chat", map[string]any{"text": text}, func() []engine.Result {
		return m.game.SendChatMessage(side, text)
	})
}

func (m *Match) MarkChatRead(side engine.Side, idx int) []engine.Result {
	return m.apply(side, "mark_chat_read", nil, func() []engine.Result {
		return m.game.MarkLatestReadChatMessageIndex(side, idx)
	})
}

// apply runs one engine operation under the lock and then settles the match:
// clock check, rejection report, turn-skip notices, auto-pass, broadcast and
// persistence.
func (m *Match) apply(side engine.Side, action string, payload map[string]any, op func() []engine.Result) []engine.Result {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.expireClock() {
		// The clock ran out before the action arrived. Chat stays open.
		if action != "send_chat" && action != "mark_chat_read" {
			res := []engine.Result{engine.ResultGameHasEnded}
			m.send(side, Event{Type: EventActionRejected, Results: res})
			return res
		}
	}

	results := op()
	for _, r := range results {
		if r.IsRejection() {
			m.log.WithFields(logrus.Fields{"side": side, "action": action, "results": results}).Debug("Action rejected")
			m.send(side, Event{Type: EventActionRejected, Results: results})
			return results
		}
	}

	m.logAction(side, action, payload)
	for _, r := range results {
		switch r {
		case engine.ResultHostTurnSkippedNoMoves:
			m.sendBoth(Event{Type: EventTurnSkipped, Side: engine.Host})
		case engine.ResultGuestTurnSkippedNoMoves:
			m.sendBoth(Event{Type: EventTurnSkipped, Side: engine.Guest})
		}
	}
	m.settle()
	m.afterChange()
	return results
}

// ---------------------------------------------------------------------------
// Connections
// ---------------------------------------------------------------------------

// Disconnect marks side as gone and starts its grace timer.
func (m *Match) Disconnect(side engine.Side) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.finished || m.game.DisconnectedAt(side) != nil {
		return
	}
	m.expireClock()
	if m.game.HasEnded() {
		return
	}
	m.log.WithField("side", side).Info("Player disconnected")
	m.game.MarkDisconnected(side)
	m.logAction(side, "player_disconnect", nil)
	if !m.game.HasEnded() {
		m.startGrace(side)
		m.send(side.Opponent(), Event{Type: EventOpponentDisconnected, Side: side})
	}
	m.afterChange()
}

// Reconnect gives side back to a new connection.
func (m *Match) Reconnect(side engine.Side, connID, name string) []engine.Result {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.game.HasEnded() {
		return []engine.Result{engine.ResultGameHasEnded}
	}
	if res := m.game.ReconnectSide(side, connID, name); len(res) > 0 {
		return res
	}
	if t := m.graceTimers[side]; t != nil {
		t.Stop()
		m.graceTimers[side] = nil
	}
	m.log.WithFields(logrus.Fields{"side": side, "conn_id": connID}).Info("Player reconnected")
	m.logAction(side, "player_reconnect", nil)
	m.send(side.Opponent(), Event{Type: EventOpponentReconnected, Side: side})
	m.afterChange()
	return nil
}

// startGrace ends the game for side's absence unless it returns in time.
// Assumes lock is held by caller.
func (m *Match) startGrace(side engine.Side) {
	if t := m.graceTimers[side]; t != nil {
		t.Stop()
	}
	m.graceTimers[side] = time.AfterFunc(m.cfg.DisconnectGrace, func() {
		m.Mu.Lock()
		defer m.Mu.Unlock()
		if m.game.HasEnded() || m.game.DisconnectedAt(side) == nil {
			return
		}
		m.log.WithField("side", side).Info("Disconnect grace period lapsed")
		if !m.expireClock() {
			m.game.EndByDisconnection()
			m.afterChange()
		}
	})
}

// ---------------------------------------------------------------------------
// Turn settling and clocks
// ---------------------------------------------------------------------------

// settle passes for the side to move for as long as it has no legal
// placement. Passing refills hands, and repeated passes end the game.
// Assumes lock is held by caller.
func (m *Match) settle() {
	for m.game.MustPass() {
		side := m.game.Turn()
		m.game.PassMove(side)
		m.log.WithField("side", side).Debug("Auto-pass")
		m.logAction(side, "auto_pass", nil)
		m.sendBoth(Event{Type: EventTurnSkipped, Side: side})
	}
}

// chargeTurn bills the time since the last charge to the side on turn.
func (m *Match) chargeTurn() {
	now := m.cfg.Now()
	if !m.game.HasEnded() && !m.turnStart.IsZero() {
		m.elapsed[m.game.Turn()] += now.Sub(m.turnStart)
	}
	m.turnStart = now
}

func (m *Match) budget() time.Duration {
	return time.Duration(m.game.Duration().Seconds()) * time.Second
}

// expireClock charges the running clock and ends the game if the side on
// turn has used its budget. It reports whether the game is over.
// Assumes lock is held by caller.
func (m *Match) expireClock() bool {
	if m.game.HasEnded() {
		return true
	}
	m.chargeTurn()
	if m.elapsed[m.game.Turn()] >= m.budget() {
		m.log.WithField("side", m.game.Turn()).Info("Clock expired")
		m.game.EndByClockExpired()
		m.afterChange()
		return true
	}
	return false
}

// scheduleClock arms a timer for the moment the side on turn runs out.
func (m *Match) scheduleClock() {
	if m.clockTimer != nil {
		m.clockTimer.Stop()
		m.clockTimer = nil
	}
	m.clockGen++
	if m.game.HasEnded() {
		return
	}
	remaining := m.budget() - m.elapsed[m.game.Turn()]
	gen := m.clockGen
	m.clockTimer = time.AfterFunc(remaining, func() {
		m.Mu.Lock()
		defer m.Mu.Unlock()
		if m.clockGen != gen {
			return
		}
		if !m.expireClock() {
			m.scheduleClock()
		}
	})
}

func (m *Match) elapsedSeconds(side engine.Side) float64 {
	d := m.elapsed[side]
	if !m.game.HasEnded() && m.game.Turn() == side && !m.turnStart.IsZero() {
		d += m.cfg.Now().Sub(m.turnStart)
	}
	if b := m.budget(); d > b {
		d = b
	}
	return d.Seconds()
}

func (m *Match) viewFor(side engine.Side) engine.PlayerView {
	return m.game.ViewFor(side, m.elapsedSeconds(engine.Host), m.elapsedSeconds(engine.Guest))
}

// ---------------------------------------------------------------------------
// Fan-out, persistence and the end of the match
// ---------------------------------------------------------------------------

// afterChange publishes the new state and either re-arms the clock and
// parks the snapshot or, once the game is over, finishes the match.
// Assumes lock is held by caller.
func (m *Match) afterChange() {
	switch {
	case m.finished:
		m.broadcastState()
	case m.game.HasEnded():
		m.finish()
	default:
		m.scheduleClock()
		m.broadcastState()
		m.saveActive()
	}
}

// Shutdown stops the timers and flushes pending writes while leaving the
// game parked in the live store so a later process can Resume it.
func (m *Match) Shutdown() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.finished {
		return
	}
	m.stopTimers()
	m.chargeTurn()
	m.saveActive()
	m.finished = true
	close(m.persistQ)
}

func (m *Match) stopTimers() {
	m.clockGen++
	if m.clockTimer != nil {
		m.clockTimer.Stop()
		m.clockTimer = nil
	}
	for i, t := range m.graceTimers {
		if t != nil {
			t.Stop()
			m.graceTimers[i] = nil
		}
	}
}

func (m *Match) finish() {
	m.stopTimers()

	wonBy, reason := m.game.WonBy(), m.game.EndReason()
	m.log.WithFields(logrus.Fields{"won_by": wonBy, "reason": reason}).Info("Match ended")
	m.logAction(engine.SideNone, string(EventGameOver), map[string]any{"wonBy": wonBy, "reason": reason})
	m.finished = true

	for _, s := range []engine.Side{engine.Host, engine.Guest} {
		v := m.viewFor(s)
		m.send(s, Event{Type: EventGameOver, State: &v, WonBy: wonBy, Reason: reason})
	}

	if m.cfg.Archive != nil {
		rec := store.NewFinishedGame(m.ID, m.game.Snapshot())
		m.enqueue("record_finished", func(ctx context.Context) error { return m.cfg.Archive.RecordFinished(ctx, rec) })
	}
	if m.cfg.Live != nil {
		code := m.Code
		m.enqueue("delete_active", func(ctx context.Context) error { return m.cfg.Live.DeleteActive(ctx, code) })
	}
	close(m.persistQ)

	if m.OnGameEnd != nil {
		m.OnGameEnd(m.Code, wonBy, reason)
	}
}

func (m *Match) broadcastState() {
	for _, s := range []engine.Side{engine.Host, engine.Guest} {
		v := m.viewFor(s)
		m.send(s, Event{Type: EventGameState, State: &v})
	}
}

func (m *Match) send(side engine.Side, ev Event) {
	if m.SendFn == nil {
		m.log.WithField("event", ev.Type).Warn("SendFn is nil, dropping event")
		return
	}
	m.SendFn(side, m.game.ConnectionID(side), ev)
}

func (m *Match) sendBoth(ev Event) {
	m.send(engine.Host, ev)
	m.send(engine.Guest, ev)
}

func (m *Match) saveActive() {
	if m.cfg.Live == nil || m.finished {
		return
	}
	ag := store.ActiveGame{
		MatchID:        m.ID,
		Snapshot:       m.game.Snapshot(),
		HostElapsedMs:  m.elapsed[engine.Host].Milliseconds(),
		GuestElapsedMs: m.elapsed[engine.Guest].Milliseconds(),
		SavedAt:        m.cfg.Now(),
	}
	code := m.Code
	m.enqueue("save_active", func(ctx context.Context) error { return m.cfg.Live.SaveActive(ctx, code, ag) })
}

// logAction appends to the match's action log in the live store.
// Assumes lock is held by caller.
func (m *Match) logAction(side engine.Side, actionType string, payload map[string]any) {
	m.actionIndex++
	if m.cfg.Live == nil || m.finished {
		return
	}
	rec := store.ActionRecord{
		MatchID:    m.ID,
		Index:      m.actionIndex,
		Side:       side,
		ActionType: actionType,
		Payload:    payload,
		Timestamp:  m.cfg.Now().UnixMilli(),
	}
	code := m.Code
	m.enqueue("append_action", func(ctx context.Context) error { return m.cfg.Live.AppendAction(ctx, code, rec) })
}

func (m *Match) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case m.persistQ <- persistOp{name: name, fn: fn}:
	default:
		m.log.WithField("op", name).Warn("Persist queue full, dropping write")
	}
}

// persistLoop applies store writes in order, off the game lock.
func (m *Match) persistLoop() {
	defer close(m.persistDone)
	for op := range m.persistQ {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := op.fn(ctx); err != nil {
			m.log.WithError(err).WithField("op", op.name).Error("Persist failed")
		}
		cancel()
	}
}
