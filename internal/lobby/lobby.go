// Package lobby pairs hosts with guests. A host opens a pending game under a
// short code; the first guest to join with that code starts the match.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/jason-s-yu/chessofcards/internal/match"
	"github.com/jason-s-yu/chessofcards/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrGameNotFound     = errors.New("lobby: game not found")
	ErrAlreadyHosting   = errors.New("lobby: connection already hosts a pending game")
	ErrNameTooLong      = errors.New("lobby: name too long")
	ErrCannotJoinOwn    = errors.New("lobby: cannot join your own game")
	ErrNoCodesAvailable = errors.New("lobby: could not allocate a game code")
)

const (
	// CodeAlphabet leaves out characters that are easy to misread.
	CodeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength    = 4
	MaxNameLength = 50

	maxCodeAttempts = 64
)

// PendingGame is a game waiting for its guest. ID becomes the match id once
// a guest joins.
type PendingGame struct {
	ID         uuid.UUID             `json:"id"`
	Code       string                `json:"code"`
	HostConnID string                `json:"-"`
	HostName   string                `json:"hostName"`
	Duration   engine.DurationOption `json:"duration"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// Config carries what the lobby needs to build matches.
type Config struct {
	Match  match.Config
	Censor func(string) string
	// IntN picks a code character. Defaults to math/rand/v2.
	IntN func(n int) int
	// Seed picks a game's shuffle seed. Nil lets the engine choose.
	Seed func() uint64
}

// Lobby holds pending games and running matches by code.
type Lobby struct {
	mu      sync.Mutex
	pending map[string]*PendingGame
	hosting map[string]string // host connection id -> pending code
	active  map[string]*match.Match
	cfg     Config
	log     *logrus.Entry

	// OnMatch runs before a new or resumed match starts, so the caller can
	// set SendFn.
	OnMatch func(m *match.Match)
	// OnGameEnd runs after a match finishes and leaves the registry.
	OnGameEnd match.OnGameEndFunc
}

func New(cfg Config) *Lobby {
	if cfg.IntN == nil {
		cfg.IntN = rand.IntN
	}
	if cfg.Match.Now == nil {
		cfg.Match.Now = time.Now
	}
	if cfg.Match.Logger == nil {
		cfg.Match.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Lobby{
		pending: make(map[string]*PendingGame),
		hosting: make(map[string]string),
		active:  make(map[string]*match.Match),
		cfg:     cfg,
		log:     cfg.Match.Logger.WithField("component", "lobby"),
	}
}

// Create opens a pending game hosted by connID.
func (l *Lobby) Create(connID, hostName string, d engine.DurationOption) (*PendingGame, error) {
	name, err := cleanName(hostName)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if code, ok := l.hosting[connID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyHosting, code)
	}
	code, err := l.newCode()
	if err != nil {
		return nil, err
	}
	pg := &PendingGame{
		ID:         uuid.New(),
		Code:       code,
		HostConnID: connID,
		HostName:   name,
		Duration:   d,
		CreatedAt:  l.cfg.Match.Now(),
	}
	l.pending[code] = pg
	l.hosting[connID] = code
	l.log.WithFields(logrus.Fields{"game_code": code, "conn_id": connID}).Info("Pending game created")
	return pg, nil
}

// Cancel drops the pending game hosted by connID and returns its code. It
// reports false if connID hosts nothing.
func (l *Lobby) Cancel(connID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	code, ok := l.hosting[connID]
	if !ok {
		return "", false
	}
	delete(l.hosting, connID)
	delete(l.pending, code)
	l.log.WithField("game_code", code).Info("Pending game cancelled")
	return code, true
}

// Join seats connID as the guest of the pending game code and starts the
// match.
func (l *Lobby) Join(code, connID, guestName string) (*match.Match, error) {
	name, err := cleanName(guestName)
	if err != nil {
		return nil, err
	}
	code = NormalizeCode(code)

	l.mu.Lock()
	pg, ok := l.pending[code]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
	}
	if pg.HostConnID == connID {
		l.mu.Unlock()
		return nil, ErrCannotJoinOwn
	}
	delete(l.pending, code)
	delete(l.hosting, pg.HostConnID)

	opts := engine.Options{
		Code:     code,
		Duration: pg.Duration,
		Censor:   l.cfg.Censor,
		Now:      l.cfg.Match.Now,
	}
	if l.cfg.Seed != nil {
		opts.Seed = l.cfg.Seed()
	}
	g := engine.NewGame(pg.HostConnID, pg.HostName, connID, name, opts)
	m := match.NewWithID(pg.ID, g, l.cfg.Match)
	l.register(m)
	l.mu.Unlock()

	if l.OnMatch != nil {
		l.OnMatch(m)
	}
	m.Start()
	return m, nil
}

// Pending returns the pending game for code.
func (l *Lobby) Pending(code string) (*PendingGame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pg, ok := l.pending[NormalizeCode(code)]
	if !ok {
		return nil, ErrGameNotFound
	}
	cp := *pg
	return &cp, nil
}

// Match returns the running match for code.
func (l *Lobby) Match(code string) (*match.Match, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.active[NormalizeCode(code)]
	if !ok {
		return nil, ErrGameNotFound
	}
	return m, nil
}

// Seat returns the running match for code only if it is the match id
// names. Codes are reused once a game ends, so a code alone does not
// identify a match.
func (l *Lobby) Seat(code string, id uuid.UUID) (*match.Match, error) {
	m, err := l.Match(code)
	if err != nil {
		return nil, err
	}
	if m.ID != id {
		return nil, fmt.Errorf("%w: %s is a different match", ErrGameNotFound, NormalizeCode(code))
	}
	return m, nil
}

// Exists reports whether code names a pending game or a running match.
func (l *Lobby) Exists(code string) bool {
	code = NormalizeCode(code)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, p := l.pending[code]
	_, a := l.active[code]
	return p || a
}

// Counts returns the number of pending games and running matches.
func (l *Lobby) Counts() (pending, active int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending), len(l.active)
}

// Resume reloads every match parked in live and starts it.
func (l *Lobby) Resume(ctx context.Context, live store.Live) (int, error) {
	codes, err := live.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list parked games: %w", err)
	}
	n := 0
	for _, code := range codes {
		ag, err := live.LoadActive(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("load parked game %s: %w", code, err)
		}
		m := match.Resume(ag, engine.Options{Censor: l.cfg.Censor}, l.cfg.Match)

		l.mu.Lock()
		l.register(m)
		l.mu.Unlock()

		if l.OnMatch != nil {
			l.OnMatch(m)
		}
		m.Start()
		n++
	}
	return n, nil
}

// Shutdown parks every running match and waits for their writes.
func (l *Lobby) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	matches := make([]*match.Match, 0, len(l.active))
	for _, m := range l.active {
		matches = append(matches, m)
	}
	l.mu.Unlock()

	for _, m := range matches {
		m.Shutdown()
	}
	for _, m := range matches {
		select {
		case <-m.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// register adds m to the registry and unhooks it when it ends.
// Assumes lock is held by caller.
func (l *Lobby) register(m *match.Match) {
	l.active[m.Code] = m
	m.OnGameEnd = func(code string, wonBy engine.Side, reason engine.GameOverReason) {
		l.mu.Lock()
		delete(l.active, code)
		l.mu.Unlock()
		if l.OnGameEnd != nil {
			l.OnGameEnd(code, wonBy, reason)
		}
	}
}

// newCode draws codes until one is free.
// Assumes lock is held by caller.
func (l *Lobby) newCode() (string, error) {
	var b strings.Builder
	for range maxCodeAttempts {
		b.Reset()
		for range CodeLength {
			b.WriteByte(CodeAlphabet[l.cfg.IntN(len(CodeAlphabet))])
		}
		code := b.String()
		_, p := l.pending[code]
		_, a := l.active[code]
		if !p && !a {
			return code, nil
		}
	}
	return "", ErrNoCodesAvailable
}

// NormalizeCode upper-cases and trims a user-typed code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: %d characters, max %d", ErrNameTooLong, utf8.RuneCountInString(name), MaxNameLength)
	}
	return name, nil
}
