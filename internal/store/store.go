// Package store persists matches: in-progress snapshots and an action log
// while a game is live, and one archive row once it finishes.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/chessofcards/engine"
)

// ErrNotFound is returned when no record exists for a game code.
var ErrNotFound = errors.New("store: not found")

// ActiveGame is an in-progress match as parked between writes.
type ActiveGame struct {
	MatchID        uuid.UUID       `json:"matchId"`
	Snapshot       engine.Snapshot `json:"snapshot"`
	HostElapsedMs  int64           `json:"hostElapsedMs"`
	GuestElapsedMs int64           `json:"guestElapsedMs"`
	SavedAt        time.Time       `json:"savedAt"`
}

// ActionRecord is one entry of a match's append-only action log.
type ActionRecord struct {
	MatchID    uuid.UUID      `json:"matchId"`
	Index      int            `json:"index"`
	Side       engine.Side    `json:"side"`
	ActionType string         `json:"actionType"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

// FinishedGame is the archived summary of a completed match.
type FinishedGame struct {
	MatchID   uuid.UUID             `json:"matchId"`
	Code      string                `json:"code"`
	HostName  string                `json:"hostName"`
	GuestName string                `json:"guestName"`
	Duration  engine.DurationOption `json:"duration"`
	WonBy     engine.Side           `json:"wonBy"`
	Reason    engine.GameOverReason `json:"reason"`
	Moves     []engine.MoveMade     `json:"moves"`
	CreatedAt time.Time             `json:"createdAt"`
	EndedAt   time.Time             `json:"endedAt"`
}

// NewFinishedGame summarizes a finished snapshot.
func NewFinishedGame(matchID uuid.UUID, s engine.Snapshot) FinishedGame {
	fg := FinishedGame{
		MatchID:   matchID,
		Code:      s.Code,
		HostName:  s.Host.Name,
		GuestName: s.Guest.Name,
		Duration:  s.Duration,
		WonBy:     s.WonBy,
		Reason:    s.EndReason,
		Moves:     s.Moves,
		CreatedAt: s.CreatedAt,
	}
	if fg.Moves == nil {
		fg.Moves = []engine.MoveMade{}
	}
	if s.EndedAt != nil {
		fg.EndedAt = *s.EndedAt
	}
	return fg
}

// Live holds state that only matters while a match runs.
type Live interface {
	SaveActive(ctx context.Context, code string, g ActiveGame) error
	LoadActive(ctx context.Context, code string) (ActiveGame, error)
	DeleteActive(ctx context.Context, code string) error
	ListActive(ctx context.Context) ([]string, error)
	AppendAction(ctx context.Context, code string, rec ActionRecord) error
}

// Archive keeps finished games.
type Archive interface {
	RecordFinished(ctx context.Context, g FinishedGame) error
}

// Memory is an in-process Live and Archive, used when no Redis or Postgres
// is configured and in tests.
type Memory struct {
	mu       sync.Mutex
	active   map[string]ActiveGame
	actions  map[string][]ActionRecord
	finished []FinishedGame
}

func NewMemory() *Memory {
	return &Memory{
		active:  make(map[string]ActiveGame),
		actions: make(map[string][]ActionRecord),
	}
}

func (m *Memory) SaveActive(_ context.Context, code string, g ActiveGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[code] = g
	return nil
}

func (m *Memory) LoadActive(_ context.Context, code string) (ActiveGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.active[code]
	if !ok {
		return ActiveGame{}, ErrNotFound
	}
	return g, nil
}

func (m *Memory) DeleteActive(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, code)
	delete(m.actions, code)
	return nil
}

func (m *Memory) ListActive(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.active))
	for c := range m.active {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *Memory) AppendAction(_ context.Context, code string, rec ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[code] = append(m.actions[code], rec)
	return nil
}

// Actions returns the logged actions for code.
func (m *Memory) Actions(code string) []ActionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ActionRecord(nil), m.actions[code]...)
}

func (m *Memory) RecordFinished(_ context.Context, g FinishedGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, g)
	return nil
}

// Finished returns every archived game.
func (m *Memory) Finished() []FinishedGame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FinishedGame(nil), m.finished...)
}
