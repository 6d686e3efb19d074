// Package engine implements the rules of Chess of Cards: a two-player card
// game played on five lanes of seven rows.
//
// The package is synchronous and holds no locks. Callers serialize access to
// a Game. Every shuffle draws from a seeded xorshift generator stored in the
// game state, so a game replays identically from its seed and snapshots
// resume the same random stream.
package engine

import (
	"errors"
	"math/rand/v2"
	"time"
)

// ErrHandDesync reports a move naming a card the mover does not hold. It means
// the candidate cache and the hand disagree, which is a programming error.
var ErrHandDesync = errors.New("engine: card not in hand")

// Player is one side's private state.
type Player struct {
	Deck           []Card     `json:"deck"`
	Hand           []Card     `json:"hand"`
	ConnectionID   string     `json:"connectionId"`
	Name           string     `json:"name"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
	OfferedDraw    bool       `json:"offeredDraw"`
	// LastReadChat is the index of the newest chat message seen, or nil.
	LastReadChat *int `json:"lastReadChat,omitempty"`
}

func (p *Player) clone() Player {
	out := *p
	out.Deck = append([]Card(nil), p.Deck...)
	out.Hand = append([]Card(nil), p.Hand...)
	if p.DisconnectedAt != nil {
		t := *p.DisconnectedAt
		out.DisconnectedAt = &t
	}
	if p.LastReadChat != nil {
		i := *p.LastReadChat
		out.LastReadChat = &i
	}
	return out
}

// Snapshot is the complete, serializable state of a Game.
type Snapshot struct {
	Code           string         `json:"code"`
	Duration       DurationOption `json:"duration"`
	Host           Player         `json:"host"`
	Guest          Player         `json:"guest"`
	Board          Board          `json:"board"`
	Turn           Side           `json:"turn"`
	Destroyed      []Card         `json:"destroyed"`
	Moves          []MoveMade     `json:"moves"`
	Chat           []ChatMessage  `json:"chat"`
	CreatedAt      time.Time      `json:"createdAt"`
	EndedAt        *time.Time     `json:"endedAt,omitempty"`
	HasEnded       bool           `json:"hasEnded"`
	WonBy          Side           `json:"wonBy"`
	EndReason      GameOverReason `json:"endReason"`
	RedJokerLane   *int           `json:"redJokerLane,omitempty"`
	BlackJokerLane *int           `json:"blackJokerLane,omitempty"`
	RNG            uint64         `json:"rng"`
}

// Game owns one match: board, both players, history and chat.
type Game struct {
	s          Snapshot
	candidates []CandidateMove
	opts       Options
}

// NewGame shuffles a fresh deck, splits it between the players (Host takes
// the first half) and deals five cards each. Host moves first.
func NewGame(hostConn, hostName, guestConn, guestName string, opts Options) *Game {
	g := &Game{opts: opts}
	g.s = Snapshot{
		Code:      opts.Code,
		Duration:  opts.Duration,
		Board:     NewBoard(),
		Turn:      Host,
		CreatedAt: opts.now(),
		RNG:       opts.Seed,
	}
	if g.s.RNG == 0 {
		g.s.RNG = rand.Uint64() | 1
	}

	deck := FullDeck()
	g.shuffle(deck)
	half := len(deck) / 2
	g.s.Host = Player{Deck: append([]Card(nil), deck[:half]...), ConnectionID: hostConn, Name: hostName}
	g.s.Guest = Player{Deck: append([]Card(nil), deck[half:]...), ConnectionID: guestConn, Name: guestName}
	g.drawUpTo(Host, HandSize)
	g.drawUpTo(Guest, HandSize)

	g.refreshCandidates()
	return g
}

// Restore rebuilds a Game from a snapshot. The snapshot is copied.
func Restore(s Snapshot, opts Options) *Game {
	g := &Game{s: s.clone(), opts: opts}
	g.refreshCandidates()
	return g
}

// Snapshot returns a deep copy of the game state.
func (g *Game) Snapshot() Snapshot { return g.s.clone() }

func (s *Snapshot) clone() Snapshot {
	out := *s
	out.Host = s.Host.clone()
	out.Guest = s.Guest.clone()
	out.Board = s.Board.clone()
	out.Destroyed = append([]Card(nil), s.Destroyed...)
	out.Moves = append([]MoveMade(nil), s.Moves...)
	for i := range out.Moves {
		out.Moves[i].Move = s.Moves[i].Move.clone()
	}
	out.Chat = append([]ChatMessage(nil), s.Chat...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	out.RedJokerLane = cloneIntPtr(s.RedJokerLane)
	out.BlackJokerLane = cloneIntPtr(s.BlackJokerLane)
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (g *Game) Code() string              { return g.s.Code }
func (g *Game) Duration() DurationOption  { return g.s.Duration }
func (g *Game) Turn() Side                { return g.s.Turn }
func (g *Game) HasEnded() bool            { return g.s.HasEnded }
func (g *Game) WonBy() Side               { return g.s.WonBy }
func (g *Game) EndReason() GameOverReason { return g.s.EndReason }
func (g *Game) CreatedAt() time.Time      { return g.s.CreatedAt }
func (g *Game) Moves() []MoveMade         { return g.s.Moves }

// Board returns a copy of the board.
func (g *Game) Board() Board { return g.s.Board.clone() }

// Hand returns a copy of s's hand.
func (g *Game) Hand(s Side) []Card { return append([]Card(nil), g.player(s).Hand...) }

// DeckSize returns the number of cards in s's deck.
func (g *Game) DeckSize(s Side) int { return len(g.player(s).Deck) }

// DestroyedCount returns the number of cards removed by ace clashes.
func (g *Game) DestroyedCount() int { return len(g.s.Destroyed) }

func (g *Game) Name(s Side) string         { return g.player(s).Name }
func (g *Game) ConnectionID(s Side) string { return g.player(s).ConnectionID }

// DisconnectedAt returns when s dropped, or nil if connected.
func (g *Game) DisconnectedAt(s Side) *time.Time { return g.player(s).DisconnectedAt }

// SideOf maps a connection id to a side.
func (g *Game) SideOf(connID string) (Side, bool) {
	switch connID {
	case g.s.Host.ConnectionID:
		return Host, true
	case g.s.Guest.ConnectionID:
		return Guest, true
	}
	return SideNone, false
}

// Candidates returns the cached candidate moves for the side to move.
func (g *Game) Candidates() []CandidateMove { return g.candidates }

// MustPass reports whether the side to move has no legal placement.
func (g *Game) MustPass() bool {
	return !g.s.HasEnded && !HasValidMove(g.candidates)
}

func (g *Game) player(s Side) *Player {
	if s == Guest {
		return &g.s.Guest
	}
	return &g.s.Host
}

func (g *Game) refreshCandidates() {
	if g.s.HasEnded {
		g.candidates = nil
		return
	}
	g.candidates = g.candidatesFor(g.s.Turn)
}

func (g *Game) candidatesFor(s Side) []CandidateMove {
	return g.s.Board.CandidateMoves(g.player(s).Hand, s, s)
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

func (g *Game) nextRand() uint64 {
	x := g.s.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.s.RNG = x
	return x
}

// randN returns a random number in [0, n).
func (g *Game) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// shuffle is a Fisher-Yates shuffle driven by the game RNG.
func (g *Game) shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// drawUpTo moves cards from the front of s's deck until the hand holds n cards
// or the deck runs out. Each draw is its own movement burst.
func (g *Game) drawUpTo(s Side, n int) [][]CardMovement {
	p := g.player(s)
	var bursts [][]CardMovement
	for len(p.Hand) < n && len(p.Deck) > 0 {
		c := p.Deck[0]
		p.Deck = p.Deck[1:]
		bursts = append(bursts, []CardMovement{newMovement(DeckStore(s), HandStore(s, len(p.Hand)), c)})
		p.Hand = append(p.Hand, c)
	}
	return bursts
}

// drawN draws at most n cards from the front of s's deck.
func (g *Game) drawN(s Side, n int) [][]CardMovement {
	return g.drawUpTo(s, len(g.player(s).Hand)+n)
}
