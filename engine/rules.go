package engine

import (
	"encoding/json"
	"time"
)

// Board geometry.
const (
	NumLanes        = 5
	NumRows         = 7
	MiddleRow       = 3
	HandSize        = 5
	MaxCardsPerMove = 4
	LanesToWin      = 2
	// PassesToDraw is the number of consecutive passes (both sides) that ends the game.
	PassesToDraw = 6
)

// DurationOption is the time control chosen by the host.
type DurationOption uint8

const (
	ThreeMinutes DurationOption = iota
	OneMinute
	FiveMinutes
)

// Seconds returns the clock budget per side.
func (d DurationOption) Seconds() int {
	switch d {
	case OneMinute:
		return 60
	case FiveMinutes:
		return 300
	}
	return 180
}

func (d DurationOption) String() string {
	switch d {
	case OneMinute:
		return "OneMinute"
	case FiveMinutes:
		return "FiveMinutes"
	}
	return "ThreeMinutes"
}

// ParseDurationOption maps a name to an option; unknown names fall back to ThreeMinutes.
func ParseDurationOption(s string) DurationOption {
	switch s {
	case "OneMinute":
		return OneMinute
	case "FiveMinutes":
		return FiveMinutes
	}
	return ThreeMinutes
}

func (d DurationOption) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *DurationOption) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = ParseDurationOption(s)
	return nil
}

// GameOverReason records why a game ended.
type GameOverReason uint8

const (
	ReasonNotOver GameOverReason = iota
	ReasonWon
	ReasonResigned
	ReasonDrawByAgreement
	ReasonDisconnected
	ReasonRanOutOfTime
	ReasonDrawByRepetition
)

var gameOverReasonNames = [...]string{"", "Won", "Resigned", "DrawByAgreement", "Disconnected", "RanOutOfTime", "DrawByRepetition"}

func (r GameOverReason) String() string {
	if int(r) < len(gameOverReasonNames) {
		return gameOverReasonNames[r]
	}
	return ""
}

func (r GameOverReason) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *GameOverReason) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = ReasonNotOver
	for i, name := range gameOverReasonNames {
		if name == s {
			*r = GameOverReason(i)
		}
	}
	return nil
}

// Options configures a new Game.
type Options struct {
	Code     string
	Duration DurationOption
	// Seed drives every shuffle. Zero picks a random seed.
	Seed uint64
	// Censor filters chat text for display. Nil keeps text as sent.
	Censor func(string) string
	// Now supplies timestamps. Nil uses time.Now.
	Now func() time.Time
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Options) censor(s string) string {
	if o.Censor == nil {
		return s
	}
	return o.Censor(s)
}
