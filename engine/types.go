package engine

import (
	"encoding/json"
	"strconv"
)

// Suit constants, packed into bits 4-5 of Card.
const (
	SuitClubs    uint8 = 0
	SuitDiamonds uint8 = 1
	SuitHearts   uint8 = 2
	SuitSpades   uint8 = 3
)

// Kind constants, packed into the lower 4 bits of Card. Ordered Two..Ace.
const (
	KindTwo   uint8 = 0
	KindThree uint8 = 1
	KindFour  uint8 = 2
	KindFive  uint8 = 3
	KindSix   uint8 = 4
	KindSeven uint8 = 5
	KindEight uint8 = 6
	KindNine  uint8 = 7
	KindTen   uint8 = 8
	KindJack  uint8 = 9
	KindQueen uint8 = 10
	KindKing  uint8 = 11
	KindAce   uint8 = 12
)

const (
	NumSuits = 4
	NumKinds = 13
	DeckSize = NumSuits * NumKinds
)

// Side identifies one of the two players, or nobody.
type Side uint8

const (
	SideNone Side = iota
	Host
	Guest
)

// Opponent returns the other side. SideNone has no opponent.
func (s Side) Opponent() Side {
	switch s {
	case Host:
		return Guest
	case Guest:
		return Host
	}
	return SideNone
}

func (s Side) String() string {
	switch s {
	case Host:
		return "host"
	case Guest:
		return "guest"
	}
	return "none"
}

// MarshalJSON encodes a Side as its name.
func (s Side) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON decodes "host", "guest" or "none".
func (s *Side) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "host":
		*s = Host
	case "guest":
		*s = Guest
	default:
		*s = SideNone
	}
	return nil
}

// Card is a packed uint8: bits 0-3 = kind, bits 4-5 = suit, bits 6-7 = owner.
// A card in a deck or hand has no owner; the owner is stamped once on placement.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// NewCard constructs an unowned Card from suit and kind.
func NewCard(suit, kind uint8) Card {
	return Card((suit&0x03)<<4 | (kind & 0x0F))
}

// Kind returns the kind bits.
func (c Card) Kind() uint8 { return uint8(c) & 0x0F }

// Suit returns the suit bits.
func (c Card) Suit() uint8 { return (uint8(c) >> 4) & 0x03 }

// Owner returns the side that placed this card on the board.
func (c Card) Owner() Side { return Side(uint8(c) >> 6) }

// WithOwner returns the card stamped with the given owner.
func (c Card) WithOwner(s Side) Card {
	return Card(uint8(c)&0x3F | uint8(s)<<6)
}

// MarshalJSON encodes the packed byte as a number so card slices are not
// treated as raw bytes.
func (c Card) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(c), 10), nil
}

func (c *Card) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseUint(string(b), 10, 8)
	if err != nil {
		return err
	}
	*c = Card(v)
	return nil
}

// Face strips the owner, leaving the suit and kind identity.
func (c Card) Face() Card { return Card(uint8(c) & 0x3F) }

// SuitMatches reports whether both cards share a suit.
func (c Card) SuitMatches(o Card) bool { return c.Suit() == o.Suit() }

// KindMatches reports whether both cards share a kind.
func (c Card) KindMatches(o Card) bool { return c.Kind() == o.Kind() }

// SameCard reports whether both cards have the same suit and kind.
func (c Card) SameCard(o Card) bool { return c.Face() == o.Face() }

// Trumps reports whether c beats def: a higher kind of the same suit, or the
// same kind in a different suit.
func (c Card) Trumps(def Card) bool {
	if c.SuitMatches(def) {
		return c.Kind() > def.Kind()
	}
	return c.KindMatches(def)
}

var kindLetters = [NumKinds]string{"2", "3", "4", "5", "6", "7", "8", "9", "T", "J", "Q", "K", "A"}
var suitSymbols = [NumSuits]string{"♣", "♦", "♥", "♠"}

// String renders the card as kind letter and suit symbol, e.g. "T♥".
func (c Card) String() string {
	if c == EmptyCard {
		return "--"
	}
	return kindLetters[c.Kind()] + suitSymbols[c.Suit()]
}

// ParseCard is the inverse of Card.String. Owner is not encoded.
func ParseCard(s string) (Card, bool) {
	for k, kl := range kindLetters {
		for su, sy := range suitSymbols {
			if s == kl+sy {
				return NewCard(uint8(su), uint8(k)), true
			}
		}
	}
	return EmptyCard, false
}

// FullDeck returns the 52 unowned cards in suit-major order.
func FullDeck() []Card {
	out := make([]Card, 0, DeckSize)
	for suit := uint8(0); suit < NumSuits; suit++ {
		for kind := uint8(0); kind < NumKinds; kind++ {
			out = append(out, NewCard(suit, kind))
		}
	}
	return out
}
