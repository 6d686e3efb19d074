package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// PlaceCardAttempt puts one card on one cell.
type PlaceCardAttempt struct {
	Card Card `json:"card"`
	Lane int  `json:"lane"`
	Row  int  `json:"row"`
}

// Move is an ordered list of placements. An empty Move is a pass.
type Move []PlaceCardAttempt

// Matches reports whether m and o place the same cards on the same cells in
// the same order. Owners are ignored.
func (m Move) Matches(o Move) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i].Lane != o[i].Lane || m[i].Row != o[i].Row || !m[i].Card.SameCard(o[i].Card) {
			return false
		}
	}
	return true
}

// Cards returns the cards the move places, in order.
func (m Move) Cards() []Card {
	out := make([]Card, len(m))
	for i, a := range m {
		out[i] = a.Card
	}
	return out
}

// initial returns the attempt nearest the mover's edge: lowest row for Host,
// highest row for Guest.
func (m Move) initial(s Side) PlaceCardAttempt {
	best := m[0]
	for _, a := range m[1:] {
		if (s == Host && a.Row < best.Row) || (s == Guest && a.Row > best.Row) {
			best = a
		}
	}
	return best
}

func (m Move) clone() Move {
	if m == nil {
		return nil
	}
	return append(Move(nil), m...)
}

// StoreKind tags which variant a CardStore holds.
type StoreKind uint8

const (
	StoreHostHand StoreKind = iota
	StoreGuestHand
	StoreBoard
	StoreHostDeck
	StoreGuestDeck
	StoreDestroyed
)

var storeKindNames = [...]string{"hostHand", "guestHand", "board", "hostDeck", "guestDeck", "destroyed"}

func (k StoreKind) String() string { return storeKindNames[k] }

func (k StoreKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *StoreKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, name := range storeKindNames {
		if name == s {
			*k = StoreKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown card store %q", s)
}

// CardStore is a card location. Index is meaningful for the hand variants,
// Lane and Row for StoreBoard; the deck and destroyed variants carry nothing.
type CardStore struct {
	Kind  StoreKind `json:"kind"`
	Index int       `json:"index,omitempty"`
	Lane  int       `json:"lane,omitempty"`
	Row   int       `json:"row,omitempty"`
}

func HandStore(s Side, index int) CardStore {
	if s == Host {
		return CardStore{Kind: StoreHostHand, Index: index}
	}
	return CardStore{Kind: StoreGuestHand, Index: index}
}

func BoardStore(lane, row int) CardStore {
	return CardStore{Kind: StoreBoard, Lane: lane, Row: row}
}

func DeckStore(s Side) CardStore {
	if s == Host {
		return CardStore{Kind: StoreHostDeck}
	}
	return CardStore{Kind: StoreGuestDeck}
}

func DestroyedStore() CardStore { return CardStore{Kind: StoreDestroyed} }

// IsDeckOf reports whether the store is s's deck.
func (c CardStore) IsDeckOf(s Side) bool {
	return (s == Host && c.Kind == StoreHostDeck) || (s == Guest && c.Kind == StoreGuestDeck)
}

// CardMovement records one card moving between stores. Card is EmptyCard
// when hidden from the viewer.
type CardMovement struct {
	From     CardStore `json:"from"`
	To       CardStore `json:"to"`
	Card     Card      `json:"card"`
	Notation string    `json:"notation,omitempty"`
}

func newMovement(from, to CardStore, c Card) CardMovement {
	mv := CardMovement{From: from, To: to, Card: c}
	if to.Kind == StoreBoard {
		mv.Notation = Notation(c, to.Lane, to.Row)
	}
	return mv
}

// Notation renders a placement as kind, suit, lane letter and 1-based row, e.g. "9♣a2".
func Notation(c Card, lane, row int) string {
	return fmt.Sprintf("%s%c%d", c.String(), 'a'+lane, row+1)
}

// MoveMade is one entry of the game history.
type MoveMade struct {
	PlayedBy      Side             `json:"playedBy"`
	Move          Move             `json:"move"`
	At            time.Time        `json:"at"`
	CardMovements [][]CardMovement `json:"cardMovements"`
	Passed        bool             `json:"passed"`
}
