package engine

import (
	"encoding/json"
	"testing"
)

// card parses a "9♣"-style literal and fails loudly on typos.
func card(s string) Card {
	c, ok := ParseCard(s)
	if !ok {
		panic("bad card literal " + s)
	}
	return c
}

func hostCard(s string) Card  { return card(s).WithOwner(Host) }
func guestCard(s string) Card { return card(s).WithOwner(Guest) }

func cards(ss ...string) []Card {
	out := make([]Card, len(ss))
	for i, s := range ss {
		out[i] = card(s)
	}
	return out
}

// TestCardPacking verifies suit, kind and owner survive packing.
func TestCardPacking(t *testing.T) {
	for suit := uint8(0); suit < NumSuits; suit++ {
		for kind := uint8(0); kind < NumKinds; kind++ {
			c := NewCard(suit, kind)
			if c.Suit() != suit || c.Kind() != kind {
				t.Fatalf("NewCard(%d,%d) unpacked to suit=%d kind=%d", suit, kind, c.Suit(), c.Kind())
			}
			if c.Owner() != SideNone {
				t.Errorf("%v: fresh card owner = %v, want none", c, c.Owner())
			}
			for _, s := range []Side{Host, Guest} {
				o := c.WithOwner(s)
				if o.Owner() != s || o.Suit() != suit || o.Kind() != kind {
					t.Errorf("%v.WithOwner(%v) = owner %v suit %d kind %d", c, s, o.Owner(), o.Suit(), o.Kind())
				}
				if !o.SameCard(c) || o.Face() != c {
					t.Errorf("%v.WithOwner(%v) lost identity", c, s)
				}
			}
			if o := c.WithOwner(Host).WithOwner(Guest); o.Owner() != Guest {
				t.Errorf("restamp owner = %v, want guest", o.Owner())
			}
		}
	}
}

func TestTrumps(t *testing.T) {
	tests := []struct {
		att, def string
		want     bool
	}{
		{"K♣", "9♣", true},
		{"9♣", "K♣", false},
		{"9♣", "9♣", false},
		{"A♠", "K♠", true},
		{"2♠", "A♠", false},
		{"9♥", "9♣", true},
		{"2♥", "2♠", true},
		{"K♥", "9♣", false},
		{"5♥", "K♣", false},
	}
	for _, tt := range tests {
		if got := card(tt.att).Trumps(card(tt.def)); got != tt.want {
			t.Errorf("%s.Trumps(%s) = %v, want %v", tt.att, tt.def, got, tt.want)
		}
	}
}

func TestParseCardRoundTrip(t *testing.T) {
	for _, c := range FullDeck() {
		got, ok := ParseCard(c.String())
		if !ok || got != c {
			t.Errorf("ParseCard(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ParseCard("1♣"); ok {
		t.Error("ParseCard accepted 1♣")
	}
}

func TestFullDeckUnique(t *testing.T) {
	deck := FullDeck()
	if len(deck) != DeckSize {
		t.Fatalf("len = %d, want %d", len(deck), DeckSize)
	}
	seen := make(map[Card]bool)
	for _, c := range deck {
		if seen[c] {
			t.Errorf("duplicate %v", c)
		}
		seen[c] = true
	}
}

func TestSideOpponent(t *testing.T) {
	if Host.Opponent() != Guest || Guest.Opponent() != Host || SideNone.Opponent() != SideNone {
		t.Error("Opponent mapping wrong")
	}
}

// TestCardSliceJSON verifies card slices encode as numbers, not base64.
func TestCardSliceJSON(t *testing.T) {
	in := []Card{hostCard("9♣"), card("A♠")}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != '[' {
		t.Fatalf("encoded as %s, want array", b)
	}
	var out []Card
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}
