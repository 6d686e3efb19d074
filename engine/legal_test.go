package engine

import "testing"

func countValid(cands []CandidateMove) int {
	n := 0
	for _, c := range cands {
		if c.IsValid() {
			n++
		}
	}
	return n
}

func TestCandidateMovesSingles(t *testing.T) {
	b := NewBoard()
	hand := cards("2♣", "5♦", "9♥", "J♠", "A♣")
	cands := b.CandidateMoves(hand, Host, Host)

	if want := NumLanes * NumRows * len(hand); len(cands) != want {
		t.Fatalf("len = %d, want %d", len(cands), want)
	}
	// Only the host's edge row is open on an empty board.
	if got, want := countValid(cands), NumLanes*len(hand); got != want {
		t.Errorf("valid = %d, want %d", got, want)
	}
	for _, c := range cands {
		if c.IsValid() && c.Move[0].Row != 0 {
			t.Errorf("valid candidate off the edge: %+v", c.Move)
		}
	}
	// Rows first, then lanes, then hand order.
	first := cands[0].Move[0]
	if first.Row != 0 || first.Lane != 0 || first.Card != hand[0] {
		t.Errorf("first candidate = %+v", first)
	}
	if second := cands[1].Move[0]; second.Card != hand[1] || second.Lane != 0 {
		t.Errorf("second candidate = %+v", second)
	}
}

func TestCandidateMovesRuns(t *testing.T) {
	b := NewBoard()
	hand := cards("9♣", "9♦", "9♥", "2♠", "3♠")
	cands := b.CandidateMoves(hand, Host, Host)

	// 15 home cells, three nines each with 4 orderings of the other two.
	if want := NumLanes*NumRows*len(hand) + NumLanes*MiddleRow*3*4; len(cands) != want {
		t.Fatalf("len = %d, want %d", len(cands), want)
	}
	if got, want := countValid(cands), NumLanes*len(hand)+NumLanes*3*4; got != want {
		t.Errorf("valid = %d, want %d", got, want)
	}

	found := false
	for _, c := range cands {
		m := c.Move
		if len(m) == 3 && m[0].Row == 2 && m[1].Row == 4 && m[2].Row == 5 {
			found = true
		}
		if len(m) == 1 {
			if m[0].Row == MiddleRow && c.Reason != ReasonMiddleRow {
				t.Errorf("single on the middle: reason %v, want %v", c.Reason, ReasonMiddleRow)
			}
			continue
		}
		for _, a := range m {
			if a.Row == MiddleRow {
				t.Fatalf("run targets the middle: %+v", m)
			}
		}
	}
	if !found {
		t.Error("no run from row 2 skipping the middle")
	}
}

func TestCandidateMovesGuestRunsTowardMiddle(t *testing.T) {
	b := NewBoard()
	hand := cards("4♣", "4♦")
	cands := b.CandidateMoves(hand, Guest, Guest)
	for _, c := range cands {
		m := c.Move
		if len(m) != 2 {
			continue
		}
		want := m[0].Row - 1
		if want == MiddleRow {
			want--
		}
		if m[1].Row != want {
			t.Errorf("guest run rows %d,%d", m[0].Row, m[1].Row)
		}
		if m[0].Row < MiddleRow {
			t.Errorf("guest run seeded on host side: %+v", m)
		}
	}
	if countValid(cands) == 0 {
		t.Error("guest has no opening moves")
	}
}

func TestCandidateMovesOffTurnAllInvalid(t *testing.T) {
	b := NewBoard()
	cands := b.CandidateMoves(cards("9♣", "9♦"), Guest, Host)
	if HasValidMove(cands) {
		t.Error("candidates valid off turn")
	}
	for _, c := range cands {
		if c.Reason != ReasonNotYourTurn {
			t.Fatalf("reason = %q, want not your turn", c.Reason)
		}
	}
}

// TestCandidateSoundness re-validates every candidate on a busy board.
func TestCandidateSoundness(t *testing.T) {
	b := NewBoard()
	b[0].Rows[0] = []Card{hostCard("5♣")}
	b[0].Rows[6] = []Card{guestCard("K♦")}
	b[0].LastCardPlayed = guestCard("K♦")
	b[1].Advantage = Host
	b[1].Rows[MiddleRow] = []Card{guestCard("2♥"), hostCard("7♥")}
	b[1].Rows[4] = []Card{guestCard("8♥")}
	b[1].LastCardPlayed = guestCard("8♥")
	b[2].WonBy = Guest
	hand := cards("8♣", "8♦", "8♠", "K♥", "A♥")

	for _, side := range []Side{Host, Guest} {
		for _, c := range b.CandidateMoves(hand, side, side) {
			if got := b.Validate(c.Move, side, side); got != c.Reason {
				t.Errorf("%v %+v: cached %q, revalidated %q", side, c.Move, c.Reason, got)
			}
		}
	}
}
