package engine

import "sort"

// Lane is one of the five columns. Each row is a stack, bottom first.
// Row MiddleRow is the capture pile and never a placement target.
type Lane struct {
	Rows           [NumRows][]Card `json:"rows"`
	Advantage      Side            `json:"advantage"`
	LastCardPlayed Card            `json:"lastCardPlayed"`
	WonBy          Side            `json:"wonBy"`
}

// Board holds the five lanes.
type Board [NumLanes]Lane

// NewBoard returns an empty board.
func NewBoard() Board {
	var b Board
	for i := range b {
		b[i].LastCardPlayed = EmptyCard
	}
	return b
}

// Top returns the top card of a row, or EmptyCard.
func (l *Lane) Top(row int) Card {
	r := l.Rows[row]
	if len(r) == 0 {
		return EmptyCard
	}
	return r[len(r)-1]
}

// MostOffensiveCard returns the top card owned by s that sits nearest s's
// attacking edge: Host scans rows 6..0, Guest scans 0..6.
func (l *Lane) MostOffensiveCard(s Side) Card {
	for i := 0; i < NumRows; i++ {
		row := i
		if s == Host {
			row = NumRows - 1 - i
		}
		top := l.Top(row)
		if top != EmptyCard && top.Owner() == s {
			return top
		}
	}
	return EmptyCard
}

// topTwoAreOpposingAces reports whether any row has two Aces of different
// owners as its top two cards.
func (l *Lane) topTwoAreOpposingAces() bool {
	for _, r := range l.Rows {
		n := len(r)
		if n < 2 {
			continue
		}
		a, b := r[n-1], r[n-2]
		if a.Kind() == KindAce && b.Kind() == KindAce && a.Owner() != b.Owner() {
			return true
		}
	}
	return false
}

// CardCount returns the number of cards in all rows of the lane.
func (l *Lane) CardCount() int {
	n := 0
	for _, r := range l.Rows {
		n += len(r)
	}
	return n
}

// laneCard is a card lifted off a lane together with the row it came from.
type laneCard struct {
	card Card
	row  int
}

// grabAll empties the lane, returning its cards row by row, bottom to top.
func (l *Lane) grabAll() []laneCard {
	var out []laneCard
	for i := range l.Rows {
		for _, c := range l.Rows[i] {
			out = append(out, laneCard{card: c, row: i})
		}
		l.Rows[i] = nil
	}
	return out
}

// grabTopsOfFirstThreeRows pops the top card of each of s's three home rows,
// walking from s's edge toward the middle.
func (l *Lane) grabTopsOfFirstThreeRows(s Side) []laneCard {
	var out []laneCard
	for i := 0; i < MiddleRow; i++ {
		row := i
		if s == Guest {
			row = NumRows - 1 - i
		}
		r := l.Rows[row]
		if len(r) == 0 {
			continue
		}
		out = append(out, laneCard{card: r[len(r)-1], row: row})
		l.Rows[row] = r[:len(r)-1]
	}
	return out
}

// sortForMiddle orders swept cards for a neutral middle capture: cards not
// owned by the capturer first, then by row from the capturer's edge inward.
func sortForMiddle(cards []laneCard, capturer Side) {
	sort.SliceStable(cards, func(i, j int) bool {
		mi, mj := cards[i].card.Owner() == capturer, cards[j].card.Owner() == capturer
		if mi != mj {
			return !mi
		}
		if capturer == Host {
			return cards[i].row < cards[j].row
		}
		return cards[i].row > cards[j].row
	})
}

// isHomeRow reports whether row lies on s's defensive side of the middle.
func isHomeRow(s Side, row int) bool {
	if s == Host {
		return row < MiddleRow
	}
	return row > MiddleRow
}

// isOpponentRow reports whether row lies past the middle from s's edge.
func isOpponentRow(s Side, row int) bool {
	if s == Host {
		return row > MiddleRow
	}
	return row < MiddleRow
}

// lastHomeRow is the row adjacent to the middle on s's side.
func lastHomeRow(s Side) int {
	if s == Host {
		return MiddleRow - 1
	}
	return MiddleRow + 1
}

// finalRow is the row that wins the lane for s.
func finalRow(s Side) int {
	if s == Host {
		return NumRows - 1
	}
	return 0
}

// CardCount returns the number of cards on the board.
func (b *Board) CardCount() int {
	n := 0
	for i := range b {
		n += b[i].CardCount()
	}
	return n
}

// LanesWonBy counts lanes won by s.
func (b *Board) LanesWonBy(s Side) int {
	n := 0
	for i := range b {
		if b[i].WonBy == s {
			n++
		}
	}
	return n
}

func (b *Board) clone() Board {
	out := *b
	for i := range out {
		for r := range out[i].Rows {
			if len(b[i].Rows[r]) > 0 {
				out[i].Rows[r] = append([]Card(nil), b[i].Rows[r]...)
			}
		}
	}
	return out
}
