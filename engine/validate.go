package engine

import "sort"

// InvalidReason names the first legality rule a move breaks.
type InvalidReason uint8

const (
	Valid InvalidReason = iota
	ReasonNotYourTurn
	ReasonNoCards
	ReasonTooManyCards
	ReasonDifferentLanes
	ReasonSamePosition
	ReasonOffBoard
	ReasonLaneWon
	ReasonMiddleRow
	ReasonSeparated
	ReasonMixedKinds
	ReasonRepeatedSuit
	ReasonDistantRow
	ReasonGreaterCard
	ReasonMustAttack
	ReasonMustDefend
	ReasonNotReadyToAttack
	ReasonSuitOrKindMismatch
	ReasonReinforceGreater
)

var invalidReasonText = [...]string{
	Valid:                    "",
	ReasonNotYourTurn:        "It's not your turn!",
	ReasonNoCards:            "You need to place a card!",
	ReasonTooManyCards:       "You placed too many cards!",
	ReasonDifferentLanes:     "You can't place cards on different lanes!",
	ReasonSamePosition:       "You can't place cards on the same position!",
	ReasonOffBoard:           "That position is not on the board!",
	ReasonLaneWon:            "This lane was won already!",
	ReasonMiddleRow:          "You can't place a card in the middle!",
	ReasonSeparated:          "You can't place cards that are separate from one another!",
	ReasonMixedKinds:         "Placing multiple cards must be of the same kind!",
	ReasonRepeatedSuit:       "Placing multiple cards must be of a different suit!",
	ReasonDistantRow:         "You can't capture this position yet!",
	ReasonGreaterCard:        "You can't capture a greater card!",
	ReasonMustAttack:         "You must attack this lane!",
	ReasonMustDefend:         "You must defend this lane!",
	ReasonNotReadyToAttack:   "You aren't ready to attack here yet.",
	ReasonSuitOrKindMismatch: "This card can't be placed here.",
	ReasonReinforceGreater:   "You can't reinforce a greater card!",
}

func (r InvalidReason) String() string { return invalidReasonText[r] }

// Validate runs the legality chain for mover placing m while turn is to move.
// The first failing rule is returned; Valid means the move is legal.
func (b *Board) Validate(m Move, mover, turn Side) InvalidReason {
	if mover != turn {
		return ReasonNotYourTurn
	}
	if r := checkShape(m); r != Valid {
		return r
	}
	lane := &b[m[0].Lane]
	if lane.WonBy != SideNone {
		return ReasonLaneWon
	}
	for _, a := range m {
		if a.Row == MiddleRow {
			return ReasonMiddleRow
		}
	}
	if !rowsContiguous(m) {
		return ReasonSeparated
	}
	if r := checkCardSet(m); r != Valid {
		return r
	}

	first := m.initial(mover)
	if !lane.capturedRowsBefore(first.Row, mover, isOpponentRow(mover, first.Row)) {
		return ReasonDistantRow
	}
	target := lane.Top(first.Row)
	if target != EmptyCard && target.Owner() != mover && !first.Card.Trumps(target) {
		return ReasonGreaterCard
	}
	if isHomeRow(mover, first.Row) && lane.Advantage == mover {
		return ReasonMustAttack
	}
	if isOpponentRow(mover, first.Row) {
		if lane.Advantage == mover.Opponent() {
			return ReasonMustDefend
		}
		if lane.Advantage == SideNone {
			return ReasonNotReadyToAttack
		}
	}
	if last := lane.LastCardPlayed; last != EmptyCard && !first.Card.SuitMatches(last) && !first.Card.KindMatches(last) {
		return ReasonSuitOrKindMismatch
	}
	if target != EmptyCard && target.Owner() == mover && target.Trumps(first.Card) {
		return ReasonReinforceGreater
	}
	return Valid
}

// checkShape covers count, lane and cell constraints.
func checkShape(m Move) InvalidReason {
	switch {
	case len(m) == 0:
		return ReasonNoCards
	case len(m) > MaxCardsPerMove:
		return ReasonTooManyCards
	}
	rows := make(map[int]bool, len(m))
	for _, a := range m {
		if a.Lane != m[0].Lane {
			return ReasonDifferentLanes
		}
		rows[a.Row] = true
	}
	if len(rows) != len(m) {
		return ReasonSamePosition
	}
	for _, a := range m {
		if a.Lane < 0 || a.Lane >= NumLanes || a.Row < 0 || a.Row >= NumRows {
			return ReasonOffBoard
		}
	}
	return Valid
}

// rowsContiguous accepts sorted rows that step by one. A gap is allowed only
// where it straddles the middle row.
func rowsContiguous(m Move) bool {
	rows := make([]int, len(m))
	for i, a := range m {
		rows[i] = a.Row
	}
	sort.Ints(rows)
	for i := 1; i < len(rows); i++ {
		lo, hi := rows[i-1], rows[i]
		if hi-lo == 1 {
			continue
		}
		if lo < MiddleRow && hi > MiddleRow {
			continue
		}
		return false
	}
	return true
}

func checkCardSet(m Move) InvalidReason {
	suits := make(map[uint8]bool, len(m))
	for _, a := range m {
		if !a.Card.KindMatches(m[0].Card) {
			return ReasonMixedKinds
		}
		suits[a.Card.Suit()] = true
	}
	if len(suits) != len(m) {
		return ReasonRepeatedSuit
	}
	return Valid
}

// capturedRowsBefore reports whether every row between s's starting edge and
// target already has a top card owned by s. A move that starts on the
// opponent's side only checks the opponent's rows.
func (l *Lane) capturedRowsBefore(target int, s Side, startsOnOpponentSide bool) bool {
	if s == Host {
		start := 0
		if startsOnOpponentSide {
			start = MiddleRow + 1
		}
		for i := start; i < target; i++ {
			if top := l.Top(i); top == EmptyCard || top.Owner() != s {
				return false
			}
		}
		return true
	}
	end := NumRows - 1
	if startsOnOpponentSide {
		end = MiddleRow - 1
	}
	for i := end; i > target; i-- {
		if top := l.Top(i); top == EmptyCard || top.Owner() != s {
			return false
		}
	}
	return true
}
