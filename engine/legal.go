package engine

// CandidateMove is a syntactically possible move, pre-classified by Validate.
type CandidateMove struct {
	Move   Move          `json:"move"`
	Reason InvalidReason `json:"reason"`
}

// IsValid reports whether the candidate passed every legality rule.
func (c CandidateMove) IsValid() bool { return c.Reason == Valid }

// CandidateMoves enumerates every single-card placement of every hand card on
// every cell, plus multi-card runs seeded on mover's home rows, and classifies
// each. Order: rows, then lanes, then hand order.
func (b *Board) CandidateMoves(hand []Card, mover, turn Side) []CandidateMove {
	var out []CandidateMove
	for row := 0; row < NumRows; row++ {
		for lane := 0; lane < NumLanes; lane++ {
			for _, card := range hand {
				seed := PlaceCardAttempt{Card: card, Lane: lane, Row: row}
				out = append(out, b.classify(Move{seed}, mover, turn))
				if !isHomeRow(mover, row) {
					continue
				}
				for _, extra := range SubsetPermutations(sameKindOtherSuits(hand, card)) {
					out = append(out, b.classify(runFrom(seed, extra, mover), mover, turn))
				}
			}
		}
	}
	return out
}

// HasValidMove reports whether any candidate is legal.
func HasValidMove(cands []CandidateMove) bool {
	for _, c := range cands {
		if c.IsValid() {
			return true
		}
	}
	return false
}

func (b *Board) classify(m Move, mover, turn Side) CandidateMove {
	return CandidateMove{Move: m, Reason: b.Validate(m, mover, turn)}
}

func sameKindOtherSuits(hand []Card, seed Card) []Card {
	var out []Card
	for _, c := range hand {
		if c.KindMatches(seed) && !c.SuitMatches(seed) {
			out = append(out, c)
		}
	}
	return out
}

// runFrom lays extra cards on the rows after seed, moving from mover's edge
// toward the middle and skipping the middle row.
func runFrom(seed PlaceCardAttempt, extra []Card, mover Side) Move {
	m := make(Move, 0, len(extra)+1)
	m = append(m, seed)
	for i, c := range extra {
		var row int
		if mover == Host {
			row = seed.Row + 1 + i
			if row >= MiddleRow {
				row++
			}
		} else {
			row = seed.Row - 1 - i
			if row <= MiddleRow {
				row--
			}
		}
		m = append(m, PlaceCardAttempt{Card: c, Lane: seed.Lane, Row: row})
	}
	return m
}
