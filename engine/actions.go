package engine

import "fmt"

// MakeMove plays m for actor. The move must match a valid cached candidate.
// If rearranged is non-nil it becomes actor's hand order after the placed
// cards leave the hand; it must hold exactly those remaining cards.
//
// A non-nil error means the game state and the candidate cache disagree. The
// state is untouched in that case.
func (g *Game) MakeMove(actor Side, m Move, rearranged []Card) ([]Result, error) {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}, nil
	}
	if actor != g.s.Turn || !g.isValidCandidate(m) {
		return []Result{ResultInvalidMove}, nil
	}
	p := g.player(actor)
	remaining, ok := removeCards(p.Hand, m.Cards())
	if !ok {
		return nil, fmt.Errorf("make move %v for %s: %w", m.Cards(), actor, ErrHandDesync)
	}
	if rearranged != nil && !sameCards(rearranged, remaining) {
		return []Result{ResultInvalidMove}, nil
	}

	var bursts [][]CardMovement
	for _, a := range m {
		bursts = append(bursts, g.placeAndResolve(actor, a)...)
	}
	if rearranged != nil {
		p.Hand = faces(rearranged)
	}
	placedMultiple := len(m) > 1
	if placedMultiple {
		bursts = append(bursts, g.drawN(actor, 1)...)
	} else {
		bursts = append(bursts, g.drawUpTo(actor, HandSize)...)
	}
	g.s.Moves = append(g.s.Moves, MoveMade{
		PlayedBy:      actor,
		Move:          stripOwners(m),
		At:            g.opts.now(),
		CardMovements: bursts,
	})
	g.clearDrawOffers()

	if g.s.HasEnded {
		g.candidates = nil
		return nil, nil
	}

	opp := actor.Opponent()
	oppCands := g.candidatesFor(opp)
	ownCands := g.candidatesFor(actor)
	oppCanMove := HasValidMove(oppCands)
	ownCanMove := HasValidMove(ownCands)

	var results []Result
	switch {
	case !oppCanMove && !ownCanMove:
		g.end(SideNone, ReasonDrawByRepetition)
	case !oppCanMove && !placedMultiple:
		results = append(results, turnSkipped(opp))
		g.candidates = ownCands
	default:
		g.s.Turn = opp
		g.candidates = oppCands
	}
	return results, nil
}

// PassMove gives up actor's turn after topping up the hand. Six consecutive
// passes end the game as a draw.
func (g *Game) PassMove(actor Side) []Result {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}
	}
	if actor != g.s.Turn {
		return []Result{ResultNotPlayersTurn}
	}
	drawn := g.drawUpTo(actor, HandSize)
	g.s.Moves = append(g.s.Moves, MoveMade{PlayedBy: actor, At: g.opts.now(), CardMovements: drawn, Passed: true})
	g.clearDrawOffers()

	if g.lastMovesArePasses(PassesToDraw) {
		g.end(SideNone, ReasonDrawByRepetition)
		return nil
	}
	g.s.Turn = actor.Opponent()
	g.refreshCandidates()
	return nil
}

func (g *Game) lastMovesArePasses(n int) bool {
	if len(g.s.Moves) < n {
		return false
	}
	for _, mm := range g.s.Moves[len(g.s.Moves)-n:] {
		if !mm.Passed {
			return false
		}
	}
	return true
}

func (g *Game) isValidCandidate(m Move) bool {
	for _, c := range g.candidates {
		if c.IsValid() && c.Move.Matches(m) {
			return true
		}
	}
	return false
}

func (g *Game) clearDrawOffers() {
	g.s.Host.OfferedDraw = false
	g.s.Guest.OfferedDraw = false
}

// ---------------------------------------------------------------------------
// Board mutation
// ---------------------------------------------------------------------------

// placeAndResolve places one card and applies the ace clash, middle capture
// and lane win rules in that order. Each returned burst is a group of card
// movements that happen together.
func (g *Game) placeAndResolve(s Side, a PlaceCardAttempt) [][]CardMovement {
	bursts := [][]CardMovement{{g.place(s, a)}}

	if destroyed := g.aceClash(s, a); len(destroyed) > 0 {
		return append(bursts, destroyed)
	}
	if captured := g.captureMiddle(s, a); len(captured) > 0 {
		return append(bursts, captured)
	}
	if won := g.winLane(s, a); len(won) > 0 {
		bursts = append(bursts, won)
	}
	return bursts
}

// place pushes the card on its row and removes it from the hand. Reinforcing
// one's own card that is not the most offensive keeps the most offensive card
// as the lane's last card played.
func (g *Game) place(s Side, a PlaceCardAttempt) CardMovement {
	lane := &g.s.Board[a.Lane]
	card := a.Card.Face().WithOwner(s)

	top := lane.Top(a.Row)
	reinforced := top != EmptyCard && top.Owner() == s
	mostOffensive := lane.MostOffensiveCard(s)
	topIsMostOffensive := mostOffensive != EmptyCard && top != EmptyCard && mostOffensive.SameCard(top)
	if reinforced && !topIsMostOffensive {
		lane.LastCardPlayed = mostOffensive
	} else {
		lane.LastCardPlayed = card
	}
	lane.Rows[a.Row] = append(lane.Rows[a.Row], card)

	p := g.player(s)
	idx := indexOfCard(p.Hand, card)
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return newMovement(HandStore(s, idx), BoardStore(a.Lane, a.Row), card)
}

// aceClash destroys the whole lane when a placed Ace meets an opposing Ace.
func (g *Game) aceClash(s Side, a PlaceCardAttempt) []CardMovement {
	if a.Card.Kind() != KindAce {
		return nil
	}
	lane := &g.s.Board[a.Lane]
	own, opp := lane.MostOffensiveCard(s), lane.MostOffensiveCard(s.Opponent())
	facing := own != EmptyCard && opp != EmptyCard && own.Kind() == KindAce && opp.Kind() == KindAce
	if !facing && !lane.topTwoAreOpposingAces() {
		return nil
	}
	lane.LastCardPlayed = EmptyCard
	lane.Advantage = SideNone
	var out []CardMovement
	for _, lc := range lane.grabAll() {
		g.s.Destroyed = append(g.s.Destroyed, lc.card.Face())
		out = append(out, newMovement(BoardStore(a.Lane, lc.row), DestroyedStore(), lc.card))
	}
	return out
}

// captureMiddle resolves a placement on the row next to the middle.
func (g *Game) captureMiddle(s Side, a PlaceCardAttempt) []CardMovement {
	if a.Row != lastHomeRow(s) {
		return nil
	}
	lane := &g.s.Board[a.Lane]
	switch lane.Advantage {
	case SideNone:
		swept := lane.grabAll()
		sortForMiddle(swept, s)
		out := make([]CardMovement, 0, len(swept))
		for _, lc := range swept {
			lane.Rows[MiddleRow] = append(lane.Rows[MiddleRow], lc.card)
			out = append(out, newMovement(BoardStore(a.Lane, lc.row), BoardStore(a.Lane, MiddleRow), lc.card))
		}
		lane.Advantage = s
		return out
	case s.Opponent():
		tops := lane.grabTopsOfFirstThreeRows(s)
		rest := lane.grabAll()
		var out []CardMovement
		for _, lc := range tops {
			lane.Rows[MiddleRow] = append(lane.Rows[MiddleRow], lc.card)
			out = append(out, newMovement(BoardStore(a.Lane, lc.row), BoardStore(a.Lane, MiddleRow), lc.card))
		}
		out = append(out, g.sweepToDeck(s, a.Lane, rest)...)
		lane.Advantage = s
		return out
	}
	return nil
}

// winLane resolves a placement on the mover's final row.
func (g *Game) winLane(s Side, a PlaceCardAttempt) []CardMovement {
	if a.Row != finalRow(s) {
		return nil
	}
	lane := &g.s.Board[a.Lane]
	lane.WonBy = s
	out := g.sweepToDeck(s, a.Lane, lane.grabAll())

	idx := a.Lane
	if g.s.RedJokerLane == nil {
		g.s.RedJokerLane = &idx
	} else {
		g.s.BlackJokerLane = &idx
	}
	if g.s.Board.LanesWonBy(s) >= LanesToWin {
		g.end(s, ReasonWon)
	}
	return out
}

// sweepToDeck adds lane cards to s's deck, unowned, and reshuffles it.
func (g *Game) sweepToDeck(s Side, lane int, cards []laneCard) []CardMovement {
	p := g.player(s)
	out := make([]CardMovement, 0, len(cards))
	for _, lc := range cards {
		p.Deck = append(p.Deck, lc.card.Face())
		out = append(out, newMovement(BoardStore(lane, lc.row), DeckStore(s), lc.card))
	}
	g.shuffle(p.Deck)
	return out
}

// ---------------------------------------------------------------------------
// Card list helpers
// ---------------------------------------------------------------------------

func indexOfCard(cards []Card, c Card) int {
	for i, x := range cards {
		if x.SameCard(c) {
			return i
		}
	}
	return -1
}

// removeCards returns a copy of from without one instance of each card in
// take, or false if any is missing.
func removeCards(from, take []Card) ([]Card, bool) {
	out := append([]Card(nil), from...)
	for _, c := range take {
		i := indexOfCard(out, c)
		if i < 0 {
			return nil, false
		}
		out = append(out[:i], out[i+1:]...)
	}
	return out, true
}

// sameCards compares two card lists as multisets of suit and kind.
func sameCards(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	rest, ok := removeCards(b, a)
	return ok && len(rest) == 0
}

func faces(cards []Card) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Face()
	}
	return out
}

func stripOwners(m Move) Move {
	out := m.clone()
	for i := range out {
		out[i].Card = out[i].Card.Face()
	}
	return out
}
