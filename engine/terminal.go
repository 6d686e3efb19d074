package engine

import "time"

// end moves the game to its terminal state. Later calls are ignored.
func (g *Game) end(winner Side, reason GameOverReason) {
	if g.s.HasEnded {
		return
	}
	now := g.opts.now()
	g.s.HasEnded = true
	g.s.WonBy = winner
	g.s.EndReason = reason
	g.s.EndedAt = &now
	g.candidates = nil
}

// EndedAt returns when the game ended, or nil.
func (g *Game) EndedAt() *time.Time { return g.s.EndedAt }

// Resign ends the game in the opponent's favor.
func (g *Game) Resign(actor Side) []Result {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}
	}
	g.end(actor.Opponent(), ReasonResigned)
	return nil
}

// OfferDraw records a pending draw offer from actor.
func (g *Game) OfferDraw(actor Side) []Result {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}
	}
	p := g.player(actor)
	if p.OfferedDraw {
		return []Result{ResultAlreadyOfferedDraw}
	}
	p.OfferedDraw = true
	return nil
}

// HasOfferedDraw reports whether s has a pending draw offer.
func (g *Game) HasOfferedDraw(s Side) bool { return g.player(s).OfferedDraw }

// AcceptDrawOffer ends the game without a winner if the opponent has offered.
func (g *Game) AcceptDrawOffer(actor Side) []Result {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}
	}
	if !g.player(actor.Opponent()).OfferedDraw {
		return []Result{ResultNoOfferToAccept}
	}
	g.end(SideNone, ReasonDrawByAgreement)
	return nil
}

// RearrangeHand reorders actor's hand. cards must be the same multiset.
func (g *Game) RearrangeHand(actor Side, cards []Card) []Result {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}
	}
	p := g.player(actor)
	if !sameCards(cards, p.Hand) {
		return []Result{ResultInvalidCards}
	}
	p.Hand = faces(cards)
	if actor == g.s.Turn {
		g.refreshCandidates()
	}
	return nil
}

// MarkDisconnected stamps actor as disconnected. When both sides are
// disconnected the game ends without a winner.
func (g *Game) MarkDisconnected(actor Side) []Result {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}
	}
	now := g.opts.now()
	g.player(actor).DisconnectedAt = &now
	if g.s.Host.DisconnectedAt != nil && g.s.Guest.DisconnectedAt != nil {
		g.end(SideNone, ReasonDisconnected)
	}
	return nil
}

// ReconnectPlayer reattaches the first disconnected side (Host before Guest)
// to a new connection, updating its name when one is given.
func (g *Game) ReconnectPlayer(connID, name string) (Side, []Result) {
	if g.s.HasEnded {
		return SideNone, []Result{ResultGameHasEnded}
	}
	for _, s := range []Side{Host, Guest} {
		if g.player(s).DisconnectedAt != nil {
			return s, g.ReconnectSide(s, connID, name)
		}
	}
	return SideNone, []Result{ResultNotDisconnected}
}

// ReconnectSide reattaches s to a new connection.
func (g *Game) ReconnectSide(s Side, connID, name string) []Result {
	if g.s.HasEnded {
		return []Result{ResultGameHasEnded}
	}
	p := g.player(s)
	if p.DisconnectedAt == nil {
		return []Result{ResultNotDisconnected}
	}
	p.DisconnectedAt = nil
	p.ConnectionID = connID
	if name != "" {
		p.Name = name
	}
	return nil
}

// EndByClockExpired ends the game when the side to move runs out of time.
func (g *Game) EndByClockExpired() {
	g.end(g.s.Turn.Opponent(), ReasonRanOutOfTime)
}

// EndByDisconnection ends the game in favor of the side still connected.
// With both connected or both gone there is no winner.
func (g *Game) EndByDisconnection() {
	winner := SideNone
	switch {
	case g.s.Host.DisconnectedAt == nil && g.s.Guest.DisconnectedAt != nil:
		winner = Host
	case g.s.Guest.DisconnectedAt == nil && g.s.Host.DisconnectedAt != nil:
		winner = Guest
	}
	g.end(winner, ReasonDisconnected)
}
