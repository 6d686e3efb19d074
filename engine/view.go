package engine

import "time"

// CardView is a card as shown to a client.
type CardView struct {
	Kind     string `json:"kind"`
	Suit     string `json:"suit"`
	PlayedBy Side   `json:"playedBy"`
}

func viewOf(c Card) *CardView {
	if c == EmptyCard {
		return nil
	}
	return &CardView{Kind: kindLetters[c.Kind()], Suit: suitSymbols[c.Suit()], PlayedBy: c.Owner()}
}

func viewsOf(cards []Card) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		out[i] = *viewOf(c)
	}
	return out
}

// LaneView is one lane as shown to a client.
type LaneView struct {
	Rows           [NumRows][]CardView `json:"rows"`
	Advantage      Side                `json:"advantage"`
	LastCardPlayed *CardView           `json:"lastCardPlayed"`
	WonBy          Side                `json:"wonBy"`
}

// MovementView is a CardMovement with the card hidden when the viewer may not see it.
type MovementView struct {
	From     CardStore `json:"from"`
	To       CardStore `json:"to"`
	Card     *CardView `json:"card"`
	Notation string    `json:"notation,omitempty"`
}

// MoveMadeView is a history entry as shown to one side.
type MoveMadeView struct {
	PlayedBy      Side             `json:"playedBy"`
	Cards         []PlacementView  `json:"placements"`
	At            time.Time        `json:"at"`
	CardMovements [][]MovementView `json:"cardMovements"`
	Passed        bool             `json:"passed"`
}

// PlacementView is one PlaceCardAttempt as shown to a client.
type PlacementView struct {
	Card CardView `json:"card"`
	Lane int      `json:"lane"`
	Row  int      `json:"row"`
}

// CandidateView is a candidate move as shown to the side to move.
type CandidateView struct {
	Placements    []PlacementView `json:"placements"`
	IsValid       bool            `json:"isValid"`
	InvalidReason string          `json:"invalidReason,omitempty"`
}

// ChatMessageView is a chat line with the censored text only.
type ChatMessageView struct {
	SentBy Side      `json:"sentBy"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// PlayerView is everything one side is allowed to see.
type PlayerView struct {
	GameCode                string            `json:"gameCode"`
	IsHost                  bool              `json:"isHost"`
	IsHostPlayersTurn       bool              `json:"isHostPlayersTurn"`
	NumCardsInOpponentsDeck int               `json:"numCardsInOpponentsDeck"`
	NumCardsInOpponentsHand int               `json:"numCardsInOpponentsHand"`
	NumCardsInPlayersDeck   int               `json:"numCardsInPlayersDeck"`
	Hand                    []CardView        `json:"hand"`
	Lanes                   []LaneView        `json:"lanes"`
	RedJokerLaneIndex       *int              `json:"redJokerLaneIndex"`
	BlackJokerLaneIndex     *int              `json:"blackJokerLaneIndex"`
	GameCreatedAt           time.Time         `json:"gameCreatedAt"`
	GameEndedAt             *time.Time        `json:"gameEndedAt"`
	MovesMade               []MoveMadeView    `json:"movesMade"`
	DurationOption          DurationOption    `json:"durationOption"`
	CandidateMoves          []CandidateView   `json:"candidateMoves"`
	HasEnded                bool              `json:"hasEnded"`
	WonBy                   Side              `json:"wonBy"`
	GameOverReason          GameOverReason    `json:"gameOverReason"`
	ChatMessages            []ChatMessageView `json:"chatMessages"`
	NumUnreadMessages       int               `json:"numUnreadMessages"`
	HostSecondsRemaining    float64           `json:"hostSecondsRemaining"`
	GuestSecondsRemaining   float64           `json:"guestSecondsRemaining"`
	HostName                string            `json:"hostName"`
	GuestName               string            `json:"guestName"`
	HasPendingDrawOffer     bool              `json:"hasPendingDrawOffer"`
	OpponentHasPendingOffer bool              `json:"opponentHasPendingOffer"`
	OpponentDisconnectedAt  *time.Time        `json:"opponentDisconnectedAt"`
}

// ViewFor projects the game for side s. Elapsed seconds come from the
// caller's clocks and only affect the countdown fields.
func (g *Game) ViewFor(s Side, hostElapsed, guestElapsed float64) PlayerView {
	me, opp := g.player(s), g.player(s.Opponent())
	total := float64(g.s.Duration.Seconds())

	v := PlayerView{
		GameCode:                g.s.Code,
		IsHost:                  s == Host,
		IsHostPlayersTurn:       g.s.Turn == Host,
		NumCardsInOpponentsDeck: len(opp.Deck),
		NumCardsInOpponentsHand: len(opp.Hand),
		NumCardsInPlayersDeck:   len(me.Deck),
		Hand:                    viewsOf(me.Hand),
		RedJokerLaneIndex:       cloneIntPtr(g.s.RedJokerLane),
		BlackJokerLaneIndex:     cloneIntPtr(g.s.BlackJokerLane),
		GameCreatedAt:           g.s.CreatedAt,
		GameEndedAt:             g.s.EndedAt,
		DurationOption:          g.s.Duration,
		HasEnded:                g.s.HasEnded,
		WonBy:                   g.s.WonBy,
		GameOverReason:          g.s.EndReason,
		NumUnreadMessages:       g.UnreadCount(s),
		HostSecondsRemaining:    total - hostElapsed,
		GuestSecondsRemaining:   total - guestElapsed,
		HostName:                g.s.Host.Name,
		GuestName:               g.s.Guest.Name,
		HasPendingDrawOffer:     me.OfferedDraw,
		OpponentHasPendingOffer: opp.OfferedDraw,
		OpponentDisconnectedAt:  opp.DisconnectedAt,
	}

	v.Lanes = make([]LaneView, NumLanes)
	for i := range g.s.Board {
		lane := &g.s.Board[i]
		lv := LaneView{Advantage: lane.Advantage, LastCardPlayed: viewOf(lane.LastCardPlayed), WonBy: lane.WonBy}
		for r := range lane.Rows {
			lv.Rows[r] = viewsOf(lane.Rows[r])
		}
		v.Lanes[i] = lv
	}

	v.MovesMade = make([]MoveMadeView, len(g.s.Moves))
	for i, mm := range g.s.Moves {
		v.MovesMade[i] = moveMadeView(mm, s)
	}

	if s == g.s.Turn {
		v.CandidateMoves = make([]CandidateView, len(g.candidates))
		for i, c := range g.candidates {
			v.CandidateMoves[i] = CandidateView{
				Placements:    placementViews(c.Move),
				IsValid:       c.IsValid(),
				InvalidReason: c.Reason.String(),
			}
		}
	}

	v.ChatMessages = make([]ChatMessageView, len(g.s.Chat))
	for i, m := range g.s.Chat {
		v.ChatMessages[i] = ChatMessageView{SentBy: m.SentBy, Text: m.Censored, SentAt: m.SentAt}
	}
	return v
}

func placementViews(m Move) []PlacementView {
	out := make([]PlacementView, len(m))
	for i, a := range m {
		out[i] = PlacementView{Card: *viewOf(a.Card), Lane: a.Lane, Row: a.Row}
	}
	return out
}

// moveMadeView hides cards the opponent drew from their own deck.
func moveMadeView(mm MoveMade, viewer Side) MoveMadeView {
	out := MoveMadeView{
		PlayedBy:      mm.PlayedBy,
		Cards:         placementViews(mm.Move),
		At:            mm.At,
		Passed:        mm.Passed,
		CardMovements: make([][]MovementView, len(mm.CardMovements)),
	}
	for i, burst := range mm.CardMovements {
		views := make([]MovementView, len(burst))
		for j, cm := range burst {
			mv := MovementView{From: cm.From, To: cm.To, Notation: cm.Notation}
			if !cm.From.IsDeckOf(viewer.Opponent()) {
				mv.Card = viewOf(cm.Card)
			}
			views[j] = mv
		}
		out.CardMovements[i] = views
	}
	return out
}
