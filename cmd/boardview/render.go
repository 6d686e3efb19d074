package main

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/pterm/pterm"
)

const laneLetters = "abcde"

func render(v engine.PlayerView, color bool) error {
	header := pterm.DefaultBox.WithTitle(pterm.LightYellow("|" + v.GameCode + "|")).WithTitleTopCenter().
		WithHorizontalPadding(2).Sprint(summary(v))
	pterm.Println(header)

	if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(boardTable(v, color)).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("Hand: %s", strings.Join(handCells(v.Hand, color), "  "))
	if n := len(validCandidates(v)); len(v.CandidateMoves) > 0 {
		pterm.Info.Printfln("%d of %d candidate moves are legal", n, len(v.CandidateMoves))
	}
	return nil
}

func summary(v engine.PlayerView) string {
	turn := v.GuestName
	if v.IsHostPlayersTurn {
		turn = v.HostName
	}
	lines := []string{
		fmt.Sprintf("%s (host) vs %s (guest), %s", v.HostName, v.GuestName, v.DurationOption),
		fmt.Sprintf("Clocks: %s / %s", clock(v.HostSecondsRemaining), clock(v.GuestSecondsRemaining)),
		fmt.Sprintf("Decks: mine %d, theirs %d. Their hand: %d", v.NumCardsInPlayersDeck, v.NumCardsInOpponentsDeck, v.NumCardsInOpponentsHand),
	}
	if v.HasEnded {
		result := "draw"
		if v.WonBy != engine.SideNone {
			result = v.WonBy.String() + " won"
		}
		lines = append(lines, fmt.Sprintf("Game over: %s (%s)", result, v.GameOverReason))
	} else {
		lines = append(lines, "To move: "+turn)
	}
	return strings.Join(lines, "\n")
}

func clock(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	s := int(secs)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// boardTable lays the board out with the viewer's home rows at the bottom.
// Each cell shows the row's top card and the stack height.
func boardTable(v engine.PlayerView, color bool) pterm.TableData {
	head := []string{""}
	for i := range v.Lanes {
		head = append(head, laneHeader(v, i))
	}
	data := pterm.TableData{head}

	for i := range engine.NumRows {
		row := engine.NumRows - 1 - i
		if !v.IsHost {
			row = i
		}
		line := []string{fmt.Sprint(row + 1)}
		for _, lane := range v.Lanes {
			line = append(line, cell(lane.Rows[row], color))
		}
		data = append(data, line)
	}

	footer := []string{"adv"}
	for _, lane := range v.Lanes {
		footer = append(footer, sideMark(lane.Advantage))
	}
	return append(data, footer)
}

func laneHeader(v engine.PlayerView, i int) string {
	h := string(laneLetters[i])
	if v.Lanes[i].WonBy != engine.SideNone {
		h += " won:" + sideMark(v.Lanes[i].WonBy)
	}
	if v.RedJokerLaneIndex != nil && *v.RedJokerLaneIndex == i {
		h += " (R)"
	}
	if v.BlackJokerLaneIndex != nil && *v.BlackJokerLaneIndex == i {
		h += " (B)"
	}
	return h
}

func cell(stack []engine.CardView, color bool) string {
	if len(stack) == 0 {
		return "."
	}
	top := stack[len(stack)-1]
	s := cardText(top, color)
	if len(stack) > 1 {
		s += fmt.Sprintf(" x%d", len(stack))
	}
	return s
}

func cardText(c engine.CardView, color bool) string {
	s := c.Kind + c.Suit
	if !color {
		return s
	}
	switch c.PlayedBy {
	case engine.Host:
		return pterm.LightCyan(s)
	case engine.Guest:
		return pterm.LightRed(s)
	}
	return s
}

func handCells(hand []engine.CardView, color bool) []string {
	out := make([]string, len(hand))
	for i, c := range hand {
		out[i] = cardText(c, color)
	}
	return out
}

func sideMark(s engine.Side) string {
	switch s {
	case engine.Host:
		return "H"
	case engine.Guest:
		return "G"
	}
	return "-"
}

func validCandidates(v engine.PlayerView) []engine.CandidateView {
	var out []engine.CandidateView
	for _, c := range v.CandidateMoves {
		if c.IsValid {
			out = append(out, c)
		}
	}
	return out
}
