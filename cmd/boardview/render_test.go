package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView(t *testing.T, side engine.Side) engine.PlayerView {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g := engine.NewGame("h", "Hana", "g", "Gus", engine.Options{Code: "ABCD", Seed: 42, Now: func() time.Time { return now }})
	for _, c := range g.Candidates() {
		if c.IsValid() {
			_, err := g.MakeMove(engine.Host, c.Move, nil)
			require.NoError(t, err)
			break
		}
	}
	return g.ViewFor(side, 10, 0)
}

func TestBoardTableOrientation(t *testing.T) {
	hv := sampleView(t, engine.Host)
	data := boardTable(hv, false)
	require.Len(t, data, engine.NumRows+2)
	assert.Equal(t, []string{"", "a", "b", "c", "d", "e"}, data[0])
	assert.Equal(t, "7", data[1][0])
	assert.Equal(t, "1", data[engine.NumRows][0])
	assert.Equal(t, "adv", data[engine.NumRows+1][0])

	gv := sampleView(t, engine.Guest)
	gdata := boardTable(gv, false)
	assert.Equal(t, "1", gdata[1][0])
	assert.Equal(t, "7", gdata[engine.NumRows][0])
}

func TestBoardTableShowsPlacedCard(t *testing.T) {
	v := sampleView(t, engine.Host)
	var placed int
	for _, row := range boardTable(v, false)[1 : engine.NumRows+1] {
		for _, c := range row[1:] {
			if c != "." {
				placed++
			}
		}
	}
	assert.Equal(t, 1, placed)
}

func TestCellAndHeader(t *testing.T) {
	stack := []engine.CardView{{Kind: "9", Suit: "♣", PlayedBy: engine.Host}, {Kind: "K", Suit: "♣", PlayedBy: engine.Guest}}
	assert.Equal(t, "K♣ x2", cell(stack, false))
	assert.Equal(t, ".", cell(nil, false))

	red := 2
	v := engine.PlayerView{Lanes: make([]engine.LaneView, engine.NumLanes), RedJokerLaneIndex: &red}
	v.Lanes[2].WonBy = engine.Guest
	assert.Equal(t, "c won:G (R)", laneHeader(v, 2))
}

func TestSummaryAndClock(t *testing.T) {
	assert.Equal(t, "2:50", clock(170.4))
	assert.Equal(t, "0:00", clock(-3))

	v := sampleView(t, engine.Guest)
	s := summary(v)
	assert.Contains(t, s, "Hana (host) vs Gus (guest)")
	assert.Contains(t, s, "To move: Gus")
}

func TestDecodeViewAcceptsEvent(t *testing.T) {
	v := sampleView(t, engine.Host)
	raw, err := json.Marshal(map[string]any{"type": "game_state", "state": v})
	require.NoError(t, err)

	got, err := decodeView(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "ABCD", got.GameCode)
	assert.Equal(t, v.Hand, got.Hand)

	raw, err = json.Marshal(v)
	require.NoError(t, err)
	got, err = decodeView(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "Hana", got.HostName)
}
