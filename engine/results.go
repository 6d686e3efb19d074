package engine

import "encoding/json"

// Result is an outcome code reported by a Game operation. Operations return
// a list of results; an empty list means the operation succeeded quietly.
type Result uint8

const (
	ResultInvalidMove Result = iota + 1
	ResultNotPlayersTurn
	ResultNoOfferToAccept
	ResultAlreadyOfferedDraw
	ResultInvalidCards
	ResultHostTurnSkippedNoMoves
	ResultGuestTurnSkippedNoMoves
	ResultMessageHasNoContent
	ResultGameHasEnded
	ResultNotDisconnected
)

var resultNames = [...]string{
	ResultInvalidMove:             "InvalidMove",
	ResultNotPlayersTurn:          "NotPlayersTurn",
	ResultNoOfferToAccept:         "NoOfferToAccept",
	ResultAlreadyOfferedDraw:      "AlreadyOfferedDraw",
	ResultInvalidCards:            "InvalidCards",
	ResultHostTurnSkippedNoMoves:  "HostTurnSkippedNoMoves",
	ResultGuestTurnSkippedNoMoves: "GuestTurnSkippedNoMoves",
	ResultMessageHasNoContent:     "MessageHasNoContent",
	ResultGameHasEnded:            "GameHasEnded",
	ResultNotDisconnected:         "NotDisconnected",
}

func (r Result) String() string {
	if int(r) < len(resultNames) && resultNames[r] != "" {
		return resultNames[r]
	}
	return "Unknown"
}

func (r Result) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// IsRejection reports whether the result means the operation changed nothing.
// Turn-skip notices accompany a successful move.
func (r Result) IsRejection() bool {
	return r != ResultHostTurnSkippedNoMoves && r != ResultGuestTurnSkippedNoMoves
}

func turnSkipped(s Side) Result {
	if s == Host {
		return ResultHostTurnSkippedNoMoves
	}
	return ResultGuestTurnSkippedNoMoves
}

// Has reports whether want appears in results.
func Has(results []Result, want Result) bool {
	for _, r := range results {
		if r == want {
			return true
		}
	}
	return false
}
