package match

import "github.com/jason-s-yu/chessofcards/engine"

// EventType names a server-to-client event.
type EventType string

const (
	EventGameState            EventType = "game_state"
	EventGameOver             EventType = "game_over"
	EventActionRejected       EventType = "action_rejected"
	EventTurnSkipped          EventType = "turn_skipped" // Public: side had no legal placement.
	EventDrawOffered          EventType = "draw_offered" // Private: sent to the side being offered.
	EventOpponentDisconnected EventType = "opponent_disconnected"
	EventOpponentReconnected  EventType = "opponent_reconnected"
)

// Event is the payload handed to SendFn for one side.
type Event struct {
	Type    EventType             `json:"type"`
	State   *engine.PlayerView    `json:"state,omitempty"`
	Results []engine.Result       `json:"results,omitempty"`
	Side    engine.Side           `json:"side,omitempty"`
	WonBy   engine.Side           `json:"wonBy,omitempty"`
	Reason  engine.GameOverReason `json:"reason,omitempty"`
	Message string                `json:"message,omitempty"`
}
