package engine

import (
	"strings"
	"time"
)

// ChatMessage keeps both what was sent and what is shown.
type ChatMessage struct {
	SentBy   Side      `json:"sentBy"`
	Raw      string    `json:"raw"`
	Censored string    `json:"censored"`
	SentAt   time.Time `json:"sentAt"`
}

// SendChatMessage appends a message from actor. Chat stays open after the
// game ends.
func (g *Game) SendChatMessage(actor Side, text string) []Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Result{ResultMessageHasNoContent}
	}
	g.s.Chat = append(g.s.Chat, ChatMessage{
		SentBy:   actor,
		Raw:      text,
		Censored: g.opts.censor(text),
		SentAt:   g.opts.now(),
	})
	return nil
}

// MarkLatestReadChatMessageIndex records the newest message actor has seen.
// Indexes past the end are clamped.
func (g *Game) MarkLatestReadChatMessageIndex(actor Side, idx int) []Result {
	if idx < 0 || len(g.s.Chat) == 0 {
		return nil
	}
	if idx >= len(g.s.Chat) {
		idx = len(g.s.Chat) - 1
	}
	g.player(actor).LastReadChat = &idx
	return nil
}

// UnreadCount returns how many messages s has not read.
func (g *Game) UnreadCount(s Side) int {
	read := g.player(s).LastReadChat
	if read == nil {
		return len(g.s.Chat)
	}
	if n := len(g.s.Chat) - 1 - *read; n > 0 {
		return n
	}
	return 0
}
