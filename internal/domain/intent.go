package domain

import (
	"strings"
	"time"
)

// IntentKind is the coarse category the LLM assigns to a free-form message.
type IntentKind string

const (
	IntentMeme  IntentKind = "meme"
	IntentOther IntentKind = "other"
)

// Intent is the parsed result of intent detection.
type Intent struct {
	Kind      IntentKind
	Subreddit string // empty means random
}

// ParseIntent reads "meme:random", "meme:<subreddit>" or anything else as other.
func ParseIntent(raw string) Intent {
	s := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), "\"'` .")
	if !strings.HasPrefix(s, "meme:") {
		return Intent{Kind: IntentOther}
	}
	sub := strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(s, "meme:")), "r/")
	if sub == "random" {
		sub = ""
	}
	return Intent{Kind: IntentMeme, Subreddit: sub}
}

// Reminder is a one-shot message scheduled for a chat.
type Reminder struct {
	ID        int64
	ChatID    int64
	Text      string
	FireAt    time.Time // UTC
	CreatedAt time.Time // UTC
}
