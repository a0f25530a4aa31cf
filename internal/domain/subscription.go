package domain

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// ContentType is a kind of content a chat can subscribe to.
type ContentType string

const (
	ContentFact ContentType = "fact"
	ContentJoke ContentType = "joke"
	ContentMeme ContentType = "meme"
)

// ContentTypes lists subscribable content in display order.
var ContentTypes = []ContentType{ContentFact, ContentJoke, ContentMeme}

var ErrUnknownContent = errors.New("unknown content type")

// ParseContentType accepts singular or plural forms ("fact", "facts").
func ParseContentType(s string) (ContentType, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for _, ct := range ContentTypes {
		if string(ct) == s {
			return ct, nil
		}
	}
	return "", ErrUnknownContent
}

// Subscription is a daily delivery plan for one content type.
type Subscription struct {
	Times    []string `json:"times"`
	Timezone string   `json:"timezone"`
}

// ChatSubscriptions maps content type to its delivery plan for a single chat.
type ChatSubscriptions map[ContentType]Subscription

// Location returns the subscription's timezone, falling back to UTC.
func (s Subscription) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DueAt reports whether now, in the subscription's timezone, matches one of its HH:MM times.
func (s Subscription) DueAt(now time.Time) bool {
	local := now.In(s.Location()).Format("15:04")
	return slices.Contains(s.Times, local)
}

// WithTime returns a copy with hhmm added in sorted order; duplicates are ignored.
func (s Subscription) WithTime(hhmm string) Subscription {
	out := Subscription{Timezone: s.Timezone, Times: slices.Clone(s.Times)}
	if !slices.Contains(out.Times, hhmm) {
		out.Times = append(out.Times, hhmm)
		slices.Sort(out.Times)
	}
	return out
}

// ErrChatUnreachable marks a delivery the platform refused for good, e.g. the bot was blocked.
var ErrChatUnreachable = errors.New("chat unreachable")
