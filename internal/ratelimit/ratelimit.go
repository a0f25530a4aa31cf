// Package ratelimit keeps process-local sliding-window counters.
package ratelimit

import (
	"strconv"
	"sync"
	"time"
)

const (
	// LLMPerMinute caps model calls across all chats.
	LLMPerMinute = 60
	// LLMMinGap is the minimum spacing between two model calls from one chat.
	LLMMinGap = 333 * time.Millisecond
)

type window struct {
	size  time.Duration
	calls []time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	now func() time.Time

	mu      sync.Mutex
	user    map[string]*window
	global  map[string]*window
	llmMin  int64
	llmUsed int
	llmLast map[int64]time.Time
}

func New() *Limiter {
	return &Limiter{
		now:     time.Now,
		user:    map[string]*window{},
		global:  map[string]*window{},
		llmLast: map[int64]time.Time{},
	}
}

// Allow admits at most limit calls of action per user within the trailing window.
func (l *Limiter) Allow(userID int64, action string, limit int, size time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return take(l.user, userKey(userID, action), limit, size, l.now())
}

// AllowGlobal is Allow shared by every user.
func (l *Limiter) AllowGlobal(action string, limit int, size time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return take(l.global, action, limit, size, l.now())
}

// AllowLLM enforces the fixed-minute global quota and the per-chat gap.
// A rejected call consumes nothing.
func (l *Limiter) AllowLLM(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	minute := now.Unix() / 60
	if minute != l.llmMin {
		l.llmMin = minute
		l.llmUsed = 0
	}
	if l.llmUsed >= LLMPerMinute {
		return false
	}
	if last, ok := l.llmLast[chatID]; ok && now.Sub(last) < LLMMinGap {
		return false
	}
	l.llmUsed++
	l.llmLast[chatID] = now
	return true
}

// Cleanup forgets expired calls and idle keys.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, m := range []map[string]*window{l.user, l.global} {
		for k, w := range m {
			w.calls = prune(w.calls, now, w.size)
			if len(w.calls) == 0 {
				delete(m, k)
			}
		}
	}
	for id, last := range l.llmLast {
		if now.Sub(last) >= time.Minute {
			delete(l.llmLast, id)
		}
	}
}

func take(m map[string]*window, key string, limit int, size time.Duration, now time.Time) bool {
	w, ok := m[key]
	if !ok {
		w = &window{size: size}
		m[key] = w
	}
	w.size = size
	w.calls = prune(w.calls, now, size)
	if len(w.calls) >= limit {
		return false
	}
	w.calls = append(w.calls, now)
	return true
}

// prune keeps calls strictly newer than now-size; calls is in ascending order.
func prune(calls []time.Time, now time.Time, size time.Duration) []time.Time {
	i := 0
	for i < len(calls) && now.Sub(calls[i]) >= size {
		i++
	}
	if i == 0 {
		return calls
	}
	return append(calls[:0], calls[i:]...)
}

func userKey(userID int64, action string) string {
	return action + ":" + strconv.FormatInt(userID, 10)
}
