package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/araneaimer/nitebot/internal/domain"
)

var ErrAtomicWrite = errors.New("subscriptions: atomic write failed")

// Subscriptions is the chat → content → schedule table, persisted as one JSON file.
// Every mutation rewrites the whole file.
type Subscriptions struct {
	path string

	mu   sync.RWMutex
	data map[int64]domain.ChatSubscriptions
}

// OpenSubscriptions loads the file at path. Missing or empty files start empty;
// an unreadable document is reset to {} on disk.
func OpenSubscriptions(path string) (*Subscriptions, error) {
	s := &Subscriptions{path: path, data: map[int64]domain.ChatSubscriptions{}}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load re-reads the file, replacing the in-memory table.
func (s *Subscriptions) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = map[int64]domain.ChatSubscriptions{}
			return nil
		}
		return fmt.Errorf("read subscriptions %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		s.data = map[int64]domain.ChatSubscriptions{}
		return nil
	}

	var doc map[string]domain.ChatSubscriptions
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.data = map[int64]domain.ChatSubscriptions{}
		return s.flushLocked()
	}
	data := make(map[int64]domain.ChatSubscriptions, len(doc))
	for k, v := range doc {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || len(v) == 0 {
			continue
		}
		data[id] = v
	}
	s.data = data
	return nil
}

// All returns a deep copy of the table.
func (s *Subscriptions) All() map[int64]domain.ChatSubscriptions {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.ChatSubscriptions, len(s.data))
	for id, subs := range s.data {
		out[id] = cloneChat(subs)
	}
	return out
}

// Get returns a copy of one chat's subscriptions, nil when it has none.
func (s *Subscriptions) Get(chatID int64) domain.ChatSubscriptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs, ok := s.data[chatID]
	if !ok {
		return nil
	}
	return cloneChat(subs)
}

// Set overwrites the plan for one content type in a chat.
func (s *Subscriptions) Set(chatID int64, ct domain.ContentType, sub domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.data[chatID]
	if subs == nil {
		subs = domain.ChatSubscriptions{}
		s.data[chatID] = subs
	}
	subs[ct] = domain.Subscription{Times: append([]string(nil), sub.Times...), Timezone: sub.Timezone}
	return s.flushLocked()
}

// AddTime merges hhmm into the chat's plan for ct and sets its timezone.
// It returns the resulting plan.
func (s *Subscriptions) AddTime(chatID int64, ct domain.ContentType, hhmm, tz string) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.data[chatID]
	if subs == nil {
		subs = domain.ChatSubscriptions{}
		s.data[chatID] = subs
	}
	next := subs[ct].WithTime(hhmm)
	next.Timezone = tz
	subs[ct] = next
	return next, s.flushLocked()
}

// Remove drops one content type; the chat disappears once it has none left.
// It reports whether anything was removed.
func (s *Subscriptions) Remove(chatID int64, ct domain.ContentType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.data[chatID]
	if !ok {
		return false, nil
	}
	if _, ok := subs[ct]; !ok {
		return false, nil
	}
	delete(subs, ct)
	if len(subs) == 0 {
		delete(s.data, chatID)
	}
	return true, s.flushLocked()
}

// RemoveChat drops every subscription of a chat.
func (s *Subscriptions) RemoveChat(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[chatID]; !ok {
		return false, nil
	}
	delete(s.data, chatID)
	return true, s.flushLocked()
}

// flushLocked writes the table atomically: temp file, fsync, rename.
func (s *Subscriptions) flushLocked() error {
	doc := make(map[string]domain.ChatSubscriptions, len(s.data))
	for id, subs := range s.data {
		doc[strconv.FormatInt(id, 10)] = subs
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrAtomicWrite, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write temp: %v", ErrAtomicWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp: %v", ErrAtomicWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", ErrAtomicWrite, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: rename temp: %v", ErrAtomicWrite, err)
	}
	return nil
}

func cloneChat(in domain.ChatSubscriptions) domain.ChatSubscriptions {
	out := make(domain.ChatSubscriptions, len(in))
	for ct, sub := range in {
		out[ct] = domain.Subscription{Times: append([]string(nil), sub.Times...), Timezone: sub.Timezone}
	}
	return out
}
