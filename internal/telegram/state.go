package telegram

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// imagineSession is a prompt waiting for a model pick.
type imagineSession struct {
	prompt  string
	replyTo int
}

// clearRequest is an armed "/clear all" waiting for /confirm.
type clearRequest struct {
	commandID int
	warningID int
	deadline  time.Time
}

// state holds per-chat conversational state. Nothing here survives a restart.
type state struct {
	mu sync.Mutex

	transcribe  map[int64]bool
	translate   map[int64]string // chatID -> text awaiting a target language
	imagine     map[int64]imagineSession
	prompts     map[string]string // short id -> prompt, for regenerate buttons
	promptOrder []string
	memePref    map[int64]string
	clear       map[int64]clearRequest
	downloading map[int64]bool // userID
	maintenance bool
}

// maxPrompts bounds the regenerate-prompt table.
const maxPrompts = 500

func newState() *state {
	return &state{
		transcribe:  map[int64]bool{},
		translate:   map[int64]string{},
		imagine:     map[int64]imagineSession{},
		prompts:     map[string]string{},
		memePref:    map[int64]string{},
		clear:       map[int64]clearRequest{},
		downloading: map[int64]bool{},
	}
}

func (s *state) setTranscribe(chatID int64, on bool) (was bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	was = s.transcribe[chatID]
	if on {
		s.transcribe[chatID] = true
	} else {
		delete(s.transcribe, chatID)
	}
	return was
}

func (s *state) setTranslate(chatID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translate[chatID] = text
}

func (s *state) takeTranslate(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.translate[chatID]
	delete(s.translate, chatID)
	return text, ok
}

func (s *state) peekTranslate(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.translate[chatID]
	return text, ok
}

func (s *state) setImagine(chatID int64, sess imagineSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imagine[chatID] = sess
}

func (s *state) takeImagine(chatID int64) (imagineSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.imagine[chatID]
	delete(s.imagine, chatID)
	return sess, ok
}

// rememberPrompt stores prompt under a short id that fits in callback data.
func (s *state) rememberPrompt(prompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()[:8]
	s.prompts[id] = prompt
	s.promptOrder = append(s.promptOrder, id)
	if len(s.promptOrder) > maxPrompts {
		delete(s.prompts, s.promptOrder[0])
		s.promptOrder = s.promptOrder[1:]
	}
	return id
}

func (s *state) prompt(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[id]
	return p, ok
}

func (s *state) setMemePref(chatID int64, sub string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub == "" {
		delete(s.memePref, chatID)
		return
	}
	s.memePref[chatID] = sub
}

func (s *state) memePrefFor(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memePref[chatID]
}

func (s *state) armClear(chatID int64, req clearRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear[chatID] = req
}

// takeClear returns the armed request if it has not expired.
func (s *state) takeClear(chatID int64, now time.Time) (clearRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.clear[chatID]
	delete(s.clear, chatID)
	if !ok || now.After(req.deadline) {
		return clearRequest{}, false
	}
	return req, true
}

// disarmClear drops the request only if it is still the one identified by warningID.
func (s *state) disarmClear(chatID int64, warningID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.clear[chatID]; ok && req.warningID == warningID {
		delete(s.clear, chatID)
		return true
	}
	return false
}

// startDownload marks userID busy; it fails if a download is already running.
func (s *state) startDownload(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloading[userID] {
		return false
	}
	s.downloading[userID] = true
	return true
}

func (s *state) finishDownload(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.downloading, userID)
}

func (s *state) setMaintenance(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = on
}

func (s *state) inMaintenance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maintenance
}
