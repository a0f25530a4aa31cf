package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultClear = 100
	clearAll     = 1000
	// clearWorkers bounds concurrent deleteMessage calls.
	clearWorkers = 16
)

var spinnerFrames = []string{"◜", "◝", "◞", "◟"}

func (r *Router) handleClear(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	param := strings.ToLower(firstWord(args))

	if param == "all" {
		warning, err := r.sendText(chatID, clearWarningText)
		if err != nil {
			return
		}
		r.st.armClear(chatID, clearRequest{
			commandID: msg.MessageID,
			warningID: warning.MessageID,
			deadline:  r.now().Add(r.t.confirmWindow),
		})
		r.goAsync("clear-expiry", func() {
			if sleep(ctx, r.t.confirmWindow) && r.st.disarmClear(chatID, warning.MessageID) {
				_ = r.deleteMessage(chatID, warning.MessageID)
			}
		})
		return
	}

	n := defaultClear
	if v, err := strconv.Atoi(param); err == nil && v > 0 {
		n = min(v, clearAll)
	}
	from := msg.MessageID
	r.goAsync("clear", func() { r.runClear(ctx, chatID, from, n) })
}

func (r *Router) handleConfirm(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	if _, ok := r.st.takeClear(chatID, r.now()); !ok {
		_, _ = r.sendText(chatID, clearNothingText)
		return
	}
	from := msg.MessageID
	r.goAsync("clear", func() { r.runClear(ctx, chatID, from, clearAll) })
}

// runClear deletes up to n messages counting down from fromID while a spinner
// animates, then posts a notice that removes itself after a while.
func (r *Router) runClear(ctx context.Context, chatID int64, fromID, n int) {
	status, err := r.sendMarkdown(chatID, "*Cleanup in progress* ◡", nil)
	if err != nil {
		return
	}

	animCtx, stopAnim := context.WithCancel(ctx)
	animDone := make(chan struct{})
	go func() {
		defer close(animDone)
		for i := 0; sleep(animCtx, r.t.frame); i++ {
			frame := spinnerFrames[i%len(spinnerFrames)]
			_ = r.edit(chatID, status.MessageID, "*Cleanup in progress* "+frame, tgbotapi.ModeMarkdown, nil)
		}
	}()

	var g errgroup.Group
	g.SetLimit(clearWorkers)
	for id := fromID; id > fromID-n && id > 0; id-- {
		g.Go(func() error {
			// Old or foreign messages fail to delete; that is expected.
			_ = r.deleteMessage(chatID, id)
			return nil
		})
	}
	_ = g.Wait()
	stopAnim()
	<-animDone

	_ = r.deleteMessage(chatID, status.MessageID)
	done, err := r.sendMarkdown(chatID, clearDoneText, nil)
	if err != nil {
		r.log.Warn("clear notice failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	if sleep(ctx, r.t.selfDestruct) {
		_ = r.deleteMessage(chatID, done.MessageID)
	}
}
