package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/domain"
)

// BotAPI is the subset of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// IsForbidden reports a 403 from Telegram: the bot was blocked or kicked.
func IsForbidden(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == http.StatusForbidden
	}
	return false
}

func apiErrorContains(err error, substr string) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return strings.Contains(strings.ToLower(tgErr.Message), substr)
	}
	return false
}

// unreachable wraps a 403 so the scheduler can tell it apart from transient failures.
func unreachable(err error) error {
	if IsForbidden(err) {
		return fmt.Errorf("%w: %v", domain.ErrChatUnreachable, err)
	}
	return err
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) (tgbotapi.Message, error) {
	sent, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	return sent, err
}

func (r *Router) sendMarkdown(chatID int64, text string, markup any) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := r.bot.Send(msg)
	if err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	return sent, err
}

// sendMarkdownOrPlain retries without parse mode when Telegram rejects the markup.
func (r *Router) sendMarkdownOrPlain(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := r.bot.Send(msg)
	if err == nil || IsForbidden(err) {
		return err
	}
	msg.ParseMode = ""
	_, err = r.bot.Send(msg)
	return err
}

func (r *Router) withKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	return r.bot.Send(msg)
}

func (r *Router) edit(chatID int64, msgID int, text, parseMode string, kb *tgbotapi.InlineKeyboardMarkup) error {
	e := tgbotapi.NewEditMessageText(chatID, msgID, text)
	e.ParseMode = parseMode
	e.ReplyMarkup = kb
	_, err := r.bot.Request(e)
	return err
}

func (r *Router) deleteMessage(chatID int64, msgID int) error {
	_, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, msgID))
	return err
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Debug("answer callback failed", zap.Error(err))
	}
}

func (r *Router) alertCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallbackWithAlert(id, text)); err != nil {
		r.log.Debug("answer callback failed", zap.Error(err))
	}
}

func (r *Router) chatAction(chatID int64, action string) {
	_, _ = r.bot.Request(tgbotapi.NewChatAction(chatID, action))
}

// keepAction repeats a chat action every 3s until the returned stop func is called.
func (r *Router) keepAction(ctx context.Context, chatID int64, action string) (stop func()) {
	r.chatAction(chatID, action)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(3 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.chatAction(chatID, action)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// sendWebAppButton posts a message whose only button opens url as a Telegram mini app.
func (r *Router) sendWebAppButton(chatID int64, text, label, url string) error {
	markup := map[string]any{
		"inline_keyboard": [][]map[string]any{{
			{"text": label, "web_app": map[string]string{"url": url}},
		}},
	}
	params := tgbotapi.Params{}
	params["chat_id"] = strconv.FormatInt(chatID, 10)
	params["text"] = text
	if err := params.AddInterface("reply_markup", markup); err != nil {
		return err
	}
	_, err := r.bot.MakeRequest("sendMessage", params)
	return err
}

// sleep waits for d or until ctx is done; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
