package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/domain"
)

// --- Daily subscriptions ---

func (r *Router) handleSubscribe(_ context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	f := strings.Fields(args)
	if len(f) < 2 {
		_, _ = r.sendMarkdown(chatID, subscribeUsageText, nil)
		return
	}
	ct, err := domain.ParseContentType(f[0])
	if err != nil {
		_, _ = r.sendMarkdown(chatID, subscribeUsageText, nil)
		return
	}
	hhmm, err := domain.NormalizeClock(f[1])
	if err != nil {
		_, _ = r.sendText(chatID, "❌ Invalid time. Use HH:MM, e.g. 09:00.")
		return
	}
	tz := r.opts.DefaultTZ.String()
	if len(f) > 2 {
		if tz, err = r.resolveZone(strings.Join(f[2:], " ")); err != nil {
			_, _ = r.sendText(chatID, "❌ Unknown timezone. Try a zone like Europe/London or a city name.")
			return
		}
	}

	sub, err := r.subs.AddTime(chatID, ct, hhmm, tz)
	if err != nil {
		r.log.Error("subscribe failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, genericError)
		return
	}
	_, _ = r.sendText(chatID, fmt.Sprintf("✅ Subscribed to daily %ss at %s (%s).",
		ct, strings.Join(sub.Times, ", "), zoneOrUTC(sub.Timezone)))
}

// resolveZone accepts an IANA name first and falls back to the place-name locator.
func (r *Router) resolveZone(s string) (string, error) {
	if tz, err := domain.ValidateTZ(s); err == nil {
		return tz, nil
	}
	if r.locator == nil {
		return "", domain.ErrUnknownZone
	}
	return r.locator.Find(s)
}

func (r *Router) handleUnsubscribe(_ context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	arg := strings.ToLower(firstWord(args))
	if arg == "" {
		_, _ = r.sendMarkdown(chatID, unsubscribeUsageText, nil)
		return
	}
	if arg == "all" {
		removed, err := r.subs.RemoveChat(chatID)
		switch {
		case err != nil:
			r.log.Error("unsubscribe failed", zap.Error(err), zap.Int64("chatID", chatID))
			_, _ = r.sendText(chatID, genericError)
		case removed:
			_, _ = r.sendText(chatID, "✅ Unsubscribed from all daily content.")
		default:
			_, _ = r.sendText(chatID, noSubscriptionsText)
		}
		return
	}
	ct, err := domain.ParseContentType(arg)
	if err != nil {
		_, _ = r.sendMarkdown(chatID, unsubscribeUsageText, nil)
		return
	}
	text, err := r.unsubscribe(chatID, ct)
	if err != nil {
		_, _ = r.sendText(chatID, genericError)
		return
	}
	_, _ = r.sendText(chatID, text)
}

func (r *Router) unsubscribe(chatID int64, ct domain.ContentType) (string, error) {
	removed, err := r.subs.Remove(chatID, ct)
	if err != nil {
		r.log.Error("unsubscribe failed", zap.Error(err), zap.Int64("chatID", chatID))
		return "", err
	}
	if !removed {
		return fmt.Sprintf("You're not subscribed to daily %ss.", ct), nil
	}
	return fmt.Sprintf("✅ Unsubscribed from daily %ss.", ct), nil
}

func (r *Router) handleSubscriptions(_ context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	subs := r.subs.Get(chatID)
	if len(subs) == 0 {
		_, _ = r.sendText(chatID, noSubscriptionsText)
		return
	}
	var b strings.Builder
	b.WriteString("📬 Your daily subscriptions:\n")
	for _, ct := range domain.ContentTypes {
		sub, ok := subs[ct]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n• %ss: %s (%s)", contentTitle(ct), strings.Join(sub.Times, ", "), zoneOrUTC(sub.Timezone))
	}
	_, _ = r.sendText(chatID, b.String())
}

func zoneOrUTC(tz string) string {
	if tz == "" {
		return "UTC"
	}
	return tz
}

func (r *Router) handleUnsubCallback(cb *tgbotapi.CallbackQuery) {
	ct, err := domain.ParseContentType(strings.TrimPrefix(cb.Data, "unsub_"))
	if err != nil {
		r.answerCallback(cb.ID, "")
		return
	}
	text, err := r.unsubscribe(cb.Message.Chat.ID, ct)
	if err != nil {
		r.alertCallback(cb.ID, genericError)
		return
	}
	r.alertCallback(cb.ID, text)
}

// handleAnotherCallback replaces a delivered fact, joke or meme with a fresh one,
// keeping the buttons of the original message.
func (r *Router) handleAnotherCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	ct, err := domain.ParseContentType(strings.TrimSuffix(cb.Data, "_another"))
	if err != nil {
		r.answerCallback(cb.ID, "")
		return
	}
	var markup any
	if cb.Message.ReplyMarkup != nil {
		markup = *cb.Message.ReplyMarkup
	}
	r.chatAction(chatID, tgbotapi.ChatTyping)
	if err := r.deliver(ctx, chatID, ct, markup); err != nil {
		r.log.Warn("refresh content failed", zap.Error(err), zap.Int64("chatID", chatID), zap.String("type", string(ct)))
		r.alertCallback(cb.ID, "Sorry, something went wrong. Please try again.")
		return
	}
	_ = r.deleteMessage(chatID, cb.Message.MessageID)
	r.answerCallback(cb.ID, "")
}

// DeliverContent sends one scheduled fact, joke or meme with the subscription buttons.
func (r *Router) DeliverContent(ctx context.Context, chatID int64, ct domain.ContentType) error {
	return unreachable(r.deliver(ctx, chatID, ct, subscriptionKeyboard(ct)))
}

func (r *Router) deliver(ctx context.Context, chatID int64, ct domain.ContentType, markup any) error {
	var (
		text string
		err  error
	)
	switch ct {
	case domain.ContentMeme:
		meme, err := r.reddit.Random(ctx, "")
		if err != nil {
			return err
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(meme.URL))
		photo.Caption = meme.Title
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		_, err = r.bot.Send(photo)
		return err
	case domain.ContentFact:
		text, err = r.content.Fact(ctx, "random")
	case domain.ContentJoke:
		text, err = r.content.Joke(ctx)
	default:
		return domain.ErrUnknownContent
	}
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err = r.bot.Send(msg)
	return err
}

// --- Reminders ---

func (r *Router) handleRemind(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	durText, text := splitFirst(args)
	if durText == "" || text == "" {
		_, _ = r.sendMarkdown(chatID, remindUsageText, nil)
		return
	}
	d, err := domain.ParseDurationHuman(durText)
	if err != nil {
		reply := "❌ Invalid duration. Examples: 30m, 1h30m, 2d."
		if errors.Is(err, domain.ErrTooSmall) || errors.Is(err, domain.ErrTooLarge) {
			reply = "❌ Reminders must be between 1 minute and 7 days away."
		}
		_, _ = r.sendText(chatID, reply)
		return
	}

	now := r.now().UTC()
	rem := &domain.Reminder{ChatID: chatID, Text: text, FireAt: now.Add(d), CreatedAt: now}
	if err := r.repo.AddReminder(ctx, rem); err != nil {
		r.log.Error("add reminder failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, genericError)
		return
	}
	at, err := domain.LocalizeTime(rem.FireAt, r.opts.DefaultTZ.String())
	if err != nil {
		at = rem.FireAt.Format("2006-01-02 15:04 UTC")
	}
	_, _ = r.sendText(chatID, fmt.Sprintf("⏰ Reminder set for %s (in %s).", at, d))
}

func (r *Router) handleReminders(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	list, err := r.repo.ListReminders(ctx, chatID)
	if err != nil {
		r.log.Error("list reminders failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, genericError)
		return
	}
	if len(list) == 0 {
		_, _ = r.sendText(chatID, noRemindersText)
		return
	}
	var b strings.Builder
	b.WriteString("⏰ Pending reminders:\n")
	for i, rem := range list {
		at, err := domain.LocalizeTime(rem.FireAt, r.opts.DefaultTZ.String())
		if err != nil {
			at = rem.FireAt.Format("2006-01-02 15:04 UTC")
		}
		fmt.Fprintf(&b, "\n%d. %s: %s", i+1, at, domain.Truncate(rem.Text, 200))
	}
	_, _ = r.sendText(chatID, b.String())
}

// SendReminder delivers a due reminder.
func (r *Router) SendReminder(_ context.Context, rem domain.Reminder) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(rem.ChatID, "⏰ Reminder: "+rem.Text))
	return unreachable(err)
}
