package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// broadcastEvery is how often the broadcast status message is refreshed.
const broadcastEvery = 5

func (r *Router) adminOnly(fn commandFunc) commandFunc {
	return func(ctx context.Context, msg *tgbotapi.Message, args string) {
		if msg.From == nil || !r.isAdmin(msg.From.ID) {
			_, _ = r.sendText(msg.Chat.ID, adminOnlyText)
			return
		}
		fn(ctx, msg, args)
	}
}

func (r *Router) handleStats(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	users, err := r.repo.CountUsers(ctx)
	if err != nil {
		r.log.Error("count users failed", zap.Error(err))
		_, _ = r.sendText(chatID, "❌ Error fetching statistics.")
		return
	}
	chats, err := r.repo.CountChats(ctx)
	if err != nil {
		r.log.Error("count chats failed", zap.Error(err))
		_, _ = r.sendText(chatID, "❌ Error fetching statistics.")
		return
	}
	_, _ = r.sendMarkdown(chatID, fmt.Sprintf("📊 *Bot Statistics*\n\nTotal Unique Users: %d\nKnown Chats: %d\nLast Updated: %s",
		users, chats, r.now().In(r.opts.DefaultTZ).Format("2006-01-02 15:04:05 MST")), nil)
}

func (r *Router) handleClearStats(ctx context.Context, msg *tgbotapi.Message, _ string) {
	if err := r.repo.ClearUsers(ctx); err != nil {
		r.log.Error("clear stats failed", zap.Error(err))
		_, _ = r.sendText(msg.Chat.ID, "❌ Error clearing statistics.")
		return
	}
	_, _ = r.sendText(msg.Chat.ID, "✅ Statistics have been cleared.")
}

func (r *Router) handleBroadcast(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if args == "" {
		_, _ = r.sendText(chatID, "Usage: /broadcast <message>")
		return
	}
	status, err := r.sendText(chatID, "🚀 Starting broadcast...\n\nMessage:\n"+args)
	if err != nil {
		return
	}
	r.goAsync("broadcast", func() { r.broadcast(ctx, chatID, status.MessageID, args) })
}

func (r *Router) broadcast(ctx context.Context, adminChat int64, statusID int, text string) {
	chats, err := r.repo.ListChats(ctx)
	if err != nil {
		r.log.Error("list chats failed", zap.Error(err))
		_ = r.edit(adminChat, statusID, "❌ Could not load recipients.", "", nil)
		return
	}

	var sent, failed int
	for _, chatID := range chats {
		if ctx.Err() != nil {
			break
		}
		if err := r.sendMarkdownOrPlain(chatID, "📢 *Broadcast Message*\n\n"+text); err != nil {
			failed++
			r.log.Warn("broadcast send failed", zap.Error(err), zap.Int64("chatID", chatID))
			if IsForbidden(err) {
				if err := r.repo.RemoveChat(ctx, chatID); err != nil {
					r.log.Warn("drop chat failed", zap.Error(err), zap.Int64("chatID", chatID))
				}
			}
		} else {
			sent++
		}
		if (sent+failed)%broadcastEvery == 0 {
			_ = r.edit(adminChat, statusID, fmt.Sprintf("🚀 *Broadcasting in Progress*\n\n✅ Sent: %d\n❌ Failed: %d\n\nPlease wait...", sent, failed), tgbotapi.ModeMarkdown, nil)
		}
	}

	summary := fmt.Sprintf("📊 Broadcast Complete\n\n✅ Successfully sent: %d\n❌ Failed: %d\n📝 Message:\n%s", sent, failed, text)
	if err := r.edit(adminChat, statusID, summary, "", nil); err != nil {
		_, _ = r.sendText(adminChat, summary)
	}
	r.log.Info("broadcast finished", zap.Int("sent", sent), zap.Int("failed", failed))
}

func (r *Router) handlePreviewBroadcast(_ context.Context, msg *tgbotapi.Message, args string) {
	if args == "" {
		_, _ = r.sendText(msg.Chat.ID, "Usage: /previewbroadcast <message>")
		return
	}
	_ = r.sendMarkdownOrPlain(msg.Chat.ID, "📢 *Preview of Broadcast Message*\n\n"+args)
}

func (r *Router) handleBroadcastInfo(ctx context.Context, msg *tgbotapi.Message, _ string) {
	n, err := r.repo.CountChats(ctx)
	if err != nil {
		r.log.Error("count chats failed", zap.Error(err))
		_, _ = r.sendText(msg.Chat.ID, genericError)
		return
	}
	_, _ = r.sendText(msg.Chat.ID, fmt.Sprintf("📊 Broadcast Information\n\n"+
		"Total potential recipients: %d\n\n"+
		"Use /previewbroadcast <message> to test your message\n"+
		"Use /broadcast <message> to send to all users", n))
}

// handleMaintenance: "stop" takes the bot down for everyone but the admin, "start" brings it back.
func (r *Router) handleMaintenance(_ context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	switch strings.ToLower(firstWord(args)) {
	case "stop":
		r.st.setMaintenance(true)
		r.log.Info("maintenance mode on")
		_, _ = r.sendText(chatID, "🔄 Bot is going into maintenance mode...")
	case "start":
		r.st.setMaintenance(false)
		r.log.Info("maintenance mode off")
		_, _ = r.sendText(chatID, "✅ Bot is now active again!")
	default:
		_, _ = r.sendText(chatID, "Usage: /maintenance <stop|start>")
	}
}

func (r *Router) handleAdminHelp(_ context.Context, msg *tgbotapi.Message, _ string) {
	text, kb := adminHelpPage(1)
	_, _ = r.sendMarkdown(msg.Chat.ID, text, kb)
}

func (r *Router) handleAdminHelpCallback(cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || !r.isAdmin(cb.From.ID) {
		r.answerCallback(cb.ID, "⛔ This action is only available for administrators.")
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "admin_help_"))
	if err != nil {
		r.answerCallback(cb.ID, "")
		return
	}
	text, kb := adminHelpPage(page)
	if err := r.edit(cb.Message.Chat.ID, cb.Message.MessageID, text, tgbotapi.ModeMarkdown, &kb); err != nil {
		r.answerCallback(cb.ID, "❌ Error updating help message.")
		return
	}
	r.answerCallback(cb.ID, "")
}
