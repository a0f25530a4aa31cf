package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/domain"
)

// handleTranslate accepts "/trans [lang] <text>". The first word is a target
// language only when it resolves to one; otherwise the whole input is the text.
func (r *Router) handleTranslate(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if args == "" {
		_, _ = r.sendMarkdown(chatID, translateHelpText, nil)
		return
	}

	first, rest := splitFirst(args)
	if rest != "" {
		if code, ok := domain.ResolveLanguage(first); ok && code != "auto" {
			r.translateInto(ctx, chatID, rest, code)
			return
		}
	}

	r.st.setTranslate(chatID, args)
	if rest != "" {
		_, _ = r.withKeyboard(chatID, translatePickText, popularLanguagesKeyboard())
		return
	}
	_, _ = r.withKeyboard(chatID, "🎯 Select target language:\n\nText to translate:\n"+args, allLanguagesKeyboard())
}

func (r *Router) translateInto(ctx context.Context, chatID int64, text, target string) {
	status, err := r.sendMarkdown(chatID, translatingText, nil)
	if err != nil {
		return
	}
	r.finishTranslation(ctx, chatID, status.MessageID, text, target)
}

// finishTranslation edits msgID into the translation result or an error.
func (r *Router) finishTranslation(ctx context.Context, chatID int64, msgID int, text, target string) {
	res, err := r.translator.Translate(ctx, text, target, "auto")
	if err != nil {
		r.log.Error("translation failed", zap.Error(err), zap.Int64("chatID", chatID))
		_ = r.edit(chatID, msgID, translateFailedText, "", nil)
		return
	}
	body := fmt.Sprintf("🔤 *Original* (%s):\n%s\n\n🌐 *Translation* (%s):\n%s",
		domain.LanguageName(res.DetectedSource), text, domain.LanguageName(target), res.Text)
	kb := translateAnotherKeyboard()
	if err := r.edit(chatID, msgID, body, tgbotapi.ModeMarkdown, &kb); err != nil {
		plain := strings.NewReplacer("*", "").Replace(body)
		if err := r.edit(chatID, msgID, plain, "", &kb); err != nil {
			r.log.Warn("edit translation failed", zap.Error(err), zap.Int64("chatID", chatID))
		}
	}
}

func (r *Router) handleTranslateCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
	switch choice := strings.TrimPrefix(cb.Data, "translate_"); choice {
	case "start":
		r.answerCallback(cb.ID, "")
		_, _ = r.sendMarkdown(chatID, translateHelpText, nil)

	case "cancel":
		r.st.takeTranslate(chatID)
		_ = r.edit(chatID, msgID, translateCancelText, "", nil)
		r.answerCallback(cb.ID, "")

	case "more":
		if _, ok := r.st.peekTranslate(chatID); !ok {
			r.alertCallback(cb.ID, translateGoneText)
			return
		}
		kb := allLanguagesKeyboard()
		_ = r.edit(chatID, msgID, translatePickText, "", &kb)
		r.answerCallback(cb.ID, "")

	default:
		if domain.LanguageName(choice) == choice {
			r.answerCallback(cb.ID, "")
			return
		}
		text, ok := r.st.takeTranslate(chatID)
		if !ok {
			r.alertCallback(cb.ID, translateGoneText)
			return
		}
		r.answerCallback(cb.ID, "")
		_ = r.edit(chatID, msgID, translatingText, tgbotapi.ModeMarkdown, nil)
		r.finishTranslation(ctx, chatID, msgID, text, choice)
	}
}
