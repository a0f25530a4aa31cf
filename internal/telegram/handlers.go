package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/clients/content"
	"github.com/araneaimer/nitebot/internal/clients/llm"
	"github.com/araneaimer/nitebot/internal/clients/rates"
	"github.com/araneaimer/nitebot/internal/domain"
)

// --- Core commands ---

func (r *Router) handleStart(_ context.Context, msg *tgbotapi.Message, _ string) {
	name := "there"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}
	hour := r.now().In(r.opts.DefaultTZ).Hour()
	_, _ = r.sendText(msg.Chat.ID, domain.Greeting(hour, name))
}

func (r *Router) handleHelp(_ context.Context, msg *tgbotapi.Message, _ string) {
	_, _ = r.sendMarkdown(msg.Chat.ID, helpText, helpKeyboard())
}

func (r *Router) handleHelpCallback(cb *tgbotapi.CallbackQuery) {
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
	text, kb := helpText, helpKeyboard()
	switch cb.Data {
	case "help_commands":
		text, kb = helpCommandsText, backKeyboard()
	case "help_about":
		text, kb = helpAboutText, backKeyboard()
	}
	if err := r.edit(chatID, msgID, text, tgbotapi.ModeMarkdown, &kb); err != nil {
		r.log.Debug("edit help failed", zap.Error(err))
	}
	r.answerCallback(cb.ID, "")
}

// --- Time ---

func (r *Router) handleTime(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if args == "" {
		_, _ = r.sendMarkdown(chatID, timeUsageText, nil)
		return
	}
	zone, err := r.locator.Find(args)
	if err != nil {
		_, _ = r.sendText(chatID, timeUnknownText)
		return
	}
	text, err := domain.FormatClock(r.now(), zone)
	if err != nil {
		r.log.Error("format clock failed", zap.Error(err), zap.String("zone", zone))
		_, _ = r.sendText(chatID, timeUnknownText)
		return
	}
	sent, err := r.sendMarkdown(chatID, text, nil)
	if err != nil {
		return
	}
	r.goAsync("clock", func() { r.runClock(ctx, chatID, sent.MessageID, zone) })
}

// runClock keeps a time message live. Any edit failure other than an unchanged text ends it.
func (r *Router) runClock(ctx context.Context, chatID int64, msgID int, zone string) {
	for i := 0; i < r.t.clockUpdates; i++ {
		if !sleep(ctx, r.t.clockTick) {
			return
		}
		text, err := domain.FormatClock(r.now(), zone)
		if err != nil {
			return
		}
		if err := r.edit(chatID, msgID, text, tgbotapi.ModeMarkdown, nil); err != nil {
			if apiErrorContains(err, "message is not modified") {
				continue
			}
			r.log.Debug("clock stopped", zap.Error(err), zap.Int64("chatID", chatID))
			return
		}
	}
}

// --- Currency ---

func (r *Router) handleCurrency(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	conv, err := domain.ParseConversion(args)
	if err != nil {
		_, _ = r.sendMarkdown(chatID, currencyUsageText, nil)
		return
	}
	r.chatAction(chatID, tgbotapi.ChatTyping)
	result, rate, err := r.rates.Convert(ctx, conv.Amount, conv.From, conv.To)
	if errors.Is(err, rates.ErrUnknownCurrency) {
		_, _ = r.sendText(chatID, "❌ Unknown currency code. Use ISO codes like USD, EUR, INR.")
		return
	}
	if err != nil {
		r.log.Error("currency conversion failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, "❌ Could not fetch exchange rates. Please try again later.")
		return
	}
	_, _ = r.sendText(chatID, fmt.Sprintf("💱 %s %s = %s %s\n\nRate: 1 %s = %s %s",
		formatAmount(conv.Amount), conv.From, formatAmount(result), conv.To,
		conv.From, strconv.FormatFloat(rate, 'f', 4, 64), conv.To))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// --- Quote / joke / fact ---

func (r *Router) handleQuote(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	r.chatAction(chatID, tgbotapi.ChatTyping)
	q := r.content.Quote(ctx)
	if _, err := r.withKeyboard(chatID, q.String(), quoteKeyboard()); err != nil {
		r.log.Warn("send quote failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) handleQuoteCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	q := r.content.Quote(ctx)
	kb := quoteKeyboard()
	err := r.edit(cb.Message.Chat.ID, cb.Message.MessageID, q.String(), "", &kb)
	if err != nil && !apiErrorContains(err, "message is not modified") {
		r.alertCallback(cb.ID, quoteFailedText)
		return
	}
	r.answerCallback(cb.ID, "")
}

func (r *Router) handleJoke(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	r.chatAction(chatID, tgbotapi.ChatTyping)
	joke, err := r.content.Joke(ctx)
	if err != nil {
		r.log.Error("joke failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, genericError)
		return
	}
	_, _ = r.withKeyboard(chatID, joke, jokeKeyboard())
}

func (r *Router) handleFact(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	category := strings.ToLower(firstWord(args))
	if category == "" {
		_, _ = r.withKeyboard(chatID, factPickText, factKeyboard())
		return
	}
	if !content.ValidCategory(category) {
		_, _ = r.sendText(chatID, "Invalid category. Available categories are: "+strings.Join(content.FactCategories, ", "))
		return
	}
	r.chatAction(chatID, tgbotapi.ChatTyping)
	fact, err := r.content.Fact(ctx, category)
	if err != nil {
		r.log.Error("fact failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, genericError)
		return
	}
	_, _ = r.sendText(chatID, fact)
}

func (r *Router) handleFactCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	category := strings.TrimPrefix(cb.Data, "fact_")
	if !content.ValidCategory(category) {
		r.answerCallback(cb.ID, "")
		return
	}
	r.chatAction(chatID, tgbotapi.ChatTyping)
	fact, err := r.content.Fact(ctx, category)
	if err != nil {
		r.log.Error("fact failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.alertCallback(cb.ID, genericError)
		return
	}
	if err := r.edit(chatID, cb.Message.MessageID, fact, "", nil); err != nil {
		_, _ = r.sendText(chatID, fact)
	}
	r.answerCallback(cb.ID, "")
}

// --- Tic-tac-toe ---

func (r *Router) handleTicTacToe(_ context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	if r.opts.TicTacToeURL == "" {
		_, _ = r.sendText(chatID, tictactoeOffText)
		return
	}
	if err := r.sendWebAppButton(chatID, tictactoeText, "Start Game", r.opts.TicTacToeURL); err != nil {
		r.log.Error("tictactoe button failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, tictactoeOffText)
	}
}

// GameResult reports a finished mini-app game back into the chat it was started from.
func (r *Router) GameResult(chatID int64, result string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, "🎮 Game Over!\n"+result))
	return err
}

// --- Free-form chat ---

func (r *Router) handleChat(ctx context.Context, msg *tgbotapi.Message, text string) {
	chatID := msg.Chat.ID
	if r.llm == nil || !r.llm.Enabled() {
		return
	}
	if len(text) > llm.MaxInput {
		_, _ = r.sendText(chatID, llmTooLongText)
		return
	}
	if !r.limiter.AllowLLM(chatID) {
		_, _ = r.sendText(chatID, llmBusyText)
		return
	}

	r.goAsync("chat", func() {
		stop := r.keepAction(ctx, chatID, tgbotapi.ChatTyping)
		defer stop()

		intent, err := r.llm.DetectIntent(ctx, text)
		if err != nil {
			r.log.Debug("intent detection failed", zap.Error(err))
		}
		if err == nil && intent.Kind == domain.IntentMeme {
			stop()
			if err := r.sendMeme(ctx, chatID, intent.Subreddit); err != nil {
				_, _ = r.sendText(chatID, memeErrorText(err))
			}
			return
		}

		reply, err := r.llm.Chat(ctx, chatID, text)
		if err != nil {
			r.log.Error("llm chat failed", zap.Error(err), zap.Int64("chatID", chatID))
			_, _ = r.sendText(chatID, llmFailedText)
			return
		}
		stop()
		for _, chunk := range domain.Chunk(reply, domain.MaxMessageLen) {
			if err := r.sendMarkdownOrPlain(chatID, chunk); err != nil {
				r.log.Warn("send llm reply failed", zap.Error(err), zap.Int64("chatID", chatID))
				return
			}
		}
	})
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

// splitFirst returns the first word of s and the trimmed remainder.
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
