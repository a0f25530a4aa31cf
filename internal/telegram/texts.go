package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/araneaimer/nitebot/internal/clients/content"
	"github.com/araneaimer/nitebot/internal/clients/hf"
	"github.com/araneaimer/nitebot/internal/domain"
)

// UI texts in English
const (
	helpText = "Hi, My name is Nite\n" +
		"I am a versatile personal assistant bot currently under development."
	helpCommandsText = "*Available Commands:*\n\n" +
		"/time, /tm, /t (timezone) - Display real-time chronological data\n" +
		"/imagine, /image, /im, /i (prompt) - Generate images using AI\n" +
		"/currency, /cr (currency conversion) - Real-time currency conversions\n" +
		"/meme, /mm [subreddit] - Random memes from Reddit\n" +
		"/joke, /jk - A random joke\n" +
		"/fact, /ft [category] - Random facts\n" +
		"/movie, /mv (title or IMDb id) - Movie information\n" +
		"/quote, /qt - An inspirational quote\n" +
		"/translate, /trans [lang] (text) - Translate text\n" +
		"/yt (url) - Download a YouTube video\n" +
		"/transcribe, /trcb - Transcribe a voice message\n" +
		"/clear [n|all] - Delete recent messages\n" +
		"/subscribe (fact|joke|meme) (HH:MM) [timezone] - Daily content\n" +
		"/remind, /rm (duration) (text) - Set message reminders\n" +
		"/tictactoe, /ttt - Play Tic Tac Toe"
	helpAboutText = "*Nite v1.1*\nA versatile Telegram bot."

	maintenanceText = "🔧 Nite is under maintenance. Please try again later."
	adminOnlyText   = "⛔ This command is only available for administrators."
	genericError    = "Sorry, something went wrong. Please try again later."
	featureOffText  = "⚙️ This feature is not configured on this bot."

	timeUsageText   = "Please provide a city or country name.\nExample: `/time Paris` or `/t Japan`"
	timeUnknownText = "Sorry, I couldn't find that location. Please try another city or country name."

	currencyUsageText = "Usage: `/cr 100 USD to EUR`"

	imagineUsageText = "Usage: `/imagine <prompt>`"
	pickModelText    = "🎨 Choose a model for image generation:"
	repickModelText  = "🎨 Choose a model for regeneration:"
	sessionGoneText  = "❌ Session expired. Please start over with /imagine command."
	upscaleSoonText  = "⚙️ Upscaling feature coming soon!"

	memeRandomModeText = "🎲 Set to random subreddits mode!"
	memeFailedText     = "😕 Sorry, I couldn't fetch a meme right now. Please try again later."
	memeEmptyText      = "❌ This subreddit doesn't exist or has no posts. Please try another one."
	memePrivateText    = "❌ This subreddit is private or quarantined."
	memeNotFoundText   = "❌ Subreddit not found."
	memeForwardedText  = "Meme forwarded successfully! 💝"
	memeForwardErrText = "Failed to forward the meme 😕"

	factPickText = "Please select a category:"

	movieUsageText = "*Movie Information Search* 🎬\n\n" +
		"Search by title or IMDb ID:\n" +
		"• /movie <title>\n" +
		"• /mv <imdb_id>\n\n" +
		"Examples:\n" +
		"`/movie The Matrix`\n" +
		"`/mv tt0133093`"
	movieSearchingText = "🔍 Searching for movie..."
	movieDisplayErr    = "❌ Error displaying movie information. Please try again."

	quoteFailedText = "❌ Failed to fetch a new quote. Please try again."

	translateHelpText = "*Nite Live Translate*\n\n" +
		"I. Direct Translation:\n" +
		"/trans en Hello World\n" +
		"/trns English Bonjour le monde\n" +
		"/translate german こんにちは\n\n" +
		"II. Quick Translation:\n" +
		"/trans Hello World\n" +
		"Shows a list of popular languages to choose from.\n\n" +
		"Source language is automatically detected"
	translatingText     = "🔄 *Translating...*"
	translateFailedText = "❌ Sorry, translation failed. Please try again later."
	translateCancelText = "❌ Translation cancelled."
	translatePickText   = "Select target language:"
	translateGoneText   = "❌ Nothing to translate. Send /translate <text> again."

	ytHelpText = "🎥 *YouTube Downloader*\n\n" +
		"Download YouTube videos in high quality!\n\n" +
		"*Usage:*\n" +
		"• /yt [YouTube URL]\n" +
		"• /ytdl [YouTube URL]\n\n" +
		"*Features:*\n" +
		"• Downloads in best available quality (up to 1080p)\n" +
		"• Supports both youtube.com and youtu.be links\n\n" +
		"*Note:* Please wait for each download to complete before starting another."
	ytBadURLText   = "❌ Please provide a valid YouTube URL."
	ytBusyText     = "⏳ Please wait for your current download to finish."
	ytFetchingText = "🔍 Fetching video information..."
	ytUploadText   = "📤 Uploading to Telegram..."

	transcribePromptText = "Please send a voice message to transcribe."
	transcribeCancelText = "Transcription mode cancelled."
	transcribingText     = "Transcribing your message..."
	transcribeFailedText = "Sorry, I had trouble transcribing your voice message. Please try again."

	clearWarningText = "⚠️ WARNING:\n" +
		"This will:\n" +
		"• Clear all messages in this chat\n" +
		"• Delete all media files in this chat\n\n" +
		"Note: This only affects messages in your chat with the bot.\n\n" +
		"Are you sure? Reply with /confirm within 30 seconds to proceed."
	clearDoneText = "🧹 *Cleanup Complete*\n\n" +
		"Messages have been deleted.\n\n" +
		"Note: Messages older than 48 hours cannot be deleted.\n\n" +
		"_This message will self-destruct in 30 seconds..._"
	clearNothingText = "Nothing to confirm. Use /clear all first."

	subscribeUsageText = "Usage: `/subscribe <fact|joke|meme> <HH:MM> [timezone]`\n" +
		"Example: `/subscribe joke 09:00 Europe/London`"
	unsubscribeUsageText = "Usage: `/unsubscribe <fact|joke|meme|all>`"
	noSubscriptionsText  = "You have no subscriptions. Try /subscribe."

	remindUsageText = "Usage: `/remind <duration> <text>`\n" +
		"Duration examples: `30m`, `1h30m`, `2d`, `90` (minutes)"
	noRemindersText = "You have no pending reminders."

	tictactoeText    = "🎮 Let's play Tic Tac Toe!"
	tictactoeOffText = "❌ Sorry, couldn't start the game. Please try again later."

	llmBusyText    = "⏳ You're sending messages too fast. Please slow down a little."
	llmTooLongText = "❌ Your message is too long. Please shorten it."
	llmFailedText  = "❌ Sorry, I encountered an error while processing your request."
)

func helpKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Commands", "help_commands"),
			tgbotapi.NewInlineKeyboardButtonData("About", "help_about"),
		),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("<< Back", "help_main"),
		),
	)
}

func modelKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(hf.ImageModels))
	for _, m := range hf.ImageModels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(m.Name, "generate_"+m.Name),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func imageActionsKeyboard(promptID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎲 Regenerate", "regen_"+promptID),
			tgbotapi.NewInlineKeyboardButtonData("✨ Upscale", "upscale_pending"),
		),
	)
}

// memeKeyboard offers another meme and, between the two partner chats, a forward button.
func (r *Router) memeKeyboard(chatID int64, subreddit string) tgbotapi.InlineKeyboardMarkup {
	label, data := "🎲 Another random meme", "meme_random"
	if subreddit != "" {
		label, data = "🎲 Another meme from r/"+subreddit, "meme_"+subreddit
	}
	row := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data))

	a, b := r.opts.PartnerA, r.opts.PartnerB
	if a != 0 && b != 0 {
		switch chatID {
		case a:
			row = append(row, forwardButton(r.opts.PartnerNameB, b))
		case b:
			row = append(row, forwardButton(r.opts.PartnerNameA, a))
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func forwardButton(name string, target int64) tgbotapi.InlineKeyboardButton {
	if name == "" {
		name = "partner"
	}
	return tgbotapi.NewInlineKeyboardButtonData("Send to "+name+" ❤️", "send_meme_"+strconv.FormatInt(target, 10))
}

func factKeyboard() tgbotapi.InlineKeyboardMarkup {
	const perRow = 3
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(content.FactCategories); i += perRow {
		var row []tgbotapi.InlineKeyboardButton
		for _, c := range content.FactCategories[i:min(i+perRow, len(content.FactCategories))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(strings.ToUpper(c[:1])+c[1:], "fact_"+c))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func quoteKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Another Quote", "quote_another"),
		),
	)
}

func jokeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Another joke", "joke_another"),
		),
	)
}

// languageKeyboard lays out codes two per row, followed by a trailing button.
func languageKeyboard(codes []string, last tgbotapi.InlineKeyboardButton) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(codes); i += 2 {
		var row []tgbotapi.InlineKeyboardButton
		for _, c := range codes[i:min(i+2, len(codes))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(domain.LanguageName(c), "translate_"+c))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(last))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func allLanguagesKeyboard() tgbotapi.InlineKeyboardMarkup {
	codes := make([]string, 0, len(domain.Languages))
	for _, l := range domain.Languages {
		codes = append(codes, l.Code)
	}
	return languageKeyboard(codes, tgbotapi.NewInlineKeyboardButtonData("Cancel", "translate_cancel"))
}

func popularLanguagesKeyboard() tgbotapi.InlineKeyboardMarkup {
	return languageKeyboard(domain.PopularLanguages, tgbotapi.NewInlineKeyboardButtonData("More Languages", "translate_more"))
}

func translateAnotherKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Translate Another", "translate_start"),
		),
	)
}

func cancelTranscribeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "cancel_transcribe"),
		),
	)
}

// subscriptionKeyboard is attached to every scheduled delivery.
func subscriptionKeyboard(ct domain.ContentType) tgbotapi.InlineKeyboardMarkup {
	name := contentTitle(ct)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Another "+name, string(ct)+"_another"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Stop Daily "+name+"s", "unsub_"+string(ct)),
		),
	)
}

func contentTitle(ct domain.ContentType) string {
	s := string(ct)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// --- Admin help pages ---

type adminCommand struct {
	command, description, usage, example string
}

var adminCommands = []adminCommand{
	{"/stats", "Shows bot statistics including total users and last update time", "Just type /stats", "/stats"},
	{"/broadcast", "Sends a message to all bot users", "/broadcast <message>", "/broadcast Hello everyone! Bot maintenance in 1 hour."},
	{"/previewbroadcast", "Preview how your broadcast message will look", "/previewbroadcast <message>", "/previewbroadcast *Important Update*: New features!"},
	{"/broadcastinfo", "Shows information about potential broadcast recipients", "Just type /broadcastinfo", "/broadcastinfo"},
	{"/maintenance", "Controls bot maintenance mode", "/maintenance <stop|start>", "/maintenance stop"},
	{"/clearstats", "Resets all bot statistics", "Just type /clearstats", "/clearstats"},
}

const adminPerPage = 2

func adminPages() int { return (len(adminCommands) + adminPerPage - 1) / adminPerPage }

// adminHelpPage renders page (1-based), clamped to the valid range.
func adminHelpPage(page int) (string, tgbotapi.InlineKeyboardMarkup) {
	total := adminPages()
	page = max(1, min(page, total))

	var b strings.Builder
	fmt.Fprintf(&b, "📚 *Admin Commands Help* (Page %d/%d)\n\n", page, total)
	start := (page - 1) * adminPerPage
	for _, c := range adminCommands[start:min(start+adminPerPage, len(adminCommands))] {
		fmt.Fprintf(&b, "*%s*\n📝 Description: %s\n🔍 Usage: %s\n💡 Example: `%s`\n\n", c.command, c.description, c.usage, c.example)
	}

	var row []tgbotapi.InlineKeyboardButton
	if page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Previous", "admin_help_"+strconv.Itoa(page-1)))
	}
	if page < total {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", "admin_help_"+strconv.Itoa(page+1)))
	}
	return b.String(), tgbotapi.NewInlineKeyboardMarkup(row)
}
