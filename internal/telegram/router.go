package telegram

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/clients/content"
	"github.com/araneaimer/nitebot/internal/clients/lingva"
	"github.com/araneaimer/nitebot/internal/clients/omdb"
	"github.com/araneaimer/nitebot/internal/clients/reddit"
	"github.com/araneaimer/nitebot/internal/clients/ytdl"
	"github.com/araneaimer/nitebot/internal/domain"
	"github.com/araneaimer/nitebot/internal/ratelimit"
	"github.com/araneaimer/nitebot/internal/store"
)

// Upstream services, narrowed to what the handlers call.
type (
	LLM interface {
		Enabled() bool
		Chat(ctx context.Context, chatID int64, message string) (string, error)
		DetectIntent(ctx context.Context, message string) (domain.Intent, error)
	}
	Inference interface {
		Enabled() bool
		TextToImage(ctx context.Context, modelID, prompt string) ([]byte, error)
		Transcribe(ctx context.Context, audio []byte) (string, error)
	}
	Memes interface {
		Random(ctx context.Context, subreddit string) (reddit.Meme, error)
	}
	Movies interface {
		Enabled() bool
		Lookup(ctx context.Context, query string) (omdb.Movie, error)
	}
	Translator interface {
		Translate(ctx context.Context, text, target, source string) (lingva.Result, error)
	}
	Rates interface {
		Convert(ctx context.Context, amount float64, from, to string) (float64, float64, error)
	}
	Content interface {
		Fact(ctx context.Context, category string) (string, error)
		Joke(ctx context.Context) (string, error)
		Quote(ctx context.Context) content.Quote
	}
	Downloader interface {
		Info(ctx context.Context, url string) (ytdl.Info, error)
		Download(ctx context.Context, url, dir string, onProgress func(percent float64)) (string, error)
	}
	// FileFetcher downloads a Telegram file by its direct URL.
	FileFetcher interface {
		Fetch(ctx context.Context, url string) ([]byte, error)
	}
)

// Options are the deployment-specific knobs of the router.
type Options struct {
	AdminID      int64
	PartnerA     int64
	PartnerB     int64
	PartnerNameA string
	PartnerNameB string
	DefaultTZ    *time.Location
	TicTacToeURL string
	TempDir      string
	BotUsername  string
}

// Deps bundles everything the router talks to.
type Deps struct {
	Bot        BotAPI
	Log        *zap.Logger
	Repo       store.Repo
	Subs       *store.Subscriptions
	Limiter    *ratelimit.Limiter
	Locator    *domain.Locator
	LLM        LLM
	HF         Inference
	Reddit     Memes
	Movies     Movies
	Translator Translator
	Rates      Rates
	Content    Content
	YTDL       Downloader
	Files      FileFetcher
}

// timings are the delays of the animated flows.
type timings struct {
	clockTick     time.Duration
	clockUpdates  int
	frame         time.Duration
	selfDestruct  time.Duration
	confirmWindow time.Duration
}

var defaultTimings = timings{
	clockTick:     time.Second,
	clockUpdates:  300,
	frame:         150 * time.Millisecond,
	selfDestruct:  30 * time.Second,
	confirmWindow: 30 * time.Second,
}

type commandFunc func(ctx context.Context, msg *tgbotapi.Message, args string)

var commandRe = regexp.MustCompile(`(?s)^/([A-Za-z_]+|\?)(?:@(\w+))?(?:\s+(.*))?$`)

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot        BotAPI
	log        *zap.Logger
	repo       store.Repo
	subs       *store.Subscriptions
	limiter    *ratelimit.Limiter
	locator    *domain.Locator
	llm        LLM
	hf         Inference
	reddit     Memes
	movies     Movies
	translator Translator
	rates      Rates
	content    Content
	ytdl       Downloader
	files      FileFetcher

	opts     Options
	st       *state
	t        timings
	now      func() time.Time
	commands map[string]commandFunc

	wg sync.WaitGroup
}

// NewRouter creates a new Telegram router.
func NewRouter(d Deps, opts Options) *Router {
	if opts.DefaultTZ == nil {
		opts.DefaultTZ = time.UTC
	}
	if opts.TempDir == "" {
		opts.TempDir = "./temp"
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.New()
	}
	r := &Router{
		bot:        d.Bot,
		log:        d.Log,
		repo:       d.Repo,
		subs:       d.Subs,
		limiter:    d.Limiter,
		locator:    d.Locator,
		llm:        d.LLM,
		hf:         d.HF,
		reddit:     d.Reddit,
		movies:     d.Movies,
		translator: d.Translator,
		rates:      d.Rates,
		content:    d.Content,
		ytdl:       d.YTDL,
		files:      d.Files,
		opts:       opts,
		st:         newState(),
		t:          defaultTimings,
		now:        time.Now,
	}
	r.commands = r.commandTable()
	return r
}

func (r *Router) commandTable() map[string]commandFunc {
	table := map[string]commandFunc{}
	add := func(fn commandFunc, names ...string) {
		for _, n := range names {
			table[n] = fn
		}
	}
	add(r.handleStart, "start")
	add(r.handleHelp, "help", "?")
	add(r.handleTime, "time", "tm", "t")
	add(r.upstream("currency", r.handleCurrency), "currency", "cr")
	add(r.handleImagine, "imagine", "im", "image", "i")
	add(r.upstream("meme", r.handleMeme), "meme", "mm")
	add(r.upstream("joke", r.handleJoke), "joke", "jk")
	add(r.upstream("fact", r.handleFact), "fact", "ft", "facts")
	add(r.upstream("movie", r.handleMovie), "movie", "mv")
	add(r.upstream("quote", r.handleQuote), "quote", "qt")
	add(r.upstream("translate", r.handleTranslate), "translate", "trns", "trans")
	add(r.handleYTDL, "ytdl", "yt")
	add(r.handleTranscribe, "transcribe", "trcb")
	add(r.handleClear, "clear")
	add(r.handleConfirm, "confirm")
	add(r.handleSubscribe, "subscribe")
	add(r.handleUnsubscribe, "unsubscribe")
	add(r.handleSubscriptions, "subscriptions")
	add(r.handleRemind, "remind", "rm")
	add(r.handleReminders, "reminders")
	add(r.handleTicTacToe, "tictactoe", "ttt")

	add(r.adminOnly(r.handleStats), "stats")
	add(r.adminOnly(r.handleClearStats), "clearstats")
	add(r.adminOnly(r.handleBroadcast), "broadcast")
	add(r.adminOnly(r.handlePreviewBroadcast), "previewbroadcast")
	add(r.adminOnly(r.handleBroadcastInfo), "broadcastinfo")
	add(r.adminOnly(r.handleMaintenance), "maintenance")
	add(r.adminOnly(r.handleAdminHelp), "admin")
	return table
}

// upstream runs a handler that calls external APIs off the update loop.
func (r *Router) upstream(name string, fn commandFunc) commandFunc {
	return func(ctx context.Context, msg *tgbotapi.Message, args string) {
		r.goAsync(name, func() { fn(ctx, msg, args) })
	}
}

// goAsync runs slow work off the update loop. Wait blocks until all of it is done.
func (r *Router) goAsync(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("handler panic", zap.String("task", name), zap.Any("panic", p))
			}
		}()
		fn()
	}()
}

// Wait blocks until background handlers finish.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) isAdmin(userID int64) bool {
	return r.opts.AdminID != 0 && userID == r.opts.AdminID
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		r.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		r.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
		if !r.isAdmin(userID) {
			r.track(ctx, userID, chatID)
		}
	}

	if r.st.inMaintenance() && !r.isAdmin(userID) {
		if msg.Text != "" || msg.Voice != nil {
			_, _ = r.sendText(chatID, maintenanceText)
		}
		return
	}

	if msg.Voice != nil {
		r.handleVoice(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if m := commandRe.FindStringSubmatch(text); m != nil {
		name, mention, args := strings.ToLower(m[1]), m[2], strings.TrimSpace(m[3])
		if mention != "" && r.opts.BotUsername != "" && !strings.EqualFold(mention, r.opts.BotUsername) {
			return
		}
		if fn, ok := r.commands[name]; ok {
			fn(ctx, msg, args)
		}
		return
	}
	if strings.HasPrefix(text, "/") {
		return
	}

	// Free-form text goes to the assistant in private chats only.
	if msg.Chat.IsPrivate() {
		r.handleChat(ctx, msg, text)
	}
}

func (r *Router) track(ctx context.Context, userID, chatID int64) {
	if r.repo == nil {
		return
	}
	if err := r.repo.TouchUser(ctx, userID, chatID, r.now().UTC()); err != nil {
		r.log.Warn("track user failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		r.answerCallback(cb.ID, "")
		return
	}
	data := cb.Data
	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	if r.st.inMaintenance() && !r.isAdmin(userID) {
		r.alertCallback(cb.ID, maintenanceText)
		return
	}

	switch {
	case data == "help_commands", data == "help_about", data == "help_main":
		r.handleHelpCallback(cb)
	case strings.HasPrefix(data, "admin_help_"):
		r.handleAdminHelpCallback(cb)

	case data == "fact_another", data == "joke_another", data == "meme_another":
		r.goAsync("another", func() { r.handleAnotherCallback(ctx, cb) })
	case strings.HasPrefix(data, "unsub_"):
		r.handleUnsubCallback(cb)

	case strings.HasPrefix(data, "generate_"):
		r.handleGenerateCallback(ctx, cb)
	case strings.HasPrefix(data, "regen_"):
		r.handleRegenerateCallback(cb)
	case data == "upscale_pending":
		r.alertCallback(cb.ID, upscaleSoonText)

	case strings.HasPrefix(data, "send_meme_"):
		r.handleForwardMemeCallback(cb)
	case strings.HasPrefix(data, "meme_"):
		r.goAsync("meme", func() { r.handleMemeCallback(ctx, cb) })

	case strings.HasPrefix(data, "fact_"):
		r.goAsync("fact", func() { r.handleFactCallback(ctx, cb) })
	case data == "quote_another":
		r.goAsync("quote", func() { r.handleQuoteCallback(ctx, cb) })
	case strings.HasPrefix(data, "translate_"):
		r.goAsync("translate", func() { r.handleTranslateCallback(ctx, cb) })
	case data == "cancel_transcribe":
		r.handleCancelTranscribe(cb)

	default:
		// Unknown callback: acknowledge silently
		r.answerCallback(cb.ID, "")
	}
}
