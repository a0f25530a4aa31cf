package telegram

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
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

// fakeBot records every outgoing call. Send returns increasing message ids.
type fakeBot struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	raw      []tgbotapi.Params
	sendErr  func(c tgbotapi.Chattable) error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.nextID++
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 1000 + f.nextID}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	params["endpoint"] = endpoint
	f.raw = append(f.raw, params)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.test/" + fileID, nil
}

func (f *fakeBot) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBot) texts() []string {
	var out []string
	for _, m := range f.messages() {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeBot) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeBot) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBot) deleted() map[int]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int]bool{}
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out[d.MessageID] = true
		}
	}
	return out
}

func (f *fakeBot) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	texts := f.texts()
	if len(texts) == 0 {
		t.Fatalf("no messages sent")
	}
	return texts[len(texts)-1]
}

type fakeLLM struct {
	mu     sync.Mutex
	intent domain.Intent
	reply  string
	chats  []string
}

func (f *fakeLLM) Enabled() bool { return true }

func (f *fakeLLM) Chat(_ context.Context, _ int64, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, message)
	return f.reply, nil
}

func (f *fakeLLM) DetectIntent(context.Context, string) (domain.Intent, error) {
	return f.intent, nil
}

type fakeHF struct {
	mu      sync.Mutex
	prompts []string
	heard   [][]byte
}

func (f *fakeHF) Enabled() bool { return true }

func (f *fakeHF) TextToImage(_ context.Context, _, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return []byte("png"), nil
}

func (f *fakeHF) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heard = append(f.heard, audio)
	return "hello there", nil
}

type fakeMemes struct {
	mu   sync.Mutex
	subs []string
	err  error
}

func (f *fakeMemes) Random(_ context.Context, sub string) (reddit.Meme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
	if f.err != nil {
		return reddit.Meme{}, f.err
	}
	if sub == "" {
		sub = "memes"
	}
	return reddit.Meme{Title: "funny", URL: "https://i.redd.it/x.png", Author: "bob", Subreddit: sub, Upvotes: 42, Sort: "hot"}, nil
}

type fakeMovies struct {
	movie omdb.Movie
	err   error
}

func (f *fakeMovies) Enabled() bool { return true }

func (f *fakeMovies) Lookup(context.Context, string) (omdb.Movie, error) { return f.movie, f.err }

type fakeTranslator struct {
	mu    sync.Mutex
	calls [][2]string // text, target
	block chan struct{}
}

func (f *fakeTranslator) Translate(_ context.Context, text, target, _ string) (lingva.Result, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]string{text, target})
	return lingva.Result{Text: "Hallo Welt", DetectedSource: "en"}, nil
}

type fakeRates struct{}

func (fakeRates) Convert(_ context.Context, amount float64, from, to string) (float64, float64, error) {
	return amount * 0.925, 0.925, nil
}

type fakeContent struct{}

func (fakeContent) Fact(_ context.Context, category string) (string, error) {
	return "a " + category + " fact", nil
}

func (fakeContent) Joke(context.Context) (string, error) { return "setup\n\npunchline", nil }

func (fakeContent) Quote(context.Context) content.Quote {
	return content.Quote{Text: "Stay hungry.", Author: "Steve Jobs"}
}

type fakeDownloader struct {
	title string
}

func (f *fakeDownloader) Info(context.Context, string) (ytdl.Info, error) {
	return ytdl.Info{Title: f.title}, nil
}

func (f *fakeDownloader) Download(_ context.Context, _, dir string, onProgress func(float64)) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		return "", err
	}
	onProgress(50)
	onProgress(100)
	return path, nil
}

type fakeFiles struct{}

func (fakeFiles) Fetch(context.Context, string) ([]byte, error) { return []byte("OggS"), nil }

type testEnv struct {
	r     *Router
	bot   *fakeBot
	repo  *store.SQLiteRepo
	subs  *store.Subscriptions
	llm   *fakeLLM
	hf    *fakeHF
	memes *fakeMemes
	movie *fakeMovies
	trans *fakeTranslator
	dl    *fakeDownloader
}

const (
	adminID  = int64(1)
	userID   = int64(42)
	userChat = int64(42)
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nite.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	subs, err := store.OpenSubscriptions(filepath.Join(t.TempDir(), "subscriptions.json"))
	if err != nil {
		t.Fatalf("OpenSubscriptions: %v", err)
	}

	env := &testEnv{
		bot:   &fakeBot{},
		repo:  repo,
		subs:  subs,
		llm:   &fakeLLM{intent: domain.Intent{Kind: domain.IntentOther}, reply: "hi!"},
		hf:    &fakeHF{},
		memes: &fakeMemes{},
		movie: &fakeMovies{},
		trans: &fakeTranslator{},
		dl:    &fakeDownloader{title: "Never Gonna Give You Up"},
	}
	if opts.AdminID == 0 {
		opts.AdminID = adminID
	}
	if opts.TempDir == "" {
		opts.TempDir = t.TempDir()
	}
	opts.BotUsername = "nitebot"

	env.r = NewRouter(Deps{
		Bot:        env.bot,
		Log:        zap.NewNop(),
		Repo:       repo,
		Subs:       subs,
		Limiter:    ratelimit.New(),
		Locator:    domain.NewLocator(map[string]string{"london": "Europe/London", "tokyo": "Asia/Tokyo"}, nil),
		LLM:        env.llm,
		HF:         env.hf,
		Reddit:     env.memes,
		Movies:     env.movie,
		Translator: env.trans,
		Rates:      fakeRates{},
		Content:    fakeContent{},
		YTDL:       env.dl,
		Files:      fakeFiles{},
	}, opts)
	env.r.now = func() time.Time { return fixedNow }
	env.r.t = timings{
		clockTick:     time.Millisecond,
		clockUpdates:  3,
		frame:         time.Millisecond,
		selfDestruct:  time.Millisecond,
		confirmWindow: 20 * time.Millisecond,
	}
	return env
}

// send delivers a text message from user in chat and waits for background work.
func (e *testEnv) send(from, chat int64, msgID int, text string) {
	e.r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: msgID,
		From:      &tgbotapi.User{ID: from, FirstName: "Ada"},
		Chat:      &tgbotapi.Chat{ID: chat, Type: "private"},
		Text:      text,
	}})
	e.r.Wait()
}

// press simulates a button press on message msgID.
func (e *testEnv) press(from, chat int64, msg *tgbotapi.Message, data string) {
	if msg == nil {
		msg = &tgbotapi.Message{MessageID: 500}
	}
	msg.Chat = &tgbotapi.Chat{ID: chat, Type: "private"}
	e.r.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: from},
		Message: msg,
		Data:    data,
	}})
	e.r.Wait()
}

func buttons(markup any) []tgbotapi.InlineKeyboardButton {
	var kb tgbotapi.InlineKeyboardMarkup
	switch m := markup.(type) {
	case tgbotapi.InlineKeyboardMarkup:
		kb = m
	case *tgbotapi.InlineKeyboardMarkup:
		if m == nil {
			return nil
		}
		kb = *m
	default:
		return nil
	}
	var out []tgbotapi.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}

func callbackData(b tgbotapi.InlineKeyboardButton) string {
	if b.CallbackData == nil {
		return ""
	}
	return *b.CallbackData
}
