package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/clients/hf"
	"github.com/araneaimer/nitebot/internal/clients/omdb"
	"github.com/araneaimer/nitebot/internal/clients/reddit"
	"github.com/araneaimer/nitebot/internal/clients/ytdl"
	"github.com/araneaimer/nitebot/internal/domain"
	"github.com/araneaimer/nitebot/internal/webapi"
)

// Per-user and global quotas for the expensive upstreams.
const (
	imagineLimit  = 5
	ytdlLimit     = 3
	redditLimit   = 60
	quotaInterval = time.Minute
	ytdlInterval  = time.Hour
)

var subredditName = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

// --- Imagine ---

func (r *Router) handleImagine(_ context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if r.hf == nil || !r.hf.Enabled() {
		_, _ = r.sendText(chatID, featureOffText)
		return
	}
	if args == "" {
		_, _ = r.sendMarkdown(chatID, imagineUsageText, nil)
		return
	}
	r.st.setImagine(chatID, imagineSession{prompt: args, replyTo: msg.MessageID})
	r.sendModelPicker(chatID, pickModelText, msg.MessageID)
}

func (r *Router) sendModelPicker(chatID int64, text string, replyTo int) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyToMessageID = replyTo
	m.ReplyMarkup = modelKeyboard()
	if _, err := r.bot.Send(m); err != nil {
		r.log.Warn("send model picker failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) handleGenerateCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
	model, ok := hf.FindModel(strings.TrimPrefix(cb.Data, "generate_"))
	if !ok {
		r.answerCallback(cb.ID, "")
		return
	}
	sess, ok := r.st.takeImagine(chatID)
	if !ok {
		r.alertCallback(cb.ID, sessionGoneText)
		return
	}
	if cb.From != nil && !r.limiter.Allow(cb.From.ID, "imagine", imagineLimit, quotaInterval) {
		r.st.setImagine(chatID, sess)
		r.alertCallback(cb.ID, "⏳ Too many images at once. Please wait a minute.")
		return
	}
	r.answerCallback(cb.ID, "")
	_ = r.edit(chatID, msgID, "🎨 Generating image using "+model.Name+"...", "", nil)

	r.goAsync("imagine", func() {
		failed := "❌ Failed to generate image using " + model.Name + ". Please try again."

		stop := r.keepAction(ctx, chatID, tgbotapi.ChatUploadPhoto)
		img, err := r.hf.TextToImage(ctx, model.ID, sess.prompt)
		stop()
		if err == nil {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.png", Bytes: img})
			photo.Caption = "*" + model.Name + "*"
			photo.ParseMode = tgbotapi.ModeMarkdown
			photo.ReplyToMessageID = sess.replyTo
			photo.ReplyMarkup = imageActionsKeyboard(r.st.rememberPrompt(sess.prompt))
			_, err = r.bot.Send(photo)
		}
		if err != nil {
			r.log.Error("image generation failed", zap.Error(err), zap.String("model", model.ID), zap.Int64("chatID", chatID))
			if editErr := r.edit(chatID, msgID, failed, "", nil); editErr != nil {
				m := tgbotapi.NewMessage(chatID, failed)
				m.ReplyToMessageID = sess.replyTo
				_, _ = r.bot.Send(m)
			}
			return
		}
		_ = r.edit(chatID, msgID, "✨ Successfully generated image using "+model.Name+"!", "", nil)
	})
}

func (r *Router) handleRegenerateCallback(cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	prompt, ok := r.st.prompt(strings.TrimPrefix(cb.Data, "regen_"))
	if !ok {
		r.alertCallback(cb.ID, sessionGoneText)
		return
	}
	replyTo := 0
	if cb.Message.ReplyToMessage != nil {
		replyTo = cb.Message.ReplyToMessage.MessageID
	}
	r.st.setImagine(chatID, imagineSession{prompt: prompt, replyTo: replyTo})
	r.sendModelPicker(chatID, repickModelText, replyTo)
	r.answerCallback(cb.ID, "")
}

// --- Memes ---

func (r *Router) handleMeme(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if want := strings.TrimPrefix(strings.ToLower(firstWord(args)), "r/"); want != "" {
		switch {
		case want == "random":
			r.st.setMemePref(chatID, "")
			_, _ = r.sendText(chatID, memeRandomModeText)
		case subredditName.MatchString(want):
			r.st.setMemePref(chatID, want)
			_, _ = r.sendText(chatID, "✅ Set default subreddit to r/"+want)
		default:
			_, _ = r.sendText(chatID, memeNotFoundText)
			return
		}
	}
	if err := r.sendMeme(ctx, chatID, r.st.memePrefFor(chatID)); err != nil {
		r.log.Warn("meme failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, memeErrorText(err))
	}
}

func (r *Router) handleMemeCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	sub := strings.TrimPrefix(cb.Data, "meme_")
	if sub == "random" {
		sub = ""
	}
	if err := r.sendMeme(ctx, cb.Message.Chat.ID, sub); err != nil {
		r.log.Warn("meme failed", zap.Error(err), zap.Int64("chatID", cb.Message.Chat.ID))
		r.alertCallback(cb.ID, memeErrorText(err))
		return
	}
	r.answerCallback(cb.ID, "")
}

var errRedditBusy = errors.New("reddit quota exhausted")

// sendMeme fetches one image post (random subreddit when sub is empty) and posts it.
func (r *Router) sendMeme(ctx context.Context, chatID int64, sub string) error {
	if !r.limiter.AllowGlobal("reddit", redditLimit, quotaInterval) {
		return errRedditBusy
	}
	stop := r.keepAction(ctx, chatID, tgbotapi.ChatUploadPhoto)
	meme, err := r.reddit.Random(ctx, sub)
	stop()
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(meme.URL))
	photo.Caption = memeCaption(meme)
	photo.ReplyMarkup = r.memeKeyboard(chatID, sub)
	_, err = r.bot.Send(photo)
	return err
}

func memeCaption(m reddit.Meme) string {
	from := m.Sort
	if m.TimeFilter != "" {
		from += "/" + m.TimeFilter
	}
	return fmt.Sprintf("%s\n\n👤 u/%s    👍 %d\n🔗 r/%s    📊 From %s", m.Title, m.Author, m.Upvotes, m.Subreddit, from)
}

func memeErrorText(err error) string {
	switch {
	case errors.Is(err, reddit.ErrEmpty):
		return memeEmptyText
	case webapi.StatusCode(err) == http.StatusForbidden:
		return memePrivateText
	case webapi.StatusCode(err) == http.StatusNotFound:
		return memeNotFoundText
	}
	return memeFailedText
}

func (r *Router) handleForwardMemeCallback(cb *tgbotapi.CallbackQuery) {
	target, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "send_meme_"), 10, 64)
	if err != nil || (target != r.opts.PartnerA && target != r.opts.PartnerB) || target == 0 {
		r.alertCallback(cb.ID, memeForwardErrText)
		return
	}
	fwd := tgbotapi.NewForward(target, cb.Message.Chat.ID, cb.Message.MessageID)
	if _, err := r.bot.Send(fwd); err != nil {
		r.log.Warn("forward meme failed", zap.Error(err), zap.Int64("target", target))
		r.alertCallback(cb.ID, memeForwardErrText)
		return
	}
	r.alertCallback(cb.ID, memeForwardedText)
}

// --- Movies ---

func (r *Router) handleMovie(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if r.movies == nil || !r.movies.Enabled() {
		_, _ = r.sendText(chatID, featureOffText)
		return
	}
	if args == "" {
		_, _ = r.sendMarkdown(chatID, movieUsageText, nil)
		return
	}
	loading, err := r.sendText(chatID, movieSearchingText)
	if err != nil {
		return
	}
	movie, err := r.movies.Lookup(ctx, args)
	if err != nil {
		text := "❌ Failed to fetch movie information. Please try again."
		var lookupErr *omdb.LookupError
		if errors.As(err, &lookupErr) {
			text = "❌ " + lookupErr.Message
		} else {
			r.log.Error("movie lookup failed", zap.Error(err), zap.Int64("chatID", chatID))
		}
		_ = r.edit(chatID, loading.MessageID, text, "", nil)
		return
	}
	_ = r.deleteMessage(chatID, loading.MessageID)

	err = r.sendMovie(chatID, movie)
	if err != nil && apiErrorContains(err, "caption is too long") {
		movie.Plot = domain.FirstSentence(movie.Plot)
		err = r.sendMovie(chatID, movie)
	}
	if err != nil {
		r.log.Error("send movie failed", zap.Error(err), zap.Int64("chatID", chatID))
		_, _ = r.sendText(chatID, movieDisplayErr)
	}
}

func (r *Router) sendMovie(chatID int64, m omdb.Movie) error {
	caption := movieCaption(m)
	if m.HasPoster() {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(m.Poster))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		_, err := r.bot.Send(photo)
		return err
	}
	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := r.bot.Send(msg)
	return err
}

func movieCaption(m omdb.Movie) string {
	plot := m.Plot
	if plot == "" || plot == "N/A" {
		plot = "No plot available"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📀 Title : <a href=\"%s\">%s</a>\n\n", html.EscapeString(m.IMDbURL()), html.EscapeString(m.Title))
	fmt.Fprintf(&b, "🌟 Rating : %s/10\n", orNA(m.IMDbRating))
	fmt.Fprintf(&b, "📆 Release : %s\n", orNA(m.Released))
	fmt.Fprintf(&b, "🎭 Genre : %s\n", orNA(m.Genre))
	fmt.Fprintf(&b, "🔊 Language : %s\n", orNA(m.Language))
	fmt.Fprintf(&b, "🎥 Directors : %s\n", orNA(m.Director))
	fmt.Fprintf(&b, "🔆 Stars : %s\n\n", orNA(m.Actors))
	fmt.Fprintf(&b, "🗒 Storyline : <code>%s</code>", html.EscapeString(plot))
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return html.EscapeString(s)
}

// --- YouTube download ---

func (r *Router) handleYTDL(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if args == "" {
		_, _ = r.sendMarkdown(chatID, ytHelpText, nil)
		return
	}
	url := firstWord(args)
	if !ytdl.ValidURL(url) {
		_, _ = r.sendText(chatID, ytBadURLText)
		return
	}
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	if !r.limiter.Allow(userID, "ytdl", ytdlLimit, ytdlInterval) {
		_, _ = r.sendText(chatID, "⏳ Download limit reached. Please try again later.")
		return
	}
	if !r.st.startDownload(userID) {
		_, _ = r.sendText(chatID, ytBusyText)
		return
	}
	status, err := r.sendText(chatID, ytFetchingText)
	if err != nil {
		r.st.finishDownload(userID)
		return
	}
	r.goAsync("ytdl", func() {
		defer r.st.finishDownload(userID)
		r.download(ctx, chatID, status.MessageID, url)
	})
}

func (r *Router) download(ctx context.Context, chatID int64, statusID int, url string) {
	fail := func(err error) {
		r.log.Warn("video download failed", zap.Error(err), zap.Int64("chatID", chatID))
		_ = r.edit(chatID, statusID, ytErrorText(err), "", nil)
	}

	info, err := r.ytdl.Info(ctx, url)
	if err != nil {
		fail(err)
		return
	}
	progress := func(p float64) string {
		return fmt.Sprintf("📥 Downloading: %s\n\nProgress: %s %.1f%%\nQuality: Best available (up to 1080p)",
			info.Title, domain.ProgressBar(p), p)
	}
	_ = r.edit(chatID, statusID, progress(0), "", nil)

	path, err := r.ytdl.Download(ctx, url, r.opts.TempDir, func(p float64) {
		_ = r.edit(chatID, statusID, progress(p), "", nil)
	})
	if err != nil {
		fail(err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.log.Warn("remove temp video failed", zap.Error(err), zap.String("path", path))
		}
	}()

	_ = r.edit(chatID, statusID, ytUploadText, "", nil)
	stop := r.keepAction(ctx, chatID, tgbotapi.ChatUploadVideo)
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = "🎥 " + info.Title
	video.SupportsStreaming = true
	_, err = r.bot.Send(video)
	stop()
	if err != nil {
		if apiErrorContains(err, "too large") || apiErrorContains(err, "too big") {
			err = fmt.Errorf("%w: %v", ytdl.ErrTooLarge, err)
		}
		fail(err)
		return
	}
	_ = r.deleteMessage(chatID, statusID)
}

func ytErrorText(err error) string {
	switch {
	case errors.Is(err, ytdl.ErrTooLarge):
		return "❌ Video is too large (>2GB). Please try a different video."
	case errors.Is(err, ytdl.ErrPrivate):
		return "❌ This video is private."
	case errors.Is(err, ytdl.ErrUnavailable):
		return "❌ This video is not available."
	case errors.Is(err, ytdl.ErrDownloadFailed):
		return "❌ Download failed. Please try again."
	}
	return "❌ Failed to download video. Please try again."
}

// --- Voice transcription ---

func (r *Router) handleTranscribe(_ context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID
	if r.hf == nil || !r.hf.Enabled() {
		_, _ = r.sendText(chatID, featureOffText)
		return
	}
	r.st.setTranscribe(chatID, true)
	_, _ = r.withKeyboard(chatID, transcribePromptText, cancelTranscribeKeyboard())
}

func (r *Router) handleCancelTranscribe(cb *tgbotapi.CallbackQuery) {
	if r.st.setTranscribe(cb.Message.Chat.ID, false) {
		_ = r.edit(cb.Message.Chat.ID, cb.Message.MessageID, transcribeCancelText, "", nil)
	}
	r.answerCallback(cb.ID, "")
}

// handleVoice transcribes a voice message if the chat asked for it; otherwise it is ignored.
func (r *Router) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !r.st.setTranscribe(chatID, false) {
		return
	}
	status, err := r.sendText(chatID, transcribingText)
	if err != nil {
		return
	}
	fileID := msg.Voice.FileID
	r.goAsync("transcribe", func() {
		text, err := r.transcribe(ctx, fileID)
		if err != nil {
			r.log.Error("transcription failed", zap.Error(err), zap.Int64("chatID", chatID))
			_ = r.edit(chatID, status.MessageID, transcribeFailedText, "", nil)
			return
		}
		_ = r.edit(chatID, status.MessageID, "Transcription:\n"+text, "", nil)
	})
}

func (r *Router) transcribe(ctx context.Context, fileID string) (string, error) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve voice file: %w", err)
	}
	audio, err := r.files.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download voice: %w", err)
	}
	text, err := r.hf.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty transcription")
	}
	return text, nil
}
