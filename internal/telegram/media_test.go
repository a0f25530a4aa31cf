package telegram

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/araneaimer/nitebot/internal/clients/omdb"
	"github.com/araneaimer/nitebot/internal/clients/reddit"
	"github.com/araneaimer/nitebot/internal/webapi"
)

func TestImagineFlow(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.send(userID, userChat, 7, "/imagine a cat in space")

	picker := env.bot.messages()
	if len(picker) != 1 || picker[0].Text != pickModelText || picker[0].ReplyToMessageID != 7 {
		t.Fatalf("unexpected picker %+v", picker)
	}
	env.press(userID, userChat, &tgbotapi.Message{MessageID: 1001}, "generate_FLUX Schnell")

	photos := env.bot.photos()
	if len(photos) != 1 {
		t.Fatalf("want one image, got %d", len(photos))
	}
	p := photos[0]
	if p.Caption != "*FLUX Schnell*" || p.ReplyToMessageID != 7 {
		t.Fatalf("unexpected photo %+v", p)
	}
	if len(env.hf.prompts) != 1 || env.hf.prompts[0] != "a cat in space" {
		t.Fatalf("unexpected prompts %v", env.hf.prompts)
	}
	edits := env.bot.edits()
	if last := edits[len(edits)-1].Text; last != "✨ Successfully generated image using FLUX Schnell!" {
		t.Fatalf("unexpected final status %q", last)
	}

	var regen string
	for _, b := range buttons(p.ReplyMarkup) {
		if d := callbackData(b); strings.HasPrefix(d, "regen_") {
			regen = d
		}
	}
	if regen == "" {
		t.Fatalf("no regenerate button")
	}
	env.press(userID, userChat, &tgbotapi.Message{MessageID: 1002, ReplyToMessage: &tgbotapi.Message{MessageID: 7}}, regen)
	if got := env.bot.lastText(t); got != repickModelText {
		t.Fatalf("want model picker again, got %q", got)
	}
	env.press(userID, userChat, &tgbotapi.Message{MessageID: 1003}, "generate_FLUX Dev")
	if len(env.hf.prompts) != 2 || env.hf.prompts[1] != "a cat in space" {
		t.Fatalf("regenerate should reuse the prompt, got %v", env.hf.prompts)
	}
}

func TestImagineSessionExpired(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.press(userID, userChat, nil, "generate_FLUX Dev")
	cbs := env.bot.callbacks()
	if len(cbs) != 1 || !cbs[0].ShowAlert || cbs[0].Text != sessionGoneText {
		t.Fatalf("unexpected answer %+v", cbs)
	}
	env.press(userID, userChat, nil, "regen_deadbeef")
	cbs = env.bot.callbacks()
	if cbs[len(cbs)-1].Text != sessionGoneText {
		t.Fatalf("unknown prompt id should expire, got %+v", cbs[len(cbs)-1])
	}
	if len(env.hf.prompts) != 0 {
		t.Fatalf("nothing should be generated")
	}
}

func TestImagineQuotaKeepsSession(t *testing.T) {
	env := newTestEnv(t, Options{})
	for i := 0; i < imagineLimit; i++ {
		env.send(userID, userChat, 1, "/im sunset")
		env.press(userID, userChat, nil, "generate_FLUX Dev")
	}
	env.send(userID, userChat, 1, "/im one more")
	env.press(userID, userChat, nil, "generate_FLUX Dev")

	if len(env.hf.prompts) != imagineLimit {
		t.Fatalf("want %d generations, got %d", imagineLimit, len(env.hf.prompts))
	}
	cbs := env.bot.callbacks()
	if last := cbs[len(cbs)-1]; !last.ShowAlert || !strings.HasPrefix(last.Text, "⏳") {
		t.Fatalf("want quota alert, got %+v", last)
	}
	if sess, ok := env.r.st.takeImagine(userChat); !ok || sess.prompt != "one more" {
		t.Fatalf("refused request should keep its session, got %+v %v", sess, ok)
	}
}

func TestMemePreference(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.send(userID, userChat, 1, "/meme r/aww")
	env.send(userID, userChat, 2, "/mm")
	env.send(userID, userChat, 3, "/meme random")
	env.send(userID, userChat, 4, "/meme not-a-sub!")

	if want := []string{"aww", "aww", ""}; strings.Join(env.memes.subs, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected fetches %q", env.memes.subs)
	}
	texts := env.bot.texts()
	if texts[0] != "✅ Set default subreddit to r/aww" || texts[1] != memeRandomModeText || texts[2] != memeNotFoundText {
		t.Fatalf("unexpected texts %q", texts)
	}
	photos := env.bot.photos()
	if len(photos) != 3 {
		t.Fatalf("want 3 memes, got %d", len(photos))
	}
	if want := "funny\n\n👤 u/bob    👍 42\n🔗 r/aww    📊 From hot"; photos[0].Caption != want {
		t.Fatalf("caption %q", photos[0].Caption)
	}
	if b := buttons(photos[0].ReplyMarkup); len(b) != 1 || callbackData(b[0]) != "meme_aww" {
		t.Fatalf("unexpected keyboard %+v", b)
	}
	if b := buttons(photos[2].ReplyMarkup); callbackData(b[0]) != "meme_random" {
		t.Fatalf("random meme should offer another random one, got %+v", b)
	}
}

func TestMemeForwardBetweenPartners(t *testing.T) {
	env := newTestEnv(t, Options{PartnerA: userChat, PartnerB: 77, PartnerNameA: "Ana", PartnerNameB: "Ben"})
	env.send(userID, userChat, 1, "/meme")

	b := buttons(env.bot.photos()[0].ReplyMarkup)
	if len(b) != 2 || b[1].Text != "Send to Ben ❤️" || callbackData(b[1]) != "send_meme_77" {
		t.Fatalf("unexpected keyboard %+v", b)
	}

	env.press(userID, userChat, &tgbotapi.Message{MessageID: 1001}, "send_meme_77")
	var fwd []tgbotapi.ForwardConfig
	for _, c := range env.bot.sent {
		if f, ok := c.(tgbotapi.ForwardConfig); ok {
			fwd = append(fwd, f)
		}
	}
	if len(fwd) != 1 || fwd[0].ChatID != 77 || fwd[0].FromChatID != userChat || fwd[0].MessageID != 1001 {
		t.Fatalf("unexpected forwards %+v", fwd)
	}
	cbs := env.bot.callbacks()
	if cbs[len(cbs)-1].Text != memeForwardedText {
		t.Fatalf("unexpected answer %+v", cbs[len(cbs)-1])
	}

	env.press(userID, userChat, nil, "send_meme_12345")
	cbs = env.bot.callbacks()
	if cbs[len(cbs)-1].Text != memeForwardErrText {
		t.Fatalf("strangers must not receive forwards, got %+v", cbs[len(cbs)-1])
	}
}

func TestMemeKeyboardWithoutPartners(t *testing.T) {
	env := newTestEnv(t, Options{PartnerA: 5, PartnerB: 6})
	if b := buttons(env.r.memeKeyboard(userChat, "")); len(b) != 1 {
		t.Fatalf("outsiders get no forward button, got %+v", b)
	}
}

func TestMemeErrorText(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{reddit.ErrEmpty, memeEmptyText},
		{&webapi.StatusError{Service: "reddit", Code: 403}, memePrivateText},
		{&webapi.StatusError{Service: "reddit", Code: 404}, memeNotFoundText},
		{errors.New("boom"), memeFailedText},
		{errRedditBusy, memeFailedText},
	}
	for _, c := range cases {
		if got := memeErrorText(c.err); got != c.want {
			t.Fatalf("memeErrorText(%v) = %q", c.err, got)
		}
	}
}

func TestMovieCaptionTooLongRetries(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.movie.movie = omdb.Movie{
		Title:  "The Matrix",
		IMDbID: "tt0133093",
		Poster: "https://img.test/matrix.jpg",
		Plot:   "A hacker learns the truth. " + strings.Repeat("Then a lot happens. ", 60),
	}
	env.bot.sendErr = func(c tgbotapi.Chattable) error {
		if p, ok := c.(tgbotapi.PhotoConfig); ok && strings.Contains(p.Caption, "Then a lot happens") {
			return &tgbotapi.Error{Code: 400, Message: "Bad Request: message caption is too long"}
		}
		return nil
	}
	env.send(userID, userChat, 1, "/mv The Matrix")

	photos := env.bot.photos()
	if len(photos) != 1 {
		t.Fatalf("want one poster, got %d", len(photos))
	}
	if !strings.HasSuffix(photos[0].Caption, "<code>A hacker learns the truth.</code>") {
		t.Fatalf("plot should be cut to its first sentence: %q", photos[0].Caption)
	}
	if !strings.Contains(photos[0].Caption, `<a href="https://www.imdb.com/title/tt0133093">The Matrix</a>`) {
		t.Fatalf("caption lacks title link: %q", photos[0].Caption)
	}
	if !env.bot.deleted()[1001] {
		t.Fatalf("loading message should be removed")
	}
}

func TestMovieNotFound(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.movie.err = &omdb.LookupError{Message: "Movie not found!"}
	env.send(userID, userChat, 1, "/movie qwertyuiop")
	edits := env.bot.edits()
	if len(edits) != 1 || edits[0].Text != "❌ Movie not found!" {
		t.Fatalf("unexpected edits %+v", edits)
	}
}

func TestMovieCaptionEscapesHTML(t *testing.T) {
	got := movieCaption(omdb.Movie{Title: "Tom & Jerry", Plot: "<b>cat</b>"})
	if !strings.Contains(got, "Tom &amp; Jerry") || !strings.Contains(got, "&lt;b&gt;cat&lt;/b&gt;") {
		t.Fatalf("caption not escaped: %q", got)
	}
	if !strings.Contains(got, "🌟 Rating : N/A/10") {
		t.Fatalf("missing fields should read N/A: %q", got)
	}
}

func TestYTDL(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.send(userID, userChat, 1, "/yt https://example.com/video")
	if got := env.bot.lastText(t); got != ytBadURLText {
		t.Fatalf("got %q", got)
	}

	env.send(userID, userChat, 2, "/yt https://youtu.be/dQw4w9WgXcQ")
	var videos []tgbotapi.VideoConfig
	for _, c := range env.bot.sent {
		if v, ok := c.(tgbotapi.VideoConfig); ok {
			videos = append(videos, v)
		}
	}
	if len(videos) != 1 || videos[0].Caption != "🎥 Never Gonna Give You Up" || !videos[0].SupportsStreaming {
		t.Fatalf("unexpected videos %+v", videos)
	}
	path := string(videos[0].File.(tgbotapi.FilePath))
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("temp file %s should be removed, stat err %v", path, err)
	}
	status := env.bot.messages()[1].Text
	if status != ytFetchingText {
		t.Fatalf("unexpected status %q", status)
	}
	if !env.bot.deleted()[1002] {
		t.Fatalf("status message should be deleted after upload")
	}
	var sawProgress bool
	for _, e := range env.bot.edits() {
		if strings.Contains(e.Text, "Progress: [■■■■■□□□□□] 50.0%") {
			sawProgress = true
		}
	}
	if !sawProgress {
		t.Fatalf("no progress edit")
	}
}

func TestYTDLOneDownloadPerUser(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.r.st.startDownload(userID)
	env.send(userID, userChat, 1, "/ytdl https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if got := env.bot.lastText(t); got != ytBusyText {
		t.Fatalf("got %q", got)
	}
}

func sendVoice(env *testEnv, fileID string) {
	env.r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 9,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userChat, Type: "private"},
		Voice:     &tgbotapi.Voice{FileID: fileID},
	}})
	env.r.Wait()
}

func TestTranscribe(t *testing.T) {
	env := newTestEnv(t, Options{})
	sendVoice(env, "ignored")
	if len(env.bot.sent) != 0 {
		t.Fatalf("voice without /transcribe must be ignored")
	}

	env.send(userID, userChat, 1, "/trcb")
	sendVoice(env, "voice-1")
	if len(env.hf.heard) != 1 || string(env.hf.heard[0]) != "OggS" {
		t.Fatalf("unexpected audio %q", env.hf.heard)
	}
	edits := env.bot.edits()
	if len(edits) != 1 || edits[0].Text != "Transcription:\nhello there" {
		t.Fatalf("unexpected edits %+v", edits)
	}

	// Mode is one-shot.
	sendVoice(env, "voice-2")
	if len(env.hf.heard) != 1 {
		t.Fatalf("second voice should be ignored")
	}
}

func TestTranscribeCancel(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.send(userID, userChat, 1, "/transcribe")
	env.press(userID, userChat, &tgbotapi.Message{MessageID: 1001}, "cancel_transcribe")
	edits := env.bot.edits()
	if len(edits) != 1 || edits[0].Text != transcribeCancelText {
		t.Fatalf("unexpected edits %+v", edits)
	}
	sendVoice(env, "voice")
	if len(env.hf.heard) != 0 {
		t.Fatalf("cancelled mode must not transcribe")
	}
}
