package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestClearRecent(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.send(userID, userChat, 10, "/clear 3")

	deleted := env.bot.deleted()
	for _, id := range []int{10, 9, 8, 1001, 1002} {
		if !deleted[id] {
			t.Fatalf("message %d should be deleted, got %v", id, deleted)
		}
	}
	if deleted[7] {
		t.Fatalf("only 3 messages should go")
	}
	if got := env.bot.lastText(t); got != clearDoneText {
		t.Fatalf("got %q", got)
	}
}

func TestClearIsCapped(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.send(userID, userChat, 1500, "/clear 5000")
	deleted := env.bot.deleted()
	if !deleted[1500] || !deleted[501] || deleted[500] {
		t.Fatalf("clear should stop after %d messages", clearAll)
	}
}

func TestClearAllNeedsConfirm(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.r.t.confirmWindow = 200 * time.Millisecond
	env.r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 19,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userChat, Type: "private"},
		Text:      "/clear all",
	}})
	if got := env.bot.lastText(t); got != clearWarningText {
		t.Fatalf("want warning, got %q", got)
	}
	env.send(userID, userChat, 20, "/confirm")

	deleted := env.bot.deleted()
	if !deleted[20] || !deleted[1] {
		t.Fatalf("confirm should clear back to the start, got %d deletions", len(deleted))
	}
	if deleted[1001] {
		t.Fatalf("confirmed warning must not be removed by the expiry")
	}
}

func TestClearAllExpires(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.send(userID, userChat, 19, "/clear all")
	if !env.bot.deleted()[1001] {
		t.Fatalf("expired warning should be removed")
	}
	env.send(userID, userChat, 20, "/confirm")
	if got := env.bot.lastText(t); got != clearNothingText {
		t.Fatalf("got %q", got)
	}
	if env.bot.deleted()[20] {
		t.Fatalf("nothing should be cleared")
	}
}
