package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/domain"
	"github.com/araneaimer/nitebot/internal/store"
)

type fakeSubs struct {
	mu      sync.Mutex
	data    map[int64]domain.ChatSubscriptions
	removed []int64
}

func (f *fakeSubs) All() map[int64]domain.ChatSubscriptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]domain.ChatSubscriptions, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out
}

func (f *fakeSubs) RemoveChat(chatID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, chatID)
	delete(f.data, chatID)
	return true, nil
}

type delivery struct {
	chatID int64
	ct     domain.ContentType
}

type fakeSender struct {
	mu        sync.Mutex
	delivered []delivery
	reminders []domain.Reminder
	failFor   map[int64]error
}

func (f *fakeSender) DeliverContent(_ context.Context, chatID int64, ct domain.ContentType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[chatID]; err != nil {
		return err
	}
	f.delivered = append(f.delivered, delivery{chatID, ct})
	return nil
}

func (f *fakeSender) SendReminder(_ context.Context, r domain.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[r.ChatID]; err != nil {
		return err
	}
	f.reminders = append(f.reminders, r)
	return nil
}

func openRepo(t *testing.T) *store.SQLiteRepo {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nite.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestDispatchSubscriptions(t *testing.T) {
	subs := &fakeSubs{data: map[int64]domain.ChatSubscriptions{
		1: {
			domain.ContentFact: {Times: []string{"09:00"}, Timezone: "UTC"},
			domain.ContentJoke: {Times: []string{"10:00"}},
		},
		2: {domain.ContentMeme: {Times: []string{"14:30"}, Timezone: "Asia/Kolkata"}},
		3: {
			domain.ContentFact: {Times: []string{"09:00"}},
			domain.ContentJoke: {Times: []string{"09:00"}},
		},
	}}
	sender := &fakeSender{failFor: map[int64]error{
		3: fmt.Errorf("send: %w", domain.ErrChatUnreachable),
	}}
	s := New(subs, openRepo(t), zap.NewNop(), sender)
	// 09:00 UTC is 14:30 in Kolkata
	s.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 30, 0, time.UTC) }

	s.DispatchSubscriptions(context.Background())

	got := map[delivery]bool{}
	for _, d := range sender.delivered {
		got[d] = true
	}
	if len(got) != 2 || !got[delivery{1, domain.ContentFact}] || !got[delivery{2, domain.ContentMeme}] {
		t.Fatalf("delivered = %+v", sender.delivered)
	}
	if len(subs.removed) != 1 || subs.removed[0] != 3 {
		t.Fatalf("removed = %v", subs.removed)
	}
}

func TestDispatchReminders(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	due := &domain.Reminder{ChatID: 1, Text: "stretch", FireAt: now.Add(-time.Minute)}
	blocked := &domain.Reminder{ChatID: 2, Text: "blocked", FireAt: now.Add(-time.Minute)}
	flaky := &domain.Reminder{ChatID: 3, Text: "flaky", FireAt: now.Add(-time.Minute)}
	later := &domain.Reminder{ChatID: 1, Text: "later", FireAt: now.Add(time.Hour)}
	for _, r := range []*domain.Reminder{due, blocked, flaky, later} {
		if err := repo.AddReminder(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	sender := &fakeSender{failFor: map[int64]error{
		2: domain.ErrChatUnreachable,
		3: fmt.Errorf("timeout"),
	}}
	s := New(&fakeSubs{}, repo, zap.NewNop(), sender)
	s.now = func() time.Time { return now }
	s.DispatchReminders(ctx)

	if len(sender.reminders) != 1 || sender.reminders[0].Text != "stretch" {
		t.Fatalf("sent = %+v", sender.reminders)
	}
	left, err := repo.ListDueReminders(ctx, now.Add(2*time.Hour), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 2 || left[0].Text != "flaky" || left[1].Text != "later" {
		t.Fatalf("left = %+v", left)
	}
}

func TestStartStop(t *testing.T) {
	s := New(&fakeSubs{}, openRepo(t), zap.NewNop(), &fakeSender{})
	if err := s.Every("@every 1m", func() {}); err != nil {
		t.Fatalf("Every: %v", err)
	}
	if err := s.Every("not a spec", func() {}); err == nil {
		t.Fatal("want error for bad spec")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
