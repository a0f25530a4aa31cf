package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/araneaimer/nitebot/internal/domain"
	"github.com/araneaimer/nitebot/internal/store"
)

const (
	subscriptionSpec = "* * * * *"
	reminderSpec     = "@every 30s"
	reminderBatch    = 100
)

// Sender is what the scheduler needs from the chat layer.
// telegram.Router implements it.
type Sender interface {
	// DeliverContent sends one piece of subscribed content. An error wrapping
	// domain.ErrChatUnreachable makes the scheduler forget the chat.
	DeliverContent(ctx context.Context, chatID int64, ct domain.ContentType) error
	SendReminder(ctx context.Context, r domain.Reminder) error
}

// SubscriptionSource is the subset of store.Subscriptions the scheduler uses.
type SubscriptionSource interface {
	All() map[int64]domain.ChatSubscriptions
	RemoveChat(chatID int64) (bool, error)
}

// Scheduler runs the daily-content and reminder jobs on a cron.
type Scheduler struct {
	subs   SubscriptionSource
	repo   store.Repo
	log    *zap.Logger
	sender Sender
	cron   *cron.Cron
	now    func() time.Time
}

// New creates a new Scheduler. Jobs start with Start.
func New(subs SubscriptionSource, repo store.Repo, log *zap.Logger, sender Sender) *Scheduler {
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		subs:   subs,
		repo:   repo,
		log:    log,
		sender: sender,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		now:    time.Now,
	}
}

// Every registers an extra housekeeping job.
func (s *Scheduler) Every(spec string, fn func()) error {
	_, err := s.cron.AddFunc(spec, fn)
	return err
}

// Start registers the built-in jobs and starts the cron. Jobs use ctx for I/O.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(subscriptionSpec, func() { s.DispatchSubscriptions(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(reminderSpec, func() { s.DispatchReminders(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started")
	return nil
}

// Stop halts the cron and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopping")
}

// DispatchSubscriptions sends everything due in the current minute.
// A missed minute is not caught up.
func (s *Scheduler) DispatchSubscriptions(ctx context.Context) {
	now := s.now()
	for chatID, subs := range s.subs.All() {
		for _, ct := range domain.ContentTypes {
			sub, ok := subs[ct]
			if !ok || !sub.DueAt(now) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			err := s.sender.DeliverContent(ctx, chatID, ct)
			if err == nil {
				s.log.Debug("subscription delivered", zap.Int64("chatID", chatID), zap.String("type", string(ct)))
				continue
			}
			s.log.Error("subscription delivery failed", zap.Error(err), zap.Int64("chatID", chatID), zap.String("type", string(ct)))
			if errors.Is(err, domain.ErrChatUnreachable) {
				if _, err := s.subs.RemoveChat(chatID); err != nil {
					s.log.Error("remove unreachable chat failed", zap.Error(err), zap.Int64("chatID", chatID))
				} else {
					s.log.Info("removed unreachable chat from subscriptions", zap.Int64("chatID", chatID))
				}
				break
			}
		}
	}
}

// DispatchReminders fires due one-shot reminders and deletes them.
// Reminders to unreachable chats are dropped; other failures are retried next tick.
func (s *Scheduler) DispatchReminders(ctx context.Context) {
	due, err := s.repo.ListDueReminders(ctx, s.now().UTC(), reminderBatch)
	if err != nil {
		s.log.Error("ListDueReminders failed", zap.Error(err))
		return
	}
	for _, r := range due {
		err := s.sender.SendReminder(ctx, r)
		if err != nil && !errors.Is(err, domain.ErrChatUnreachable) {
			s.log.Error("send reminder failed", zap.Error(err), zap.Int64("chatID", r.ChatID), zap.Int64("reminderID", r.ID))
			continue
		}
		if err := s.repo.DeleteReminder(ctx, r.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.Error("DeleteReminder failed", zap.Error(err), zap.Int64("reminderID", r.ID))
		}
	}
}

// cronLogger routes cron's own logs into zap.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
