package store

import (
	"time"

	"github.com/araneaimer/nitebot/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(s scanner) (domain.Reminder, error) {
	var (
		r         domain.Reminder
		fireAt    int64
		createdAt int64
	)
	if err := s.Scan(&r.ID, &r.ChatID, &r.Text, &fireAt, &createdAt); err != nil {
		return r, err
	}
	r.FireAt = fromUnix(fireAt)
	r.CreatedAt = fromUnix(createdAt)
	return r, nil
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

