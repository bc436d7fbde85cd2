package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lomoval/notecal/internal/fanout"
	"github.com/lomoval/notecal/internal/push"
	log "github.com/sirupsen/logrus"
)

type reminderSource interface {
	DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]push.Message, error)
}

type publisher interface {
	Publish(ctx context.Context, m push.Message) error
}

// remind publishes the reminders due at now through a bounded pool of publishers.
func remind(ctx context.Context, src reminderSource, pub publisher, now time.Time, config ReminderConfig) error {
	messages, err := src.DueReminders(ctx, now, config.Lead)
	if err != nil {
		return err
	}
	log.Debugf("reminders due at %s: %d", now.Format(time.RFC3339), len(messages))

	tasks := make([]fanout.Task, 0, len(messages))
	for _, m := range messages {
		m := m
		tasks = append(tasks, func(ctx context.Context) error {
			if err := pub.Publish(ctx, m); err != nil {
				log.WithField("owner", m.OwnerID).WithField("id", m.ID).Errorf("failed to publish reminder: %v", err)
				return fmt.Errorf("publish %s: %w", m.ID, err)
			}
			return nil
		})
	}
	return fanout.Run(ctx, tasks, config.Workers, config.MaxErrors)
}
