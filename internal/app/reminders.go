package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/push"
	"github.com/lomoval/notecal/internal/util"
	log "github.com/sirupsen/logrus"
)

// DueReminders builds push messages for subscribers whose shift starts or ends
// lead after now, matched to the minute in the subscriber timezone.
func (a *App) DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]push.Message, error) {
	subs, err := a.Storage.ListPushSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	at := now.Add(lead)
	messages := make([]push.Message, 0)
	for _, s := range subs {
		loc := a.classifier.Location()
		if s.Timezone != "" {
			if l, err := time.LoadLocation(s.Timezone); err == nil {
				loc = l
			}
		}
		schedule := attendance.ParseWorkingDay(s.WorkingDay).Schedule()
		minutes := util.MinutesOfDay(at, loc)

		var title string
		var bound attendance.TimeOfDay
		switch minutes {
		case schedule.ShiftStart.Minutes():
			title, bound = "Shift start", schedule.ShiftStart
		case schedule.ShiftEnd.Minutes():
			title, bound = "Shift end", schedule.ShiftEnd
		default:
			continue
		}

		m, err := push.NewMessage(s.OwnerID, s.PushToken, title, reminderBody(title, bound, lead), at)
		if err != nil {
			if errors.Is(err, push.ErrNoToken) {
				log.WithField("owner", s.OwnerID).Debug("skip reminder without token")
				continue
			}
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func reminderBody(title string, bound attendance.TimeOfDay, lead time.Duration) string {
	if lead <= 0 {
		return fmt.Sprintf("%s at %s. Don't forget to add a note.", title, bound)
	}
	return fmt.Sprintf("%s at %s, in %d min. Don't forget to add a note.", title, bound, int(lead.Minutes()))
}
