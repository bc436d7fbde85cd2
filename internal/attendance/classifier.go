package attendance

import (
	"fmt"
	"time"
	_ "time/tzdata" // reference zone must resolve on hosts without zoneinfo

	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/util"
)

// DefaultZone is the reference timezone for wall-clock times.
const DefaultZone = "America/Mexico_City"

type Label string

const (
	LabelOnTime         Label = "On Time"
	LabelLate           Label = "Late"
	LabelOutOfWindow    Label = "Out of window"
	LabelNoCheckout     Label = "No checkout recorded"
	LabelBeforeCheckout Label = "Before checkout"
	LabelOvertime       Label = "Overtime"
	LabelEarlyDeparture Label = "Early departure"
)

// Classifier labels workday notes against a schedule in a fixed zone.
type Classifier struct {
	loc *time.Location
}

func NewClassifier(loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{loc: loc}
}

// LoadClassifier builds a classifier for the named IANA zone.
func LoadClassifier(zone string) (*Classifier, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", zone, err)
	}
	return NewClassifier(loc), nil
}

func (c *Classifier) Location() *time.Location {
	return c.loc
}

// Classify returns the label of note. The second result is false for general notes.
// sameDay holds the notes of the same calendar day, note itself may be among them.
func (c *Classifier) Classify(note storage.Note, sameDay []storage.Note, schedule Schedule) (Label, bool) {
	minutes := util.MinutesOfDay(note.Time, c.loc)

	switch note.Kind {
	case storage.KindShiftStart:
		if minutes <= schedule.ShiftStart.Minutes() {
			return LabelOnTime, true
		}
		return LabelLate, true

	case storage.KindLunchOut:
		if minutes >= schedule.LunchOutFrom.Minutes() && minutes <= schedule.LunchOutTo.Minutes() {
			return LabelOnTime, true
		}
		return LabelOutOfWindow, true

	case storage.KindLunchReturn:
		checkout, ok := lastLunchOut(sameDay)
		if !ok {
			return LabelNoCheckout, true
		}
		elapsed := note.Time.Sub(checkout.Time)
		switch {
		case elapsed < 0:
			return LabelBeforeCheckout, true
		case elapsed <= time.Duration(schedule.MaxLunchMinutes)*time.Minute:
			return LabelOnTime, true
		default:
			return LabelOvertime, true
		}

	case storage.KindShiftEnd:
		if minutes >= schedule.ShiftEnd.Minutes() {
			return LabelOnTime, true
		}
		return LabelEarlyDeparture, true
	}
	return "", false
}

// lastLunchOut picks the latest lunch-out note. On equal times the last one in list order wins.
func lastLunchOut(notes []storage.Note) (storage.Note, bool) {
	var (
		latest storage.Note
		found  bool
	)
	for _, n := range notes {
		if n.Kind != storage.KindLunchOut {
			continue
		}
		if !found || !n.Time.Before(latest.Time) {
			latest = n
			found = true
		}
	}
	return latest, found
}

// SameDay returns notes falling on the calendar day of day in the classifier zone.
func (c *Classifier) SameDay(notes []storage.Note, day time.Time) []storage.Note {
	start, end := util.DayRange(day, c.loc)
	res := make([]storage.Note, 0)
	for _, n := range notes {
		if !n.Time.Before(start) && n.Time.Before(end) {
			res = append(res, n)
		}
	}
	return res
}

// DayRange returns [start, end) of the calendar day of day in the classifier zone.
func (c *Classifier) DayRange(day time.Time) (time.Time, time.Time) {
	return util.DayRange(day, c.loc)
}

type Entry struct {
	Note  storage.Note `json:"note" yaml:"note"`
	Title string       `json:"title,omitempty" yaml:"title,omitempty"`
	Label Label        `json:"label,omitempty" yaml:"label,omitempty"`
}

// Report classifies every note of one day. Notes keep their order.
func (c *Classifier) Report(dayNotes []storage.Note, schedule Schedule) []Entry {
	entries := make([]Entry, 0, len(dayNotes))
	for _, n := range dayNotes {
		label, _ := c.Classify(n, dayNotes, schedule)
		entries = append(entries, Entry{Note: n, Title: KindTitle(n.Kind), Label: label})
	}
	return entries
}

// KindTitle returns a display title for workday kinds and "" for general notes.
func KindTitle(kind storage.Kind) string {
	switch kind {
	case storage.KindShiftStart:
		return "Shift start"
	case storage.KindLunchOut:
		return "Lunch out"
	case storage.KindLunchReturn:
		return "Lunch return"
	case storage.KindShiftEnd:
		return "Shift end"
	default:
		return ""
	}
}
