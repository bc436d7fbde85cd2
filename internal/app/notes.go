package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/blob"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/validator"
	log "github.com/sirupsen/logrus"
)

const (
	MediaImage = "image"
	MediaVideo = "video"
)

var ErrMediaDisabled = errors.New("media storage is not configured")

type NoteInput struct {
	Text string       `json:"text" validate:"maxlen:4000"`
	Kind storage.Kind `json:"kind"`
	// Time defaults to now.
	Time *time.Time `json:"time,omitempty"`
}

type NoteUpdate struct {
	Text *string       `json:"text,omitempty" validate:"maxlen:4000"`
	Kind *storage.Kind `json:"kind,omitempty"`
	Time *time.Time    `json:"time,omitempty"`
}

type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type MediaLinks struct {
	ImagePreview string `json:"imagePreview,omitempty"`
	ImageView    string `json:"imageView,omitempty"`
	VideoView    string `json:"videoView,omitempty"`
}

type DayReport struct {
	Date     string              `json:"date" yaml:"date"`
	Timezone string              `json:"timezone" yaml:"timezone"`
	Schedule attendance.Schedule `json:"schedule" yaml:"schedule"`
	Entries  []attendance.Entry  `json:"entries" yaml:"entries"`
}

// ListNotes returns owner notes, newest first.
func (a *App) ListNotes(ctx context.Context, owner string) ([]storage.Note, error) {
	return a.Storage.ListNotes(ctx, owner)
}

func (a *App) GetNote(ctx context.Context, owner, id string) (storage.Note, error) {
	return a.Storage.GetNote(ctx, owner, id)
}

// CreateNote stores a draft note. Media is attached afterwards.
func (a *App) CreateNote(ctx context.Context, owner string, in NoteInput) (storage.Note, error) {
	if err := validator.Validate(in); err != nil {
		return storage.Note{}, err
	}
	n := storage.Note{OwnerID: owner, Text: in.Text, Kind: in.Kind, Time: a.now()}
	if in.Time != nil {
		n.Time = *in.Time
	}
	if err := a.Storage.AddNote(ctx, &n); err != nil {
		return storage.Note{}, err
	}
	return n, nil
}

func (a *App) UpdateNote(ctx context.Context, owner, id string, in NoteUpdate) (storage.Note, error) {
	if err := validator.Validate(in); err != nil {
		return storage.Note{}, err
	}
	if in.Kind != nil && !in.Kind.Valid() {
		return storage.Note{}, storage.ErrIncorrectNoteKind
	}
	if in.Time != nil && in.Time.IsZero() {
		return storage.Note{}, storage.ErrIncorrectNoteTime
	}
	return a.Storage.UpdateNote(ctx, owner, id, storage.NotePatch{Text: in.Text, Kind: in.Kind, Time: in.Time})
}

func (a *App) RemoveNote(ctx context.Context, owner, id string) error {
	return a.Storage.RemoveNote(ctx, owner, id)
}

// NotesOfDay returns owner notes of the calendar day of day in the reference zone, oldest first.
func (a *App) NotesOfDay(ctx context.Context, owner string, day time.Time) ([]storage.Note, error) {
	start, end := a.classifier.DayRange(day)
	return a.Storage.GetNotesInRange(ctx, owner, start, end)
}

// DayReport labels every note of a day against the owner schedule.
func (a *App) DayReport(ctx context.Context, owner string, day time.Time) (DayReport, error) {
	notes, err := a.NotesOfDay(ctx, owner, day)
	if err != nil {
		return DayReport{}, err
	}
	schedule, err := a.Schedule(ctx, owner)
	if err != nil {
		return DayReport{}, err
	}
	loc := a.classifier.Location()
	return DayReport{
		Date:     day.In(loc).Format("2006-01-02"),
		Timezone: loc.String(),
		Schedule: schedule,
		Entries:  a.classifier.Report(notes, schedule),
	}, nil
}

// ParseDay parses YYYY-MM-DD as a day of the reference zone.
func (a *App) ParseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", value, a.classifier.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", validator.ErrInvalid, value)
	}
	return day, nil
}

// AttachMedia uploads media and links it to the note. The note keeps its
// text when the upload fails.
func (a *App) AttachMedia(ctx context.Context, owner, noteID, kind string, up Upload) (storage.Note, error) {
	if a.blobs == nil {
		return storage.Note{}, ErrMediaDisabled
	}
	if kind != MediaImage && kind != MediaVideo {
		return storage.Note{}, ErrMediaKind
	}
	if blob.MediaKind(up.ContentType) != kind {
		return storage.Note{}, fmt.Errorf("%w: %s for %s", blob.ErrUnsupportedType, up.ContentType, kind)
	}
	if _, err := a.Storage.GetNote(ctx, owner, noteID); err != nil {
		return storage.Note{}, err
	}

	id, err := a.blobs.Create(ctx, blob.Object{
		OwnerID:     owner,
		Name:        up.Name,
		ContentType: up.ContentType,
		Size:        up.Size,
	}, up.Content)
	if err != nil {
		log.WithField("note", noteID).Errorf("failed to upload %s: %s", kind, err)
		return storage.Note{}, err
	}

	patch := storage.NotePatch{ImageID: &id}
	if kind == MediaVideo {
		patch = storage.NotePatch{VideoID: &id}
	}
	return a.Storage.UpdateNote(ctx, owner, noteID, patch)
}

// MediaLinks returns the preview and view URLs of the note attachments.
func (a *App) MediaLinks(ctx context.Context, owner, noteID string) (MediaLinks, error) {
	n, err := a.Storage.GetNote(ctx, owner, noteID)
	if err != nil {
		return MediaLinks{}, err
	}
	links := MediaLinks{}
	if a.blobs == nil || (n.ImageID == "" && n.VideoID == "") {
		return links, nil
	}
	if n.ImageID != "" {
		if links.ImagePreview, err = a.blobs.PreviewURL(ctx, n.ImageID, a.previewWidth); err != nil {
			return MediaLinks{}, err
		}
		if links.ImageView, err = a.blobs.ViewURL(ctx, n.ImageID); err != nil {
			return MediaLinks{}, err
		}
	}
	if n.VideoID != "" {
		if links.VideoView, err = a.blobs.ViewURL(ctx, n.VideoID); err != nil {
			return MediaLinks{}, err
		}
	}
	return links, nil
}
