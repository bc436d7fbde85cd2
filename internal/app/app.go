package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/blob"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/theme"
)

var ErrMediaKind = errors.New("media kind must be image or video")

type Config struct {
	// Timezone is the reference zone for classification and the default of new settings.
	Timezone     string
	PreviewWidth int
}

type App struct {
	Storage      storage.Storage
	blobs        blob.Store
	tokens       *auth.Tokens
	themes       theme.LocalStore
	classifier   *attendance.Classifier
	timezone     string
	previewWidth int
	now          func() time.Time
}

func New(
	stor storage.Storage,
	blobs blob.Store,
	tokens *auth.Tokens,
	themes theme.LocalStore,
	config Config,
) (*App, error) {
	classifier, err := attendance.LoadClassifier(config.Timezone)
	if err != nil {
		return nil, err
	}
	width := config.PreviewWidth
	if width <= 0 {
		width = blob.DefaultPreviewWidth
	}
	if themes == nil {
		themes = theme.NewMemoryStore()
	}
	return &App{
		Storage:      stor,
		blobs:        blobs,
		tokens:       tokens,
		themes:       themes,
		classifier:   classifier,
		timezone:     classifier.Location().String(),
		previewWidth: width,
		now:          time.Now,
	}, nil
}

func (a *App) Classifier() *attendance.Classifier {
	return a.classifier
}

// Blobs returns the blob store, it is nil when media is disabled.
func (a *App) Blobs() blob.Store {
	return a.blobs
}

// Authenticate resolves a bearer token into a user id.
func (a *App) Authenticate(_ context.Context, token string) (string, error) {
	if token == "" || a.tokens == nil {
		return "", auth.ErrNoUser
	}
	id, err := a.tokens.Parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %s", auth.ErrNoUser, err.Error())
	}
	return id, nil
}
