package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/validator"
	log "github.com/sirupsen/logrus"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required|maxlen:100"`
	Email    string `json:"email" validate:"required|maxlen:254|regexp:^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"`
	Password string `json:"password" validate:"minlen:8|maxlen:72"`
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      storage.User `json:"user"`
}

// Register creates a user together with its default settings.
func (a *App) Register(ctx context.Context, in RegisterInput) (storage.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validator.Validate(in); err != nil {
		return storage.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return storage.User{}, err
	}
	u := storage.User{Email: in.Email, Name: in.Name, PasswordHash: hash, CreatedAt: a.now().UTC()}
	if err := a.Storage.AddUser(ctx, &u); err != nil {
		return storage.User{}, err
	}
	if _, err := a.Settings(ctx, u.ID); err != nil {
		log.WithField("user", u.ID).Warnf("failed to create default settings: %s", err)
	}
	return u, nil
}

// Login checks credentials and issues a bearer token.
func (a *App) Login(ctx context.Context, email, password string) (Session, error) {
	if a.tokens == nil {
		return Session{}, errors.New("token issuing is not configured")
	}
	u, err := a.Storage.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFoundUser) {
			return Session{}, auth.ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("failed to find user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, err
	}
	token, expires, err := a.tokens.Sign(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: u}, nil
}

func (a *App) User(ctx context.Context, id string) (storage.User, error) {
	return a.Storage.GetUser(ctx, id)
}
