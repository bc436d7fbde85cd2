package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/push"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/theme"
	"github.com/lomoval/notecal/internal/validator"
)

var ErrUnknownTimezone = errors.New("unknown timezone")

// Settings returns the settings of owner, creating defaults on first access.
func (a *App) Settings(ctx context.Context, owner string) (storage.Settings, error) {
	s, err := a.Storage.FindSettings(ctx, owner)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, storage.ErrNotFoundSettings) {
		return storage.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	s = storage.Settings{OwnerID: owner, Timezone: a.timezone, UpdatedAt: a.now().UTC()}
	err = a.Storage.AddSettings(ctx, &s)
	if errors.Is(err, storage.ErrDuplicateSettings) {
		// Created concurrently by another request.
		return a.Storage.FindSettings(ctx, owner)
	}
	if err != nil {
		return storage.Settings{}, fmt.Errorf("failed to create settings: %w", err)
	}
	return s, nil
}

func (a *App) WorkingDay(ctx context.Context, owner string) (attendance.WorkingDay, error) {
	s, err := a.Settings(ctx, owner)
	if err != nil {
		return attendance.WorkingDay{}, err
	}
	return attendance.ParseWorkingDay(s.WorkingDay), nil
}

func (a *App) SetWorkingDay(ctx context.Context, owner string, wd attendance.WorkingDay) (storage.Settings, error) {
	raw, err := encodeWorkingDay(wd)
	if err != nil {
		return storage.Settings{}, err
	}
	return a.updateSettings(ctx, owner, storage.SettingsPatch{WorkingDay: &raw})
}

func (a *App) SetTimezone(ctx context.Context, owner, zone string) (storage.Settings, error) {
	zone = strings.TrimSpace(zone)
	if _, err := time.LoadLocation(zone); err != nil || zone == "" {
		return storage.Settings{}, fmt.Errorf("%q: %w", zone, ErrUnknownTimezone)
	}
	return a.updateSettings(ctx, owner, storage.SettingsPatch{Timezone: &zone})
}

// SetPushToken registers the device token used for reminders.
func (a *App) SetPushToken(ctx context.Context, owner, token string) (storage.Settings, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return storage.Settings{}, push.ErrNoToken
	}
	return a.updateSettings(ctx, owner, storage.SettingsPatch{PushToken: &token})
}

// SaveRemote persists the working day (when given) and the overrides of the active
// theme mode into the settings document.
func (a *App) SaveRemote(ctx context.Context, owner string, wd *attendance.WorkingDay) (storage.Settings, error) {
	patch := storage.SettingsPatch{}
	if wd != nil {
		raw, err := encodeWorkingDay(*wd)
		if err != nil {
			return storage.Settings{}, err
		}
		patch.WorkingDay = &raw
	}

	p, err := a.presentation(ctx, owner)
	if err != nil {
		return storage.Settings{}, err
	}
	overrides, err := p.store.ActiveOverrides().Encode()
	if err != nil {
		return storage.Settings{}, err
	}
	patch.ThemeOverrides = &overrides
	return a.updateSettings(ctx, owner, patch)
}

// LoadRemote applies the stored settings document to the local theme state:
// working hours first, then every remote override into the active mode.
func (a *App) LoadRemote(ctx context.Context, owner string) (ThemeView, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return ThemeView{}, err
	}
	mode := p.store.Mode()
	for _, v := range attendance.ParseWorkingDay(p.settings.WorkingDay).Vars() {
		if err := p.store.SetOverride(ctx, mode, v[0], v[1]); err != nil {
			return ThemeView{}, err
		}
	}
	remote := theme.DecodeOverrides(p.settings.ThemeOverrides)
	for _, name := range remote.Names() {
		if err := p.store.SetOverride(ctx, mode, name, remote[name]); err != nil {
			return ThemeView{}, err
		}
	}
	return p.view(), nil
}

// Schedule resolves the effective schedule of owner from its style variables.
func (a *App) Schedule(ctx context.Context, owner string) (attendance.Schedule, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return attendance.Schedule{}, err
	}
	return attendance.ScheduleFromVars(p.sheet.Properties()), nil
}

func (a *App) updateSettings(ctx context.Context, owner string, patch storage.SettingsPatch) (storage.Settings, error) {
	if _, err := a.Settings(ctx, owner); err != nil {
		return storage.Settings{}, err
	}
	s, err := a.Storage.UpdateSettings(ctx, owner, patch)
	if err != nil {
		return storage.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return s, nil
}

func encodeWorkingDay(wd attendance.WorkingDay) (string, error) {
	if err := validator.Validate(wd); err != nil {
		return "", err
	}
	return wd.Encode()
}
