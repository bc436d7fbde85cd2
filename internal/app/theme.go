package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/theme"
	"github.com/lomoval/notecal/internal/validator"
)

type ThemeView struct {
	Mode       theme.Mode        `json:"mode"`
	ThemeColor string            `json:"themeColor"`
	Overrides  theme.Overrides   `json:"overrides"`
	Properties map[string]string `json:"properties"`
}

type overrideInput struct {
	Name  string `validate:"regexp:^--[a-zA-Z0-9-]+$|maxlen:64"`
	Value string `validate:"maxlen:256"`
}

// presentation is the theme state of one user: a stylesheet with working hours
// applied first and the stored overrides of the active mode on top.
type presentation struct {
	settings storage.Settings
	sheet    *theme.Stylesheet
	store    *theme.Store
}

func (p presentation) view() ThemeView {
	return ThemeView{
		Mode:       p.store.Mode(),
		ThemeColor: p.sheet.ThemeColor(),
		Overrides:  p.store.ActiveOverrides(),
		Properties: p.sheet.Properties(),
	}
}

func (a *App) presentation(ctx context.Context, owner string) (presentation, error) {
	s, err := a.Settings(ctx, owner)
	if err != nil {
		return presentation{}, err
	}
	sheet := theme.NewStylesheet()
	for _, kv := range attendance.ParseWorkingDay(s.WorkingDay).Vars() {
		sheet.SetProperty(kv[0], kv[1])
	}
	store := theme.NewStore(theme.Namespace(a.themes, owner), sheet)
	if err := store.Load(ctx); err != nil {
		return presentation{}, err
	}
	return presentation{settings: s, sheet: sheet, store: store}, nil
}

func (a *App) Theme(ctx context.Context, owner string) (ThemeView, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return ThemeView{}, err
	}
	return p.view(), nil
}

func (a *App) SetThemeMode(ctx context.Context, owner string, mode theme.Mode) (ThemeView, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return ThemeView{}, err
	}
	if err := p.store.SetTheme(ctx, mode); err != nil {
		return ThemeView{}, err
	}
	return p.view(), nil
}

func (a *App) ToggleTheme(ctx context.Context, owner string) (ThemeView, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return ThemeView{}, err
	}
	if _, err := p.store.Toggle(ctx); err != nil {
		return ThemeView{}, err
	}
	return p.view(), nil
}

func (a *App) ModeOverrides(ctx context.Context, owner string, mode theme.Mode) (theme.Overrides, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return nil, err
	}
	return p.store.Overrides(ctx, mode)
}

// SetOverrides merges every pair of ov into the overrides of mode.
func (a *App) SetOverrides(ctx context.Context, owner string, mode theme.Mode, ov theme.Overrides) (ThemeView, error) {
	for _, name := range ov.Names() {
		if err := validator.Validate(overrideInput{Name: name, Value: ov[name]}); err != nil {
			return ThemeView{}, fmt.Errorf("override %s: %w", name, err)
		}
	}
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return ThemeView{}, err
	}
	for _, name := range ov.Names() {
		if err := p.store.SetOverride(ctx, mode, name, strings.TrimSpace(ov[name])); err != nil {
			return ThemeView{}, err
		}
	}
	return p.view(), nil
}

func (a *App) ResetOverrides(ctx context.Context, owner string, mode theme.Mode) (ThemeView, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return ThemeView{}, err
	}
	if err := p.store.ResetOverrides(ctx, mode); err != nil {
		return ThemeView{}, err
	}
	return p.view(), nil
}

// StylesheetCSS renders the style variables of owner for the active mode.
func (a *App) StylesheetCSS(ctx context.Context, owner string) (string, error) {
	p, err := a.presentation(ctx, owner)
	if err != nil {
		return "", err
	}
	return p.sheet.CSS(), nil
}
