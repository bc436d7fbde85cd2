package theme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

const (
	keyTheme           = "theme"
	keyOverridesPrefix = "theme-overrides-"

	// VarPrimaryColor is read back after apply to derive the theme color.
	VarPrimaryColor = "--primary-color"
)

var ErrUnknownMode = errors.New("unknown theme mode")

var defaultThemeColors = map[Mode]string{
	Light: "#8b7001",
	Dark:  "#ffd600",
}

// ParseMode returns Dark only for "dark", anything else is Light.
func ParseMode(s string) Mode {
	if Mode(strings.TrimSpace(s)) == Dark {
		return Dark
	}
	return Light
}

func (m Mode) Valid() bool {
	return m == Light || m == Dark
}

func (m Mode) Toggle() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

// DefaultThemeColor is the theme color used when --primary-color is unset.
func DefaultThemeColor(m Mode) string {
	return defaultThemeColors[ParseMode(string(m))]
}

// Overrides maps a style variable name to its value.
type Overrides map[string]string

// DecodeOverrides decodes a serialized mapping. Corrupt or empty data gives an empty mapping.
func DecodeOverrides(raw string) Overrides {
	ov := Overrides{}
	if strings.TrimSpace(raw) == "" {
		return ov
	}
	if err := json.Unmarshal([]byte(raw), &ov); err != nil || ov == nil {
		return Overrides{}
	}
	return ov
}

func (o Overrides) Encode() (string, error) {
	if o == nil {
		o = Overrides{}
	}
	b, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (o Overrides) Clone() Overrides {
	res := make(Overrides, len(o))
	for k, v := range o {
		res[k] = v
	}
	return res
}

// Names returns variable names in sorted order.
func (o Overrides) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store keeps per-mode overrides in a LocalStore and applies the active set
// to a Presenter. Only one override set is applied at a time.
type Store struct {
	mu        sync.Mutex
	local     LocalStore
	presenter Presenter
	mode      Mode
	applied   Overrides
}

func NewStore(local LocalStore, presenter Presenter) *Store {
	return &Store{local: local, presenter: presenter, mode: Light, applied: Overrides{}}
}

// Load reads the persisted mode and applies its overrides.
func (s *Store) Load(ctx context.Context) error {
	mode, err := s.Theme(ctx)
	if err != nil {
		return err
	}
	ov, err := s.Overrides(ctx, mode)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(mode, ov)
	return nil
}

// Theme returns the persisted mode, Light when absent or invalid.
func (s *Store) Theme(ctx context.Context) (Mode, error) {
	raw, _, err := s.local.Get(ctx, keyTheme)
	if err != nil {
		return Light, fmt.Errorf("failed to read theme: %w", err)
	}
	return ParseMode(raw), nil
}

// Mode returns the currently applied mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ActiveOverrides returns a copy of the applied override set.
func (s *Store) ActiveOverrides() Overrides {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.Clone()
}

// SetTheme persists mode, then reloads and applies its overrides.
func (s *Store) SetTheme(ctx context.Context, mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%q: %w", mode, ErrUnknownMode)
	}
	if err := s.local.Set(ctx, keyTheme, string(mode)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	ov, err := s.Overrides(ctx, mode)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.applied {
		if _, ok := ov[name]; !ok {
			s.presenter.RemoveProperty(name)
		}
	}
	s.apply(mode, ov)
	return nil
}

func (s *Store) Toggle(ctx context.Context) (Mode, error) {
	mode := s.Mode().Toggle()
	return mode, s.SetTheme(ctx, mode)
}

// Overrides returns the persisted mapping of mode, empty on missing or corrupt data.
func (s *Store) Overrides(ctx context.Context, mode Mode) (Overrides, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%q: %w", mode, ErrUnknownMode)
	}
	raw, ok, err := s.local.Get(ctx, keyOverridesPrefix+string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s overrides: %w", mode, err)
	}
	if !ok {
		return Overrides{}, nil
	}
	return DecodeOverrides(raw), nil
}

// SetOverride merges one variable into the mapping of mode and persists it.
// The value reaches the presenter right away only when mode is active.
func (s *Store) SetOverride(ctx context.Context, mode Mode, name, value string) error {
	ov, err := s.Overrides(ctx, mode)
	if err != nil {
		return err
	}
	ov[name] = value
	if err := s.save(ctx, mode, ov); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == s.mode {
		s.presenter.SetProperty(name, value)
		s.applied[name] = value
		s.refreshThemeColor()
	}
	return nil
}

// ResetOverrides unsets every override of mode from the presenter and persists an empty mapping.
func (s *Store) ResetOverrides(ctx context.Context, mode Mode) error {
	current, err := s.Overrides(ctx, mode)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if mode == s.mode {
		for name := range current {
			s.presenter.RemoveProperty(name)
			delete(s.applied, name)
		}
		s.refreshThemeColor()
	}
	s.mu.Unlock()

	return s.save(ctx, mode, Overrides{})
}

// Apply sets the mode marker and applies every pair of ov to the presenter.
func (s *Store) Apply(mode Mode, ov Overrides) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(mode, ov)
}

func (s *Store) apply(mode Mode, ov Overrides) {
	s.presenter.SetMode(mode)
	for _, name := range ov.Names() {
		s.presenter.SetProperty(name, ov[name])
	}
	s.mode = mode
	s.applied = ov.Clone()
	// Theme color is read back only after the whole set is applied.
	s.refreshThemeColor()
}

func (s *Store) refreshThemeColor() {
	color := s.presenter.Property(VarPrimaryColor)
	if color == "" {
		color = DefaultThemeColor(s.mode)
	}
	s.presenter.SetThemeColor(color)
}

func (s *Store) save(ctx context.Context, mode Mode, ov Overrides) error {
	raw, err := ov.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s overrides: %w", mode, err)
	}
	if err := s.local.Set(ctx, keyOverridesPrefix+string(mode), raw); err != nil {
		return fmt.Errorf("failed to save %s overrides: %w", mode, err)
	}
	return nil
}
