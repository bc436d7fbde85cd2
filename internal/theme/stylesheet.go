package theme

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Presenter is the presentation layer the store applies overrides to.
type Presenter interface {
	SetMode(mode Mode)
	SetProperty(name, value string)
	RemoveProperty(name string)
	// Property returns "" for unset properties.
	Property(name string) string
	// SetThemeColor sets the browser theme-color hint.
	SetThemeColor(color string)
}

// Stylesheet is a Presenter that renders custom properties as CSS.
type Stylesheet struct {
	mu         sync.RWMutex
	mode       Mode
	props      map[string]string
	themeColor string
}

func NewStylesheet() *Stylesheet {
	return &Stylesheet{mode: Light, props: make(map[string]string)}
}

func (s *Stylesheet) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

func (s *Stylesheet) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Stylesheet) SetProperty(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(value) == "" {
		delete(s.props, name)
		return
	}
	s.props[name] = value
}

func (s *Stylesheet) RemoveProperty(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.props, name)
}

func (s *Stylesheet) Property(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.TrimSpace(s.props[name])
}

// Properties returns a copy of all set properties.
func (s *Stylesheet) Properties() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[string]string, len(s.props))
	for k, v := range s.props {
		res[k] = v
	}
	return res
}

func (s *Stylesheet) SetThemeColor(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themeColor = color
}

func (s *Stylesheet) ThemeColor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.themeColor
}

// CSS renders the root rule for the active mode.
func (s *Stylesheet) CSS() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.props))
	for name := range s.props {
		names = append(names, name)
	}
	sort.Strings(names)

	b := strings.Builder{}
	b.WriteString(fmt.Sprintf(":root[data-theme=%q] {\n", s.mode))
	for _, name := range names {
		b.WriteString(fmt.Sprintf("  %s: %s;\n", name, sanitizeValue(s.props[name])))
	}
	b.WriteString("}\n")
	return b.String()
}

// sanitizeValue keeps a value from closing the declaration or the rule.
func sanitizeValue(v string) string {
	return strings.NewReplacer(";", "", "{", "", "}", "", "\n", " ").Replace(v)
}
