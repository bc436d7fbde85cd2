package theme

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *Stylesheet, *MemoryStore) {
	t.Helper()
	local := NewMemoryStore()
	sheet := NewStylesheet()
	s := NewStore(local, sheet)
	require.NoError(t, s.Load(context.Background()))
	return s, sheet, local
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected Mode
	}{
		{input: "dark", expected: Dark},
		{input: " dark ", expected: Dark},
		{input: "light", expected: Light},
		{input: "", expected: Light},
		{input: "DARK", expected: Light},
		{input: "sepia", expected: Light},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.expected, ParseMode(tc.input))
		})
	}
}

func TestThemeDefaultsToLight(t *testing.T) {
	ctx := context.Background()
	s, sheet, local := newTestStore(t)

	mode, err := s.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, Light, mode)
	require.Equal(t, Light, sheet.Mode())
	require.Equal(t, "#8b7001", sheet.ThemeColor())

	require.NoError(t, local.Set(ctx, keyTheme, "purple"))
	mode, err = s.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, Light, mode)
}

func TestSetThemeAndToggle(t *testing.T) {
	ctx := context.Background()
	s, sheet, _ := newTestStore(t)

	require.NoError(t, s.SetTheme(ctx, Dark))
	require.Equal(t, Dark, sheet.Mode())
	require.Equal(t, "#ffd600", sheet.ThemeColor())

	mode, err := s.Toggle(ctx)
	require.NoError(t, err)
	require.Equal(t, Light, mode)
	require.Equal(t, Light, sheet.Mode())

	err = s.SetTheme(ctx, Mode("sepia"))
	require.True(t, errors.Is(err, ErrUnknownMode))
}

func TestSetOverrideActiveMode(t *testing.T) {
	ctx := context.Background()
	s, sheet, _ := newTestStore(t)

	require.NoError(t, s.SetOverride(ctx, Light, VarPrimaryColor, "#123456"))
	require.Equal(t, "#123456", sheet.Property(VarPrimaryColor))
	require.Equal(t, "#123456", sheet.ThemeColor())

	ov, err := s.Overrides(ctx, Light)
	require.NoError(t, err)
	require.Equal(t, Overrides{VarPrimaryColor: "#123456"}, ov)
}

func TestSetOverrideInactiveMode(t *testing.T) {
	ctx := context.Background()
	s, sheet, _ := newTestStore(t)

	require.NoError(t, s.SetOverride(ctx, Dark, "--x", "v"))
	require.Equal(t, "", sheet.Property("--x"))
	require.Empty(t, s.ActiveOverrides())

	require.NoError(t, s.SetTheme(ctx, Dark))
	require.Equal(t, "v", sheet.Property("--x"))

	require.NoError(t, s.SetTheme(ctx, Light))
	require.Equal(t, "", sheet.Property("--x"))
}

func TestResetOverrides(t *testing.T) {
	ctx := context.Background()
	s, sheet, _ := newTestStore(t)

	require.NoError(t, s.SetOverride(ctx, Light, "--bg", "white"))
	require.NoError(t, s.SetOverride(ctx, Light, VarPrimaryColor, "#000000"))
	require.NoError(t, s.ResetOverrides(ctx, Light))

	require.Equal(t, "", sheet.Property("--bg"))
	require.Equal(t, "", sheet.Property(VarPrimaryColor))
	require.Equal(t, "#8b7001", sheet.ThemeColor())

	ov, err := s.Overrides(ctx, Light)
	require.NoError(t, err)
	require.Empty(t, ov)
}

func TestOverridesSurviveReload(t *testing.T) {
	ctx := context.Background()
	s, _, local := newTestStore(t)

	require.NoError(t, s.SetOverride(ctx, Dark, "--bg", "black"))
	require.NoError(t, s.SetOverride(ctx, Dark, VarPrimaryColor, "#ff0000"))
	require.NoError(t, s.SetTheme(ctx, Dark))

	sheet := NewStylesheet()
	reloaded := NewStore(local, sheet)
	require.NoError(t, reloaded.Load(ctx))

	require.Equal(t, Dark, reloaded.Mode())
	require.Equal(t, "black", sheet.Property("--bg"))
	require.Equal(t, "#ff0000", sheet.ThemeColor())
}

func TestCorruptOverrides(t *testing.T) {
	ctx := context.Background()
	s, sheet, local := newTestStore(t)

	for _, raw := range []string{"{not json", "[1,2]", "null", ""} {
		require.NoError(t, local.Set(ctx, keyOverridesPrefix+string(Light), raw))
		ov, err := s.Overrides(ctx, Light)
		require.NoError(t, err)
		require.Empty(t, ov)
	}

	require.NoError(t, s.Load(ctx))
	require.Empty(t, sheet.Properties())
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryStore()
	a := NewStore(Namespace(shared, "a"), NewStylesheet())
	b := NewStore(Namespace(shared, "b"), NewStylesheet())

	require.NoError(t, a.SetTheme(ctx, Dark))
	mode, err := b.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, Light, mode)
}

func TestStylesheetCSS(t *testing.T) {
	sheet := NewStylesheet()
	sheet.SetMode(Dark)
	sheet.SetProperty("--b", "2px")
	sheet.SetProperty("--a", "red; } body { color: red")
	sheet.SetProperty("--c", " ")

	require.Equal(t, ":root[data-theme=\"dark\"] {\n  --a: red  body  color: red;\n  --b: 2px;\n}\n", sheet.CSS())
}
