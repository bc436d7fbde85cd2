package app

import (
	"bytes"
	"context"
	"html"
	"strings"
	"unicode/utf8"

	ical "github.com/arran4/golang-ical"
	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

const (
	calendarProductID = "-//lomoval//notecal//EN"
	summaryMaxRunes   = 60
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
)

// ExportICS renders owner notes as an iCalendar document, one VEVENT per note.
func (a *App) ExportICS(ctx context.Context, owner string) (string, error) {
	notes, err := a.Storage.ListNotes(ctx, owner)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)
	stamp := a.now().UTC()
	for _, n := range notes {
		e := cal.AddEvent(n.ID + "@notecal")
		e.SetDtStampTime(stamp)
		e.SetStartAt(n.Time)
		e.SetEndAt(n.Time)
		e.SetSummary(noteSummary(n))
		e.SetProperty(ical.ComponentPropertyCategories, string(n.Kind.OrGeneral()))
		if n.Text != "" {
			e.SetDescription(n.Text)
			e.SetProperty(
				ical.ComponentProperty("X-ALT-DESC"),
				renderMarkdown(n.Text),
				&ical.KeyValues{Key: "FMTTYPE", Value: []string{"text/html"}},
			)
		}
	}
	return cal.Serialize(), nil
}

func noteSummary(n storage.Note) string {
	if title := attendance.KindTitle(n.Kind); title != "" {
		return title
	}
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(n.Text), "\n", 2)[0])
	if line == "" {
		return "Note"
	}
	if utf8.RuneCountInString(line) > summaryMaxRunes {
		line = string([]rune(line)[:summaryMaxRunes]) + "…"
	}
	return line
}

func renderMarkdown(text string) string {
	var out bytes.Buffer
	if err := markdown.Convert([]byte(text), &out); err != nil {
		return html.EscapeString(text)
	}
	return strings.TrimSpace(out.String())
}
