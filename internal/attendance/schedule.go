package attendance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Style variables that carry the schedule on the presentation side.
const (
	VarShiftStart      = "--shift-start"
	VarShiftEnd        = "--shift-end"
	VarLunchOutFrom    = "--lunch-out-from"
	VarLunchOutTo      = "--lunch-out-to"
	VarMaxLunchMinutes = "--max-lunch-minutes"
)

var (
	DefaultShiftStart      = TimeOfDay{Hour: 8}
	DefaultLunchOutFrom    = TimeOfDay{Hour: 12}
	DefaultLunchOutTo      = TimeOfDay{Hour: 16, Minute: 30}
	DefaultShiftEnd        = TimeOfDay{Hour: 18}
	DefaultMaxLunchMinutes = 60
)

type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	invalid := TimeOfDay{Hour: -1}
	parsed := ParseTimeOfDay(string(text), invalid)
	if parsed == invalid {
		return fmt.Errorf("invalid time of day %q", text)
	}
	*t = parsed
	return nil
}

// ParseTimeOfDay parses "HH:mm". Empty or malformed values give the fallback.
func ParseTimeOfDay(value string, fallback TimeOfDay) TimeOfDay {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return fallback
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 || h > 23 {
		return fallback
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 || m > 59 {
		return fallback
	}
	return TimeOfDay{Hour: h, Minute: m}
}

func parseMinutes(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// Schedule is the working-hours configuration used for classification.
type Schedule struct {
	ShiftStart      TimeOfDay `json:"shiftStart" yaml:"shiftStart"`
	LunchOutFrom    TimeOfDay `json:"lunchOutFrom" yaml:"lunchOutFrom"`
	LunchOutTo      TimeOfDay `json:"lunchOutTo" yaml:"lunchOutTo"`
	ShiftEnd        TimeOfDay `json:"shiftEnd" yaml:"shiftEnd"`
	MaxLunchMinutes int       `json:"maxLunchMinutes" yaml:"maxLunchMinutes"`
}

func DefaultSchedule() Schedule {
	return Schedule{
		ShiftStart:      DefaultShiftStart,
		LunchOutFrom:    DefaultLunchOutFrom,
		LunchOutTo:      DefaultLunchOutTo,
		ShiftEnd:        DefaultShiftEnd,
		MaxLunchMinutes: DefaultMaxLunchMinutes,
	}
}

// ScheduleFromVars reads the schedule from style variables.
// Missing or unparseable variables fall back to defaults.
func ScheduleFromVars(vars map[string]string) Schedule {
	return Schedule{
		ShiftStart:      ParseTimeOfDay(vars[VarShiftStart], DefaultShiftStart),
		LunchOutFrom:    ParseTimeOfDay(vars[VarLunchOutFrom], DefaultLunchOutFrom),
		LunchOutTo:      ParseTimeOfDay(vars[VarLunchOutTo], DefaultLunchOutTo),
		ShiftEnd:        ParseTimeOfDay(vars[VarShiftEnd], DefaultShiftEnd),
		MaxLunchMinutes: parseMinutes(vars[VarMaxLunchMinutes], DefaultMaxLunchMinutes),
	}
}

// Vars returns the schedule as style variables, working hours first.
func (s Schedule) Vars() [][2]string {
	return [][2]string{
		{VarShiftStart, s.ShiftStart.String()},
		{VarShiftEnd, s.ShiftEnd.String()},
		{VarLunchOutFrom, s.LunchOutFrom.String()},
		{VarLunchOutTo, s.LunchOutTo.String()},
		{VarMaxLunchMinutes, strconv.Itoa(s.MaxLunchMinutes)},
	}
}

// WorkingDay is the working-hours document kept in user settings.
// Empty fields mean "not configured". A MaxLunchMinutes of 0 is not configured
// either, so the schedule falls back to DefaultMaxLunchMinutes.
type WorkingDay struct {
	Start           string `json:"start,omitempty" validate:"regexp:^([0-9]{2}:[0-9]{2})?$"`
	End             string `json:"end,omitempty" validate:"regexp:^([0-9]{2}:[0-9]{2})?$"`
	LunchOutFrom    string `json:"lunchOutFrom,omitempty" validate:"regexp:^([0-9]{2}:[0-9]{2})?$"`
	LunchOutTo      string `json:"lunchOutTo,omitempty" validate:"regexp:^([0-9]{2}:[0-9]{2})?$"`
	MaxLunchMinutes int    `json:"maxLunchMinutes,omitempty" validate:"min:0|max:1440"`
}

// ParseWorkingDay decodes the settings blob. Corrupt or empty data gives an empty WorkingDay.
func ParseWorkingDay(raw string) WorkingDay {
	var wd WorkingDay
	if strings.TrimSpace(raw) == "" {
		return wd
	}
	if err := json.Unmarshal([]byte(raw), &wd); err != nil {
		return WorkingDay{}
	}
	return wd
}

func (wd WorkingDay) Encode() (string, error) {
	b, err := json.Marshal(wd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Vars returns the configured fields as style variables in apply order.
func (wd WorkingDay) Vars() [][2]string {
	vars := make([][2]string, 0, 5)
	add := func(name, value string) {
		if value != "" {
			vars = append(vars, [2]string{name, value})
		}
	}
	add(VarShiftStart, wd.Start)
	add(VarShiftEnd, wd.End)
	add(VarLunchOutFrom, wd.LunchOutFrom)
	add(VarLunchOutTo, wd.LunchOutTo)
	if wd.MaxLunchMinutes > 0 {
		add(VarMaxLunchMinutes, strconv.Itoa(wd.MaxLunchMinutes))
	}
	return vars
}

func (wd WorkingDay) Schedule() Schedule {
	vars := make(map[string]string)
	for _, kv := range wd.Vars() {
		vars[kv[0]] = kv[1]
	}
	return ScheduleFromVars(vars)
}

// WorkingDayFromVars collects the working-hours fields from style variables.
func WorkingDayFromVars(vars map[string]string) WorkingDay {
	return WorkingDay{
		Start:           strings.TrimSpace(vars[VarShiftStart]),
		End:             strings.TrimSpace(vars[VarShiftEnd]),
		LunchOutFrom:    strings.TrimSpace(vars[VarLunchOutFrom]),
		LunchOutTo:      strings.TrimSpace(vars[VarLunchOutTo]),
		MaxLunchMinutes: parseMinutes(vars[VarMaxLunchMinutes], 0),
	}
}
