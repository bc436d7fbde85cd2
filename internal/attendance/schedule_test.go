package attendance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	fallback := TimeOfDay{Hour: 8}
	tests := []struct {
		input    string
		expected TimeOfDay
	}{
		{input: "09:15", expected: TimeOfDay{Hour: 9, Minute: 15}},
		{input: " 7:05 ", expected: TimeOfDay{Hour: 7, Minute: 5}},
		{input: "00:00", expected: TimeOfDay{}},
		{input: "23:59", expected: TimeOfDay{Hour: 23, Minute: 59}},
		{input: "", expected: fallback},
		{input: "9", expected: fallback},
		{input: "24:00", expected: fallback},
		{input: "10:60", expected: fallback},
		{input: "aa:bb", expected: fallback},
		{input: "10:00:00", expected: fallback},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expected, ParseTimeOfDay(tc.input, fallback), tc.input)
	}
}

func TestScheduleVars(t *testing.T) {
	s := Schedule{
		ShiftStart:      TimeOfDay{Hour: 9},
		LunchOutFrom:    TimeOfDay{Hour: 13},
		LunchOutTo:      TimeOfDay{Hour: 15},
		ShiftEnd:        TimeOfDay{Hour: 19, Minute: 30},
		MaxLunchMinutes: 45,
	}
	vars := make(map[string]string)
	for _, kv := range s.Vars() {
		vars[kv[0]] = kv[1]
	}
	require.Equal(t, "19:30", vars[VarShiftEnd])
	require.Equal(t, s, ScheduleFromVars(vars))
}

func TestWorkingDay(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		wd := WorkingDay{Start: "09:00", End: "17:00", MaxLunchMinutes: 30}
		raw, err := wd.Encode()
		require.NoError(t, err)
		require.Equal(t, wd, ParseWorkingDay(raw))

		s := wd.Schedule()
		require.Equal(t, TimeOfDay{Hour: 9}, s.ShiftStart)
		require.Equal(t, TimeOfDay{Hour: 17}, s.ShiftEnd)
		require.Equal(t, DefaultLunchOutFrom, s.LunchOutFrom)
		require.Equal(t, DefaultLunchOutTo, s.LunchOutTo)
		require.Equal(t, 30, s.MaxLunchMinutes)
	})

	t.Run("corrupt blob", func(t *testing.T) {
		require.Equal(t, WorkingDay{}, ParseWorkingDay("{not json"))
		require.Equal(t, WorkingDay{}, ParseWorkingDay(""))
		require.Equal(t, DefaultSchedule(), ParseWorkingDay("{not json").Schedule())
	})

	t.Run("vars skip empty fields", func(t *testing.T) {
		vars := WorkingDay{LunchOutTo: "15:00"}.Vars()
		require.Equal(t, [][2]string{{VarLunchOutTo, "15:00"}}, vars)
	})

	t.Run("zero max lunch uses default", func(t *testing.T) {
		wd := WorkingDay{Start: "09:00", MaxLunchMinutes: 0}
		require.Equal(t, [][2]string{{VarShiftStart, "09:00"}}, wd.Vars())
		require.Equal(t, DefaultMaxLunchMinutes, wd.Schedule().MaxLunchMinutes)

		raw, err := wd.Encode()
		require.NoError(t, err)
		require.NotContains(t, raw, "maxLunchMinutes")
		require.Equal(t, WorkingDay{}, WorkingDayFromVars(map[string]string{VarMaxLunchMinutes: "0"}))
	})

	t.Run("from vars", func(t *testing.T) {
		wd := WorkingDayFromVars(map[string]string{VarShiftStart: " 07:30 ", VarMaxLunchMinutes: "x"})
		require.Equal(t, WorkingDay{Start: "07:30"}, wd)
	})
}

func TestScheduleJSON(t *testing.T) {
	raw, err := json.Marshal(DefaultSchedule())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"shiftStart":"08:00"`)

	var s Schedule
	require.NoError(t, json.Unmarshal(raw, &s))
	require.Equal(t, DefaultSchedule(), s)

	require.Error(t, json.Unmarshal([]byte(`{"shiftStart":"25:00"}`), &s))
}
