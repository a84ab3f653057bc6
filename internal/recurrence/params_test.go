package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestParseFrequencyAliases(t *testing.T) {
	tests := map[string]Frequency{
		"One Time":       OneTime,
		"daily":          Daily,
		"Half yearly":    HalfYearly,
		"Half-yearly":    HalfYearly,
		"Specific Day's": SpecificDays,
		"Specific Days":  SpecificDays,
		" WEEKLY ":       Weekly,
	}
	for in, want := range tests {
		got, ok := ParseFrequency(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseFrequency("Fortnightly")
	assert.False(t, ok)
}

func TestRecurs(t *testing.T) {
	assert.False(t, OneTime.Recurs())
	assert.False(t, Frequency("").Recurs())
	assert.False(t, Frequency("one-time").Recurs())
	assert.True(t, Daily.Recurs())
	assert.True(t, Frequency("Half yearly").Recurs())
}

func TestDecode(t *testing.T) {
	p := Decode(Weekly, []byte(`{"dayOfWeek":"Friday"}`))
	assert.Equal(t, WeeklyParams{DayOfWeek: "Friday"}, p)

	// Serialized text inside a JSON string.
	p = Decode(Monthly, []byte(`"{\"dateOfMonth\":\"31\"}"`))
	assert.Equal(t, MonthlyParams{DateOfMonth: 31}, p)

	p = Decode(Monthly, []byte(`{"dateOfMonth":12}`))
	assert.Equal(t, MonthlyParams{DateOfMonth: 12}, p)

	p = Decode(SpecificDays, []byte(`{"occurrence":"2nd","day":"Tuesday","period":"of the month"}`))
	assert.Equal(t, SpecificDayParams{Occurrence: "2nd", Day: "Tuesday", Period: "of the month"}, p)

	p = Decode(Quarterly, []byte(`{"firstDate":"2024-01-15"}`))
	assert.Equal(t, IntervalParams{Every: Quarterly, FirstDate: "2024-01-15"}, p)
	assert.Equal(t, Quarterly, p.Frequency())
}

func TestDecodeToleratesGarbage(t *testing.T) {
	assert.Equal(t, WeeklyParams{}, Decode(Weekly, []byte(`not json`)))
	assert.Equal(t, MonthlyParams{}, Decode(Monthly, []byte(`{"dateOfMonth":"last"}`)))
	assert.Equal(t, DailyParams{}, Decode(Daily, nil))
	assert.Equal(t, OneTimeParams{}, Decode(OneTime, []byte(`null`)))
	assert.Equal(t, WeeklyParams{}, Decode(Weekly, []byte(`[1,2,3]`)))
	assert.Nil(t, Decode(Frequency("Fortnightly"), []byte(`{}`)))
}

func TestFromMapYAML(t *testing.T) {
	var m map[string]any
	require.NoError(t, yaml.Unmarshal([]byte("dateOfMonth: 5\n"), &m))
	assert.Equal(t, MonthlyParams{DateOfMonth: 5}, FromMap(Monthly, m))
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(WeeklyParams{DayOfWeek: "Monday"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dayOfWeek":"Monday"}`, string(data))

	data, err = Marshal(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	data, err = Marshal(IntervalParams{Every: Yearly, FirstDate: "2024-04-01"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstDate":"2024-04-01"}`, string(data))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, DailyParams{}, Normalize(Daily, nil))
	assert.Equal(t, IntervalParams{Every: Yearly, FirstDate: "x"}, Normalize(Yearly, IntervalParams{FirstDate: "x"}))
	assert.Equal(t, WeeklyParams{}, Normalize(Weekly, MonthlyParams{DateOfMonth: 2}))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Daily, nil))
	assert.NoError(t, Validate(Weekly, WeeklyParams{DayOfWeek: "Monday"}))
	assert.ErrorIs(t, Validate(Weekly, WeeklyParams{}), ErrMissingField)
	assert.ErrorIs(t, Validate(Weekly, WeeklyParams{DayOfWeek: "Funday"}), ErrInvalidField)
	assert.ErrorIs(t, Validate(Monthly, MonthlyParams{DateOfMonth: 32}), ErrInvalidField)
	assert.NoError(t, Validate(SpecificDays, SpecificDayParams{Occurrence: "Last", Day: "fri"}))
	assert.ErrorIs(t, Validate(SpecificDays, SpecificDayParams{Occurrence: "5th", Day: "Friday"}), ErrInvalidField)
	assert.ErrorIs(t, Validate(SpecificDays, SpecificDayParams{Day: "Friday"}), ErrMissingField)
	assert.NoError(t, Validate(Quarterly, IntervalParams{FirstDate: "2024-01-01"}))
	assert.ErrorIs(t, Validate(OneTime, OneTimeParams{Date: "tomorrow"}), ErrInvalidField)
	assert.ErrorIs(t, Validate(Weekly, MonthlyParams{}), ErrInvalidField)
	assert.ErrorIs(t, Validate(Frequency("Fortnightly"), nil), ErrInvalidField)
}
