package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(9, 30), tod)

	tod, err = ParseTimeOfDay("13:05:59")
	require.NoError(t, err)
	assert.Equal(t, "13:05", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("9am")
	assert.Error(t, err)
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("08:00:00")))
	assert.Equal(t, NewTimeOfDay(8, 0), tod)

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 17, 45, 0, 0, time.UTC)))
	assert.Equal(t, NewTimeOfDay(17, 45), tod)

	v, err := NewTimeOfDay(7, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "07:05:00", v)
}

func TestTimeOfDayAdd(t *testing.T) {
	assert.Equal(t, NewTimeOfDay(8, 30), NewTimeOfDay(8, 0).Add(30*time.Minute))
	assert.False(t, NewTimeOfDay(23, 45).Add(30*time.Minute).Valid())
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-04"`), &d))
	assert.Equal(t, Monday, d.Weekday())

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-03-04"`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`"04/03/2024"`), &d))
}

func TestShiftFor(t *testing.T) {
	assert.Equal(t, ShiftMorning, ShiftFor(NewTimeOfDay(9, 0)))
	assert.Equal(t, ShiftAfternoon, ShiftFor(NewTimeOfDay(12, 0)))
	assert.Equal(t, ShiftEvening, ShiftFor(NewTimeOfDay(18, 30)))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleDoctor, ParseRole("Doctor"))
	assert.Equal(t, RoleAdministrator, ParseRole("administrator"))
	assert.Equal(t, RoleUnassigned, ParseRole("superuser"))
	assert.Equal(t, RoleUnassigned, ParseRole(""))
}
