package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "windows.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScheduleCheck_PrintsSlots(t *testing.T) {
	path := writeFile(t, `[
		{"day": "MONDAY", "start_time": "08:00", "end_time": "09:30", "room": "A101"},
		{"day": "TUESDAY", "start_time": "14:00", "end_time": "18:00", "room": "B2"}
	]`)

	out, err := run(t, "schedule", "check", path, "--date", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2 window(s) valid\n08:00-08:30 a101\n08:30-09:00 a101\n09:00-09:30 a101\n", out)
}

func TestScheduleCheck_AcceptsRequestBody(t *testing.T) {
	path := writeFile(t, `{"windows": [{"day": "FRIDAY", "start_time": "08:00", "end_time": "12:00", "room": "A1"}]}`)

	out, err := run(t, "schedule", "check", path, "--date", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "1 window(s) valid")
	assert.Contains(t, out, "no attention on 2024-01-01")
}

func TestScheduleCheck_ReportsEveryConflict(t *testing.T) {
	path := writeFile(t, `[
		{"day": "MONDAY", "start_time": "08:00", "end_time": "12:00", "room": "A101"},
		{"day": "MONDAY", "start_time": "11:00", "end_time": "13:00", "room": "A102"},
		{"day": "MONDAY", "start_time": "15:00", "end_time": "14:00", "room": "A103"}
	]`)

	out, err := run(t, "schedule", "check", path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrSchedulingConflict))
	assert.Contains(t, out, "window 3: start must precede end")
	assert.Contains(t, out, "windows 1 and 2 overlap on day MONDAY")
}

func TestScheduleCheck_MissingFile(t *testing.T) {
	_, err := run(t, "schedule", "check", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read")
}

func TestMigrateList(t *testing.T) {
	out, err := run(t, "migrate", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_init")
}
