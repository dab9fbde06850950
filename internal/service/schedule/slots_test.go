package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// 2024-01-01 is a Monday.
var monday = model.NewDate(2024, time.January, 1)

func mondayWindow(start, end model.TimeOfDay, room string) *model.AvailabilityWindow {
	return &model.AvailabilityWindow{Day: model.Monday, StartTime: start, EndTime: end, Room: room}
}

func slotStarts(slots []model.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.String()
	}
	return out
}

func TestGenerateSlots(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		mondayWindow(model.NewTimeOfDay(8, 0), model.NewTimeOfDay(10, 0), "A101"),
	}

	day := GenerateSlots(windows, monday, 30*time.Minute, nil)
	assert.True(t, day.Attends)
	assert.Empty(t, day.Message)
	assert.Equal(t, model.Monday, day.Day)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, slotStarts(day.Slots))

	last := day.Slots[len(day.Slots)-1]
	assert.Equal(t, model.NewTimeOfDay(10, 0), last.End)
	assert.Equal(t, "a101", last.Room)
}

func TestGenerateSlots_DropsPartialTail(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		mondayWindow(model.NewTimeOfDay(8, 0), model.NewTimeOfDay(9, 45), "A101"),
	}

	day := GenerateSlots(windows, monday, 30*time.Minute, nil)
	assert.Equal(t, []string{"08:00", "08:30", "09:00"}, slotStarts(day.Slots))
}

func TestGenerateSlots_FlagsOccupied(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		mondayWindow(model.NewTimeOfDay(8, 0), model.NewTimeOfDay(9, 0), "A101"),
		{Day: model.Tuesday, StartTime: model.NewTimeOfDay(8, 0), EndTime: model.NewTimeOfDay(9, 0), Room: "B1"},
	}
	occupied := map[SlotKey]bool{{Time: model.NewTimeOfDay(8, 30), Room: "a101"}: true}

	day := GenerateSlots(windows, monday, 30*time.Minute, occupied)
	require.Len(t, day.Slots, 2)
	assert.False(t, day.Slots[0].Occupied)
	assert.True(t, day.Slots[1].Occupied)
}

func TestGenerateSlots_DoctorDoesNotAttend(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		mondayWindow(model.NewTimeOfDay(8, 0), model.NewTimeOfDay(12, 0), "A101"),
	}
	tuesday := model.NewDate(2024, time.January, 2)

	day := GenerateSlots(windows, tuesday, 30*time.Minute, nil)
	assert.False(t, day.Attends)
	assert.Equal(t, NotAttendingMessage, day.Message)
	assert.Empty(t, day.Slots)
}

func TestGenerateSlots_FullyBookedStillAttends(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		mondayWindow(model.NewTimeOfDay(8, 0), model.NewTimeOfDay(8, 30), "A101"),
	}
	occupied := map[SlotKey]bool{{Time: model.NewTimeOfDay(8, 0), Room: "a101"}: true}

	day := GenerateSlots(windows, monday, 30*time.Minute, occupied)
	assert.True(t, day.Attends)
	require.Len(t, day.Slots, 1)
	assert.True(t, day.Slots[0].Occupied)
}

func TestGenerateSlots_Idempotent(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		mondayWindow(model.NewTimeOfDay(8, 0), model.NewTimeOfDay(12, 0), "A101"),
		mondayWindow(model.NewTimeOfDay(14, 0), model.NewTimeOfDay(16, 0), "B202"),
	}
	occupied := map[SlotKey]bool{{Time: model.NewTimeOfDay(9, 0), Room: "a101"}: true}

	first := GenerateSlots(windows, monday, 30*time.Minute, occupied)
	second := GenerateSlots(windows, monday, 30*time.Minute, occupied)
	assert.Equal(t, first, second)
	assert.Len(t, first.Slots, 12)
}
