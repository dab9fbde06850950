package schedule

import (
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// NotAttendingMessage is reported when the doctor has no window on the weekday.
const NotAttendingMessage = "doctor does not attend this day"

// SlotKey identifies a bookable slot of one doctor on one date.
type SlotKey struct {
	Time model.TimeOfDay
	Room string
}

// GenerateSlots splits the windows falling on date's weekday into slots of
// the given duration. A slot is emitted while start+duration <= end. occupied
// holds the (time, normalized room) pairs already booked on that date.
func GenerateSlots(windows []*model.AvailabilityWindow, date model.Date, duration time.Duration, occupied map[SlotKey]bool) model.DaySlots {
	day := date.Weekday()
	out := model.DaySlots{
		Date:  date,
		Day:   day,
		Slots: []model.Slot{},
	}

	for _, w := range windows {
		if w.Day != day {
			continue
		}
		out.Attends = true
		if duration < time.Minute {
			continue
		}

		room := model.NormalizeRoom(w.Room)
		for start := w.StartTime; start.Add(duration) <= w.EndTime; start = start.Add(duration) {
			out.Slots = append(out.Slots, model.Slot{
				Start:    start,
				End:      start.Add(duration),
				Room:     room,
				Occupied: occupied[SlotKey{Time: start, Room: room}],
			})
		}
	}

	if !out.Attends {
		out.Message = NotAttendingMessage
	}
	return out
}
