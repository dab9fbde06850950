package schedule

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// ValidateWindows checks a batch of proposed windows against itself and
// returns them as windows ready to persist. It never stops at the first
// problem: every message is collected, in input order, and windows are
// numbered from 1.
//
// Malformed input and inverted ranges are reported as a validation error.
// When the batch also holds an overlap or an exact duplicate the whole set is
// reported as a scheduling conflict instead, with the same messages.
func ValidateWindows(inputs []model.WindowInput) ([]*model.AvailabilityWindow, error) {
	var invalid, conflicts []string

	windows := make([]*model.AvailabilityWindow, len(inputs))
	usable := make([]bool, len(inputs))

	for i, in := range inputs {
		n := i + 1
		ok := true

		day, err := model.ParseWeekday(in.Day)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("window %d: unknown day %q", n, in.Day))
			ok = false
		}
		if in.StartTime == nil || !in.StartTime.Valid() {
			invalid = append(invalid, fmt.Sprintf("window %d: start time is required", n))
			ok = false
		}
		if in.EndTime == nil || !in.EndTime.Valid() {
			invalid = append(invalid, fmt.Sprintf("window %d: end time is required", n))
			ok = false
		}
		room := strings.TrimSpace(in.Room)
		switch {
		case room == "":
			invalid = append(invalid, fmt.Sprintf("window %d: room is required", n))
			ok = false
		case len(room) > model.MaxRoomLength:
			invalid = append(invalid, fmt.Sprintf("window %d: room must be at most %d characters", n, model.MaxRoomLength))
			ok = false
		}
		if !ok {
			continue
		}

		if *in.StartTime >= *in.EndTime {
			invalid = append(invalid, fmt.Sprintf("window %d: start must precede end", n))
		}

		windows[i] = &model.AvailabilityWindow{
			Day:       day,
			StartTime: *in.StartTime,
			EndTime:   *in.EndTime,
			Room:      room,
		}
		usable[i] = true
	}

	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			if !usable[i] || !usable[j] {
				continue
			}
			if overlaps(windows[i], windows[j]) {
				conflicts = append(conflicts, fmt.Sprintf("windows %d and %d overlap on day %s", i+1, j+1, windows[i].Day))
			}
		}
	}

	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			if !usable[i] || !usable[j] {
				continue
			}
			if duplicates(windows[i], windows[j]) {
				conflicts = append(conflicts, fmt.Sprintf("room %s duplicated in windows %d and %d", model.NormalizeRoom(windows[i].Room), i+1, j+1))
			}
		}
	}

	switch {
	case len(conflicts) > 0:
		return nil, errors.NewSchedulingConflict("availability windows conflict", append(invalid, conflicts...)...)
	case len(invalid) > 0:
		return nil, errors.NewValidation(invalid...)
	}
	return windows, nil
}

// overlaps applies the half-open interval test on the same day.
func overlaps(a, b *model.AvailabilityWindow) bool {
	return a.Day == b.Day && a.StartTime < b.EndTime && a.EndTime > b.StartTime
}

func duplicates(a, b *model.AvailabilityWindow) bool {
	return a.Day == b.Day &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime &&
		model.NormalizeRoom(a.Room) == model.NormalizeRoom(b.Room)
}
