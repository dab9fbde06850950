package model

import (
	"strings"

	"github.com/google/uuid"
)

type Specialty struct {
	Base
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

type CreateSpecialtyRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type Doctor struct {
	Base
	AccountID   uuid.UUID  `json:"account_id" db:"account_id"`
	SpecialtyID *uuid.UUID `json:"specialty_id,omitempty" db:"specialty_id"`
	Bio         string     `json:"bio" db:"bio"`

	// Populated on reads that join the account and specialty
	FirstName     string `json:"first_name,omitempty" db:"first_name"`
	LastName      string `json:"last_name,omitempty" db:"last_name"`
	SpecialtyName string `json:"specialty_name,omitempty" db:"specialty_name"`

	Windows []*AvailabilityWindow `json:"windows,omitempty" db:"-"`
}

// AvailabilityWindow is a recurring weekly period in which a doctor takes bookings.
type AvailabilityWindow struct {
	Base
	DoctorID  uuid.UUID `json:"doctor_id" db:"doctor_id"`
	Day       Weekday   `json:"day" db:"day"`
	StartTime TimeOfDay `json:"start_time" db:"start_time"`
	EndTime   TimeOfDay `json:"end_time" db:"end_time"`
	Room      string    `json:"room" db:"room"`
}

// Covers reports whether t falls in [start, end], both ends included.
func (w *AvailabilityWindow) Covers(t TimeOfDay) bool {
	return w.StartTime <= t && t <= w.EndTime
}

// NormalizeRoom is the comparison and assignment form of a room identifier.
func NormalizeRoom(room string) string {
	return strings.ToLower(strings.TrimSpace(room))
}

// MaxRoomLength matches the width of the room columns.
const MaxRoomLength = 20

// WindowInput is one proposed window in a schedule batch. It carries no
// binding rules; the whole batch is checked at once by the schedule validator.
type WindowInput struct {
	Day       string     `json:"day"`
	StartTime *TimeOfDay `json:"start_time"`
	EndTime   *TimeOfDay `json:"end_time"`
	Room      string     `json:"room"`
}

type CreateDoctorRequest struct {
	Account     CreateAccountRequest `json:"account" binding:"required"`
	SpecialtyID *uuid.UUID           `json:"specialty_id"`
	Bio         string               `json:"bio"`
	Windows     []WindowInput        `json:"windows"`
}

type AddWindowsRequest struct {
	Windows []WindowInput `json:"windows" binding:"required,min=1"`
}

type DoctorFilters struct {
	SpecialtyID *uuid.UUID
	Search      string
}
