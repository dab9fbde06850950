package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftEvening   Shift = "evening"
)

// ShiftFor derives the shift a time of day belongs to.
func ShiftFor(t TimeOfDay) Shift {
	switch {
	case t < NewTimeOfDay(12, 0):
		return ShiftMorning
	case t < NewTimeOfDay(18, 0):
		return ShiftAfternoon
	default:
		return ShiftEvening
	}
}

func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftEvening:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLevelI   Priority = "LEVEL_I"
	PriorityLevelII  Priority = "LEVEL_II"
	PriorityLevelIII Priority = "LEVEL_III"
	PriorityLevelIV  Priority = "LEVEL_IV"
	PriorityLevelV   Priority = "LEVEL_V"

	DefaultPriority = PriorityLevelIV
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLevelI, PriorityLevelII, PriorityLevelIII, PriorityLevelIV, PriorityLevelV:
		return true
	}
	return false
}

type ConsultationStatus string

const (
	ConsultationStatusWaiting   ConsultationStatus = "waiting"
	ConsultationStatusAttended  ConsultationStatus = "attended"
	ConsultationStatusCancelled ConsultationStatus = "cancelled"
)

func ParseConsultationStatus(s string) (ConsultationStatus, error) {
	switch st := ConsultationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ConsultationStatusWaiting, ConsultationStatusAttended, ConsultationStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown consultation status %q", s)
}

// Terminal reports whether no further transitions are allowed.
func (s ConsultationStatus) Terminal() bool {
	return s == ConsultationStatusAttended || s == ConsultationStatusCancelled
}

// ClinicalData is captured when a consultation is attended.
type ClinicalData struct {
	Service          string   `json:"service" db:"service"`
	Temperature      *float64 `json:"temperature" db:"temperature"`
	SystolicBP       *int     `json:"systolic_pressure" db:"systolic_pressure"`
	DiastolicBP      *int     `json:"diastolic_pressure" db:"diastolic_pressure"`
	RespiratoryRate  *int     `json:"respiratory_rate" db:"respiratory_rate"`
	Pulse            *int     `json:"pulse" db:"pulse"`
	OxygenSaturation *float64 `json:"oxygen_saturation" db:"oxygen_saturation"`
	Weight           *float64 `json:"weight" db:"weight"`
	Height           *float64 `json:"height" db:"height"`
	History          string   `json:"history" db:"history"`
	Diagnosis        string   `json:"diagnosis" db:"diagnosis"`
	Instructions     string   `json:"instructions" db:"instructions"`
}

type Consultation struct {
	Base
	PatientID   uuid.UUID          `db:"patient_id" json:"patient_id"`
	DoctorID    *uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Date        Date               `db:"date" json:"date"`
	Time        TimeOfDay          `db:"time" json:"time"`
	Shift       Shift              `db:"shift" json:"shift"`
	Order       int                `db:"queue_order" json:"order"`
	Priority    Priority           `db:"priority" json:"priority"`
	Room        string             `db:"room" json:"room"`
	Status      ConsultationStatus `db:"status" json:"status"`
	Description string             `db:"description" json:"description"`
	AttendedAt  *time.Time         `db:"attended_at" json:"attended_at,omitempty"`
	ClinicalData
}

// OccupiesSlot reports whether the consultation holds its (doctor, date, time, room) slot.
func (c *Consultation) OccupiesSlot() bool {
	return c.Status != ConsultationStatusCancelled
}

// BookingRequest carries the reception input for a new consultation.
// The patient is given either by id or by identification number.
type BookingRequest struct {
	DoctorID              uuid.UUID  `json:"doctor_id" binding:"required"`
	PatientID             *uuid.UUID `json:"patient_id"`
	PatientIdentification string     `json:"patient_identification" binding:"omitempty,identification"`
	Date                  string     `json:"date" binding:"required"`
	Time                  string     `json:"time" binding:"required"`
	Shift                 Shift      `json:"shift" binding:"omitempty,oneof=morning afternoon evening"`
	Priority              Priority   `json:"priority" binding:"omitempty,oneof=LEVEL_I LEVEL_II LEVEL_III LEVEL_IV LEVEL_V"`
	Description           string     `json:"description" binding:"max=2000"`
}

// TransitionRequest moves a consultation to Status. Clinical is required for attended.
type TransitionRequest struct {
	Status   ConsultationStatus `json:"status" binding:"required,oneof=attended cancelled"`
	Clinical *ClinicalData      `json:"clinical"`
}

type ConsultationFilters struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Date      *Date
	Shift     Shift
	Status    ConsultationStatus
}

// Slot is one bookable block inside an availability window.
type Slot struct {
	Start    TimeOfDay `json:"start"`
	End      TimeOfDay `json:"end"`
	Room     string    `json:"room"`
	Occupied bool      `json:"occupied"`
}

// DaySlots is the slot listing for one doctor and date. Attends is false when
// the doctor has no window on that weekday, which is distinct from every slot being occupied.
type DaySlots struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     Date      `json:"date"`
	Day      Weekday   `json:"day"`
	Attends  bool      `json:"attends"`
	Message  string    `json:"message,omitempty"`
	Slots    []Slot    `json:"slots"`
}

type Prescription struct {
	Base
	ConsultationID uuid.UUID  `db:"consultation_id" json:"consultation_id"`
	DoctorID       *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Medication     string     `db:"medication" json:"medication"`
	Description    string     `db:"description" json:"description"`
}

type CreatePrescriptionRequest struct {
	Medication  string `json:"medication" binding:"required,max=200"`
	Description string `json:"description"`
}
