package event

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Event types, also used as broker channel names.
const (
	ConsultationBooked    = "consultation.booked"
	ConsultationAttended  = "consultation.attended"
	ConsultationCancelled = "consultation.cancelled"
	DoctorCreated         = "doctor.created"
	WindowsAdded          = "doctor.windows_added"
	PatientCreated        = "patient.created"
)

// All lists every event type the outbox may carry.
var All = []string{
	ConsultationBooked,
	ConsultationAttended,
	ConsultationCancelled,
	DoctorCreated,
	WindowsAdded,
	PatientCreated,
}

// Consultation is the payload of the consultation.* events.
type Consultation struct {
	ConsultationID uuid.UUID                `json:"consultation_id"`
	PatientID      uuid.UUID                `json:"patient_id"`
	DoctorID       *uuid.UUID               `json:"doctor_id,omitempty"`
	Date           model.Date               `json:"date"`
	Time           model.TimeOfDay          `json:"time"`
	Shift          model.Shift              `json:"shift"`
	Order          int                      `json:"order"`
	Room           string                   `json:"room"`
	Status         model.ConsultationStatus `json:"status"`
	PatientName    string                   `json:"patient_name,omitempty"`
	PatientEmail   string                   `json:"patient_email,omitempty"`
	DoctorName     string                   `json:"doctor_name,omitempty"`
}

// NewConsultation builds the payload; patient and doctor may be nil.
func NewConsultation(c *model.Consultation, patient *model.Patient, doctor *model.Doctor) Consultation {
	out := Consultation{
		ConsultationID: c.ID,
		PatientID:      c.PatientID,
		DoctorID:       c.DoctorID,
		Date:           c.Date,
		Time:           c.Time,
		Shift:          c.Shift,
		Order:          c.Order,
		Room:           c.Room,
		Status:         c.Status,
	}
	if patient != nil {
		out.PatientName = patient.FirstName + " " + patient.LastName
		if patient.Email != nil {
			out.PatientEmail = *patient.Email
		}
	}
	if doctor != nil {
		out.DoctorName = doctor.FirstName + " " + doctor.LastName
	}
	return out
}

// Doctor is the payload of doctor.* events.
type Doctor struct {
	DoctorID  uuid.UUID   `json:"doctor_id"`
	AccountID uuid.UUID   `json:"account_id"`
	WindowIDs []uuid.UUID `json:"window_ids"`
}

// Patient is the payload of patient.created.
type Patient struct {
	PatientID            uuid.UUID `json:"patient_id"`
	IdentificationNumber string    `json:"identification_number"`
}
