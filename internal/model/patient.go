package model

import (
	"time"

	"github.com/google/uuid"
)

type IdentificationType string

const (
	IdentificationCI       IdentificationType = "CI"
	IdentificationDNI      IdentificationType = "DNI"
	IdentificationPassport IdentificationType = "PASSPORT"
	IdentificationLicense  IdentificationType = "LICENSE"
	IdentificationOther    IdentificationType = "OTHER"
)

const DefaultCountry = "Paraguay"

type Patient struct {
	Base
	FirstName            string             `db:"first_name" json:"first_name"`
	LastName             string             `db:"last_name" json:"last_name"`
	Email                *string            `db:"email" json:"email,omitempty"`
	Phone                string             `db:"phone" json:"phone"`
	IdentificationType   IdentificationType `db:"identification_type" json:"identification_type"`
	IdentificationNumber string             `db:"identification_number" json:"identification_number"`
	Gender               string             `db:"gender" json:"gender"`
	DateOfBirth          *time.Time         `db:"date_of_birth" json:"date_of_birth,omitempty"`
	AddressLine          string             `db:"address_line" json:"address_line"`
	City                 string             `db:"city" json:"city"`
	Region               string             `db:"region" json:"region"`
	PostalCode           string             `db:"postal_code" json:"postal_code"`
	Country              string             `db:"country" json:"country"`
	BloodType            string             `db:"blood_type" json:"blood_type"`
	Allergies            string             `db:"allergies" json:"allergies"`
	MedicalNotes         string             `db:"medical_notes" json:"medical_notes"`
	EmergencyName        string             `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyRelation    string             `db:"emergency_contact_relationship" json:"emergency_contact_relationship"`
	EmergencyPhone       string             `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	IsActive             bool               `db:"is_active" json:"is_active"`
	AssignedDoctorID     *uuid.UUID         `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

type CreatePatientRequest struct {
	FirstName            string             `json:"first_name" binding:"required,max=100"`
	LastName             string             `json:"last_name" binding:"required,max=100"`
	Email                *string            `json:"email" binding:"omitempty,email"`
	Phone                string             `json:"phone" binding:"required"`
	IdentificationType   IdentificationType `json:"identification_type" binding:"required,oneof=CI DNI PASSPORT LICENSE OTHER"`
	IdentificationNumber string             `json:"identification_number" binding:"required,identification"`
	Gender               string             `json:"gender" binding:"omitempty,oneof=M F O"`
	DateOfBirth          *time.Time         `json:"date_of_birth"`
	AddressLine          string             `json:"address_line"`
	City                 string             `json:"city"`
	Region               string             `json:"region"`
	PostalCode           string             `json:"postal_code"`
	Country              string             `json:"country"`
	BloodType            string             `json:"blood_type" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies            string             `json:"allergies"`
	MedicalNotes         string             `json:"medical_notes"`
	EmergencyName        string             `json:"emergency_contact_name"`
	EmergencyRelation    string             `json:"emergency_contact_relationship"`
	EmergencyPhone       string             `json:"emergency_contact_phone"`
	AssignedDoctorID     *uuid.UUID         `json:"assigned_doctor_id"`
}

type UpdatePatientRequest struct {
	FirstName        *string    `json:"first_name"`
	LastName         *string    `json:"last_name"`
	Email            *string    `json:"email" binding:"omitempty,email"`
	Phone            *string    `json:"phone"`
	AddressLine      *string    `json:"address_line"`
	City             *string    `json:"city"`
	Region           *string    `json:"region"`
	PostalCode       *string    `json:"postal_code"`
	Country          *string    `json:"country"`
	BloodType        *string    `json:"blood_type" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies        *string    `json:"allergies"`
	MedicalNotes     *string    `json:"medical_notes"`
	EmergencyPhone   *string    `json:"emergency_contact_phone"`
	IsActive         *bool      `json:"is_active"`
	AssignedDoctorID *uuid.UUID `json:"assigned_doctor_id"`
}

type PatientFilters struct {
	Search           string
	AssignedDoctorID *uuid.UUID
	Pagination
}
