package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type Patient struct {
	Base
	ClinicID         uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	PatientCode      string         `db:"patient_code" json:"patient_code"`
	FullName         string         `db:"full_name" json:"full_name"`
	Age              int            `db:"age" json:"age"`
	Gender           Gender         `db:"gender" json:"gender"`
	BloodGroup       string         `db:"blood_group" json:"blood_group,omitempty"`
	Phone            string         `db:"phone" json:"phone"`
	EmergencyContact string         `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Address          string         `db:"address" json:"address,omitempty"`
	Allergies        pq.StringArray `db:"allergies" json:"allergies"`
	MedicalHistory   string         `db:"medical_history" json:"medical_history,omitempty"`
}

// PatientCode formats the n-th patient of a clinic, e.g. PT-0001.
func PatientCode(n int) string {
	return fmt.Sprintf("PT-%04d", n)
}

// PatientSummary is the slice of a patient shown on queue rows.
type PatientSummary struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientCode string    `db:"patient_code" json:"patient_code"`
	FullName    string    `db:"full_name" json:"full_name"`
	Age         int       `db:"age" json:"age"`
	Gender      Gender    `db:"gender" json:"gender"`
	Phone       string    `db:"phone" json:"phone"`
}

type CreatePatientRequest struct {
	FullName         string   `json:"full_name" binding:"required,notblank,max=200"`
	Age              int      `json:"age" binding:"min=0,max=150"`
	Gender           Gender   `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	BloodGroup       string   `json:"blood_group" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Phone            string   `json:"phone" binding:"required,notblank,max=20"`
	EmergencyContact string   `json:"emergency_contact" binding:"max=20"`
	Address          string   `json:"address"`
	Allergies        []string `json:"allergies"`
	MedicalHistory   string   `json:"medical_history"`
}

type UpdatePatientRequest struct {
	FullName         *string   `json:"full_name" binding:"omitempty,notblank,max=200"`
	Age              *int      `json:"age" binding:"omitempty,min=0,max=150"`
	Gender           *Gender   `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	BloodGroup       *string   `json:"blood_group" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Phone            *string   `json:"phone" binding:"omitempty,notblank,max=20"`
	EmergencyContact *string   `json:"emergency_contact" binding:"omitempty,max=20"`
	Address          *string   `json:"address"`
	Allergies        *[]string `json:"allergies"`
	MedicalHistory   *string   `json:"medical_history"`
}

// Apply copies the set fields of r onto p.
func (r *UpdatePatientRequest) Apply(p *Patient) {
	if r.FullName != nil {
		p.FullName = *r.FullName
	}
	if r.Age != nil {
		p.Age = *r.Age
	}
	if r.Gender != nil {
		p.Gender = *r.Gender
	}
	if r.BloodGroup != nil {
		p.BloodGroup = *r.BloodGroup
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.EmergencyContact != nil {
		p.EmergencyContact = *r.EmergencyContact
	}
	if r.Address != nil {
		p.Address = *r.Address
	}
	if r.Allergies != nil {
		p.Allergies = *r.Allergies
	}
	if r.MedicalHistory != nil {
		p.MedicalHistory = *r.MedicalHistory
	}
}

type PatientFilter struct {
	Search string
	Pagination
}
