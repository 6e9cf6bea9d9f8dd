package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

// Vitals are optional measurements taken at a visit. Stored as JSONB.
type Vitals struct {
	BloodPressure string   `json:"blood_pressure,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Pulse         *int     `json:"pulse,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	SpO2          *int     `json:"spo2,omitempty"`
}

func (v Vitals) IsEmpty() bool {
	return strings.TrimSpace(v.BloodPressure) == "" && v.Temperature == nil && v.Pulse == nil &&
		v.Weight == nil && v.Height == nil && v.SpO2 == nil
}

func (v Vitals) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *Vitals) Scan(src interface{}) error {
	switch data := src.(type) {
	case nil:
		*v = Vitals{}
		return nil
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return fmt.Errorf("cannot scan %T into Vitals", src)
	}
}

// VisitMedicine is one prescription line. The name is copied by value from
// the medicine option chosen at entry time.
type VisitMedicine struct {
	ID           uuid.UUID `db:"id" json:"id"`
	VisitID      uuid.UUID `db:"visit_id" json:"-"`
	Position     int       `db:"position" json:"-"`
	MedicineName string    `db:"medicine_name" json:"medicine_name"`
	Dosage       string    `db:"dosage" json:"dosage"`
	Duration     string    `db:"duration" json:"duration"`
}

type Visit struct {
	Base
	ClinicID          uuid.UUID       `db:"clinic_id" json:"clinic_id"`
	PatientID         uuid.UUID       `db:"patient_id" json:"patient_id"`
	AppointmentID     *uuid.UUID      `db:"appointment_id" json:"appointment_id"`
	DoctorID          uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	VisitNumber       int             `db:"visit_number" json:"visit_number"`
	VisitDate         Date            `db:"visit_date" json:"visit_date"`
	Symptoms          pq.StringArray  `db:"symptoms" json:"symptoms"`
	Diagnosis         pq.StringArray  `db:"diagnosis" json:"diagnosis"`
	Observations      pq.StringArray  `db:"observations" json:"observations"`
	RecommendedTests  pq.StringArray  `db:"recommended_tests" json:"recommended_tests"`
	FollowUpDate      *Date           `db:"follow_up_date" json:"follow_up_date"`
	Vitals            Vitals          `db:"vitals" json:"vitals"`
	PrescriptionNotes string          `db:"prescription_notes" json:"prescription_notes"`
	Amount            *float64        `db:"amount" json:"amount"`
	Medicines         []VisitMedicine `db:"-" json:"medicines"`
}

// MedicineLine is a prescription line as submitted by a client.
type MedicineLine struct {
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
}

// VisitInput is the full aggregate sent on create and on update.
type VisitInput struct {
	PatientID         uuid.UUID      `json:"patient_id"`
	AppointmentID     *uuid.UUID     `json:"appointment_id,omitempty"`
	Symptoms          []string       `json:"symptoms"`
	Diagnosis         []string       `json:"diagnosis"`
	Observations      []string       `json:"observations"`
	RecommendedTests  []string       `json:"recommended_tests"`
	FollowUpDate      *Date          `json:"follow_up_date,omitempty"`
	Vitals            Vitals         `json:"vitals"`
	Medicines         []MedicineLine `json:"medicines"`
	PrescriptionNotes string         `json:"prescription_notes"`
	Amount            *float64       `json:"amount,omitempty"`
}

// Normalize dedupes the list fields and drops medicine lines without a name.
func (in *VisitInput) Normalize() {
	in.Symptoms = NormalizeList(in.Symptoms)
	in.Diagnosis = NormalizeList(in.Diagnosis)
	in.Observations = NormalizeList(in.Observations)
	in.RecommendedTests = NormalizeList(in.RecommendedTests)
	in.PrescriptionNotes = strings.TrimSpace(in.PrescriptionNotes)

	medicines := make([]MedicineLine, 0, len(in.Medicines))
	for _, m := range in.Medicines {
		if strings.TrimSpace(m.MedicineName) == "" {
			continue
		}
		medicines = append(medicines, m)
	}
	in.Medicines = medicines
}

// Validate requires at least one symptom and one diagnosis. Call Normalize
// first.
func (in *VisitInput) Validate() error {
	var errs apperrors.ValidationErrors
	if in.PatientID == uuid.Nil {
		errs = append(errs, apperrors.NewValidation("patient_id", "select a patient"))
	}
	if len(in.Symptoms) == 0 {
		errs = append(errs, apperrors.NewValidation("symptoms", "add at least one symptom"))
	}
	if len(in.Diagnosis) == 0 {
		errs = append(errs, apperrors.NewValidation("diagnosis", "add at least one diagnosis"))
	}
	if in.Amount != nil && *in.Amount < 0 {
		errs = append(errs, apperrors.NewValidation("amount", "amount cannot be negative"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply replaces every editable field of v with the input's values.
func (in *VisitInput) Apply(v *Visit) {
	v.Symptoms = in.Symptoms
	v.Diagnosis = in.Diagnosis
	v.Observations = StringList(in.Observations)
	v.RecommendedTests = StringList(in.RecommendedTests)
	v.FollowUpDate = in.FollowUpDate
	v.Vitals = in.Vitals
	v.PrescriptionNotes = in.PrescriptionNotes
	v.Amount = in.Amount

	v.Medicines = make([]VisitMedicine, 0, len(in.Medicines))
	for i, m := range in.Medicines {
		v.Medicines = append(v.Medicines, VisitMedicine{
			ID:           uuid.New(),
			VisitID:      v.ID,
			Position:     i + 1,
			MedicineName: strings.TrimSpace(m.MedicineName),
			Dosage:       strings.TrimSpace(m.Dosage),
			Duration:     strings.TrimSpace(m.Duration),
		})
	}
}

// VisitListItem is a visit row joined with its patient for list screens.
type VisitListItem struct {
	Visit
	Patient PatientSummary `db:"patient" json:"patient"`
}

// VisitFilter narrows visit listings.
type VisitFilter struct {
	PatientID *uuid.UUID
	Date      *Date
	DoctorID  *uuid.UUID
	Pagination
}

type CollectionDay struct {
	Date   Date    `db:"visit_date" json:"date"`
	Amount float64 `db:"amount" json:"amount"`
	Visits int     `db:"visits" json:"visits"`
}

type CollectionSummary struct {
	From        Date            `json:"from"`
	To          Date            `json:"to"`
	TotalAmount float64         `json:"total_amount"`
	VisitCount  int             `json:"visit_count"`
	Days        []CollectionDay `json:"days"`
}

// FollowUp is a visit whose follow-up date has come round.
type FollowUp struct {
	VisitID      uuid.UUID      `db:"visit_id" json:"visit_id"`
	VisitNumber  int            `db:"visit_number" json:"visit_number"`
	VisitDate    Date           `db:"visit_date" json:"visit_date"`
	FollowUpDate Date           `db:"follow_up_date" json:"follow_up_date"`
	Diagnosis    pq.StringArray `db:"diagnosis" json:"diagnosis"`
	Patient      PatientSummary `db:"patient" json:"patient"`
}
