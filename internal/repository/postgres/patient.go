package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

const patientColumns = `
	id, clinic_id, patient_code, full_name, age, gender, blood_group, phone,
	emergency_contact, address, allergies, medical_history, created_at, updated_at
`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt
	if patient.Allergies == nil {
		patient.Allergies = []string{}
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockKey(ctx, tx, "patient-code:"+patient.ClinicID.String()); err != nil {
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM patients WHERE clinic_id = $1`, patient.ClinicID); err != nil {
			return fmt.Errorf("failed to count patients: %w", err)
		}
		patient.PatientCode = model.PatientCode(count + 1)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO patients (
				id, clinic_id, patient_code, full_name, age, gender, blood_group, phone,
				emergency_contact, address, allergies, medical_history, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			patient.ID,
			patient.ClinicID,
			patient.PatientCode,
			patient.FullName,
			patient.Age,
			patient.Gender,
			patient.BloodGroup,
			patient.Phone,
			patient.EmergencyContact,
			patient.Address,
			patient.Allergies,
			patient.MedicalHistory,
			patient.CreatedAt,
			patient.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create patient: %w", mapError(err))
		}
		return nil
	})
}

func (r *patientRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `
		SELECT `+patientColumns+` FROM patients WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", mapError(err))
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE patients
		SET full_name = $1, age = $2, gender = $3, blood_group = $4, phone = $5,
			emergency_contact = $6, address = $7, allergies = $8, medical_history = $9,
			updated_at = $10
		WHERE id = $11 AND clinic_id = $12
	`,
		patient.FullName,
		patient.Age,
		patient.Gender,
		patient.BloodGroup,
		patient.Phone,
		patient.EmergencyContact,
		patient.Address,
		patient.Allergies,
		patient.MedicalHistory,
		patient.UpdatedAt,
		patient.ID,
		patient.ClinicID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return expectRows(result)
}

func (r *patientRepository) List(ctx context.Context, clinicID uuid.UUID, filter model.PatientFilter) ([]*model.Patient, error) {
	page := filter.Pagination.Normalize()
	query := `SELECT ` + patientColumns + ` FROM patients WHERE clinic_id = $1`
	args := []interface{}{clinicID}

	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (lower(full_name) LIKE $%d OR lower(patient_code) LIKE $%d OR phone LIKE $%d)`, n, n, n)
	}

	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
