package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

const visitColumns = `
	v.id, v.clinic_id, v.patient_id, v.appointment_id, v.doctor_id, v.visit_number,
	v.visit_date, v.symptoms, v.diagnosis, v.observations, v.recommended_tests,
	v.follow_up_date, v.vitals, v.prescription_notes, v.amount, v.created_at, v.updated_at
`

const patientSummaryColumns = `
	p.id AS "patient.id", p.patient_code AS "patient.patient_code",
	p.full_name AS "patient.full_name", p.age AS "patient.age",
	p.gender AS "patient.gender", p.phone AS "patient.phone"
`

type visitRepository struct {
	BaseRepository
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	if visit.ID == uuid.Nil {
		visit.ID = uuid.New()
	}
	visit.CreatedAt = time.Now()
	visit.UpdatedAt = visit.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockKey(ctx, tx, "visit-number:"+visit.PatientID.String()); err != nil {
			return err
		}

		var last int
		err := tx.GetContext(ctx, &last, `
			SELECT COALESCE(MAX(visit_number), 0) FROM visits WHERE patient_id = $1
		`, visit.PatientID)
		if err != nil {
			return fmt.Errorf("failed to read visit number: %w", err)
		}
		visit.VisitNumber = last + 1

		_, err = tx.ExecContext(ctx, `
			INSERT INTO visits (
				id, clinic_id, patient_id, appointment_id, doctor_id, visit_number, visit_date,
				symptoms, diagnosis, observations, recommended_tests, follow_up_date, vitals,
				prescription_notes, amount, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`,
			visit.ID,
			visit.ClinicID,
			visit.PatientID,
			visit.AppointmentID,
			visit.DoctorID,
			visit.VisitNumber,
			visit.VisitDate,
			visit.Symptoms,
			visit.Diagnosis,
			visit.Observations,
			visit.RecommendedTests,
			visit.FollowUpDate,
			visit.Vitals,
			visit.PrescriptionNotes,
			visit.Amount,
			visit.CreatedAt,
			visit.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create visit: %w", mapError(err))
		}

		if err := r.insertMedicines(ctx, tx, visit); err != nil {
			return err
		}

		if visit.AppointmentID != nil {
			result, err := tx.ExecContext(ctx, `
				UPDATE appointments SET status = $1, updated_at = $2
				WHERE id = $3 AND clinic_id = $4
			`, model.AppointmentStatusCompleted, visit.CreatedAt, *visit.AppointmentID, visit.ClinicID)
			if err != nil {
				return fmt.Errorf("failed to complete appointment: %w", err)
			}
			if err := expectRows(result); err != nil {
				return fmt.Errorf("failed to complete appointment: %w", err)
			}
		}
		return nil
	})
}

func (r *visitRepository) insertMedicines(ctx context.Context, tx *sqlx.Tx, visit *model.Visit) error {
	for i := range visit.Medicines {
		m := &visit.Medicines[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.VisitID = visit.ID
		m.Position = i + 1

		_, err := tx.ExecContext(ctx, `
			INSERT INTO visit_medicines (id, visit_id, position, medicine_name, dosage, duration)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.VisitID, m.Position, m.MedicineName, m.Dosage, m.Duration)
		if err != nil {
			return fmt.Errorf("failed to add medicine: %w", err)
		}
	}
	return nil
}

func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) error {
	visit.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE visits
			SET symptoms = $1, diagnosis = $2, observations = $3, recommended_tests = $4,
				follow_up_date = $5, vitals = $6, prescription_notes = $7, amount = $8,
				updated_at = $9
			WHERE id = $10 AND clinic_id = $11
		`,
			visit.Symptoms,
			visit.Diagnosis,
			visit.Observations,
			visit.RecommendedTests,
			visit.FollowUpDate,
			visit.Vitals,
			visit.PrescriptionNotes,
			visit.Amount,
			visit.UpdatedAt,
			visit.ID,
			visit.ClinicID,
		)
		if err != nil {
			return fmt.Errorf("failed to update visit: %w", err)
		}
		if err := expectRows(result); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM visit_medicines WHERE visit_id = $1`, visit.ID); err != nil {
			return fmt.Errorf("failed to clear medicines: %w", err)
		}
		return r.insertMedicines(ctx, tx, visit)
	})
}

func (r *visitRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Visit, error) {
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, `SELECT `+visitColumns+` FROM visits v WHERE v.id = $1 AND v.clinic_id = $2`, id, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", mapError(err))
	}
	if err := r.loadMedicines(ctx, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *visitRepository) GetByAppointment(ctx context.Context, clinicID, appointmentID uuid.UUID) (*model.Visit, error) {
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, `SELECT `+visitColumns+` FROM visits v WHERE v.appointment_id = $1 AND v.clinic_id = $2`, appointmentID, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit for appointment: %w", mapError(err))
	}
	if err := r.loadMedicines(ctx, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *visitRepository) loadMedicines(ctx context.Context, visit *model.Visit) error {
	medicines := []model.VisitMedicine{}
	err := r.db.SelectContext(ctx, &medicines, `
		SELECT id, visit_id, position, medicine_name, dosage, duration
		FROM visit_medicines WHERE visit_id = $1 ORDER BY position
	`, visit.ID)
	if err != nil {
		return fmt.Errorf("failed to load medicines: %w", err)
	}
	visit.Medicines = medicines
	return nil
}

func (r *visitRepository) List(ctx context.Context, clinicID uuid.UUID, filter model.VisitFilter) ([]*model.VisitListItem, error) {
	page := filter.Pagination.Normalize()
	query := `SELECT ` + visitColumns + `, ` + patientSummaryColumns + `
		FROM visits v JOIN patients p ON p.id = v.patient_id
		WHERE v.clinic_id = $1`
	args := []interface{}{clinicID}

	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		query += fmt.Sprintf(` AND v.patient_id = $%d`, len(args))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		query += fmt.Sprintf(` AND v.visit_date = $%d`, len(args))
	}
	if filter.DoctorID != nil {
		args = append(args, *filter.DoctorID)
		query += fmt.Sprintf(` AND v.doctor_id = $%d`, len(args))
	}

	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY v.visit_date DESC, v.visit_number DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	items := []*model.VisitListItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	for _, item := range items {
		if err := r.loadMedicines(ctx, &item.Visit); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *visitRepository) FollowUpsDue(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.FollowUp, error) {
	followUps := []*model.FollowUp{}
	err := r.db.SelectContext(ctx, &followUps, `
		SELECT v.id AS visit_id, v.visit_number, v.visit_date, v.follow_up_date, v.diagnosis,
			   `+patientSummaryColumns+`
		FROM visits v JOIN patients p ON p.id = v.patient_id
		WHERE v.clinic_id = $1 AND v.follow_up_date = $2
		ORDER BY p.full_name
	`, clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	return followUps, nil
}

func (r *visitRepository) ClinicsWithFollowUps(ctx context.Context, date model.Date) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT clinic_id FROM visits WHERE follow_up_date = $1
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics with follow-ups: %w", err)
	}
	return ids, nil
}

func (r *visitRepository) Collections(ctx context.Context, clinicID uuid.UUID, from, to model.Date) ([]model.CollectionDay, error) {
	days := []model.CollectionDay{}
	err := r.db.SelectContext(ctx, &days, `
		SELECT visit_date, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS visits
		FROM visits
		WHERE clinic_id = $1 AND visit_date BETWEEN $2 AND $3
		GROUP BY visit_date
		ORDER BY visit_date
	`, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize collections: %w", err)
	}
	return days, nil
}
