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

const appointmentSelect = `
	SELECT a.id, a.clinic_id, a.patient_id, a.queue_date, a.queue_number, a.status,
		   a.chief_complaints, a.created_by, a.created_at, a.updated_at,
		   p.id AS "patient.id", p.patient_code AS "patient.patient_code",
		   p.full_name AS "patient.full_name", p.age AS "patient.age",
		   p.gender AS "patient.gender", p.phone AS "patient.phone"
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: NewBaseRepository(db)}
}

func queueLockKey(clinicID uuid.UUID, date model.Date) string {
	return "queue:" + clinicID.String() + ":" + date.String()
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockKey(ctx, tx, queueLockKey(appointment.ClinicID, appointment.QueueDate)); err != nil {
			return err
		}

		var last int
		err := tx.GetContext(ctx, &last, `
			SELECT COALESCE(MAX(queue_number), 0) FROM appointments
			WHERE clinic_id = $1 AND queue_date = $2
		`, appointment.ClinicID, appointment.QueueDate)
		if err != nil {
			return fmt.Errorf("failed to read queue length: %w", err)
		}
		appointment.QueueNumber = last + 1

		_, err = tx.ExecContext(ctx, `
			INSERT INTO appointments (
				id, clinic_id, patient_id, queue_date, queue_number, status,
				chief_complaints, created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			appointment.ID,
			appointment.ClinicID,
			appointment.PatientID,
			appointment.QueueDate,
			appointment.QueueNumber,
			appointment.Status,
			appointment.ChiefComplaints,
			appointment.CreatedBy,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", mapError(err))
		}
		return nil
	})
}

func (r *appointmentRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, appointmentSelect+` WHERE a.id = $1 AND a.clinic_id = $2`, id, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByDate(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.Appointment, error) {
	return r.listByDate(ctx, r.db, clinicID, date)
}

func (r *appointmentRepository) listByDate(ctx context.Context, q sqlx.QueryerContext, clinicID uuid.UUID, date model.Date) ([]*model.Appointment, error) {
	appointments := []*model.Appointment{}
	err := sqlx.SelectContext(ctx, q, &appointments,
		appointmentSelect+` WHERE a.clinic_id = $1 AND a.queue_date = $2 ORDER BY a.queue_number`,
		clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Stats(ctx context.Context, clinicID uuid.UUID, date model.Date) (*model.QueueStats, error) {
	var stats model.QueueStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
			   COUNT(*) FILTER (WHERE status = 'WAITING') AS waiting,
			   COUNT(*) FILTER (WHERE status = 'IN_PROGRESS') AS in_progress,
			   COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed
		FROM appointments
		WHERE clinic_id = $1 AND queue_date = $2
	`, clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return &stats, nil
}

// UpdateStatus only applies when the row is still in status from, so two
// racing transitions cannot both succeed.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, from, to model.AppointmentStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND clinic_id = $4 AND status = $5
	`, to, time.Now(), id, clinicID, from)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if err := expectRows(result); err != nil {
		return repository.ErrStaleState
	}
	return nil
}

type queueSlot struct {
	QueueDate   model.Date              `db:"queue_date"`
	QueueNumber int                     `db:"queue_number"`
	Status      model.AppointmentStatus `db:"status"`
}

func (r *appointmentRepository) lockSlot(ctx context.Context, tx *sqlx.Tx, clinicID, id uuid.UUID) (*queueSlot, error) {
	var slot queueSlot
	err := tx.GetContext(ctx, &slot, `
		SELECT queue_date, queue_number, status FROM appointments
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	if err := lockKey(ctx, tx, queueLockKey(clinicID, slot.QueueDate)); err != nil {
		return nil, err
	}
	// Re-read under the day lock; a concurrent move may have shifted it.
	err = tx.GetContext(ctx, &slot, `
		SELECT queue_date, queue_number, status FROM appointments
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	return &slot, nil
}

// Move puts a WAITING entry at position target and shifts the entries in
// between by one, keeping the day's numbers contiguous.
func (r *appointmentRepository) Move(ctx context.Context, clinicID, id uuid.UUID, target int) ([]*model.Appointment, error) {
	var queue []*model.Appointment

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := r.lockSlot(ctx, tx, clinicID, id)
		if err != nil {
			return err
		}
		if slot.Status != model.AppointmentStatusWaiting {
			return repository.ErrNotReorderable
		}

		var size int
		err = tx.GetContext(ctx, &size, `
			SELECT COUNT(*) FROM appointments WHERE clinic_id = $1 AND queue_date = $2
		`, clinicID, slot.QueueDate)
		if err != nil {
			return fmt.Errorf("failed to read queue length: %w", err)
		}
		if target < 1 || target > size {
			return repository.ErrOutOfRange
		}

		now := time.Now()
		switch {
		case target < slot.QueueNumber:
			_, err = tx.ExecContext(ctx, `
				UPDATE appointments SET queue_number = queue_number + 1, updated_at = $1
				WHERE clinic_id = $2 AND queue_date = $3 AND queue_number >= $4 AND queue_number < $5
			`, now, clinicID, slot.QueueDate, target, slot.QueueNumber)
		case target > slot.QueueNumber:
			_, err = tx.ExecContext(ctx, `
				UPDATE appointments SET queue_number = queue_number - 1, updated_at = $1
				WHERE clinic_id = $2 AND queue_date = $3 AND queue_number > $4 AND queue_number <= $5
			`, now, clinicID, slot.QueueDate, slot.QueueNumber, target)
		}
		if err != nil {
			return fmt.Errorf("failed to shift queue: %w", err)
		}

		if target != slot.QueueNumber {
			_, err = tx.ExecContext(ctx, `
				UPDATE appointments SET queue_number = $1, updated_at = $2 WHERE id = $3
			`, target, now, id)
			if err != nil {
				return fmt.Errorf("failed to move appointment: %w", err)
			}
		}

		queue, err = r.listByDate(ctx, tx, clinicID, slot.QueueDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return queue, nil
}

// Delete removes a WAITING entry and closes the gap it leaves.
func (r *appointmentRepository) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := r.lockSlot(ctx, tx, clinicID, id)
		if err != nil {
			return err
		}
		if slot.Status != model.AppointmentStatusWaiting {
			return repository.ErrNotReorderable
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments SET queue_number = queue_number - 1, updated_at = $1
			WHERE clinic_id = $2 AND queue_date = $3 AND queue_number > $4
		`, time.Now(), clinicID, slot.QueueDate, slot.QueueNumber)
		if err != nil {
			return fmt.Errorf("failed to renumber queue: %w", err)
		}
		return nil
	})
}
