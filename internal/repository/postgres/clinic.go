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

const clinicColumns = `c.id, c.name, c.address, c.phone, c.email, c.logo_url, c.owner_id, c.created_at, c.updated_at`

type clinicRepository struct {
	db *sqlx.DB
}

func NewClinicRepository(db *sqlx.DB) repository.ClinicRepository {
	return &clinicRepository{db: db}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, address, phone, email, logo_url, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if clinic.ID == uuid.Nil {
		clinic.ID = uuid.New()
	}
	clinic.CreatedAt = time.Now()
	clinic.UpdatedAt = clinic.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.Address,
		clinic.Phone,
		clinic.Email,
		clinic.LogoURL,
		clinic.OwnerID,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", mapError(err))
	}
	return nil
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	err := r.db.GetContext(ctx, &clinic, `SELECT `+clinicColumns+` FROM clinics c WHERE c.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", mapError(err))
	}
	return &clinic, nil
}

func (r *clinicRepository) List(ctx context.Context) ([]*model.Clinic, error) {
	clinics := []*model.Clinic{}
	err := r.db.SelectContext(ctx, &clinics, `SELECT `+clinicColumns+` FROM clinics c ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, nil
}

func (r *clinicRepository) Update(ctx context.Context, clinic *model.Clinic) error {
	clinic.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE clinics
		SET name = $1, address = $2, phone = $3, email = $4, logo_url = $5, owner_id = $6, updated_at = $7
		WHERE id = $8
	`,
		clinic.Name,
		clinic.Address,
		clinic.Phone,
		clinic.Email,
		clinic.LogoURL,
		clinic.OwnerID,
		clinic.UpdatedAt,
		clinic.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", mapError(err))
	}
	return expectRows(result)
}

func (r *clinicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clinics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clinic: %w", mapError(err))
	}
	return expectRows(result)
}

func (r *clinicRepository) AddAdmin(ctx context.Context, adminID, clinicID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clinic_admins (admin_id, clinic_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, adminID, clinicID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to assign clinic admin: %w", mapError(err))
	}
	return nil
}

func (r *clinicRepository) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]*model.Clinic, error) {
	clinics := []*model.Clinic{}
	err := r.db.SelectContext(ctx, &clinics, `
		SELECT `+clinicColumns+`
		FROM clinics c JOIN clinic_admins ca ON ca.clinic_id = c.id
		WHERE ca.admin_id = $1
		ORDER BY c.name
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed clinics: %w", err)
	}
	return clinics, nil
}

func (r *clinicRepository) IsAdmin(ctx context.Context, adminID, clinicID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS (SELECT 1 FROM clinic_admins WHERE admin_id = $1 AND clinic_id = $2)
	`, adminID, clinicID)
	if err != nil {
		return false, fmt.Errorf("failed to check clinic admin: %w", err)
	}
	return ok, nil
}

func (r *clinicRepository) AdminStats(ctx context.Context, adminID uuid.UUID) (*model.AdminStats, error) {
	var stats model.AdminStats
	err := r.db.GetContext(ctx, &stats, `
		WITH managed AS (SELECT clinic_id FROM clinic_admins WHERE admin_id = $1)
		SELECT
			(SELECT COUNT(*) FROM managed) AS total_clinics,
			(SELECT COUNT(*) FROM users WHERE role = 'DOCTOR' AND clinic_id IN (SELECT clinic_id FROM managed)) AS total_doctors,
			(SELECT COUNT(*) FROM patients WHERE clinic_id IN (SELECT clinic_id FROM managed)) AS total_patients
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin stats: %w", err)
	}
	return &stats, nil
}
