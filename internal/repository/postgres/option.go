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

const optionColumns = `
	id, clinic_id, category, name, description, display_order, is_active, created_at, updated_at
`

type optionRepository struct {
	db *sqlx.DB
}

func NewOptionRepository(db *sqlx.DB) repository.OptionRepository {
	return &optionRepository{db: db}
}

func (r *optionRepository) List(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error) {
	query := `SELECT ` + optionColumns + ` FROM reference_options WHERE clinic_id = $1 AND category = $2`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY display_order, name`

	options := []*model.ReferenceOption{}
	if err := r.db.SelectContext(ctx, &options, query, clinicID, category); err != nil {
		return nil, fmt.Errorf("failed to list %s options: %w", category, err)
	}
	return options, nil
}

func (r *optionRepository) Get(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID) (*model.ReferenceOption, error) {
	var option model.ReferenceOption
	err := r.db.GetContext(ctx, &option, `
		SELECT `+optionColumns+` FROM reference_options
		WHERE id = $1 AND clinic_id = $2 AND category = $3
	`, id, clinicID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s option: %w", category, mapError(err))
	}
	return &option, nil
}

func (r *optionRepository) Create(ctx context.Context, option *model.ReferenceOption) error {
	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}
	option.CreatedAt = time.Now()
	option.UpdatedAt = option.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reference_options (
			id, clinic_id, category, name, description, display_order, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		option.ID,
		option.ClinicID,
		option.Category,
		option.Name,
		option.Description,
		option.DisplayOrder,
		option.IsActive,
		option.CreatedAt,
		option.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create %s option: %w", option.Category, mapError(err))
	}
	return nil
}

func (r *optionRepository) Update(ctx context.Context, option *model.ReferenceOption) error {
	option.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE reference_options
		SET name = $1, description = $2, display_order = $3, is_active = $4, updated_at = $5
		WHERE id = $6 AND clinic_id = $7 AND category = $8
	`,
		option.Name,
		option.Description,
		option.DisplayOrder,
		option.IsActive,
		option.UpdatedAt,
		option.ID,
		option.ClinicID,
		option.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s option: %w", option.Category, mapError(err))
	}
	return expectRows(result)
}

func (r *optionRepository) Delete(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM reference_options WHERE id = $1 AND clinic_id = $2 AND category = $3
	`, id, clinicID, category)
	if err != nil {
		return fmt.Errorf("failed to delete %s option: %w", category, err)
	}
	return expectRows(result)
}
