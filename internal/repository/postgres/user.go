package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

// The permission override lives in its own table; a missing row scans as a
// nil override.
const userColumns = `
	u.id, u.clinic_id, u.email, u.full_name, u.phone, u.role, u.password_hash,
	u.specialization, u.qualification, u.registration_number, u.signature_url,
	u.print_top, u.print_left, u.is_active, u.login_attempts, u.last_login_attempt,
	u.last_login_at, u.created_at, u.updated_at, up.permissions
`

const userFrom = ` FROM users u LEFT JOIN user_permissions up ON up.user_id = u.id `

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (
				id, clinic_id, email, full_name, phone, role, password_hash,
				specialization, qualification, registration_number, signature_url,
				print_top, print_left, is_active, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`,
			user.ID,
			user.ClinicID,
			user.Email,
			user.FullName,
			user.Phone,
			user.Role,
			user.PasswordHash,
			user.Specialization,
			user.Qualification,
			user.RegistrationNumber,
			user.SignatureURL,
			user.PrintTop,
			user.PrintLeft,
			user.IsActive,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", mapError(err))
		}
		if user.Permissions == nil {
			return nil
		}
		return upsertPermissions(ctx, tx, user.ID, user.Permissions)
	})
}

func upsertPermissions(ctx context.Context, tx sqlx.ExecerContext, id uuid.UUID, permissions []string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_permissions (user_id, permissions, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = EXCLUDED.updated_at
	`, id, pq.StringArray(model.StringList(permissions)), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store permissions: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+userFrom+`WHERE u.id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+userFrom+`WHERE lower(u.email) = lower($1)`, email); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) UpdateLoginState(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET login_attempts = $1, last_login_attempt = $2, last_login_at = $3, updated_at = $4
		WHERE id = $5
	`, user.LoginAttempts, user.LastLoginAttempt, user.LastLoginAt, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update login state: %w", err)
	}
	return expectRows(result)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3
	`, hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectRows(result)
}

func (r *userRepository) UpdatePrintSettings(ctx context.Context, id uuid.UUID, ps model.PrintSettings) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET print_top = $1, print_left = $2, updated_at = $3 WHERE id = $4
	`, ps.Top, ps.Left, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update print settings: %w", err)
	}
	return expectRows(result)
}

func (r *userRepository) ListByRole(ctx context.Context, clinicID uuid.UUID, role model.Role) ([]*model.User, error) {
	users := []*model.User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+userFrom+`
		WHERE u.clinic_id = $1 AND u.role = $2 AND u.is_active
		ORDER BY u.full_name
	`, clinicID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.User, error) {
	users := []*model.User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+userFrom+`
		WHERE u.clinic_id = $1
		ORDER BY u.full_name
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinic users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = $1, phone = $2, role = $3, is_active = $4, specialization = $5,
			qualification = $6, registration_number = $7, signature_url = $8, updated_at = $9
		WHERE id = $10
	`,
		user.FullName,
		user.Phone,
		user.Role,
		user.IsActive,
		user.Specialization,
		user.Qualification,
		user.RegistrationNumber,
		user.SignatureURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}
	return expectRows(result)
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", mapError(err))
	}
	return expectRows(result)
}

func (r *userRepository) SetPermissions(ctx context.Context, id uuid.UUID, permissions []string) error {
	return upsertPermissions(ctx, r.db, id, permissions)
}

func (r *userRepository) ResetPermissions(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to reset permissions: %w", err)
	}
	return nil
}
