package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

type Service struct {
	userRepo repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	now      func() time.Time
}

func NewService(userRepo repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		now:      time.Now,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
		}
		return nil, apperrors.Internal(err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(model.ErrAccountInactive)
	}

	now := s.now()
	if user.LoginAttempts >= maxLoginAttempts && user.LastLoginAttempt != nil {
		if now.Sub(*user.LastLoginAttempt) < lockoutDuration {
			return nil, &apperrors.AppError{
				Code:    apperrors.ErrUnauthorized,
				Message: model.ErrAccountLocked.Error(),
				Err:     model.ErrAccountLocked,
			}
		}
		user.LoginAttempts = 0
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		user.LoginAttempts++
		user.LastLoginAttempt = &now
		if err := s.userRepo.UpdateLoginState(ctx, user); err != nil {
			return nil, apperrors.Internal(fmt.Errorf("failed to update login attempts: %w", err))
		}
		log.Warn().Str("user_id", user.ID.String()).Int("attempts", user.LoginAttempts).Msg("failed login")
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}

	user.LoginAttempts = 0
	user.LastLoginAt = &now
	if err := s.userRepo.UpdateLoginState(ctx, user); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update login timestamp: %w", err))
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(auth.Principal{
		UserID:   user.ID,
		ClinicID: user.ClinicID,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	log.Info().Str("user_id", user.ID.String()).Str("clinic_id", user.ClinicID.String()).Msg("user logged in")

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user.Profile(),
	}, nil
}

// Me returns the profile of an authenticated user.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *Service) activeUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(err)
		}
		return nil, apperrors.Internal(err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(model.ErrAccountInactive)
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return apperrors.BadRequest("current password is incorrect", err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return apperrors.BadRequest(err.Error(), err)
		}
		return apperrors.Internal(err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to update password: %w", err))
	}
	return nil
}

// UpdatePrintSettings stores the clamped offset and returns what was stored.
func (s *Service) UpdatePrintSettings(ctx context.Context, userID uuid.UUID, req *model.PrintSettingsRequest) (*model.PrintSettings, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasPermission(model.PermEditPrintSettings) {
		return nil, apperrors.Forbidden("print settings cannot be changed by this user")
	}

	ps := model.PrintSettings{Top: req.Top, Left: req.Left}.Clamped()
	if err := s.userRepo.UpdatePrintSettings(ctx, userID, ps); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update print settings: %w", err))
	}
	return &ps, nil
}

// PrintSettings returns the stored offset for a user.
func (s *Service) PrintSettings(ctx context.Context, userID uuid.UUID) (model.PrintSettings, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return model.PrintSettings{}, err
	}
	return user.PrintSettings(), nil
}
