// Package permission lets a clinic owner override what each user may do.
// Without an override a user holds the defaults of their role.
package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type Service struct {
	users   repository.UserRepository
	clinics repository.ClinicRepository
}

func NewService(users repository.UserRepository, clinics repository.ClinicRepository) *Service {
	return &Service{users: users, clinics: clinics}
}

// Normalize validates names and returns them deduplicated in display order.
func Normalize(perms []string) ([]string, error) {
	var errs apperrors.ValidationErrors
	want := map[string]bool{}
	for _, p := range perms {
		if !model.ValidPermission(p) {
			errs = append(errs, apperrors.NewValidation("permissions", fmt.Sprintf("unknown permission %q", p)))
			continue
		}
		want[p] = true
	}
	if len(errs) > 0 {
		return nil, errs
	}
	out := []string{}
	for _, p := range model.AllPermissions() {
		if want[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) requireOwner(ctx context.Context, caller auth.Principal) (*model.Clinic, error) {
	clinic, err := s.clinics.Get(ctx, caller.ClinicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !clinic.IsOwner(caller.UserID) {
		return nil, apperrors.Forbidden("only the clinic owner can manage permissions")
	}
	return clinic, nil
}

func (s *Service) target(ctx context.Context, clinic *model.Clinic, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	if u.ClinicID != clinic.ID {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

// List returns every user of the caller's clinic with their effective
// permissions.
func (s *Service) List(ctx context.Context, caller auth.Principal) ([]*model.Member, error) {
	clinic, err := s.requireOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByClinic(ctx, clinic.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := make([]*model.Member, 0, len(users))
	for _, u := range users {
		out = append(out, model.NewMember(u, clinic.OwnerID))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, caller auth.Principal, userID uuid.UUID) (*model.Member, error) {
	clinic, err := s.requireOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	u, err := s.target(ctx, clinic, userID)
	if err != nil {
		return nil, err
	}
	return model.NewMember(u, clinic.OwnerID), nil
}

// Update stores perms as the user's override. An empty list revokes
// everything; the owner's own permissions cannot be narrowed.
func (s *Service) Update(ctx context.Context, caller auth.Principal, userID uuid.UUID, perms []string) (*model.Member, error) {
	clinic, err := s.requireOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	u, err := s.target(ctx, clinic, userID)
	if err != nil {
		return nil, err
	}
	if clinic.IsOwner(u.ID) {
		return nil, apperrors.Forbidden("the clinic owner's permissions cannot be changed")
	}
	normalized, err := Normalize(perms)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	if err := s.users.SetPermissions(ctx, u.ID, normalized); err != nil {
		return nil, apperrors.Internal(err)
	}
	u.Permissions = normalized

	log.Info().
		Str("user_id", u.ID.String()).
		Strs("permissions", normalized).
		Msg("permissions updated")
	return model.NewMember(u, clinic.OwnerID), nil
}

// Reset drops the override so the role defaults apply again.
func (s *Service) Reset(ctx context.Context, caller auth.Principal, userID uuid.UUID) (*model.Member, error) {
	clinic, err := s.requireOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	u, err := s.target(ctx, clinic, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.ResetPermissions(ctx, u.ID); err != nil {
		return nil, apperrors.Internal(err)
	}
	u.Permissions = nil

	log.Info().Str("user_id", u.ID.String()).Msg("permissions reset to role defaults")
	return model.NewMember(u, clinic.OwnerID), nil
}
