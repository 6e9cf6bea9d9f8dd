// Package user manages the doctors and assistants of a clinic.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

type Service struct {
	users   repository.UserRepository
	clinics repository.ClinicRepository
	hasher  security.PasswordHasher
}

func NewService(users repository.UserRepository, clinics repository.ClinicRepository, hasher security.PasswordHasher) *Service {
	return &Service{users: users, clinics: clinics, hasher: hasher}
}

func (s *Service) owner(ctx context.Context, clinicID uuid.UUID) (*uuid.UUID, error) {
	clinic, err := s.clinics.Get(ctx, clinicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, apperrors.Internal(err)
	}
	return clinic.OwnerID, nil
}

// member loads a user of the clinic; users of other clinics are not found.
func (s *Service) member(ctx context.Context, clinicID, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	if u.ClinicID != clinicID {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Member, error) {
	owner, err := s.owner(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	members := make([]*model.Member, 0, len(users))
	for _, u := range users {
		members = append(members, model.NewMember(u, owner))
	}
	return members, nil
}

// Create adds a doctor or an assistant to the clinic. The role defaults to
// assistant.
func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, req *model.CreateUserRequest) (*model.Member, error) {
	role := req.Role
	if role == "" {
		role = model.RoleAssistant
	}
	if role != model.RoleDoctor && role != model.RoleAssistant {
		return nil, apperrors.BadRequest("role must be DOCTOR or ASSISTANT", nil)
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, apperrors.BadRequest("full name is required", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.BadRequest("password must be at least 8 characters", err)
		}
		return nil, apperrors.Internal(err)
	}

	u := &model.User{
		ClinicID:     clinicID,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     name,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         role,
		PasswordHash: hash,
		PrintTop:     model.DefaultPrintTop,
		PrintLeft:    model.DefaultPrintLeft,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("a user with this email already exists", err)
		}
		return nil, apperrors.Internal(err)
	}

	log.Info().
		Str("clinic_id", clinicID.String()).
		Str("user_id", u.ID.String()).
		Str("role", string(role)).
		Msg("user created")

	owner, err := s.owner(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	return model.NewMember(u, owner), nil
}

// Update edits a clinic user. Nobody can deactivate themselves, and the
// owner stays an active doctor.
func (s *Service) Update(ctx context.Context, caller auth.Principal, id uuid.UUID, req *model.UpdateUserRequest) (*model.Member, error) {
	u, err := s.member(ctx, caller.ClinicID, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.owner(ctx, caller.ClinicID)
	if err != nil {
		return nil, err
	}
	isOwner := owner != nil && *owner == u.ID
	if u.Role == model.RoleAdmin {
		return nil, apperrors.Forbidden("admin accounts are managed separately")
	}

	if req.IsActive != nil && !*req.IsActive {
		if u.ID == caller.UserID {
			return nil, apperrors.BadRequest("you cannot deactivate your own account", nil)
		}
		if isOwner {
			return nil, apperrors.Forbidden("the clinic owner cannot be deactivated")
		}
	}
	if req.Role != nil {
		if *req.Role != model.RoleDoctor && *req.Role != model.RoleAssistant {
			return nil, apperrors.BadRequest("role must be DOCTOR or ASSISTANT", nil)
		}
		if isOwner && *req.Role != model.RoleDoctor {
			return nil, apperrors.Forbidden("the clinic owner must remain a doctor")
		}
		u.Role = *req.Role
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, apperrors.BadRequest("full name is required", nil)
		}
		u.FullName = name
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	log.Info().Str("user_id", u.ID.String()).Str("by", caller.UserID.String()).Msg("user updated")
	return model.NewMember(u, owner), nil
}

// Delete removes a user that has no recorded activity. Users with queue,
// visit or billing records can only be deactivated.
func (s *Service) Delete(ctx context.Context, caller auth.Principal, id uuid.UUID) error {
	if id == caller.UserID {
		return apperrors.BadRequest("you cannot delete your own account", nil)
	}
	u, err := s.member(ctx, caller.ClinicID, id)
	if err != nil {
		return err
	}
	owner, err := s.owner(ctx, caller.ClinicID)
	if err != nil {
		return err
	}
	if owner != nil && *owner == u.ID {
		return apperrors.Forbidden("the clinic owner cannot be deleted")
	}
	if u.Role == model.RoleAdmin {
		return apperrors.Forbidden("admin accounts are managed separately")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("user", err)
		case errors.Is(err, repository.ErrInUse):
			return apperrors.Conflict("user has recorded activity; deactivate the account instead", err)
		}
		return apperrors.Internal(err)
	}
	log.Info().Str("user_id", id.String()).Str("by", caller.UserID.String()).Msg("user deleted")
	return nil
}
