// Package clinic serves the clinic and doctor profiles used on letterheads,
// and the admin views over the clinics an admin manages.
package clinic

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
)

// Accounts creates clinic users; the user service satisfies it.
type Accounts interface {
	Create(ctx context.Context, clinicID uuid.UUID, req *model.CreateUserRequest) (*model.Member, error)
}

type Service struct {
	clinics  repository.ClinicRepository
	users    repository.UserRepository
	accounts Accounts
}

func NewService(clinics repository.ClinicRepository, users repository.UserRepository, accounts Accounts) *Service {
	return &Service{clinics: clinics, users: users, accounts: accounts}
}

func (s *Service) clinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	c, err := s.clinics.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, apperrors.Internal(err)
	}
	return c, nil
}

func (s *Service) user(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	return u, nil
}

func (s *Service) Info(ctx context.Context, caller auth.Principal) (*model.ClinicInfo, error) {
	c, err := s.clinic(ctx, caller.ClinicID)
	if err != nil {
		return nil, err
	}
	return &model.ClinicInfo{Clinic: c, IsOwner: c.IsOwner(caller.UserID)}, nil
}

// Update edits the clinic's letterhead details. Only the owner may.
func (s *Service) Update(ctx context.Context, caller auth.Principal, req *model.ClinicRequest) (*model.Clinic, error) {
	c, err := s.clinic(ctx, caller.ClinicID)
	if err != nil {
		return nil, err
	}
	if !c.IsOwner(caller.UserID) {
		return nil, apperrors.Forbidden("only the clinic owner can edit clinic details")
	}
	return s.save(ctx, c, req)
}

func (s *Service) save(ctx context.Context, c *model.Clinic, req *model.ClinicRequest) (*model.Clinic, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperrors.BadRequest("clinic name is required", nil)
	}
	req.Apply(c)
	if err := s.clinics.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, apperrors.Internal(err)
	}
	log.Info().Str("clinic_id", c.ID.String()).Msg("clinic updated")
	return c, nil
}

// Doctors lists the active doctors of a clinic.
func (s *Service) Doctors(ctx context.Context, clinicID uuid.UUID) ([]*model.DoctorProfile, error) {
	users, err := s.users.ListByRole(ctx, clinicID, model.RoleDoctor)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := make([]*model.DoctorProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.DoctorProfile())
	}
	return out, nil
}

// DoctorProfile returns the caller's profile when the caller is a doctor.
// Other staff see the owner's, which is what prescriptions print under.
func (s *Service) DoctorProfile(ctx context.Context, caller auth.Principal) (*model.DoctorProfile, error) {
	u, err := s.user(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if u.Role == model.RoleDoctor {
		return u.DoctorProfile(), nil
	}
	c, err := s.clinic(ctx, caller.ClinicID)
	if err != nil {
		return nil, err
	}
	if c.OwnerID == nil {
		return nil, apperrors.NotFound("doctor profile", nil)
	}
	owner, err := s.user(ctx, *c.OwnerID)
	if err != nil {
		return nil, err
	}
	return owner.DoctorProfile(), nil
}

func (s *Service) UpdateDoctorProfile(ctx context.Context, caller auth.Principal, req *model.UpdateDoctorProfileRequest) (*model.DoctorProfile, error) {
	u, err := s.user(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only doctors have a doctor profile")
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return nil, apperrors.BadRequest("full name is required", nil)
	}
	set(&u.FullName, req.FullName)
	set(&u.Phone, req.Phone)
	set(&u.Specialization, req.Specialization)
	set(&u.Qualification, req.Qualification)
	set(&u.RegistrationNumber, req.RegistrationNumber)
	set(&u.SignatureURL, req.SignatureURL)

	if err := s.users.Update(ctx, u); err != nil {
		return nil, apperrors.Internal(err)
	}
	log.Info().Str("user_id", u.ID.String()).Msg("doctor profile updated")
	return u.DoctorProfile(), nil
}

// managed loads a clinic the admin manages. Clinics outside the admin's
// set are reported as missing.
func (s *Service) managed(ctx context.Context, adminID, clinicID uuid.UUID) (*model.Clinic, error) {
	ok, err := s.clinics.IsAdmin(ctx, adminID, clinicID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !ok {
		return nil, apperrors.NotFound("clinic", nil)
	}
	return s.clinic(ctx, clinicID)
}

func (s *Service) AdminStats(ctx context.Context, adminID uuid.UUID) (*model.AdminStats, error) {
	stats, err := s.clinics.AdminStats(ctx, adminID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}

func (s *Service) AdminClinics(ctx context.Context, adminID uuid.UUID) ([]*model.Clinic, error) {
	clinics, err := s.clinics.ListByAdmin(ctx, adminID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return clinics, nil
}

// AdminCreateClinic creates a clinic managed by the admin.
func (s *Service) AdminCreateClinic(ctx context.Context, adminID uuid.UUID, req *model.ClinicRequest) (*model.Clinic, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperrors.BadRequest("clinic name is required", nil)
	}
	c := &model.Clinic{}
	req.Apply(c)
	if err := s.clinics.Create(ctx, c); err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.clinics.AddAdmin(ctx, adminID, c.ID); err != nil {
		if delErr := s.clinics.Delete(ctx, c.ID); delErr != nil {
			log.Error().Err(delErr).Str("clinic_id", c.ID.String()).Msg("failed to remove unassigned clinic")
		}
		return nil, apperrors.Internal(err)
	}
	log.Info().Str("clinic_id", c.ID.String()).Str("admin_id", adminID.String()).Msg("clinic created")
	return c, nil
}

func (s *Service) AdminClinic(ctx context.Context, adminID, clinicID uuid.UUID) (*model.ClinicDetail, error) {
	c, err := s.managed(ctx, adminID, clinicID)
	if err != nil {
		return nil, err
	}
	doctors, err := s.doctors(ctx, c)
	if err != nil {
		return nil, err
	}
	return &model.ClinicDetail{Clinic: c, Doctors: doctors}, nil
}

func (s *Service) AdminUpdateClinic(ctx context.Context, adminID, clinicID uuid.UUID, req *model.ClinicRequest) (*model.Clinic, error) {
	c, err := s.managed(ctx, adminID, clinicID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, c, req)
}

// AdminDeleteClinic removes an empty clinic. Clinics with users or records
// are refused.
func (s *Service) AdminDeleteClinic(ctx context.Context, adminID, clinicID uuid.UUID) error {
	if _, err := s.managed(ctx, adminID, clinicID); err != nil {
		return err
	}
	if err := s.clinics.Delete(ctx, clinicID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("clinic", err)
		case errors.Is(err, repository.ErrInUse):
			return apperrors.Conflict("clinic still has users or records", err)
		}
		return apperrors.Internal(err)
	}
	log.Info().Str("clinic_id", clinicID.String()).Str("admin_id", adminID.String()).Msg("clinic deleted")
	return nil
}

// doctors lists every doctor of c, inactive ones included.
func (s *Service) doctors(ctx context.Context, c *model.Clinic) ([]*model.Member, error) {
	users, err := s.users.ListByClinic(ctx, c.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := []*model.Member{}
	for _, u := range users {
		if u.Role == model.RoleDoctor {
			out = append(out, model.NewMember(u, c.OwnerID))
		}
	}
	return out, nil
}

func (s *Service) AdminDoctors(ctx context.Context, adminID, clinicID uuid.UUID) ([]*model.Member, error) {
	c, err := s.managed(ctx, adminID, clinicID)
	if err != nil {
		return nil, err
	}
	return s.doctors(ctx, c)
}

// AdminAddDoctor creates a doctor account in a managed clinic. The first
// doctor of an ownerless clinic becomes its owner.
func (s *Service) AdminAddDoctor(ctx context.Context, adminID, clinicID uuid.UUID, req *model.CreateUserRequest) (*model.Member, error) {
	c, err := s.managed(ctx, adminID, clinicID)
	if err != nil {
		return nil, err
	}
	req.Role = model.RoleDoctor
	m, err := s.accounts.Create(ctx, c.ID, req)
	if err != nil {
		return nil, err
	}
	if c.OwnerID == nil {
		c.OwnerID = &m.ID
		if err := s.clinics.Update(ctx, c); err != nil {
			return nil, apperrors.Internal(err)
		}
		m.IsOwner = true
	}
	return m, nil
}

func (s *Service) AdminRemoveDoctor(ctx context.Context, adminID, clinicID, doctorID uuid.UUID) error {
	if _, err := s.managed(ctx, adminID, clinicID); err != nil {
		return err
	}
	u, err := s.user(ctx, doctorID)
	if err != nil {
		return err
	}
	if u.ClinicID != clinicID || u.Role != model.RoleDoctor {
		return apperrors.NotFound("doctor", nil)
	}
	if err := s.users.Delete(ctx, doctorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("doctor", err)
		case errors.Is(err, repository.ErrInUse):
			return apperrors.Conflict("doctor has recorded activity; deactivate the account instead", err)
		}
		return apperrors.Internal(err)
	}
	log.Info().Str("clinic_id", clinicID.String()).Str("doctor_id", doctorID.String()).Msg("doctor removed")
	return nil
}
