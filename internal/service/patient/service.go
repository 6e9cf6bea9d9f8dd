package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type PatientService interface {
	CreatePatient(ctx context.Context, clinicID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error)
	UpdatePatient(ctx context.Context, clinicID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	ListPatients(ctx context.Context, clinicID uuid.UUID, filter model.PatientFilter) ([]*model.Patient, error)
	ListVisits(ctx context.Context, clinicID, id uuid.UUID, page model.Pagination) ([]*model.VisitListItem, error)
}

type Service struct {
	repo      repository.PatientRepository
	visitRepo repository.VisitRepository
}

func NewService(repo repository.PatientRepository, visitRepo repository.VisitRepository) *Service {
	return &Service{repo: repo, visitRepo: visitRepo}
}

func (s *Service) CreatePatient(ctx context.Context, clinicID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		ClinicID:         clinicID,
		FullName:         strings.TrimSpace(req.FullName),
		Age:              req.Age,
		Gender:           req.Gender,
		BloodGroup:       req.BloodGroup,
		Phone:            strings.TrimSpace(req.Phone),
		EmergencyContact: strings.TrimSpace(req.EmergencyContact),
		Address:          strings.TrimSpace(req.Address),
		Allergies:        model.NormalizeList(req.Allergies),
		MedicalHistory:   strings.TrimSpace(req.MedicalHistory),
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create patient: %w", err))
	}
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, clinicID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.GetPatient(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	req.Apply(patient)
	patient.FullName = strings.TrimSpace(patient.FullName)
	patient.Allergies = model.NormalizeList(patient.Allergies)

	if err := s.repo.Update(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to update patient: %w", err))
	}
	return patient, nil
}

func (s *Service) ListPatients(ctx context.Context, clinicID uuid.UUID, filter model.PatientFilter) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return patients, nil
}

// ListVisits returns the patient's visit history, newest first.
func (s *Service) ListVisits(ctx context.Context, clinicID, id uuid.UUID, page model.Pagination) ([]*model.VisitListItem, error) {
	if _, err := s.GetPatient(ctx, clinicID, id); err != nil {
		return nil, err
	}
	visits, err := s.visitRepo.List(ctx, clinicID, model.VisitFilter{PatientID: &id, Pagination: page})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return visits, nil
}
