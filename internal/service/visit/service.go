package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
)

type Service struct {
	visits       repository.VisitRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	metrics      *metrics.Metrics
}

func NewService(visits repository.VisitRepository, patients repository.PatientRepository,
	appointments repository.AppointmentRepository, m *metrics.Metrics) *Service {
	return &Service{
		visits:       visits,
		patients:     patients,
		appointments: appointments,
		metrics:      m,
	}
}

func validate(in *model.VisitInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	return nil
}

func (s *Service) patient(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	p, err := s.patients.Get(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	return p, nil
}

// checkAppointment verifies the appointment belongs to the patient and has
// no visit yet.
func (s *Service) checkAppointment(ctx context.Context, clinicID, patientID, appointmentID uuid.UUID) error {
	appointment, err := s.appointments.Get(ctx, clinicID, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return apperrors.Internal(err)
	}
	if appointment.PatientID != patientID {
		return apperrors.BadRequest("appointment belongs to a different patient", nil)
	}

	_, err = s.visits.GetByAppointment(ctx, clinicID, appointmentID)
	switch {
	case err == nil:
		return apperrors.Conflict("a visit already exists for this appointment", nil)
	case !errors.Is(err, repository.ErrNotFound):
		return apperrors.Internal(err)
	}
	return nil
}

// Create records a visit for today. With an appointment set, the appointment
// is completed in the same transaction.
func (s *Service) Create(ctx context.Context, clinicID, doctorID uuid.UUID, in *model.VisitInput) (*model.Visit, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if _, err := s.patient(ctx, clinicID, in.PatientID); err != nil {
		return nil, err
	}
	if in.AppointmentID != nil {
		if err := s.checkAppointment(ctx, clinicID, in.PatientID, *in.AppointmentID); err != nil {
			return nil, err
		}
	}

	visit := &model.Visit{
		ClinicID:      clinicID,
		PatientID:     in.PatientID,
		AppointmentID: in.AppointmentID,
		DoctorID:      doctorID,
		VisitDate:     model.Today(),
	}
	visit.ID = uuid.New()
	in.Apply(visit)

	if err := s.visits.Create(ctx, visit); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.Conflict("a visit already exists for this appointment", err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create visit: %w", err))
	}

	if s.metrics != nil {
		s.metrics.VisitsCreated.Inc()
	}
	log.Info().
		Str("visit_id", visit.ID.String()).
		Str("patient_id", visit.PatientID.String()).
		Int("visit_number", visit.VisitNumber).
		Bool("from_appointment", visit.AppointmentID != nil).
		Msg("visit created")

	return visit, nil
}

// Update replaces the whole visit aggregate. Patient, appointment, number and
// date never change.
func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, in *model.VisitInput) (*model.Visit, error) {
	visit, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	in.PatientID = visit.PatientID
	if err := validate(in); err != nil {
		return nil, err
	}
	in.Apply(visit)

	if err := s.visits.Update(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("visit", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to update visit: %w", err))
	}
	if s.metrics != nil {
		s.metrics.VisitsUpdated.Inc()
	}
	return visit, nil
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Visit, error) {
	visit, err := s.visits.Get(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("visit", err)
		}
		return nil, apperrors.Internal(err)
	}
	return visit, nil
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter model.VisitFilter) ([]*model.VisitListItem, error) {
	items, err := s.visits.List(ctx, clinicID, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

// Collections totals billed amounts per day over [from, to].
func (s *Service) Collections(ctx context.Context, clinicID uuid.UUID, from, to model.Date) (*model.CollectionSummary, error) {
	if to.Before(from.Time) {
		return nil, apperrors.BadRequest("'to' must not be before 'from'", nil)
	}
	days, err := s.visits.Collections(ctx, clinicID, from, to)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	summary := &model.CollectionSummary{From: from, To: to, Days: days}
	for _, d := range days {
		summary.TotalAmount += d.Amount
		summary.VisitCount += d.Visits
	}
	return summary, nil
}

// PrintData loads the visit and its patient for rendering.
func (s *Service) PrintData(ctx context.Context, clinicID, id uuid.UUID) (*model.Visit, *model.Patient, error) {
	visit, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, nil, err
	}
	patient, err := s.patient(ctx, clinicID, visit.PatientID)
	if err != nil {
		return nil, nil, err
	}
	return visit, patient, nil
}
