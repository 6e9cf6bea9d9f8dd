package opd

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

// Service owns the day queue of a clinic: enqueueing, status changes,
// reordering and removal.
type Service struct {
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	visits       repository.VisitRepository
	metrics      *metrics.Metrics
}

func NewService(appointments repository.AppointmentRepository, patients repository.PatientRepository,
	visits repository.VisitRepository, m *metrics.Metrics) *Service {
	return &Service{
		appointments: appointments,
		patients:     patients,
		visits:       visits,
		metrics:      m,
	}
}

func (s *Service) AddToQueue(ctx context.Context, clinicID, userID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	complaints := model.NormalizeList(req.ChiefComplaints)
	if len(complaints) == 0 {
		return nil, apperrors.BadRequest("at least one chief complaint is required", nil)
	}

	date := model.Today()
	if req.QueueDate != "" {
		d, err := model.ParseDate(req.QueueDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid queue_date", err)
		}
		date = d
	}

	patient, err := s.patients.Get(ctx, clinicID, req.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}

	appointment := &model.Appointment{
		ClinicID:        clinicID,
		PatientID:       patient.ID,
		QueueDate:       date,
		Status:          model.AppointmentStatusWaiting,
		ChiefComplaints: complaints,
		CreatedBy:       userID,
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to add to queue: %w", err))
	}

	if s.metrics != nil {
		s.metrics.QueueEntriesAdded.Inc()
	}
	log.Info().
		Str("appointment_id", appointment.ID.String()).
		Str("queue_date", date.String()).
		Int("queue_number", appointment.QueueNumber).
		Msg("patient added to queue")

	return s.GetAppointment(ctx, clinicID, appointment.ID)
}

func (s *Service) GetAppointment(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return appointment, nil
}

func (s *Service) Queue(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.Appointment, error) {
	queue, err := s.appointments.ListByDate(ctx, clinicID, date)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return queue, nil
}

func (s *Service) Stats(ctx context.Context, clinicID uuid.UUID, date model.Date) (*model.QueueStats, error) {
	stats, err := s.appointments.Stats(ctx, clinicID, date)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}

// UpdateStatus applies a legal transition. Re-applying the current status is
// a no-op that returns the entry unchanged.
func (s *Service) UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if !status.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown status %q", status), nil)
	}

	appointment, err := s.GetAppointment(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status == status {
		return appointment, nil
	}
	if !appointment.Status.CanTransitionTo(status) {
		return nil, apperrors.BadRequest(
			fmt.Sprintf("cannot change status from %s to %s", appointment.Status, status), nil)
	}

	if err := s.appointments.UpdateStatus(ctx, clinicID, id, appointment.Status, status); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.Conflict("appointment was changed by someone else, reload the queue", err)
		}
		return nil, apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.QueueTransitions.WithLabelValues(string(status)).Inc()
	}
	log.Info().
		Str("appointment_id", id.String()).
		Str("from", string(appointment.Status)).
		Str("to", string(status)).
		Msg("appointment status changed")

	return s.GetAppointment(ctx, clinicID, id)
}

// Move sets a WAITING entry's queue number and returns the renumbered day.
func (s *Service) Move(ctx context.Context, clinicID, id uuid.UUID, target int) ([]*model.Appointment, error) {
	queue, err := s.appointments.Move(ctx, clinicID, id, target)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("appointment", err)
		case errors.Is(err, repository.ErrNotReorderable):
			return nil, apperrors.Conflict(err.Error(), err)
		case errors.Is(err, repository.ErrOutOfRange):
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		return nil, apperrors.Internal(err)
	}
	if s.metrics != nil {
		s.metrics.QueueReorders.Inc()
	}
	return queue, nil
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	if err := s.appointments.Delete(ctx, clinicID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("appointment", err)
		case errors.Is(err, repository.ErrNotReorderable):
			return apperrors.Conflict("only waiting entries can be removed", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

// VisitForAppointment returns the visit recorded for an appointment, or nil
// when none exists yet.
func (s *Service) VisitForAppointment(ctx context.Context, clinicID, id uuid.UUID) (*model.Visit, error) {
	if _, err := s.GetAppointment(ctx, clinicID, id); err != nil {
		return nil, err
	}
	visit, err := s.visits.GetByAppointment(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal(err)
	}
	return visit, nil
}

func (s *Service) FollowUpsDue(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.FollowUp, error) {
	followUps, err := s.visits.FollowUpsDue(ctx, clinicID, date)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return followUps, nil
}
