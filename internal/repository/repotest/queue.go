package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(ctx context.Context, appointment *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	last := 0
	for _, a := range r.s.appointments {
		if a.ClinicID == appointment.ClinicID && a.QueueDate.Equal(appointment.QueueDate) && a.QueueNumber > last {
			last = a.QueueNumber
		}
	}
	stamp(&appointment.Base)
	appointment.QueueNumber = last + 1
	a := *appointment
	a.ChiefComplaints = copyStrings(appointment.ChiefComplaints)
	r.s.appointments[a.ID] = a
	return nil
}

func (r appointmentRepo) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || a.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	a.Patient = r.s.summary(a.PatientID)
	return &a, nil
}

func (r appointmentRepo) ListByDate(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(clinicID, date), nil
}

func (r appointmentRepo) list(clinicID uuid.UUID, date model.Date) []*model.Appointment {
	out := []*model.Appointment{}
	for _, a := range r.s.appointments {
		if a.ClinicID == clinicID && a.QueueDate.Equal(date) {
			a := a
			a.ChiefComplaints = copyStrings(a.ChiefComplaints)
			a.Patient = r.s.summary(a.PatientID)
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueNumber < out[j].QueueNumber })
	return out
}

func (r appointmentRepo) Stats(ctx context.Context, clinicID uuid.UUID, date model.Date) (*model.QueueStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var stats model.QueueStats
	for _, a := range r.list(clinicID, date) {
		stats.Total++
		switch a.Status {
		case model.AppointmentStatusWaiting:
			stats.Waiting++
		case model.AppointmentStatusInProgress:
			stats.InProgress++
		case model.AppointmentStatusCompleted:
			stats.Completed++
		}
	}
	return &stats, nil
}

func (r appointmentRepo) UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, from, to model.AppointmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || a.ClinicID != clinicID || a.Status != from {
		return repository.ErrStaleState
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.s.appointments[id] = a
	return nil
}

func (r appointmentRepo) Move(ctx context.Context, clinicID, id uuid.UUID, target int) ([]*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	moving, ok := r.s.appointments[id]
	if !ok || moving.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	if moving.Status != model.AppointmentStatusWaiting {
		return nil, repository.ErrNotReorderable
	}
	day := r.list(clinicID, moving.QueueDate)
	if target < 1 || target > len(day) {
		return nil, repository.ErrOutOfRange
	}

	from := moving.QueueNumber
	for _, a := range day {
		stored := r.s.appointments[a.ID]
		switch {
		case a.ID == id:
			stored.QueueNumber = target
		case target < from && a.QueueNumber >= target && a.QueueNumber < from:
			stored.QueueNumber++
		case target > from && a.QueueNumber > from && a.QueueNumber <= target:
			stored.QueueNumber--
		default:
			continue
		}
		stored.UpdatedAt = time.Now()
		r.s.appointments[a.ID] = stored
	}
	return r.list(clinicID, moving.QueueDate), nil
}

func (r appointmentRepo) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	gone, ok := r.s.appointments[id]
	if !ok || gone.ClinicID != clinicID {
		return repository.ErrNotFound
	}
	if gone.Status != model.AppointmentStatusWaiting {
		return repository.ErrNotReorderable
	}
	delete(r.s.appointments, id)
	for aid, a := range r.s.appointments {
		if a.ClinicID == clinicID && a.QueueDate.Equal(gone.QueueDate) && a.QueueNumber > gone.QueueNumber {
			a.QueueNumber--
			r.s.appointments[aid] = a
		}
	}
	return nil
}
