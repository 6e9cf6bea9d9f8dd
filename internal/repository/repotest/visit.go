package repotest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

type visitRepo struct{ s *Store }

func cloneVisit(v model.Visit) model.Visit {
	v.Symptoms = copyStrings(v.Symptoms)
	v.Diagnosis = copyStrings(v.Diagnosis)
	v.Observations = copyStrings(v.Observations)
	v.RecommendedTests = copyStrings(v.RecommendedTests)
	v.Medicines = append([]model.VisitMedicine{}, v.Medicines...)
	return v
}

func (r visitRepo) Create(ctx context.Context, visit *model.Visit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	last := 0
	for _, v := range r.s.visits {
		if v.PatientID == visit.PatientID && v.VisitNumber > last {
			last = v.VisitNumber
		}
		if visit.AppointmentID != nil && v.AppointmentID != nil && *v.AppointmentID == *visit.AppointmentID {
			return repository.ErrDuplicate
		}
	}

	if visit.AppointmentID != nil {
		a, ok := r.s.appointments[*visit.AppointmentID]
		if !ok || a.ClinicID != visit.ClinicID {
			return repository.ErrNotFound
		}
		a.Status = model.AppointmentStatusCompleted
		a.UpdatedAt = time.Now()
		r.s.appointments[a.ID] = a
	}

	stamp(&visit.Base)
	visit.VisitNumber = last + 1
	for i := range visit.Medicines {
		m := &visit.Medicines[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.VisitID = visit.ID
		m.Position = i + 1
	}
	r.s.visits[visit.ID] = cloneVisit(*visit)
	return nil
}

func (r visitRepo) Update(ctx context.Context, visit *model.Visit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.visits[visit.ID]
	if !ok || stored.ClinicID != visit.ClinicID {
		return repository.ErrNotFound
	}
	visit.UpdatedAt = time.Now()
	for i := range visit.Medicines {
		visit.Medicines[i].VisitID = visit.ID
		visit.Medicines[i].Position = i + 1
	}
	r.s.visits[visit.ID] = cloneVisit(*visit)
	return nil
}

func (r visitRepo) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.visits[id]
	if !ok || v.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	v = cloneVisit(v)
	return &v, nil
}

func (r visitRepo) GetByAppointment(ctx context.Context, clinicID, appointmentID uuid.UUID) (*model.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.visits {
		if v.ClinicID == clinicID && v.AppointmentID != nil && *v.AppointmentID == appointmentID {
			v = cloneVisit(v)
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r visitRepo) List(ctx context.Context, clinicID uuid.UUID, filter model.VisitFilter) ([]*model.VisitListItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.VisitListItem{}
	for _, v := range r.s.visits {
		if v.ClinicID != clinicID {
			continue
		}
		if filter.PatientID != nil && v.PatientID != *filter.PatientID {
			continue
		}
		if filter.Date != nil && !v.VisitDate.Equal(*filter.Date) {
			continue
		}
		if filter.DoctorID != nil && v.DoctorID != *filter.DoctorID {
			continue
		}
		out = append(out, &model.VisitListItem{Visit: cloneVisit(v), Patient: r.s.summary(v.PatientID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].VisitDate.Equal(out[j].VisitDate) {
			return out[i].VisitDate.After(out[j].VisitDate.Time)
		}
		return out[i].VisitNumber > out[j].VisitNumber
	})
	return page(out, filter.Pagination), nil
}

func (r visitRepo) FollowUpsDue(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.FollowUp{}
	for _, v := range r.s.visits {
		if v.ClinicID != clinicID || v.FollowUpDate == nil || !v.FollowUpDate.Equal(date) {
			continue
		}
		out = append(out, &model.FollowUp{
			VisitID:      v.ID,
			VisitNumber:  v.VisitNumber,
			VisitDate:    v.VisitDate,
			FollowUpDate: *v.FollowUpDate,
			Diagnosis:    copyStrings(v.Diagnosis),
			Patient:      r.s.summary(v.PatientID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Patient.FullName < out[j].Patient.FullName })
	return out, nil
}

func (r visitRepo) ClinicsWithFollowUps(ctx context.Context, date model.Date) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	out := []uuid.UUID{}
	for _, v := range r.s.visits {
		if v.FollowUpDate != nil && v.FollowUpDate.Equal(date) && !seen[v.ClinicID] {
			seen[v.ClinicID] = true
			out = append(out, v.ClinicID)
		}
	}
	return out, nil
}

func (r visitRepo) Collections(ctx context.Context, clinicID uuid.UUID, from, to model.Date) ([]model.CollectionDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDay := map[string]*model.CollectionDay{}
	for _, v := range r.s.visits {
		if v.ClinicID != clinicID || v.VisitDate.Before(from.Time) || v.VisitDate.After(to.Time) {
			continue
		}
		day, ok := byDay[v.VisitDate.String()]
		if !ok {
			day = &model.CollectionDay{Date: v.VisitDate}
			byDay[v.VisitDate.String()] = day
		}
		day.Visits++
		if v.Amount != nil {
			day.Amount += *v.Amount
		}
	}
	out := []model.CollectionDay{}
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

type optionRepo struct{ s *Store }

func (r optionRepo) List(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.ReferenceOption{}
	for _, o := range r.s.options {
		if o.ClinicID != clinicID || o.Category != category || (activeOnly && !o.IsActive) {
			continue
		}
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r optionRepo) Get(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID) (*model.ReferenceOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.options[id]
	if !ok || o.ClinicID != clinicID || o.Category != category {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r optionRepo) nameTaken(option *model.ReferenceOption) bool {
	for _, o := range r.s.options {
		if o.ID != option.ID && o.ClinicID == option.ClinicID && o.Category == option.Category &&
			strings.EqualFold(o.Name, option.Name) {
			return true
		}
	}
	return false
}

func (r optionRepo) Create(ctx context.Context, option *model.ReferenceOption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nameTaken(option) {
		return repository.ErrDuplicate
	}
	stamp(&option.Base)
	r.s.options[option.ID] = *option
	return nil
}

func (r optionRepo) Update(ctx context.Context, option *model.ReferenceOption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.options[option.ID]
	if !ok || stored.ClinicID != option.ClinicID || stored.Category != option.Category {
		return repository.ErrNotFound
	}
	if r.nameTaken(option) {
		return repository.ErrDuplicate
	}
	option.CreatedAt = stored.CreatedAt
	option.UpdatedAt = time.Now()
	r.s.options[option.ID] = *option
	return nil
}

func (r optionRepo) Delete(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.options[id]
	if !ok || o.ClinicID != clinicID || o.Category != category {
		return repository.ErrNotFound
	}
	delete(r.s.options, id)
	return nil
}
