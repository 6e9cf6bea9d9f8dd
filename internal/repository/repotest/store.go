// Package repotest provides in-memory repositories with the same numbering
// and conflict rules as the postgres implementation. Service, handler and
// client tests run against it.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

// Store backs every repository interface with maps guarded by one mutex.
type Store struct {
	mu           sync.Mutex
	clinics      map[uuid.UUID]model.Clinic
	users        map[uuid.UUID]model.User
	patients     map[uuid.UUID]model.Patient
	appointments map[uuid.UUID]model.Appointment
	visits       map[uuid.UUID]model.Visit
	options      map[uuid.UUID]model.ReferenceOption
	invoices     map[uuid.UUID]model.Invoice
	admins       map[adminKey]bool
}

type adminKey struct{ admin, clinic uuid.UUID }

func NewStore() *Store {
	return &Store{
		clinics:      map[uuid.UUID]model.Clinic{},
		users:        map[uuid.UUID]model.User{},
		patients:     map[uuid.UUID]model.Patient{},
		appointments: map[uuid.UUID]model.Appointment{},
		visits:       map[uuid.UUID]model.Visit{},
		options:      map[uuid.UUID]model.ReferenceOption{},
		invoices:     map[uuid.UUID]model.Invoice{},
		admins:       map[adminKey]bool{},
	}
}

func (s *Store) Clinics() repository.ClinicRepository           { return clinicRepo{s} }
func (s *Store) Users() repository.UserRepository               { return userRepo{s} }
func (s *Store) Patients() repository.PatientRepository         { return patientRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Visits() repository.VisitRepository             { return visitRepo{s} }
func (s *Store) Options() repository.OptionRepository           { return optionRepo{s} }
func (s *Store) Invoices() repository.InvoiceRepository         { return invoiceRepo{s} }

func stamp(b *model.Base) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
}

func copyStrings(in []string) []string {
	return append([]string{}, in...)
}

// copyOverride keeps a nil permission override nil.
func copyOverride(in pq.StringArray) pq.StringArray {
	if in == nil {
		return nil
	}
	return append(pq.StringArray{}, in...)
}

type clinicRepo struct{ s *Store }

func (r clinicRepo) Create(ctx context.Context, clinic *model.Clinic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&clinic.Base)
	r.s.clinics[clinic.ID] = *clinic
	return nil
}

func (r clinicRepo) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r clinicRepo) List(ctx context.Context) ([]*model.Clinic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Clinic{}
	for _, c := range r.s.clinics {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r clinicRepo) Update(ctx context.Context, clinic *model.Clinic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clinics[clinic.ID]; !ok {
		return repository.ErrNotFound
	}
	clinic.UpdatedAt = time.Now()
	r.s.clinics[clinic.ID] = *clinic
	return nil
}

func (r clinicRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clinics[id]; !ok {
		return repository.ErrNotFound
	}
	for _, u := range r.s.users {
		if u.ClinicID == id {
			return repository.ErrInUse
		}
	}
	for _, p := range r.s.patients {
		if p.ClinicID == id {
			return repository.ErrInUse
		}
	}
	for _, o := range r.s.options {
		if o.ClinicID == id {
			return repository.ErrInUse
		}
	}
	for k := range r.s.admins {
		if k.clinic == id {
			delete(r.s.admins, k)
		}
	}
	delete(r.s.clinics, id)
	return nil
}

func (r clinicRepo) AddAdmin(ctx context.Context, adminID, clinicID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clinics[clinicID]; !ok {
		return repository.ErrInUse
	}
	r.s.admins[adminKey{adminID, clinicID}] = true
	return nil
}

func (r clinicRepo) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]*model.Clinic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Clinic{}
	for k := range r.s.admins {
		if c, ok := r.s.clinics[k.clinic]; ok && k.admin == adminID {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r clinicRepo) IsAdmin(ctx context.Context, adminID, clinicID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.admins[adminKey{adminID, clinicID}], nil
}

func (r clinicRepo) AdminStats(ctx context.Context, adminID uuid.UUID) (*model.AdminStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	managed := map[uuid.UUID]bool{}
	for k := range r.s.admins {
		if k.admin == adminID {
			managed[k.clinic] = true
		}
	}
	stats := &model.AdminStats{TotalClinics: len(managed)}
	for _, u := range r.s.users {
		if managed[u.ClinicID] && u.Role == model.RoleDoctor {
			stats.TotalDoctors++
		}
	}
	for _, p := range r.s.patients {
		if managed[p.ClinicID] {
			stats.TotalPatients++
		}
	}
	return stats, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	stamp(&user.Base)
	u := *user
	u.Permissions = copyOverride(user.Permissions)
	r.s.users[u.ID] = u
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Permissions = copyOverride(u.Permissions)
	return &u, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			u := u
			u.Permissions = copyOverride(u.Permissions)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) UpdateLoginState(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.LoginAttempts = user.LoginAttempts
	u.LastLoginAttempt = user.LastLoginAttempt
	u.LastLoginAt = user.LastLoginAt
	r.s.users[u.ID] = u
	return nil
}

func (r userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	r.s.users[id] = u
	return nil
}

func (r userRepo) UpdatePrintSettings(ctx context.Context, id uuid.UUID, ps model.PrintSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PrintTop, u.PrintLeft = ps.Top, ps.Left
	r.s.users[id] = u
	return nil
}

func (r userRepo) ListByRole(ctx context.Context, clinicID uuid.UUID, role model.Role) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.User{}
	for _, u := range r.s.users {
		if u.ClinicID == clinicID && u.Role == role && u.IsActive {
			u := u
			u.Permissions = copyOverride(u.Permissions)
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r userRepo) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.User{}
	for _, u := range r.s.users {
		if u.ClinicID == clinicID {
			u := u
			u.Permissions = copyOverride(u.Permissions)
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r userRepo) Update(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.FullName = user.FullName
	u.Phone = user.Phone
	u.Role = user.Role
	u.IsActive = user.IsActive
	u.Specialization = user.Specialization
	u.Qualification = user.Qualification
	u.RegistrationNumber = user.RegistrationNumber
	u.SignatureURL = user.SignatureURL
	u.UpdatedAt = time.Now()
	user.UpdatedAt = u.UpdatedAt
	r.s.users[u.ID] = u
	return nil
}

// Delete refuses users that created records, like the foreign keys do.
func (r userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, a := range r.s.appointments {
		if a.CreatedBy == id {
			return repository.ErrInUse
		}
	}
	for _, v := range r.s.visits {
		if v.DoctorID == id {
			return repository.ErrInUse
		}
	}
	for _, inv := range r.s.invoices {
		if inv.CreatedBy == id {
			return repository.ErrInUse
		}
	}
	for cid, c := range r.s.clinics {
		if c.IsOwner(id) {
			c.OwnerID = nil
			r.s.clinics[cid] = c
		}
	}
	for k := range r.s.admins {
		if k.admin == id {
			delete(r.s.admins, k)
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r userRepo) SetPermissions(ctx context.Context, id uuid.UUID, permissions []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrInUse
	}
	u.Permissions = append(pq.StringArray{}, permissions...)
	r.s.users[id] = u
	return nil
}

func (r userRepo) ResetPermissions(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.Permissions = nil
		r.s.users[id] = u
	}
	return nil
}

type patientRepo struct{ s *Store }

func (r patientRepo) Create(ctx context.Context, patient *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, p := range r.s.patients {
		if p.ClinicID == patient.ClinicID {
			count++
		}
	}
	stamp(&patient.Base)
	patient.PatientCode = model.PatientCode(count + 1)
	if patient.Allergies == nil {
		patient.Allergies = []string{}
	}
	p := *patient
	p.Allergies = copyStrings(patient.Allergies)
	r.s.patients[p.ID] = p
	return nil
}

func (r patientRepo) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok || p.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r patientRepo) Update(ctx context.Context, patient *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[patient.ID]
	if !ok || p.ClinicID != patient.ClinicID {
		return repository.ErrNotFound
	}
	patient.UpdatedAt = time.Now()
	updated := *patient
	updated.Allergies = copyStrings(patient.Allergies)
	r.s.patients[p.ID] = updated
	return nil
}

func (r patientRepo) List(ctx context.Context, clinicID uuid.UUID, filter model.PatientFilter) ([]*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []*model.Patient{}
	for _, p := range r.s.patients {
		if p.ClinicID != clinicID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.FullName), search) &&
			!strings.Contains(strings.ToLower(p.PatientCode), search) && !strings.Contains(p.Phone, search) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientCode < out[j].PatientCode })
	return page(out, filter.Pagination), nil
}

func page[T any](items []T, p model.Pagination) []T {
	p = p.Normalize()
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

func (s *Store) summary(patientID uuid.UUID) model.PatientSummary {
	p := s.patients[patientID]
	return model.PatientSummary{
		ID:          p.ID,
		PatientCode: p.PatientCode,
		FullName:    p.FullName,
		Age:         p.Age,
		Gender:      p.Gender,
		Phone:       p.Phone,
	}
}
