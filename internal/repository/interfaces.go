package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
	ErrStaleState     = errors.New("record changed concurrently")
	ErrOutOfRange     = errors.New("position out of range")
	ErrNotReorderable = errors.New("only waiting entries can be moved")
	ErrInUse          = errors.New("record is still referenced")
)

// All repository interfaces in one file
type (
	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		List(ctx context.Context) ([]*model.Clinic, error)
		Update(ctx context.Context, clinic *model.Clinic) error
		// Delete fails with ErrInUse while users or records remain.
		Delete(ctx context.Context, id uuid.UUID) error

		AddAdmin(ctx context.Context, adminID, clinicID uuid.UUID) error
		ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]*model.Clinic, error)
		IsAdmin(ctx context.Context, adminID, clinicID uuid.UUID) (bool, error)
		AdminStats(ctx context.Context, adminID uuid.UUID) (*model.AdminStats, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateLoginState(ctx context.Context, user *model.User) error
		UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
		UpdatePrintSettings(ctx context.Context, id uuid.UUID, ps model.PrintSettings) error
		ListByRole(ctx context.Context, clinicID uuid.UUID, role model.Role) ([]*model.User, error)
		// ListByClinic includes inactive users.
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.User, error)
		// Update writes the profile fields, role and active flag.
		Update(ctx context.Context, user *model.User) error
		// Delete fails with ErrInUse once the user has created records.
		Delete(ctx context.Context, id uuid.UUID) error
		SetPermissions(ctx context.Context, id uuid.UUID, permissions []string) error
		// ResetPermissions drops the override so role defaults apply again.
		ResetPermissions(ctx context.Context, id uuid.UUID) error
	}

	PatientRepository interface {
		// Create assigns the next patient code of the clinic.
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context, clinicID uuid.UUID, filter model.PatientFilter) ([]*model.Patient, error)
	}

	// AppointmentRepository keeps queue numbers of a clinic's day dense
	// (1..N) across create, move and delete.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error)
		ListByDate(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.Appointment, error)
		Stats(ctx context.Context, clinicID uuid.UUID, date model.Date) (*model.QueueStats, error)
		UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, from, to model.AppointmentStatus) error
		Move(ctx context.Context, clinicID, id uuid.UUID, target int) ([]*model.Appointment, error)
		Delete(ctx context.Context, clinicID, id uuid.UUID) error
	}

	VisitRepository interface {
		// Create numbers the visit per patient, stores its medicines and
		// completes the linked appointment, all in one transaction.
		Create(ctx context.Context, visit *model.Visit) error
		// Update replaces the whole aggregate, medicines included.
		Update(ctx context.Context, visit *model.Visit) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Visit, error)
		GetByAppointment(ctx context.Context, clinicID, appointmentID uuid.UUID) (*model.Visit, error)
		List(ctx context.Context, clinicID uuid.UUID, filter model.VisitFilter) ([]*model.VisitListItem, error)
		FollowUpsDue(ctx context.Context, clinicID uuid.UUID, date model.Date) ([]*model.FollowUp, error)
		ClinicsWithFollowUps(ctx context.Context, date model.Date) ([]uuid.UUID, error)
		Collections(ctx context.Context, clinicID uuid.UUID, from, to model.Date) ([]model.CollectionDay, error)
	}

	InvoiceRepository interface {
		// Create assigns the next invoice number of the clinic and stores the
		// items in the same transaction.
		Create(ctx context.Context, invoice *model.Invoice) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Invoice, error)
		// List returns one page, newest first, and the count of all matches.
		List(ctx context.Context, clinicID uuid.UUID, filter model.InvoiceFilter) ([]*model.Invoice, int, error)
		UpdatePayment(ctx context.Context, invoice *model.Invoice) error
		Summary(ctx context.Context, clinicID uuid.UUID, from, to *model.Date) (*model.BillingSummary, error)
	}

	OptionRepository interface {
		List(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error)
		Get(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID) (*model.ReferenceOption, error)
		Create(ctx context.Context, option *model.ReferenceOption) error
		Update(ctx context.Context, option *model.ReferenceOption) error
		Delete(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID) error
	}
)
