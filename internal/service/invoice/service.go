// Package invoice bills patients. Invoice numbers run per clinic as
// INV-0001, INV-0002 and so on.
package invoice

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
)

type Service struct {
	invoices repository.InvoiceRepository
	patients repository.PatientRepository
	visits   repository.VisitRepository
	metrics  *metrics.Metrics
	today    func() model.Date
}

func NewService(invoices repository.InvoiceRepository, patients repository.PatientRepository,
	visits repository.VisitRepository, m *metrics.Metrics) *Service {
	return &Service{
		invoices: invoices,
		patients: patients,
		visits:   visits,
		metrics:  m,
		today:    model.Today,
	}
}

func badInput(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.BadRequest(err.Error(), err)
}

func (s *Service) get(ctx context.Context, clinicID, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.invoices.Get(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("invoice", err)
		}
		return nil, apperrors.Internal(err)
	}
	return inv, nil
}

// Create bills a patient, optionally against one of their visits. A visit
// is billed at most once.
func (s *Service) Create(ctx context.Context, clinicID, userID uuid.UUID, in *model.InvoiceInput) (*model.Invoice, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, badInput(err)
	}

	if _, err := s.patients.Get(ctx, clinicID, in.PatientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	if in.VisitID != nil {
		visit, err := s.visits.Get(ctx, clinicID, *in.VisitID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("visit", err)
			}
			return nil, apperrors.Internal(err)
		}
		if visit.PatientID != in.PatientID {
			return nil, apperrors.BadRequest("visit belongs to a different patient", nil)
		}
	}

	inv := in.Build()
	inv.ClinicID = clinicID
	inv.CreatedBy = userID
	if err := inv.Settle(in.PaymentStatus, in.PaidAmount); err != nil {
		return nil, badInput(err)
	}
	if inv.PaidAmount > 0 && inv.PaymentDate == nil {
		today := s.today()
		inv.PaymentDate = &today
	}

	if err := s.invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("an invoice already exists for this visit", err)
		}
		return nil, apperrors.Internal(err)
	}
	if s.metrics != nil {
		s.metrics.InvoicesCreated.Inc()
	}

	log.Info().
		Str("clinic_id", clinicID.String()).
		Str("invoice_id", inv.ID.String()).
		Str("invoice_number", inv.InvoiceNumber).
		Float64("total", inv.TotalAmount).
		Str("status", string(inv.PaymentStatus)).
		Msg("invoice created")

	return s.get(ctx, clinicID, inv.ID)
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Invoice, error) {
	return s.get(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter model.InvoiceFilter) (*model.InvoiceList, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.BadRequest("unknown payment status "+string(filter.Status), nil)
	}
	filter.Pagination = filter.Pagination.Normalize()
	invoices, total, err := s.invoices.List(ctx, clinicID, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.InvoiceList{
		Invoices: invoices,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// UpdatePayment records a payment. Amount and status follow Settle; the
// payment date defaults to today once anything is paid.
func (s *Service) UpdatePayment(ctx context.Context, clinicID, id uuid.UUID, upd *model.InvoicePaymentUpdate) (*model.Invoice, error) {
	inv, err := s.get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if upd.PaymentMode != nil {
		mode := model.PaymentMode(strings.ToUpper(strings.TrimSpace(string(*upd.PaymentMode))))
		if !mode.Valid() {
			return nil, badInput(apperrors.ValidationErrors{apperrors.NewValidation("payment_mode", "unknown payment mode "+string(*upd.PaymentMode))})
		}
		inv.PaymentMode = mode
	}
	if err := inv.Settle(upd.PaymentStatus, upd.PaidAmount); err != nil {
		return nil, badInput(err)
	}
	switch {
	case upd.PaymentDate != nil:
		inv.PaymentDate = upd.PaymentDate
	case inv.PaidAmount > 0 && inv.PaymentDate == nil:
		today := s.today()
		inv.PaymentDate = &today
	case inv.PaidAmount == 0:
		inv.PaymentDate = nil
	}

	if err := s.invoices.UpdatePayment(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("invoice", err)
		}
		return nil, apperrors.Internal(err)
	}
	if s.metrics != nil {
		s.metrics.PaymentsRecorded.WithLabelValues(string(inv.PaymentStatus)).Inc()
	}

	log.Info().
		Str("invoice_id", inv.ID.String()).
		Float64("paid", inv.PaidAmount).
		Str("status", string(inv.PaymentStatus)).
		Msg("invoice payment updated")
	return inv, nil
}

// Summary totals invoices created between from and to, both optional and
// inclusive.
func (s *Service) Summary(ctx context.Context, clinicID uuid.UUID, from, to *model.Date) (*model.BillingSummary, error) {
	if from != nil && to != nil && to.Before(from.Time) {
		return nil, apperrors.BadRequest("to must not be before from", nil)
	}
	summary, err := s.invoices.Summary(ctx, clinicID, from, to)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return summary, nil
}
