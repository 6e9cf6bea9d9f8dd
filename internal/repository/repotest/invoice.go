package repotest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

type invoiceRepo struct{ s *Store }

func invoiceSeq(number string) int {
	var n int
	_, _ = fmt.Sscanf(number, "INV-%d", &n)
	return n
}

func cloneInvoice(inv model.Invoice) model.Invoice {
	inv.Items = append([]model.InvoiceItem{}, inv.Items...)
	return inv
}

func (r invoiceRepo) Create(ctx context.Context, invoice *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	last := 0
	for _, inv := range r.s.invoices {
		if inv.VisitID != nil && invoice.VisitID != nil && *inv.VisitID == *invoice.VisitID {
			return repository.ErrDuplicate
		}
		if inv.ClinicID != invoice.ClinicID {
			continue
		}
		if n := invoiceSeq(inv.InvoiceNumber); n > last {
			last = n
		}
	}

	stamp(&invoice.Base)
	invoice.InvoiceNumber = model.InvoiceNumber(last + 1)
	for i := range invoice.Items {
		item := &invoice.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.InvoiceID = invoice.ID
		item.Position = i + 1
	}
	invoice.Patient = r.s.summary(invoice.PatientID)
	r.s.invoices[invoice.ID] = cloneInvoice(*invoice)
	return nil
}

func (r invoiceRepo) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	inv = cloneInvoice(inv)
	inv.Patient = r.s.summary(inv.PatientID)
	return &inv, nil
}

func (r invoiceRepo) List(ctx context.Context, clinicID uuid.UUID, filter model.InvoiceFilter) ([]*model.Invoice, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Invoice{}
	for _, inv := range r.s.invoices {
		if inv.ClinicID != clinicID {
			continue
		}
		if filter.Status != "" && inv.PaymentStatus != filter.Status {
			continue
		}
		if filter.PatientID != nil && inv.PatientID != *filter.PatientID {
			continue
		}
		inv := inv
		inv.Items = nil
		inv.Patient = r.s.summary(inv.PatientID)
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return invoiceSeq(out[i].InvoiceNumber) > invoiceSeq(out[j].InvoiceNumber) })
	return page(out, filter.Pagination), len(out), nil
}

func (r invoiceRepo) UpdatePayment(ctx context.Context, invoice *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[invoice.ID]
	if !ok || inv.ClinicID != invoice.ClinicID {
		return repository.ErrNotFound
	}
	inv.PaidAmount = invoice.PaidAmount
	inv.PaymentStatus = invoice.PaymentStatus
	inv.PaymentMode = invoice.PaymentMode
	inv.PaymentDate = invoice.PaymentDate
	inv.UpdatedAt = time.Now()
	invoice.UpdatedAt = inv.UpdatedAt
	r.s.invoices[inv.ID] = inv
	return nil
}

func (r invoiceRepo) Summary(ctx context.Context, clinicID uuid.UUID, from, to *model.Date) (*model.BillingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	summary := &model.BillingSummary{From: from, To: to}
	for _, inv := range r.s.invoices {
		if inv.ClinicID != clinicID {
			continue
		}
		day := model.DateOf(inv.CreatedAt)
		if (from != nil && day.Before(from.Time)) || (to != nil && day.After(to.Time)) {
			continue
		}
		summary.TotalInvoices++
		summary.TotalRevenue += inv.TotalAmount
		summary.PaidRevenue += inv.PaidAmount
		summary.UnpaidRevenue += inv.TotalAmount - inv.PaidAmount
	}
	summary.TotalRevenue = model.RoundMoney(summary.TotalRevenue)
	summary.PaidRevenue = model.RoundMoney(summary.PaidRevenue)
	summary.UnpaidRevenue = model.RoundMoney(summary.UnpaidRevenue)
	return summary, nil
}
