package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

const invoiceColumns = `
	i.id, i.clinic_id, i.invoice_number, i.patient_id, i.visit_id, i.total_amount,
	i.paid_amount, i.payment_status, i.payment_mode, i.payment_date, i.notes,
	i.created_by, i.created_at, i.updated_at
`

const invoiceFrom = ` FROM invoices i JOIN patients p ON p.id = i.patient_id `

type invoiceRepository struct {
	BaseRepository
}

func NewInvoiceRepository(db *sqlx.DB) repository.InvoiceRepository {
	return &invoiceRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	invoice.CreatedAt = time.Now()
	invoice.UpdatedAt = invoice.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockKey(ctx, tx, "invoice-number:"+invoice.ClinicID.String()); err != nil {
			return err
		}

		var last int
		err := tx.GetContext(ctx, &last, `
			SELECT COALESCE(MAX(CAST(substring(invoice_number FROM 5) AS INTEGER)), 0)
			FROM invoices WHERE clinic_id = $1
		`, invoice.ClinicID)
		if err != nil {
			return fmt.Errorf("failed to read invoice number: %w", err)
		}
		invoice.InvoiceNumber = model.InvoiceNumber(last + 1)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoices (
				id, clinic_id, invoice_number, patient_id, visit_id, total_amount, paid_amount,
				payment_status, payment_mode, payment_date, notes, created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			invoice.ID,
			invoice.ClinicID,
			invoice.InvoiceNumber,
			invoice.PatientID,
			invoice.VisitID,
			invoice.TotalAmount,
			invoice.PaidAmount,
			invoice.PaymentStatus,
			invoice.PaymentMode,
			invoice.PaymentDate,
			invoice.Notes,
			invoice.CreatedBy,
			invoice.CreatedAt,
			invoice.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", mapError(err))
		}

		for i := range invoice.Items {
			item := &invoice.Items[i]
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			item.InvoiceID = invoice.ID
			item.Position = i + 1
			_, err := tx.ExecContext(ctx, `
				INSERT INTO invoice_items (id, invoice_id, position, description, amount, quantity)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, item.ID, item.InvoiceID, item.Position, item.Description, item.Amount, item.Quantity)
			if err != nil {
				return fmt.Errorf("failed to add invoice item: %w", err)
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.GetContext(ctx, &invoice, `
		SELECT `+invoiceColumns+`, `+patientSummaryColumns+invoiceFrom+`
		WHERE i.id = $1 AND i.clinic_id = $2
	`, id, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", mapError(err))
	}

	items := []model.InvoiceItem{}
	err = r.db.SelectContext(ctx, &items, `
		SELECT id, invoice_id, position, description, amount, quantity
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position
	`, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice items: %w", err)
	}
	invoice.Items = items
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, clinicID uuid.UUID, filter model.InvoiceFilter) ([]*model.Invoice, int, error) {
	page := filter.Pagination.Normalize()
	where := ` WHERE i.clinic_id = $1 AND ($2 = '' OR i.payment_status = $2) AND ($3::uuid IS NULL OR i.patient_id = $3) `
	args := []interface{}{clinicID, string(filter.Status), filter.PatientID}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM invoices i`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	invoices := []*model.Invoice{}
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT `+invoiceColumns+`, `+patientSummaryColumns+invoiceFrom+where+`
		ORDER BY i.created_at DESC, i.invoice_number DESC
		LIMIT $4 OFFSET $5
	`, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

func (r *invoiceRepository) UpdatePayment(ctx context.Context, invoice *model.Invoice) error {
	invoice.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE invoices
		SET paid_amount = $1, payment_status = $2, payment_mode = $3, payment_date = $4, updated_at = $5
		WHERE id = $6 AND clinic_id = $7
	`,
		invoice.PaidAmount,
		invoice.PaymentStatus,
		invoice.PaymentMode,
		invoice.PaymentDate,
		invoice.UpdatedAt,
		invoice.ID,
		invoice.ClinicID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice payment: %w", err)
	}
	return expectRows(result)
}

func (r *invoiceRepository) Summary(ctx context.Context, clinicID uuid.UUID, from, to *model.Date) (*model.BillingSummary, error) {
	summary := model.BillingSummary{From: from, To: to}
	err := r.db.GetContext(ctx, &summary, `
		SELECT
			COUNT(*) AS total_invoices,
			COALESCE(SUM(total_amount), 0) AS total_revenue,
			COALESCE(SUM(paid_amount), 0) AS paid_revenue,
			COALESCE(SUM(total_amount - paid_amount), 0) AS unpaid_revenue
		FROM invoices
		WHERE clinic_id = $1
			AND ($2::date IS NULL OR created_at::date >= $2::date)
			AND ($3::date IS NULL OR created_at::date <= $3::date)
	`, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize invoices: %w", err)
	}
	return &summary, nil
}
