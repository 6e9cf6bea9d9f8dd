package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentUnpaid, PaymentPartial:
		return true
	}
	return false
}

type PaymentMode string

const (
	PaymentCash  PaymentMode = "CASH"
	PaymentUPI   PaymentMode = "UPI"
	PaymentCard  PaymentMode = "CARD"
	PaymentOther PaymentMode = "OTHER"
)

// Valid reports whether m is a known mode. The empty mode means not yet
// paid and is valid.
func (m PaymentMode) Valid() bool {
	switch m {
	case "", PaymentCash, PaymentUPI, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// InvoiceNumber formats the n-th invoice of a clinic, e.g. INV-0001.
func InvoiceNumber(n int) string {
	return fmt.Sprintf("INV-%04d", n)
}

// RoundMoney rounds v to paise.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

type InvoiceItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"-"`
	Position    int       `db:"position" json:"-"`
	Description string    `db:"description" json:"description"`
	Amount      float64   `db:"amount" json:"amount"`
	Quantity    int       `db:"quantity" json:"quantity"`
}

func (i InvoiceItem) Total() float64 {
	return RoundMoney(i.Amount * float64(i.Quantity))
}

type Invoice struct {
	Base
	ClinicID      uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	InvoiceNumber string         `db:"invoice_number" json:"invoice_number"`
	PatientID     uuid.UUID      `db:"patient_id" json:"patient_id"`
	VisitID       *uuid.UUID     `db:"visit_id" json:"visit_id,omitempty"`
	TotalAmount   float64        `db:"total_amount" json:"total_amount"`
	PaidAmount    float64        `db:"paid_amount" json:"paid_amount"`
	PaymentStatus PaymentStatus  `db:"payment_status" json:"payment_status"`
	PaymentMode   PaymentMode    `db:"payment_mode" json:"payment_mode,omitempty"`
	PaymentDate   *Date          `db:"payment_date" json:"payment_date,omitempty"`
	Notes         string         `db:"notes" json:"notes"`
	CreatedBy     uuid.UUID      `db:"created_by" json:"created_by"`
	Patient       PatientSummary `db:"patient" json:"patient"`
	Items         []InvoiceItem  `db:"-" json:"items,omitempty"`
}

func (inv *Invoice) Balance() float64 {
	return RoundMoney(inv.TotalAmount - inv.PaidAmount)
}

// Settle applies a payment change. A status alone fixes the paid amount for
// PAID and UNPAID, while PARTIAL needs an amount strictly between zero and
// the total. An amount alone derives the status. With neither set nothing
// changes.
func (inv *Invoice) Settle(status *PaymentStatus, paid *float64) error {
	var errs apperrors.ValidationErrors
	if status != nil && !status.Valid() {
		errs = append(errs, apperrors.NewValidation("payment_status", fmt.Sprintf("unknown payment status %q", *status)))
	}
	amount := inv.PaidAmount
	if paid != nil {
		amount = RoundMoney(*paid)
		if amount < 0 || amount > inv.TotalAmount {
			errs = append(errs, apperrors.NewValidation("paid_amount", "paid amount must be between zero and the invoice total"))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if status == nil {
		if paid == nil {
			return nil
		}
		inv.PaidAmount = amount
		switch {
		case amount == inv.TotalAmount:
			inv.PaymentStatus = PaymentPaid
		case amount == 0:
			inv.PaymentStatus = PaymentUnpaid
		default:
			inv.PaymentStatus = PaymentPartial
		}
		return nil
	}

	switch *status {
	case PaymentPaid:
		if paid != nil && amount != inv.TotalAmount {
			return apperrors.ValidationErrors{apperrors.NewValidation("paid_amount", "a paid invoice is paid in full")}
		}
		amount = inv.TotalAmount
	case PaymentUnpaid:
		if paid != nil && amount != 0 {
			return apperrors.ValidationErrors{apperrors.NewValidation("paid_amount", "an unpaid invoice has nothing paid")}
		}
		amount = 0
	case PaymentPartial:
		if amount <= 0 || amount >= inv.TotalAmount {
			return apperrors.ValidationErrors{apperrors.NewValidation("paid_amount", "a partial payment is more than zero and less than the total")}
		}
	}
	inv.PaymentStatus = *status
	inv.PaidAmount = amount
	return nil
}

type InvoiceItemInput struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Quantity    int     `json:"quantity"`
}

// InvoiceInput creates an invoice. The total is always computed from the
// items.
type InvoiceInput struct {
	PatientID     uuid.UUID          `json:"patient_id"`
	VisitID       *uuid.UUID         `json:"visit_id"`
	Items         []InvoiceItemInput `json:"items"`
	PaymentStatus *PaymentStatus     `json:"payment_status"`
	PaidAmount    *float64           `json:"paid_amount"`
	PaymentMode   PaymentMode        `json:"payment_mode"`
	PaymentDate   *Date              `json:"payment_date"`
	Notes         string             `json:"notes"`
}

// Normalize trims text and gives quantity-less items a quantity of one.
func (in *InvoiceInput) Normalize() {
	for i := range in.Items {
		in.Items[i].Description = strings.TrimSpace(in.Items[i].Description)
		if in.Items[i].Quantity == 0 {
			in.Items[i].Quantity = 1
		}
	}
	in.PaymentMode = PaymentMode(strings.ToUpper(strings.TrimSpace(string(in.PaymentMode))))
	in.Notes = strings.TrimSpace(in.Notes)
}

func (in *InvoiceInput) Validate() error {
	var errs apperrors.ValidationErrors
	if in.PatientID == uuid.Nil {
		errs = append(errs, apperrors.NewValidation("patient_id", "select a patient"))
	}
	if len(in.Items) == 0 {
		errs = append(errs, apperrors.NewValidation("items", "add at least one item"))
	}
	for i, item := range in.Items {
		if item.Description == "" {
			errs = append(errs, apperrors.NewValidation(fmt.Sprintf("items[%d].description", i), "description is required"))
		}
		if item.Amount < 0 {
			errs = append(errs, apperrors.NewValidation(fmt.Sprintf("items[%d].amount", i), "amount cannot be negative"))
		}
		if item.Quantity < 1 {
			errs = append(errs, apperrors.NewValidation(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1"))
		}
	}
	if !in.PaymentMode.Valid() {
		errs = append(errs, apperrors.NewValidation("payment_mode", fmt.Sprintf("unknown payment mode %q", in.PaymentMode)))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Build returns the unsaved invoice described by in, with its items and
// total. Payment fields are left to Settle.
func (in *InvoiceInput) Build() *Invoice {
	inv := &Invoice{
		PatientID:     in.PatientID,
		VisitID:       in.VisitID,
		PaymentStatus: PaymentUnpaid,
		PaymentMode:   in.PaymentMode,
		PaymentDate:   in.PaymentDate,
		Notes:         in.Notes,
		Items:         make([]InvoiceItem, 0, len(in.Items)),
	}
	inv.ID = uuid.New()
	var total float64
	for i, item := range in.Items {
		line := InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Position:    i + 1,
			Description: item.Description,
			Amount:      RoundMoney(item.Amount),
			Quantity:    item.Quantity,
		}
		total += line.Total()
		inv.Items = append(inv.Items, line)
	}
	inv.TotalAmount = RoundMoney(total)
	return inv
}

// InvoicePaymentUpdate records a payment against an invoice. Unset fields
// keep their value.
type InvoicePaymentUpdate struct {
	PaidAmount    *float64       `json:"paid_amount"`
	PaymentStatus *PaymentStatus `json:"payment_status"`
	PaymentMode   *PaymentMode   `json:"payment_mode"`
	PaymentDate   *Date          `json:"payment_date"`
}

type InvoiceFilter struct {
	Status    PaymentStatus
	PatientID *uuid.UUID
	Pagination
}

type InvoiceList struct {
	Invoices []*Invoice `json:"invoices"`
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// BillingSummary totals a clinic's invoices created within an optional date
// range. Unpaid revenue is the outstanding balance.
type BillingSummary struct {
	From          *Date   `db:"-" json:"from,omitempty"`
	To            *Date   `db:"-" json:"to,omitempty"`
	TotalInvoices int     `db:"total_invoices" json:"total_invoices"`
	TotalRevenue  float64 `db:"total_revenue" json:"total_revenue"`
	PaidRevenue   float64 `db:"paid_revenue" json:"paid_revenue"`
	UnpaidRevenue float64 `db:"unpaid_revenue" json:"unpaid_revenue"`
}
