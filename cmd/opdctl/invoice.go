package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-desk/internal/model"
)

func (a *app) invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "invoice",
		Short:             "Bill patients and record payments",
		PersistentPreRunE: a.loggedIn,
	}
	cmd.AddCommand(a.invoiceNewCmd(), a.invoiceListCmd(), a.invoiceShowCmd(), a.invoicePayCmd(), a.invoiceSummaryCmd())
	return cmd
}

// parseItem reads "description|amount|quantity"; quantity may be left out.
func parseItem(s string) (model.InvoiceItemInput, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) < 2 {
		return model.InvoiceItemInput{}, fmt.Errorf("item %q: want description|amount[|quantity]", s)
	}
	item := model.InvoiceItemInput{Description: strings.TrimSpace(parts[0])}
	amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.InvoiceItemInput{}, fmt.Errorf("item %q: invalid amount", s)
	}
	item.Amount = amount
	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		qty, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return model.InvoiceItemInput{}, fmt.Errorf("item %q: invalid quantity", s)
		}
		item.Quantity = qty
	}
	return item, nil
}

func (a *app) invoiceNewCmd() *cobra.Command {
	var (
		patient, visit, mode, notes string
		items                       []string
		paid                        float64
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an invoice",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			patientID, err := a.resolvePatient(ctx, patient)
			if err != nil {
				return err
			}
			in := &model.InvoiceInput{
				PatientID:   patientID,
				PaymentMode: model.PaymentMode(mode),
				Notes:       notes,
			}
			if visit != "" {
				id, err := uuid.Parse(visit)
				if err != nil {
					return fmt.Errorf("invalid visit id %q", visit)
				}
				in.VisitID = &id
			}
			for _, s := range items {
				item, err := parseItem(s)
				if err != nil {
					return err
				}
				in.Items = append(in.Items, item)
			}
			if cmd.Flags().Changed("paid") {
				in.PaidAmount = &paid
			}

			inv, err := a.client.CreateInvoice(ctx, in)
			if err != nil {
				return err
			}
			writeInvoice(a.out, inv)
			return nil
		},
	}
	cmd.Flags().StringVar(&patient, "patient", "", "patient id, code or name")
	cmd.Flags().StringVar(&visit, "visit", "", "visit id being billed")
	cmd.Flags().StringArrayVar(&items, "item", nil, `line "description|amount|quantity" (repeatable)`)
	cmd.Flags().Float64Var(&paid, "paid", 0, "amount paid now")
	cmd.Flags().StringVar(&mode, "mode", "", "payment mode: cash, upi, card or other")
	cmd.Flags().StringVar(&notes, "notes", "", "invoice notes")
	return cmd
}

func (a *app) invoiceListCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client.ListInvoices(cmd.Context(), model.PaymentStatus(strings.ToUpper(status)), model.Pagination{Limit: limit})
			if err != nil {
				return err
			}
			if len(list.Invoices) == 0 {
				a.printf("No invoices.\n")
				return nil
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "NUMBER\tID\tPATIENT\tTOTAL\tPAID\tSTATUS")
			for _, inv := range list.Invoices {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%s\n", inv.InvoiceNumber, shortID(inv.ID),
					orDash(inv.Patient.FullName), inv.TotalAmount, inv.PaidAmount, inv.PaymentStatus)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			a.printf("%d of %d invoice(s)\n", len(list.Invoices), list.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only PAID, UNPAID or PARTIAL invoices")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	return cmd
}

func (a *app) invoiceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Show an invoice with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}
			inv, err := a.client.GetInvoice(cmd.Context(), id)
			if err != nil {
				return err
			}
			writeInvoice(a.out, inv)
			return nil
		},
	}
}

func (a *app) invoicePayCmd() *cobra.Command {
	var (
		amount       float64
		status, mode string
		date         string
	)
	cmd := &cobra.Command{
		Use:   "pay <invoice-id>",
		Short: "Record a payment against an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}
			upd := &model.InvoicePaymentUpdate{}
			if cmd.Flags().Changed("amount") {
				upd.PaidAmount = &amount
			}
			if status != "" {
				s := model.PaymentStatus(strings.ToUpper(status))
				upd.PaymentStatus = &s
			}
			if mode != "" {
				m := model.PaymentMode(mode)
				upd.PaymentMode = &m
			}
			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return err
				}
				upd.PaymentDate = &d
			}
			if upd.PaidAmount == nil && upd.PaymentStatus == nil {
				return fmt.Errorf("give --amount or --status")
			}

			inv, err := a.client.UpdatePayment(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			writeInvoice(a.out, inv)
			return nil
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "total amount paid so far")
	cmd.Flags().StringVar(&status, "status", "", "PAID, UNPAID or PARTIAL")
	cmd.Flags().StringVar(&mode, "mode", "", "payment mode: cash, upi, card or other")
	cmd.Flags().StringVar(&date, "date", "", "payment date")
	return cmd
}

func (a *app) invoiceSummaryCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total billed, paid and outstanding amounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f, t model.Date
			var err error
			if from != "" {
				if f, err = parseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if t, err = parseDate(to); err != nil {
					return err
				}
			}
			sum, err := a.client.BillingSummary(cmd.Context(), f, t)
			if err != nil {
				return err
			}
			a.printf("Invoices %d  billed %.2f | paid %.2f | outstanding %.2f\n",
				sum.TotalInvoices, sum.TotalRevenue, sum.PaidRevenue, sum.UnpaidRevenue)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (default: no limit)")
	cmd.Flags().StringVar(&to, "to", "", "last day (default: no limit)")
	return cmd
}
