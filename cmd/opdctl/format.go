package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/queue"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func writeQueue(w io.Writer, snap queue.Snapshot) {
	fmt.Fprintf(w, "Queue for %s  total %d | waiting %d | in progress %d | completed %d\n",
		snap.Date, snap.Stats.Total, snap.Stats.Waiting, snap.Stats.InProgress, snap.Stats.Completed)
	if len(snap.Entries) == 0 {
		fmt.Fprintln(w, "No patients in the queue.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tID\tPATIENT\tCODE\tSTATUS\tCOMPLAINTS")
	for _, e := range snap.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", e.QueueNumber, shortID(e.ID),
			orDash(e.Patient.FullName), orDash(e.Patient.PatientCode), e.Status, strings.Join(e.ChiefComplaints, ", "))
	}
	tw.Flush()
}

func writeOptions(w io.Writer, opts []*model.ReferenceOption) {
	if len(opts) == 0 {
		fmt.Fprintln(w, "No options.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ORDER\tID\tNAME\tACTIVE\tDESCRIPTION")
	for _, o := range opts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", o.DisplayOrder, shortID(o.ID), o.Name, o.IsActive, orDash(o.Description))
	}
	tw.Flush()
}

func writeVisit(w io.Writer, v *model.Visit) {
	fmt.Fprintf(w, "Visit #%d on %s (%s)\n", v.VisitNumber, v.VisitDate, v.ID)
	row := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(w, "  %-13s %s\n", label+":", strings.Join(items, ", "))
		}
	}
	row("Symptoms", v.Symptoms)
	row("Diagnosis", v.Diagnosis)
	row("Observations", v.Observations)
	row("Tests", v.RecommendedTests)
	if !v.Vitals.IsEmpty() {
		fmt.Fprintf(w, "  %-13s %s\n", "Vitals:", vitalsLine(v.Vitals))
	}
	for i, m := range v.Medicines {
		fmt.Fprintf(w, "  Rx %d. %s | %s | %s\n", i+1, m.MedicineName, orDash(m.Dosage), orDash(m.Duration))
	}
	if v.FollowUpDate != nil {
		fmt.Fprintf(w, "  %-13s %s\n", "Follow-up:", v.FollowUpDate)
	}
	if v.PrescriptionNotes != "" {
		fmt.Fprintf(w, "  %-13s %s\n", "Notes:", v.PrescriptionNotes)
	}
	if v.Amount != nil {
		fmt.Fprintf(w, "  %-13s %.2f\n", "Amount:", *v.Amount)
	}
}

func vitalsLine(v model.Vitals) string {
	var parts []string
	if v.BloodPressure != "" {
		parts = append(parts, "BP "+v.BloodPressure)
	}
	if v.Temperature != nil {
		parts = append(parts, "Temp "+strconv.FormatFloat(*v.Temperature, 'f', -1, 64)+"F")
	}
	if v.Pulse != nil {
		parts = append(parts, fmt.Sprintf("Pulse %d", *v.Pulse))
	}
	if v.Weight != nil {
		parts = append(parts, "Wt "+strconv.FormatFloat(*v.Weight, 'f', -1, 64)+"kg")
	}
	if v.Height != nil {
		parts = append(parts, "Ht "+strconv.FormatFloat(*v.Height, 'f', -1, 64)+"cm")
	}
	if v.SpO2 != nil {
		parts = append(parts, fmt.Sprintf("SpO2 %d%%", *v.SpO2))
	}
	return strings.Join(parts, ", ")
}

func writePatient(w io.Writer, p *model.Patient) {
	fmt.Fprintf(w, "%s (%s) %d/%s, %s\n", p.FullName, p.PatientCode, p.Age, p.Gender, orDash(p.Phone))
	if len(p.Allergies) > 0 {
		fmt.Fprintf(w, "  Allergies: %s\n", strings.Join(p.Allergies, ", "))
	}
}

func writeInvoice(w io.Writer, inv *model.Invoice) {
	fmt.Fprintf(w, "%s for %s (%s)\n", inv.InvoiceNumber, orDash(inv.Patient.FullName), inv.ID)
	for i, item := range inv.Items {
		fmt.Fprintf(w, "  %d. %s  %d x %.2f = %.2f\n", i+1, item.Description, item.Quantity, item.Amount, item.Total())
	}
	fmt.Fprintf(w, "  %-8s %.2f\n", "Total:", inv.TotalAmount)
	fmt.Fprintf(w, "  %-8s %.2f (%s)\n", "Paid:", inv.PaidAmount, inv.PaymentStatus)
	if inv.Balance() > 0 {
		fmt.Fprintf(w, "  %-8s %.2f\n", "Due:", inv.Balance())
	}
	if inv.PaymentMode != "" {
		fmt.Fprintf(w, "  %-8s %s\n", "Mode:", inv.PaymentMode)
	}
	if inv.PaymentDate != nil {
		fmt.Fprintf(w, "  %-8s %s\n", "On:", inv.PaymentDate)
	}
}

func writeMembers(w io.Writer, members []*model.Member) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tPERMISSIONS")
	for _, m := range members {
		role := string(m.Role)
		if m.IsOwner {
			role += " (owner)"
		}
		perms := "role defaults"
		if m.CustomPermissions {
			perms = orDash(strings.Join(m.Permissions, ","))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", shortID(m.ID), m.Email, m.FullName, role, m.IsActive, perms)
	}
	tw.Flush()
}
