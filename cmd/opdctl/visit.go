package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/printout"
	"github.com/jwalitptl/opd-desk/internal/queue"
	"github.com/jwalitptl/opd-desk/internal/visitdraft"
)

// visitFlags maps command-line flags onto a draft.
type visitFlags struct {
	symptoms, diagnosis, observations, tests []string
	symptomsText, diagnosisText              string
	observationsText, testsText              string

	bp                   string
	temp, weight, height float64
	pulse, spo2          int
	medicines            []string
	notes, followUp      string
	amount               float64
}

func (f *visitFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&f.symptoms, "symptom", nil, "symptom from the list (repeatable)")
	fs.StringVar(&f.symptomsText, "symptoms", "", "other symptoms, comma separated")
	fs.StringArrayVar(&f.diagnosis, "diagnosis", nil, "diagnosis from the list (repeatable)")
	fs.StringVar(&f.diagnosisText, "diagnoses", "", "other diagnoses, comma separated")
	fs.StringArrayVar(&f.observations, "observation", nil, "observation from the list (repeatable)")
	fs.StringVar(&f.observationsText, "observations", "", "other observations, comma separated")
	fs.StringArrayVar(&f.tests, "test", nil, "recommended test from the list (repeatable)")
	fs.StringVar(&f.testsText, "tests", "", "other tests, comma separated")

	fs.StringVar(&f.bp, "bp", "", "blood pressure, e.g. 120/80")
	fs.Float64Var(&f.temp, "temp", 0, "temperature in F")
	fs.IntVar(&f.pulse, "pulse", 0, "pulse in bpm")
	fs.Float64Var(&f.weight, "weight", 0, "weight in kg")
	fs.Float64Var(&f.height, "height", 0, "height in cm")
	fs.IntVar(&f.spo2, "spo2", 0, "SpO2 in %")

	fs.StringArrayVar(&f.medicines, "medicine", nil, `prescription line "name|dosage|duration" (repeatable)`)
	fs.StringVar(&f.notes, "notes", "", "prescription notes")
	fs.StringVar(&f.followUp, "follow-up", "", "follow-up date (YYYY-MM-DD or +N days)")
	fs.Float64Var(&f.amount, "amount", 0, "amount charged")
}

// parseMedicine reads "name|dosage|duration"; dosage and duration may be
// left out.
func parseMedicine(s string) model.MedicineLine {
	parts := strings.SplitN(s, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return model.MedicineLine{
		MedicineName: strings.TrimSpace(parts[0]),
		Dosage:       strings.TrimSpace(parts[1]),
		Duration:     strings.TrimSpace(parts[2]),
	}
}

// apply copies the flags that were set onto d. A list flag given on an
// edit replaces what the visit had.
func (f *visitFlags) apply(fs *pflag.FlagSet, d *visitdraft.Draft) error {
	lists := []struct {
		field      *visitdraft.MultiSelect
		chosen     []string
		text       string
		chosenFlag string
		textFlag   string
	}{
		{d.Symptoms, f.symptoms, f.symptomsText, "symptom", "symptoms"},
		{d.Diagnosis, f.diagnosis, f.diagnosisText, "diagnosis", "diagnoses"},
		{d.Observations, f.observations, f.observationsText, "observation", "observations"},
		{d.Tests, f.tests, f.testsText, "test", "tests"},
	}
	for _, l := range lists {
		if !fs.Changed(l.chosenFlag) && !fs.Changed(l.textFlag) {
			continue
		}
		if d.Editing() != nil {
			l.field.Reset(nil)
		}
		for _, c := range l.chosen {
			l.field.Add(c)
		}
		if fs.Changed(l.textFlag) {
			l.field.SetCustom(l.text)
		}
	}

	if fs.Changed("bp") || fs.Changed("temp") || fs.Changed("pulse") || fs.Changed("weight") || fs.Changed("height") || fs.Changed("spo2") {
		v := d.Vitals()
		if fs.Changed("bp") {
			v.BloodPressure = strings.TrimSpace(f.bp)
		}
		if fs.Changed("temp") {
			v.Temperature = &f.temp
		}
		if fs.Changed("pulse") {
			v.Pulse = &f.pulse
		}
		if fs.Changed("weight") {
			v.Weight = &f.weight
		}
		if fs.Changed("height") {
			v.Height = &f.height
		}
		if fs.Changed("spo2") {
			v.SpO2 = &f.spo2
		}
		d.SetVitals(v)
	}

	if fs.Changed("medicine") {
		for len(d.Medicines.Lines()) > 0 {
			if err := d.Medicines.Remove(0); err != nil {
				return err
			}
		}
		for _, m := range f.medicines {
			if err := d.Medicines.Append(parseMedicine(m)); err != nil {
				return err
			}
		}
	}
	if fs.Changed("notes") {
		d.SetNotes(f.notes)
	}
	if fs.Changed("amount") {
		d.SetAmount(&f.amount)
	}
	if fs.Changed("follow-up") {
		if strings.TrimSpace(f.followUp) == "" {
			d.SetFollowUp(nil)
		} else {
			date, err := parseDate(f.followUp)
			if err != nil {
				return err
			}
			d.SetFollowUp(&date)
		}
	}
	return nil
}

func (a *app) visitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Record and review visits",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return a.requireLogin()
		},
	}
	cmd.AddCommand(a.visitNewCmd(), a.visitEditCmd(), a.visitShowCmd(), a.visitListCmd(), a.visitCollectionsCmd())
	return cmd
}

func (a *app) visitNewCmd() *cobra.Command {
	var (
		flags       visitFlags
		patient     string
		appointment string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Record a visit for a patient or a queue entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			entry, err := a.visitEntry(ctx, patient, appointment)
			if err != nil {
				return err
			}
			return a.draftAndSubmit(ctx, cmd.Flags(), &flags, entry)
		},
	}
	cmd.Flags().StringVar(&patient, "patient", "", "patient id, code or name")
	cmd.Flags().StringVar(&appointment, "appointment", "", "queue entry id")
	flags.register(cmd.Flags())
	return cmd
}

// visitEntry builds the draft entry. An appointment that already has a
// visit reopens it instead of starting a second one.
func (a *app) visitEntry(ctx context.Context, patient, appointment string) (visitdraft.Entry, error) {
	if appointment == "" {
		id, err := a.resolvePatient(ctx, patient)
		if err != nil {
			return visitdraft.Entry{}, err
		}
		return visitdraft.Entry{PatientID: id}, nil
	}

	apptID, err := uuid.Parse(appointment)
	if err != nil {
		return visitdraft.Entry{}, fmt.Errorf("invalid appointment id %q", appointment)
	}
	c := queue.New(a.client, model.Today())
	existing, err := c.ResolveExistingVisit(ctx, apptID)
	if err != nil {
		return visitdraft.Entry{}, err
	}
	if existing != nil {
		a.printf("Reopening visit #%d for this appointment\n", existing.VisitNumber)
		return visitdraft.Entry{AppointmentID: &apptID, Visit: existing}, nil
	}
	seed, err := c.Seed(ctx, apptID)
	if err != nil {
		return visitdraft.Entry{}, err
	}
	return visitdraft.Entry{PatientID: seed.PatientID, AppointmentID: &seed.AppointmentID, Complaints: seed.Complaints}, nil
}

func (a *app) visitEditCmd() *cobra.Command {
	var flags visitFlags
	cmd := &cobra.Command{
		Use:   "edit <visit-id>",
		Short: "Change a recorded visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid visit id %q", args[0])
			}
			visit, err := a.client.GetVisit(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.draftAndSubmit(cmd.Context(), cmd.Flags(), &flags, visitdraft.Entry{Visit: visit})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func (a *app) draftAndSubmit(ctx context.Context, fs *pflag.FlagSet, flags *visitFlags, entry visitdraft.Entry) error {
	d, err := visitdraft.Start(ctx, a.client, a.vocab, entry)
	if err != nil {
		return err
	}
	if d.State() == visitdraft.Empty {
		return fmt.Errorf("choose a patient with --patient or --appointment")
	}
	if err := flags.apply(fs, d); err != nil {
		return err
	}

	res, err := d.Submit(ctx)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case visitdraft.ShowPreview:
		path, err := a.writePrint(ctx, res.Visit, res.Patient, "")
		if err != nil {
			return err
		}
		writeVisit(a.out, res.Visit)
		profile, _ := a.session.User()
		a.printf("Print preview: %s\nOffset: %s\n", path, printout.Preview(profile.PrintSettings))
	case visitdraft.ShowVisit:
		writeVisit(a.out, res.Visit)
	case visitdraft.ShowPatient:
		a.printf("Saved visit #%d for ", res.Visit.VisitNumber)
		writePatient(a.out, res.Patient)
	}
	return nil
}

// writePrint renders the visit with the user's print offset into path, or
// into the configured print directory when path is empty.
func (a *app) writePrint(ctx context.Context, v *model.Visit, p *model.Patient, path string) (string, error) {
	if p == nil {
		var err error
		if p, err = a.client.GetPatient(ctx, v.PatientID); err != nil {
			return "", err
		}
	}
	settings := model.DefaultPrintSettings()
	if profile, err := a.session.User(); err == nil {
		settings = profile.PrintSettings
	}

	if path == "" {
		if err := os.MkdirAll(a.cfg.PrintDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create print dir: %w", err)
		}
		path = filepath.Join(a.cfg.PrintDir, fmt.Sprintf("%s-visit-%d.html", p.PatientCode, v.VisitNumber))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc := printout.Document{Visit: v, Patient: p, Settings: settings, AutoPrint: true}
	if err := printout.Render(f, doc); err != nil {
		return "", err
	}
	return path, f.Close()
}

func (a *app) visitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <visit-id>",
		Short: "Show one visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid visit id %q", args[0])
			}
			visit, err := a.client.GetVisit(cmd.Context(), id)
			if err != nil {
				return err
			}
			writeVisit(a.out, visit)
			return nil
		},
	}
}

func (a *app) visitListCmd() *cobra.Command {
	var date, patient string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visits for a day or a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				items []*model.VisitListItem
				err   error
			)
			if patient != "" {
				id, rerr := a.resolvePatient(ctx, patient)
				if rerr != nil {
					return rerr
				}
				items, err = a.client.PatientVisits(ctx, id, model.Pagination{})
			} else {
				d, derr := parseDate(date)
				if derr != nil {
					return derr
				}
				items, err = a.client.ListVisits(ctx, d, model.Pagination{})
			}
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "DATE\tVISIT\tPATIENT\tDIAGNOSIS\tID")
			for _, v := range items {
				fmt.Fprintf(tw, "%s\t#%d\t%s\t%s\t%s\n", v.VisitDate, v.VisitNumber, v.Patient.FullName,
					strings.Join(v.Diagnosis, ", "), v.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "visit date")
	cmd.Flags().StringVar(&patient, "patient", "", "patient id, code or name")
	return cmd
}

func (a *app) visitCollectionsCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Summarise amounts collected",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDate(from)
			if err != nil {
				return err
			}
			t, err := parseDate(to)
			if err != nil {
				return err
			}
			sum, err := a.client.Collections(cmd.Context(), f, t)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "DATE\tVISITS\tAMOUNT")
			for _, d := range sum.Days {
				fmt.Fprintf(tw, "%s\t%d\t%.2f\n", d.Date, d.Visits, d.Amount)
			}
			fmt.Fprintf(tw, "TOTAL\t%d\t%.2f\n", sum.VisitCount, sum.TotalAmount)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", model.Today().AddDays(-30).String(), "first day")
	cmd.Flags().StringVar(&to, "to", "today", "last day")
	return cmd
}
