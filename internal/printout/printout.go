// Package printout renders a finished visit as a printable A4 prescription
// positioned under pre-printed clinic letterhead.
package printout

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/opd-desk/internal/model"
)

// A4 page in CSS pixels at 72dpi, and the px/cm factor at 96dpi used by
// browsers for on-screen preview.
const (
	A4WidthPx   = 595
	A4HeightPx  = 842
	PixelsPerCM = 37.795275591

	AutoPrintDelay = 250 * time.Millisecond
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var prescriptionTmpl = template.Must(template.New("prescription.html.tmpl").ParseFS(templateFS, "templates/prescription.html.tmpl"))

// Document is everything needed to print one visit.
type Document struct {
	Visit      *model.Visit
	Patient    *model.Patient
	Settings   model.PrintSettings
	ClinicName string
	// AutoPrint adds the print-then-close script.
	AutoPrint bool
}

// Section is one titled block of the prescription body.
type Section struct {
	Title string
	Items []string
}

// MedicineRow is one rendered prescription line; blanks show as "-".
type MedicineRow struct {
	Index    int
	Name     string
	Dosage   string
	Duration string
}

type view struct {
	Document
	TopPx            int
	LeftPx           int
	Header           []string
	Allergies        string
	Sections         []Section
	Medicines        []MedicineRow
	Notes            string
	AutoPrintDelayMS int64
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// VitalsLines lists the recorded vitals with their units, skipping the ones
// not taken.
func VitalsLines(v model.Vitals) []string {
	var lines []string
	if bp := strings.TrimSpace(v.BloodPressure); bp != "" {
		lines = append(lines, "BP: "+bp)
	}
	if v.Temperature != nil {
		lines = append(lines, "Temp: "+formatFloat(*v.Temperature)+"°F")
	}
	if v.Pulse != nil {
		lines = append(lines, fmt.Sprintf("Pulse: %d bpm", *v.Pulse))
	}
	if v.Weight != nil {
		lines = append(lines, "Weight: "+formatFloat(*v.Weight)+" kg")
	}
	if v.Height != nil {
		lines = append(lines, "Height: "+formatFloat(*v.Height)+" cm")
	}
	if v.SpO2 != nil {
		lines = append(lines, fmt.Sprintf("SpO2: %d%%", *v.SpO2))
	}
	return lines
}

// Sections returns the clinical blocks in print order. Empty blocks are
// left out.
func Sections(v *model.Visit) []Section {
	candidates := []Section{
		{Title: "VITALS", Items: VitalsLines(v.Vitals)},
		{Title: "CHIEF COMPLAINTS", Items: v.Symptoms},
		{Title: "DIAGNOSIS", Items: v.Diagnosis},
		{Title: "CLINICAL OBSERVATIONS", Items: v.Observations},
		{Title: "RECOMMENDED TESTS", Items: v.RecommendedTests},
	}
	if v.FollowUpDate != nil {
		candidates = append(candidates, Section{
			Title: "FOLLOW-UP",
			Items: []string{v.FollowUpDate.Format("02 Jan 2006")},
		})
	}

	var out []Section
	for _, s := range candidates {
		if len(s.Items) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// MedicineRows numbers the prescription lines from 1.
func MedicineRows(meds []model.VisitMedicine) []MedicineRow {
	rows := make([]MedicineRow, 0, len(meds))
	for i, m := range meds {
		rows = append(rows, MedicineRow{
			Index:    i + 1,
			Name:     dash(m.MedicineName),
			Dosage:   dash(m.Dosage),
			Duration: dash(m.Duration),
		})
	}
	return rows
}

func header(v *model.Visit, p *model.Patient) []string {
	lines := []string{
		fmt.Sprintf("%s (%s)", p.FullName, p.PatientCode),
		fmt.Sprintf("%d yrs / %s", p.Age, p.Gender),
		"Date: " + v.VisitDate.Format("02 Jan 2006"),
		fmt.Sprintf("Visit #%d", v.VisitNumber),
	}
	return lines
}

// Render writes the prescription HTML for doc to w. The print offset is
// clamped before use.
func Render(w io.Writer, doc Document) error {
	if doc.Visit == nil || doc.Patient == nil {
		return fmt.Errorf("printout: visit and patient are required")
	}
	ps := doc.Settings.Clamped()

	data := view{
		Document:         doc,
		TopPx:            ps.Top,
		LeftPx:           ps.Left,
		Header:           header(doc.Visit, doc.Patient),
		Allergies:        strings.Join(doc.Patient.Allergies, ", "),
		Sections:         Sections(doc.Visit),
		Medicines:        MedicineRows(doc.Visit.Medicines),
		Notes:            strings.TrimSpace(doc.Visit.PrescriptionNotes),
		AutoPrintDelayMS: AutoPrintDelay.Milliseconds(),
	}
	if err := prescriptionTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("printout: render: %w", err)
	}
	return nil
}
