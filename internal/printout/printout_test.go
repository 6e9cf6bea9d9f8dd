package printout

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
)

func sampleDocument() Document {
	temp := 99.5
	pulse := 82
	follow := model.NewDate(2024, time.May, 8)
	return Document{
		Visit: &model.Visit{
			VisitNumber:  3,
			VisitDate:    model.NewDate(2024, time.May, 1),
			Symptoms:     []string{"Fever", "Body ache"},
			Diagnosis:    []string{"Viral Fever"},
			FollowUpDate: &follow,
			Vitals:       model.Vitals{BloodPressure: "120/80", Temperature: &temp, Pulse: &pulse},
			Medicines: []model.VisitMedicine{
				{MedicineName: "Paracetamol", Dosage: "1 tablet", Duration: "3 days"},
				{MedicineName: "ORS"},
			},
			PrescriptionNotes: "Plenty of fluids",
		},
		Patient: &model.Patient{
			FullName:    "Asha Rao",
			PatientCode: "PT-0001",
			Age:         34,
			Gender:      model.GenderFemale,
			Allergies:   []string{"Penicillin"},
		},
		Settings:  model.DefaultPrintSettings(),
		AutoPrint: true,
	}
}

func TestSections_OrderAndOmission(t *testing.T) {
	doc := sampleDocument()
	sections := Sections(doc.Visit)

	titles := make([]string, 0, len(sections))
	for _, s := range sections {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"VITALS", "CHIEF COMPLAINTS", "DIAGNOSIS", "FOLLOW-UP"}, titles)
	assert.Equal(t, []string{"BP: 120/80", "Temp: 99.5°F", "Pulse: 82 bpm"}, sections[0].Items)
}

func TestMedicineRows_DashForBlanks(t *testing.T) {
	rows := MedicineRows(sampleDocument().Visit.Medicines)
	require.Len(t, rows, 2)
	assert.Equal(t, MedicineRow{Index: 2, Name: "ORS", Dosage: "-", Duration: "-"}, rows[1])
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleDocument()))
	html := buf.String()

	assert.Contains(t, html, "@page { size: A4; margin: 0 }")
	assert.Contains(t, html, "top: 280px; left: 40px;")
	assert.Contains(t, html, "Asha Rao (PT-0001)")
	assert.Contains(t, html, "Allergies: Penicillin")
	assert.Contains(t, html, "<td>Paracetamol</td><td>1 tablet</td><td>3 days</td>")
	assert.Contains(t, html, "window.print()")
	assert.Contains(t, html, "250")
	assert.NotContains(t, html, "CLINICAL OBSERVATIONS")

	vitals := strings.Index(html, "VITALS")
	diagnosis := strings.Index(html, "DIAGNOSIS")
	prescription := strings.Index(html, "PRESCRIPTION<")
	assert.True(t, vitals < diagnosis && diagnosis < prescription)
}

func TestRender_ClampsOffset(t *testing.T) {
	doc := sampleDocument()
	doc.Settings = model.PrintSettings{Top: 900, Left: -10}
	doc.AutoPrint = false

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc))
	assert.Contains(t, buf.String(), "top: 400px; left: 0px;")
	assert.NotContains(t, buf.String(), "window.print()")
}

func TestRender_RequiresVisit(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, Document{}))
}

func TestPreview(t *testing.T) {
	o := Preview(model.PrintSettings{Top: 500, Left: 40})
	assert.Equal(t, 400, o.TopPx)
	assert.Equal(t, 10.58, o.TopCM)
	assert.Equal(t, 1.06, o.LeftCM)
	assert.Equal(t, A4WidthPx-40, o.WidthPx)
	assert.Equal(t, A4HeightPx-400, o.HeightPx)

	sketch := o.Sketch(20, 10)
	lines := strings.Split(strings.TrimRight(sketch, "\n"), "\n")
	require.Len(t, lines, 10)
	assert.NotContains(t, lines[1], "#")
	assert.Contains(t, lines[8], "#")
}
