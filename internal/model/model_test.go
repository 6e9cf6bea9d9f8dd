package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointmentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{AppointmentStatusWaiting, AppointmentStatusInProgress, true},
		{AppointmentStatusWaiting, AppointmentStatusWaiting, true},
		{AppointmentStatusWaiting, AppointmentStatusCompleted, false},
		{AppointmentStatusInProgress, AppointmentStatusCompleted, true},
		{AppointmentStatusInProgress, AppointmentStatusWaiting, true},
		{AppointmentStatusCompleted, AppointmentStatusWaiting, false},
		{AppointmentStatusCompleted, AppointmentStatusInProgress, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestClampDisplayOrder(t *testing.T) {
	assert.Equal(t, 1, ClampDisplayOrder(0))
	assert.Equal(t, 1, ClampDisplayOrder(-5))
	assert.Equal(t, 999, ClampDisplayOrder(1000))
	assert.Equal(t, 42, ClampDisplayOrder(42))
}

func TestPrintSettings_Clamped(t *testing.T) {
	assert.Equal(t, PrintSettings{Top: 400, Left: 0}, PrintSettings{Top: 401, Left: -3}.Clamped())
	assert.Equal(t, PrintSettings{Top: 0, Left: 200}, PrintSettings{Top: -1, Left: 999}.Clamped())
	assert.Equal(t, DefaultPrintSettings(), DefaultPrintSettings().Clamped())
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-05"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-05T10:00:00Z"`), &back))
	assert.True(t, back.Equal(d))

	assert.Error(t, json.Unmarshal([]byte(`"05/03/2024"`), &back))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-02", d.String())

	require.NoError(t, d.Scan([]byte("2024-02-03")))
	assert.Equal(t, "2024-02-03", d.String())
}

func TestParseCategory(t *testing.T) {
	cases := map[string]OptionCategory{
		"symptom":           CategorySymptom,
		"symptoms":          CategorySymptom,
		"symptom-options":   CategorySymptom,
		"/chief-complaints": CategoryChiefComplaint,
		"chief_complaint":   CategoryChiefComplaint,
		"diagnoses":         CategoryDiagnosis,
		"tests":             CategoryTest,
		"Durations":         CategoryDuration,
	}
	for in, want := range cases {
		got, ok := ParseCategory(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseCategory("allergies")
	assert.False(t, ok)
}

func TestVitals_ScanValue(t *testing.T) {
	temp := 99.5
	v := Vitals{BloodPressure: "120/80", Temperature: &temp}
	raw, err := v.Value()
	require.NoError(t, err)

	var back Vitals
	require.NoError(t, back.Scan(raw))
	assert.Equal(t, "120/80", back.BloodPressure)
	require.NotNil(t, back.Temperature)
	assert.Equal(t, 99.5, *back.Temperature)
	assert.False(t, back.IsEmpty())
	assert.True(t, Vitals{}.IsEmpty())
}

func TestPatientCode(t *testing.T) {
	assert.Equal(t, "PT-0001", PatientCode(1))
	assert.Equal(t, "PT-12345", PatientCode(12345))
}
