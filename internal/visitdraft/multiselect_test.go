package visitdraft

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/opd-desk/internal/model"
)

func TestSplitCommaList(t *testing.T) {
	assert.Equal(t, []string{"Fever", "Cough"}, SplitCommaList(" Fever,Cough ,, Fever"))
	assert.Empty(t, SplitCommaList(""))
}

func TestMultiSelect(t *testing.T) {
	changes := 0
	m := NewMultiSelect("symptoms", []string{"Fever", "Cough", "Headache"}, nil)
	m.onChange = func() { changes++ }

	assert.True(t, m.Empty())
	assert.True(t, m.Add("Fever"))
	assert.False(t, m.Add("Fever"))
	assert.False(t, m.Add("  "))
	assert.Equal(t, []string{"Cough", "Headache"}, m.Available())

	m.SetCustom("fever, Fever, Chills")
	assert.Equal(t, []string{"Fever", "fever", "Chills"}, m.Values())

	assert.True(t, m.Remove("Fever"))
	assert.False(t, m.Remove("Fever"))
	assert.Equal(t, []string{"fever", "Fever", "Chills"}, m.Values())
	assert.Equal(t, 3, changes)

	m.Reset([]string{"Cough", " Cough "})
	assert.Equal(t, []string{"Cough"}, m.Values())
	assert.Empty(t, m.Custom())
	assert.Equal(t, 3, changes)
}

func TestMultiSelect_CustomParser(t *testing.T) {
	m := NewMultiSelect("tests", nil, func(s string) []string {
		return model.NormalizeList([]string{s})
	})
	m.SetCustom("CBC, ESR")
	assert.Equal(t, []string{"CBC, ESR"}, m.Values())
}

func TestMedicineEditor(t *testing.T) {
	e := &MedicineEditor{}
	e.SetReference([]string{"Paracetamol", "Pantoprazole", "Amoxicillin"}, []string{"1 tablet"}, []string{"3 days"})

	assert.Equal(t, []string{"Paracetamol", "Pantoprazole"}, e.Suggest("pa"))

	assert.NoError(t, e.Append(model.MedicineLine{MedicineName: " Paracetamol ", Dosage: "1 tablet", Duration: "3 days"}))
	assert.Error(t, e.Append(model.MedicineLine{MedicineName: "Cetirizine", Dosage: "2 spoons"}))
	assert.Len(t, e.Lines(), 1)

	blank := e.Add()
	assert.Len(t, e.Lines(), 2)
	assert.NoError(t, e.Set(blank, model.MedicineLine{Dosage: "1 tablet"}))
	assert.Equal(t, []model.MedicineLine{{MedicineName: "Paracetamol", Dosage: "1 tablet", Duration: "3 days"}}, e.Named())

	assert.NoError(t, e.Remove(blank))
	assert.Error(t, e.Remove(5))
	assert.Error(t, e.Set(5, model.MedicineLine{}))
}
