package visitdraft

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type fakeAPI struct {
	mu      sync.Mutex
	patient *model.Patient
	history []*model.VisitListItem
	created []*model.VisitInput
	updated []*model.VisitInput
	fail    error
}

func (f *fakeAPI) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if f.patient == nil || f.patient.ID != id {
		return nil, errors.New("patient not found")
	}
	return f.patient, nil
}

func (f *fakeAPI) PatientVisits(ctx context.Context, id uuid.UUID, page model.Pagination) ([]*model.VisitListItem, error) {
	return f.history, nil
}

func (f *fakeAPI) CreateVisit(ctx context.Context, in *model.VisitInput) (*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	if f.fail != nil {
		return nil, f.fail
	}
	v := &model.Visit{Base: model.Base{ID: uuid.New()}, PatientID: in.PatientID, AppointmentID: in.AppointmentID, VisitNumber: len(f.created)}
	in.Apply(v)
	return v, nil
}

func (f *fakeAPI) UpdateVisit(ctx context.Context, id uuid.UUID, in *model.VisitInput) (*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, in)
	if f.fail != nil {
		return nil, f.fail
	}
	v := &model.Visit{Base: model.Base{ID: id}, PatientID: in.PatientID}
	in.Apply(v)
	return v, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created) + len(f.updated)
}

type fakeVocab map[model.OptionCategory][]string

func (v fakeVocab) Names(ctx context.Context, c model.OptionCategory) ([]string, error) {
	return v[c], nil
}

func newAPI() *fakeAPI {
	return &fakeAPI{
		patient: &model.Patient{Base: model.Base{ID: uuid.New()}, FullName: "Asha Rao", PatientCode: "PT-0001"},
		history: []*model.VisitListItem{{Visit: model.Visit{VisitNumber: 1}}},
	}
}

func TestStart_EmptyWithoutPatient(t *testing.T) {
	d, err := Start(context.Background(), newAPI(), nil, Entry{})
	require.NoError(t, err)
	assert.Equal(t, Empty, d.State())

	_, err = d.Submit(context.Background())
	assert.True(t, apperrors.IsValidation(err))
}

func TestStart_LoadedWithComplaints(t *testing.T) {
	api := newAPI()
	vocab := fakeVocab{model.CategorySymptom: {"Fever", "Cough"}}
	d, err := Start(context.Background(), api, vocab, Entry{PatientID: api.patient.ID, Complaints: []string{"Fever"}})
	require.NoError(t, err)

	assert.Equal(t, Loaded, d.State())
	assert.Equal(t, "Asha Rao", d.Patient().FullName)
	assert.Equal(t, []string{"Fever"}, d.Symptoms.Values())
	assert.Equal(t, []string{"Cough"}, d.Symptoms.Available())

	history, err := d.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSubmit_ValidationMakesNoCall(t *testing.T) {
	api := newAPI()
	d, err := Start(context.Background(), api, nil, Entry{PatientID: api.patient.ID})
	require.NoError(t, err)

	_, err = d.Submit(context.Background())
	var verrs apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.NotNil(t, verrs.Field("symptoms"))
	assert.NotNil(t, verrs.Field("diagnosis"))
	assert.Equal(t, Editing, d.State())

	d.Symptoms.Add("Fever")
	_, err = d.Submit(context.Background())
	require.ErrorAs(t, err, &verrs)
	assert.NotNil(t, verrs.Field("diagnosis"))
	assert.Zero(t, api.calls())
}

func TestSubmit_DedupesAndStripsBlankMedicines(t *testing.T) {
	api := newAPI()
	d, err := Start(context.Background(), api, nil, Entry{PatientID: api.patient.ID})
	require.NoError(t, err)

	d.Symptoms.Add("Fever")
	d.Symptoms.SetCustom("Fever, Chills")
	d.Diagnosis.SetCustom("Viral Fever")
	require.NoError(t, d.Medicines.Append(model.MedicineLine{MedicineName: "Paracetamol", Dosage: "1 tablet", Duration: "3 days"}))
	d.Medicines.Add()

	res, err := d.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	sent := api.created[0]
	assert.Equal(t, []string{"Fever", "Chills"}, sent.Symptoms)
	assert.Len(t, sent.Medicines, 1)
	assert.Equal(t, ShowPatient, res.Outcome)
	assert.Equal(t, Submitted, d.State())
	assert.NoError(t, d.GuardLeave())
}

func TestSubmit_Outcomes(t *testing.T) {
	api := newAPI()
	appointment := uuid.New()
	existing := &model.Visit{
		Base:      model.Base{ID: uuid.New()},
		PatientID: api.patient.ID,
		Symptoms:  []string{"Cough"},
		Diagnosis: []string{"URTI"},
	}

	tests := []struct {
		name  string
		entry Entry
		want  Outcome
	}{
		{"from appointment", Entry{PatientID: api.patient.ID, AppointmentID: &appointment, Complaints: []string{"Fever"}}, ShowPreview},
		{"edit visit", Entry{Visit: existing}, ShowVisit},
		{"fresh visit", Entry{PatientID: api.patient.ID, Complaints: []string{"Fever"}}, ShowPatient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Start(context.Background(), api, nil, tt.entry)
			require.NoError(t, err)
			if d.Diagnosis.Empty() {
				d.Diagnosis.Add("Viral Fever")
			}
			res, err := d.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
		})
	}
	assert.Len(t, api.updated, 1)
	assert.Nil(t, api.updated[0].AppointmentID)
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	api := newAPI()
	api.fail = errors.New("server unavailable")
	d, err := Start(context.Background(), api, nil, Entry{PatientID: api.patient.ID})
	require.NoError(t, err)
	d.Symptoms.Add("Fever")
	d.Diagnosis.Add("Viral Fever")

	_, err = d.Submit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Editing, d.State())
	assert.Equal(t, []string{"Fever"}, d.Symptoms.Values())
	assert.ErrorIs(t, d.GuardLeave(), ErrUnsavedChanges)
}

func TestGuardLeave(t *testing.T) {
	api := newAPI()
	d, err := Start(context.Background(), api, nil, Entry{PatientID: api.patient.ID})
	require.NoError(t, err)
	assert.NoError(t, d.GuardLeave())

	d.SetNotes("review in a week")
	assert.Equal(t, Editing, d.State())
	assert.ErrorIs(t, d.GuardLeave(), ErrUnsavedChanges)

	d.setState(Submitting)
	assert.NoError(t, d.GuardLeave())
}

func TestGuardLeave_RejectedMedicineLeavesDraftClean(t *testing.T) {
	api := newAPI()
	d, err := Start(context.Background(), api, nil, Entry{PatientID: api.patient.ID})
	require.NoError(t, err)
	d.Medicines.SetReference(nil, []string{"1 tablet"}, []string{"3 days"})

	err = d.Medicines.Append(model.MedicineLine{MedicineName: "Cetirizine", Dosage: "2 spoons"})
	var verrs apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Empty(t, d.Medicines.Lines())
	assert.Equal(t, Loaded, d.State())
	assert.NoError(t, d.GuardLeave())
}

func TestGuardLeave_NonEmptyList(t *testing.T) {
	api := newAPI()
	d, err := Start(context.Background(), api, nil, Entry{PatientID: api.patient.ID, Complaints: []string{"Fever"}})
	require.NoError(t, err)
	assert.ErrorIs(t, d.GuardLeave(), ErrUnsavedChanges)
}

func TestPrefillFromVisit(t *testing.T) {
	api := newAPI()
	temp := 101.2
	amount := 300.0
	follow := model.Today().AddDays(7)
	existing := &model.Visit{
		Base:              model.Base{ID: uuid.New()},
		PatientID:         api.patient.ID,
		Symptoms:          []string{"Fever"},
		Diagnosis:         []string{"Viral Fever"},
		Observations:      []string{"Throat congested"},
		RecommendedTests:  []string{"CBC"},
		Vitals:            model.Vitals{BloodPressure: "120/80", Temperature: &temp},
		FollowUpDate:      &follow,
		PrescriptionNotes: "Plenty of fluids",
		Amount:            &amount,
		Medicines:         []model.VisitMedicine{{MedicineName: "Paracetamol", Dosage: "1 tablet", Duration: "3 days"}},
	}

	d, err := Start(context.Background(), api, nil, Entry{Visit: existing})
	require.NoError(t, err)

	in := d.Input()
	assert.Equal(t, api.patient.ID, in.PatientID)
	assert.Equal(t, []string{"Fever"}, in.Symptoms)
	assert.Equal(t, []string{"Viral Fever"}, in.Diagnosis)
	assert.Equal(t, []string{"Throat congested"}, in.Observations)
	assert.Equal(t, []string{"CBC"}, in.RecommendedTests)
	assert.Equal(t, existing.Vitals, in.Vitals)
	assert.Equal(t, &follow, in.FollowUpDate)
	assert.Equal(t, "Plenty of fluids", in.PrescriptionNotes)
	assert.Equal(t, &amount, in.Amount)
	assert.Equal(t, []model.MedicineLine{{MedicineName: "Paracetamol", Dosage: "1 tablet", Duration: "3 days"}}, in.Medicines)
	assert.Contains(t, d.Summary(), "symptoms: Fever")
}
