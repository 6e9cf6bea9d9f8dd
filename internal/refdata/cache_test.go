package refdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
)

type countingSource struct {
	calls map[string]int
	opts  []*model.ReferenceOption
	err   error
}

func (s *countingSource) ListOptions(ctx context.Context, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error) {
	s.calls[key(category, activeOnly)]++
	if s.err != nil {
		return nil, s.err
	}
	var out []*model.ReferenceOption
	for _, o := range s.opts {
		if o.Category == category && (!activeOnly || o.IsActive) {
			out = append(out, o)
		}
	}
	return out, nil
}

func newSource() *countingSource {
	return &countingSource{
		calls: map[string]int{},
		opts: []*model.ReferenceOption{
			{Category: model.CategorySymptom, Name: "Fever", DisplayOrder: 1, IsActive: true},
			{Category: model.CategorySymptom, Name: "Cough", DisplayOrder: 2, IsActive: true},
			{Category: model.CategorySymptom, Name: "Rash", DisplayOrder: 3, IsActive: false},
		},
	}
}

func TestCache_FetchOnce(t *testing.T) {
	src := newSource()
	c := New(src, time.Minute)
	ctx := context.Background()

	names, err := c.Names(ctx, model.CategorySymptom)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fever", "Cough"}, names)

	_, err = c.Active(ctx, model.CategorySymptom)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls["symptom:active"])

	all, err := c.All(ctx, model.CategorySymptom)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1, src.calls["symptom:all"])
}

func TestCache_Invalidate(t *testing.T) {
	src := newSource()
	c := New(src, time.Minute)
	ctx := context.Background()

	_, _ = c.Active(ctx, model.CategorySymptom)
	_, _ = c.Active(ctx, model.CategoryDiagnosis)
	c.Invalidate(model.CategorySymptom)
	_, _ = c.Active(ctx, model.CategorySymptom)
	_, _ = c.Active(ctx, model.CategoryDiagnosis)

	assert.Equal(t, 2, src.calls["symptom:active"])
	assert.Equal(t, 1, src.calls["diagnosis:active"])
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	src := newSource()
	src.err = errors.New("offline")
	c := New(src, time.Minute)

	_, err := c.Active(context.Background(), model.CategorySymptom)
	assert.Error(t, err)

	src.err = nil
	names, err := c.Names(context.Background(), model.CategorySymptom)
	require.NoError(t, err)
	assert.Len(t, names, 2)
}
