package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type sample struct {
	Name   string `json:"name" validate:"notblank"`
	Gender string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Date   string `json:"date" validate:"ymd"`
	Order  int    `json:"display_order" validate:"min=1,max=999"`
}

func TestValidate(t *testing.T) {
	v := Default()

	assert.NoError(t, v.Validate(&sample{Name: "Fever", Date: "2024-05-01", Order: 3}))

	err := v.Validate(&sample{Name: "  ", Gender: "X", Date: "01/05/2024", Order: 0})
	require.Error(t, err)

	var verrs apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.NotNil(t, verrs.Field("name"))
	assert.NotNil(t, verrs.Field("gender"))
	assert.NotNil(t, verrs.Field("date"))
	assert.NotNil(t, verrs.Field("display_order"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestTranslate_PassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, Translate(nil))

	plain := assert.AnError
	assert.Same(t, plain, Translate(plain))
}
