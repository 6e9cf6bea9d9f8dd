package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type playground struct {
	v *validator.Validate
}

var (
	defaultOnce sync.Once
	defaultV    *playground
)

// Default returns the process-wide validator with the custom rules registered.
func Default() Validator {
	defaultOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		Register(v)
		defaultV = &playground{v: v}
	})
	return defaultV
}

// Register installs json field naming and the domain rules on v. The router
// calls it on gin's binding engine so `binding:` tags share the same rules.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		var y, m, d int
		n, err := fmt.Sscanf(s, "%4d-%2d-%2d", &y, &m, &d)
		return err == nil && n == 3 && len(s) == 10
	})
}

func (p *playground) Validate(obj interface{}) error {
	return Translate(p.v.Struct(obj))
}

// Translate turns validator failures (including those returned by gin's
// ShouldBind) into apperrors.ValidationErrors. Other errors pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(apperrors.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.NewValidation(fe.Field(), message(fe)))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "ymd":
		return "must be a date in YYYY-MM-DD format"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
