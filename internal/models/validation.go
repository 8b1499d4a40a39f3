package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"catalog/internal/errs"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process-wide validator. Field names in its errors are
// the JSON names of the struct fields.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

func validateStruct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	fields := make([]errs.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, errs.FieldError{Field: e.Field(), Error: describe(e)})
	}
	return errs.NewValidationError("Validation failed: "+errs.JoinFields(fields), fields)
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	default:
		if e.Param() != "" {
			return fmt.Sprintf("failed on %s=%s", e.Tag(), e.Param())
		}
		return fmt.Sprintf("failed on %s", e.Tag())
	}
}
