// Package validation checks request parameters and bodies with struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "photographer-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// MaxPageSize caps page and youngest sizes.
const MaxPageSize = 100

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// PageQuery is the paged listing request. Page numbers start at zero.
type PageQuery struct {
	Page int `json:"page" validate:"gte=0"`
	Size int `json:"size" validate:"gte=1,lte=100"`
}

// IDParam is a photographer id path parameter.
type IDParam struct {
	ID int64 `json:"id" validate:"gte=1"`
}

// EventTypeParam is the event type path parameter, letters only.
type EventTypeParam struct {
	EventType string `json:"eventType" validate:"required,alpha"`
}

type YoungestQuery struct {
	Size int `json:"size" validate:"gte=1,lte=100"`
}

// ProximityQuery is a radius search. Radius is in kilometres.
type ProximityQuery struct {
	Lat    float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng    float64 `json:"lng" validate:"gte=-180,lte=180"`
	Radius float64 `json:"radius" validate:"gte=1"`
}

// Struct validates s and returns a VALIDATION AppError with one detail per
// failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error()).WithCause(err)
	}

	details := make(map[string]string, len(fieldErrs))
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := formatFieldError(fe)
		details[fieldPath(fe)] = msg
		messages = append(messages, msg)
	}
	return apperrors.NewValidationError(strings.Join(messages, "; ")).WithDetails(details)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatFieldError(fe validator.FieldError) string {
	field := fieldPath(fe)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "alpha":
		return fmt.Sprintf("%s must contain only letters", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
