package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
)

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}()

// formatValidationError converts the first validator error into a domain
// error. Email and password problems get their auth codes.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return domainerrors.InvalidArgument(err.Error())
	}
	e := validationErrs[0]
	switch e.Field() {
	case "email":
		return domainerrors.ErrInvalidEmail
	case "password":
		return domainerrors.ErrWeakPassword.WithDetails(map[string]string{"min": "6"})
	}
	switch e.Tag() {
	case "required":
		return domainerrors.Newf(domainerrors.CodeInvalidArgument, "%s is required", e.Field())
	case "max":
		return domainerrors.Newf(domainerrors.CodeInvalidArgument, "%s exceeds maximum length of %s", e.Field(), e.Param())
	case "oneof":
		return domainerrors.Newf(domainerrors.CodeInvalidArgument, "%s must be one of: %s", e.Field(), e.Param())
	default:
		return domainerrors.Newf(domainerrors.CodeInvalidArgument, "%s is invalid", e.Field())
	}
}
