package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// phoneRE accepts digits with the usual separators, e.g. "+1 (555) 123-4567".
var phoneRE = regexp.MustCompile(`^\+?[0-9][0-9().\-\s]{2,19}$`)

// NewValidator builds the validator used for request binding, with the
// custom phone rule registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || phoneRE.MatchString(s)
	})
	return v
}

// validate backs the per-field checks in the patch paths.
var validate = NewValidator()
