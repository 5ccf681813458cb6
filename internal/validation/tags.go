// File: internal/validation/tags.go
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// blank values clear a field, so format tags accept them.
func blank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) == ""
}

// RegisterValidations installs the agent's field rules as validator tags so
// request DTOs bound by gin are checked the same way as direct calls.
func RegisterValidations(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"strongpassword": func(fl validator.FieldLevel) bool {
			return ValidatePassword(fl.Field().String()).Valid
		},
		"phone": func(fl validator.FieldLevel) bool {
			return blank(fl) || ValidatePhoneNumber(fl.Field().String()).Valid
		},
		"birthdate": func(fl validator.FieldLevel) bool {
			return blank(fl) || ValidateDate(fl.Field().String()).Valid
		},
		"personname": func(fl validator.FieldLevel) bool {
			return blank(fl) || ValidateName(fl.Field().String()).Valid
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}
