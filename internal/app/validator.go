package app

import (
	"github.com/go-playground/validator/v10"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// requestValidator adapts go-playground/validator to Echo's Validator
// interface. Handlers call c.Validate(dto) after binding; a failure comes
// back as a validation AppError so the error handler renders 400 JSON.
//
// The struct-level message is deliberately generic. Each handler supplies
// its own field-specific message before returning, matching the API's
// fixed response strings.
type requestValidator struct {
	validate *validator.Validate
}

func newValidator() *requestValidator {
	return &requestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return apperror.NewValidation("Invalid request data.")
	}
	return nil
}
