// Package validator wires go-playground/validator as Echo's request validator.
package validator

import (
	domainerrors "workshop/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type requestValidator struct {
	validate *validator.Validate
}

// New builds the Echo validator backed by go-playground/validator.
func New() echo.Validator {
	return &requestValidator{validate: validator.New()}
}

// Validate implements echo.Validator. Violations surface as the uniform
// validation error so handlers never leak field internals by accident.
func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}
