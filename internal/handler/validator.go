package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/dentraining/portfolio-api/internal/model"
)

// Validator adapts go-playground/validator to echo's Validator interface,
// converting tag failures into the field-level ValidationError the error
// writer renders as 422.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{
			Field: fe.Field(),
			Error: "failed on " + fe.Tag(),
		})
	}
	return model.NewValidationError(errors.New("validation failed"), fields...)
}
