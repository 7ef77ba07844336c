package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s items", err.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s items", err.Param())
	case "unique":
		return "must not contain duplicates"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
