package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nanobot-ai/memory/internal/errs"
)

var validate = validator.New()

// Validate checks struct tags on Config and collects every violation into
// one errs.ConfigErrors report, grounded on necyber-goclaw's
// ValidateWithDetails.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.New(errs.KindConfigInvalid, err)
	}
	var out errs.ConfigErrors
	for _, fe := range verrs {
		out = append(out, errs.ConfigError{
			Field:   fe.Namespace(),
			Message: formatValidationError(fe),
		})
	}
	return errs.New(errs.KindConfigInvalid, out)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
