package goAccount

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names so messages match what the client sent.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

// validateStruct runs the validate tags on req and collects every violation
// into a single *ValidationError.
func validateStruct(req any) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &ValidationError{Violations: []string{err.Error()}}
	}

	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		messages = append(messages, violationMessage(fe))
	}
	return &ValidationError{Violations: messages}
}

func violationMessage(fe validator.FieldError) string {
	field := `"` + fe.Field() + `"`
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return field + " length must be at least " + fe.Param() + " characters long"
	case "max":
		return field + " length must be less than or equal to " + fe.Param() + " characters long"
	case "oneof":
		return field + " must be one of [" + strings.ReplaceAll(fe.Param(), " ", ", ") + "]"
	default:
		return field + " is invalid"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
