package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var messages = map[string]string{
	"required": "the field '%s' is required",
	"email":    "the field '%s' must be a valid email address",
	"min":      "the field '%s' must be at least %s characters long",
	"max":      "the field '%s' must be no longer than %s characters",
	"gte":      "the field '%s' must be greater than or equal to %s",
	"lte":      "the field '%s' must be less than or equal to %s",
	"oneof":    "the field '%s' must be one of [%s]",
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("the field '%s' is invalid", fe.Field())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(msg, fe.Field())
}

// validateStruct checks s against its validate tags and returns a
// ValidationError keyed by json field name, or nil.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Internal("validate", err)
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := details[fe.Field()]; !seen {
			details[fe.Field()] = message(fe)
		}
	}
	return ValidationError(details)
}
