package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/gatekeeper/internal/i18n"
)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// ValidateRequest validates a request struct and returns the localised
// message for each failing field, or nil when the request is valid.
func ValidateRequest(req interface{}, tr *i18n.Translations) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"_": tr.Get("validation.invalid")}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = tr.Get(validationKey(fe))
	}
	return fields
}

// validationKey maps a failed tag to its locale key
func validationKey(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "email", "min", "max", "len", "alphanum":
		return "validation." + fe.Tag()
	default:
		return "validation.invalid"
	}
}
