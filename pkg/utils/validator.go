package utils

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// RegisterValidations adds the custom tags used by request bodies to v.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("latitude_range", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f >= -90 && f <= 90
	})
}

// ValidationErrors turns a binding error into a field -> reason map. It
// returns nil when err does not come from the validator.
func ValidationErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldName(fe)] = validationMessage(fe)
	}
	return out
}

// FormatValidationErrors joins the map into a stable single-line message.
func FormatValidationErrors(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, errs[field]))
	}
	return strings.Join(msgs, "; ")
}

func fieldName(fe validator.FieldError) string {
	// Namespace is "RegisterUserInput.Address.DoorNo"; drop the struct name.
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Minimum length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("Maximum length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "pincode":
		return "Must be a 6 digit pincode"
	case "gte", "lte", "latitude_range":
		return "Out of range"
	default:
		return fmt.Sprintf("Invalid %s field", fe.Field())
	}
}
