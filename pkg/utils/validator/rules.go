package validator

import (
	"encoding/base64"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagNotBlank    = "notblank"    // String with at least one non-whitespace character
	TagImageBase64 = "imagebase64" // Standard base64, optionally as a data: URL
)

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagImageBase64, validateImageBase64)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateImageBase64(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, err := DecodeImageBase64(value)
	return err == nil
}

// DecodeImageBase64 decodes plain base64 or a data: URL such as
// "data:image/jpeg;base64,/9j/4AAQ...".
func DecodeImageBase64(value string) ([]byte, error) {
	if strings.HasPrefix(value, "data:") {
		if i := strings.Index(value, ","); i >= 0 {
			value = value[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(value))
}
