package validator

import "strings"

// ValidationErrors is returned by Validate. The field names are the JSON
// names of the request body, so clients can map them back to inputs.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// First returns the message shown in the response envelope.
func (v *ValidationErrors) First() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}
	return v.Errors[0].Message
}

// Fields maps each failed field to its first message.
func (v *ValidationErrors) Fields() map[string]string {
	if v == nil {
		return nil
	}
	out := make(map[string]string, len(v.Errors))
	for _, fe := range v.Errors {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// ToMap is the data payload of a 400 response.
func (v *ValidationErrors) ToMap() map[string]any {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return map[string]any{
		"errors": v.Errors,
		"fields": v.Fields(),
		"count":  len(v.Errors),
	}
}
