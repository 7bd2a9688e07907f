package model

import "strings"

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field-level problems found while validating input.
type ValidationErrors []ValidationError

func (validationErrors ValidationErrors) Error() string {
	parts := make([]string, 0, len(validationErrors))
	for _, validationError := range validationErrors {
		parts = append(parts, validationError.Field+": "+validationError.Message)
	}
	return "validation_failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (validationErrors *ValidationErrors) Add(field string, message string) {
	*validationErrors = append(*validationErrors, ValidationError{Field: field, Message: message})
}

// Fields returns the rejected field names in order.
func (validationErrors ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(validationErrors))
	for _, validationError := range validationErrors {
		fields = append(fields, validationError.Field)
	}
	return fields
}

// OrNil returns nil when no field errors were recorded.
func (validationErrors ValidationErrors) OrNil() error {
	if len(validationErrors) == 0 {
		return nil
	}
	return validationErrors
}
