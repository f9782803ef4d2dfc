package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"account-onboarding/internal/models"
)

var ErrInvalidInput = errors.New("INVALID_INPUT")

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// InputError is returned when a request fails format validation. It unwraps
// to ErrInvalidInput.
type InputError struct {
	Errors []ValidationError
}

func (e *InputError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput.Error(), strings.Join(parts, "; "))
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

var workflowInputSchema = gojsonschema.NewGoLoader(map[string]interface{}{
	"type": "object",
	"required": []string{
		"firstname", "lastname", "birthdate", "countryOfBirth", "countryOfResidence",
		"postalCode", "city", "street", "email", "idCardReference",
	},
	"properties": map[string]interface{}{
		"requestId":          map[string]interface{}{"type": "string", "maxLength": 128},
		"firstname":          nameProperty(),
		"lastname":           nameProperty(),
		"birthdate":          map[string]interface{}{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"countryOfBirth":     countryProperty(),
		"countryOfResidence": countryProperty(),
		"postalCode":         map[string]interface{}{"type": "string", "pattern": `^[0-9A-Za-z -]{2,10}$`},
		"city":               map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 100},
		"street":             map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 200},
		"email":              map[string]interface{}{"type": "string", "format": "email"},
		"idCardReference":    map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 1024},
		"callerConnectionId": map[string]interface{}{"type": "string"},
	},
})

func nameProperty() map[string]interface{} {
	return map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 100, "pattern": `\S`}
}

func countryProperty() map[string]interface{} {
	return map[string]interface{}{"type": "string", "pattern": `^[A-Z]{2}$`}
}

// ValidateWorkflowInput checks the request format. It is a precondition of
// starting an execution, not a workflow step.
func ValidateWorkflowInput(input models.WorkflowInput) *ValidationResult {
	result, err := gojsonschema.Validate(workflowInputSchema, gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "SCHEMA_ERROR",
			}},
		}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}

	if input.Birthdate != "" && len(errs) == 0 {
		if _, err := time.Parse("2006-01-02", input.Birthdate); err != nil {
			errs = append(errs, ValidationError{
				Field:   "birthdate",
				Message: "not a calendar date",
				Code:    "INVALID_DATE",
			})
		}
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Validate is ValidateWorkflowInput as an error.
func Validate(input models.WorkflowInput) error {
	result := ValidateWorkflowInput(input)
	if result.Valid {
		return nil
	}
	return &InputError{Errors: result.Errors}
}
