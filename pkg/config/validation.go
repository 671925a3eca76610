package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a single problem in the settings file
type ValidationError struct {
	// ItemName names the offending source, if any
	ItemName  string
	FieldPath string
	Message   string
}

// ValidationErrors collects every problem found in one pass
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("source_uri", validateSourceURI); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateSourceURI accepts http(s) and file URLs and plain file paths
func validateSourceURI(fl validator.FieldLevel) bool {
	return IsSourceURI(fl.Field().String())
}

// IsSourceURI reports whether value names something the fetcher can open
func IsSourceURI(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	if !strings.Contains(value, "://") {
		return true
	}

	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "file":
		return u.Path != ""
	}
	return false
}

// Validate checks the settings and returns ErrNoSources or ValidationErrors
func (s *Settings) Validate() error {
	if len(s.Filters.Sources) == 0 {
		return ErrNoSources
	}

	var validationErrors ValidationErrors
	if err := validate.Struct(s); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, s)...)
	}

	seen := make(map[string]bool, len(s.Filters.Sources))
	for i, item := range s.Filters.Sources {
		if seen[item.URI] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  item.URI,
				FieldPath: fmt.Sprintf("Filters.Sources[%d].Uri", i),
				Message:   "duplicate source",
			})
		}
		seen[item.URI] = true
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

func convertValidatorErrors(err error, s *Settings) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return ValidationErrors{{FieldPath: "settings", Message: err.Error()}}
	}

	for _, e := range validatorErrs {
		// Namespace is "Settings.Filters.Sources[0].Uri"; drop the root type name.
		fieldPath := e.Namespace()
		if i := strings.IndexByte(fieldPath, '.'); i >= 0 {
			fieldPath = fieldPath[i+1:]
		}

		validationErrors = append(validationErrors, ValidationError{
			ItemName:  itemName(fieldPath, s),
			FieldPath: fieldPath,
			Message:   validationMessage(e),
		})
	}
	return validationErrors
}

func itemName(fieldPath string, s *Settings) string {
	var idx int
	if _, err := fmt.Sscanf(fieldPath, "Filters.Sources[%d]", &idx); err != nil {
		return ""
	}
	if idx < 0 || idx >= len(s.Filters.Sources) || s.Filters.Sources[idx].URI == "" {
		return fmt.Sprintf("source[%d]", idx)
	}
	return s.Filters.Sources[idx].URI
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "source_uri":
		return fmt.Sprintf("%q is not an http(s) URL, file URL or path", e.Value())
	case "gte", "lte":
		return fmt.Sprintf("value %v is out of range", e.Value())
	}
	return fmt.Sprintf("failed on %q validation", e.Tag())
}
