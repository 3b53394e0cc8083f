// Package validator adapts go-playground/validator for the service. One
// instance backs echo request binding; pkg/config runs the startup
// configuration check through the same code path.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator implements echo.Validator over struct validate tags.
type CustomValidator struct {
	v *validator.Validate
}

// New creates a CustomValidator with the default tag set.
func New() *CustomValidator {
	return &CustomValidator{v: validator.New()}
}

// Validate checks i against its validate tags. Violations are flattened
// into a single error naming each offending field and the tag it failed.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("validation: %s", strings.Join(parts, "; "))
}
