package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate //nolint:gochecknoglobals // built once, safe for concurrent use
	validateOnce sync.Once           //nolint:gochecknoglobals // guards validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			_, err := semver.StrictNewVersion(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks c for out-of-range or malformed values and reports every
// problem at once.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "semver":
		return fmt.Sprintf("%s must be a semantic version (e.g. 1.0.0)", field)
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL", field)
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
