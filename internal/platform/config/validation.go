package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their koanf key so messages name the
// setting an operator would edit, e.g. catalog.load_concurrency.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}

		return name
	})

	return v
}

// Validate checks field constraints and the rules that span sections.
// Every problem found is reported, not just the first.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		for _, fe := range fieldErrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	problems = append(problems, c.crossFieldProblems()...)

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(problems, "\n  "))
}

func (c *Config) crossFieldProblems() []string {
	var problems []string

	switch c.Storage.Driver {
	case StorageSQLite:
		if c.Storage.SQLite.Path == "" {
			problems = append(problems, "storage.sqlite.path is required when storage.driver is sqlite")
		}
	case StoragePostgres:
		if c.Storage.Postgres.DSN == "" {
			problems = append(problems, "storage.postgres.dsn is required when storage.driver is postgres")
		}
	}

	if c.Catalog.Watch {
		if c.Catalog.File == "" {
			problems = append(problems, "catalog.file is required when catalog.watch is enabled")
		}

		if c.Storage.Driver != StorageMemory {
			problems = append(problems, "catalog.watch requires storage.driver memory")
		}
	}

	return problems
}

func describeFieldError(fe validator.FieldError) string {
	key := settingKey(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", key, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "url":
		return key + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed validation: %s", key, fe.Tag())
	}
}

// settingKey drops the root struct from "Config.catalog.load_concurrency".
func settingKey(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}

	return namespace
}
