package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vyrodovalexey/apimorph/internal/format"
	"github.com/vyrodovalexey/apimorph/internal/transform"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates service configuration. Struct tags are checked first,
// then the rules that span several fields.
type Validator struct {
	structs *validator.Validate
	errors  ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report paths with the YAML key names users write.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{structs: v}
}

// ValidateConfig validates a configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns any errors as
// ValidationErrors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateStruct(cfg)
	v.validateFormats(cfg)
	v.validateTransformers(cfg.Transformers)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateStruct(cfg *Config) {
	err := v.structs.Struct(cfg)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.addError("", err.Error())
		return
	}

	for _, fe := range fieldErrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		v.addError(path, describe(fe))
	}
}

// validateFormats checks format name uniqueness and that the default format
// resolves to a registered formatter.
func (v *Validator) validateFormats(cfg *Config) {
	seen := make(map[string]int, len(cfg.Formats))
	for i, f := range cfg.Formats {
		if f.Name == "" {
			continue
		}
		if first, dup := seen[f.Name]; dup {
			v.addError(fmt.Sprintf("formats[%d].name", i),
				fmt.Sprintf("duplicate format %q, first defined at formats[%d]", f.Name, first))
			continue
		}
		seen[f.Name] = i
	}

	def := cfg.Server.DefaultFormat
	if def == "" {
		return
	}
	available := cfg.FormatNames()
	if len(available) == 0 {
		available = format.Kinds()
	}
	if !slices.Contains(available, def) {
		v.addError("server.defaultFormat",
			fmt.Sprintf("format %q is not configured (available: %s)", def, strings.Join(available, ", ")))
	}
}

// validateTransformers checks resource uniqueness and builds each rule so
// that invalid filter expressions are reported at load time.
func (v *Validator) validateTransformers(transformers []TransformerConfig) {
	seen := make(map[string]bool, len(transformers))
	for i := range transformers {
		t := &transformers[i]
		path := fmt.Sprintf("transformers[%d]", i)

		if t.Resource == "" {
			continue
		}
		if seen[t.Resource] {
			v.addError(path+".resource", fmt.Sprintf("duplicate transformer for resource %q", t.Resource))
			continue
		}
		seen[t.Resource] = true

		if _, err := transform.NewRule(t.RuleConfig()); err != nil {
			v.addError(path, err.Error())
		}
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "excludesall":
		return fmt.Sprintf("must not contain any of %q", fe.Param())
	case "printascii":
		return "must contain printable ASCII characters only"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
