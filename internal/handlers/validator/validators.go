package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationRule installs one custom tag on a validator.
type ValidationRule struct {
	Rule func(v *validator.Validate)
}

// Validator checks API inputs. Errors name fields by their JSON name, so the
// message matches what the caller sent.
type Validator struct {
	validate *validator.Validate
}

func NewValidator(rules ...ValidationRule) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return (&Validator{validate: v}).Register(rules...)
}

func (v *Validator) Register(rules ...ValidationRule) *Validator {
	for _, r := range rules {
		r.Rule(v.validate)
	}
	return v
}

func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		return toFieldError(err)
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
