// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	fieldPathPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)
	collectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)
)

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the document-path rules registered:
//
//	fieldpath   dot separated segments of [A-Za-z0-9_-]
//	collection  lower-case collection name
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("fieldpath", func(fl validator.FieldLevel) bool {
		return IsFieldPath(fl.Field().String())
	})
	_ = v.RegisterValidation("collection", func(fl validator.FieldLevel) bool {
		return IsCollectionName(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// IsFieldPath reports whether path is a safe dotted document path.
func IsFieldPath(path string) bool {
	return fieldPathPattern.MatchString(path)
}

// IsCollectionName reports whether name is a valid collection name.
func IsCollectionName(name string) bool {
	return collectionPattern.MatchString(name)
}
