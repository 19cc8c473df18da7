// Package validation wraps go-playground/validator and converts its failures into domain.ValidationError.
package validation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"eventsignup/internal/domain"
)

var (
	once   sync.Once
	global *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	once.Do(func() {
		global = validator.New(validator.WithRequiredStructEnabled())
		_ = global.RegisterValidation("notblank", notBlank)
	})
	return global
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Struct validates s and returns a *domain.ValidationError listing every failing field, or nil.
func Struct(ctx context.Context, s any) error {
	err := Validator().StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return domain.NewValidationError("input", err.Error())
	}
	out := &domain.ValidationError{}
	for _, fe := range vErrs {
		out.Add(snakeCase(fe.Field()), message(fe))
	}
	return out
}

// Var validates a single value against tag and reports failures under field.
func Var(ctx context.Context, field string, value any, tag string) error {
	err := Validator().VarCtx(ctx, value, tag)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return domain.NewValidationError(field, err.Error())
	}
	return domain.NewValidationError(field, message(vErrs[0]))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "is invalid"
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(s[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
