package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/praveenrathi4/complain-app/internal/domain"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

// Validator wraps go-playground/validator with the complaint domain's tags.
type Validator struct {
	validate *validator.Validate
}

// New builds a validator with the custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("complaint_category", func(fl validator.FieldLevel) bool {
		return domain.ComplaintCategory(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("complaint_priority", func(fl validator.FieldLevel) bool {
		return domain.ComplaintPriority(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("complaint_status", func(fl validator.FieldLevel) bool {
		return domain.ComplaintStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("password", validatePassword)

	return &Validator{validate: v}
}

// Struct validates s and converts failures into a VALIDATION_FAILED error
// carrying one item per offending field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("validation errors", nil)
	}
	items := make([]apperrors.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		items = append(items, apperrors.FieldError{Field: fieldPath(fe), Message: message(fe.Field(), fe)})
	}
	return apperrors.NewValidationError("validation errors", items)
}

// Var validates a single value against tag, reporting failures under name.
func (v *Validator) Var(name string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("validation errors", nil)
	}
	items := make([]apperrors.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		items = append(items, apperrors.FieldError{Field: name, Message: message(name, fe)})
	}
	return apperrors.NewValidationError("validation errors", items)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("%s cannot contain more than %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return "Please enter a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "complaint_category":
		return "Invalid category"
	case "complaint_priority":
		return "Invalid priority"
	case "complaint_status":
		return "Invalid status"
	case "user_role":
		return "Invalid role"
	case "password":
		return "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	case "latitude", "longitude":
		return fmt.Sprintf("%s is out of range", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

func validatePassword(fl validator.FieldLevel) bool {
	var upper, lower, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
