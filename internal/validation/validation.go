// Package validation проверяет входные DTO с помощью тегов validate.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldError описывает нарушение правила для одного поля.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Errors содержит нарушения, найденные в одной структуре.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator проверяет структуры. Имена полей в ошибках берутся из json-тегов.
type Validator struct {
	v *validator.Validate
}

// New создаёт Validator с правилами document и plate.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	_ = v.RegisterValidation("document", func(fl validator.FieldLevel) bool {
		return IsValidDocumentID(fl.Field().String())
	})
	_ = v.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
		return IsValidPlate(fl.Field().String())
	})

	return &Validator{v: v}
}

// Struct проверяет s и возвращает Errors, если нарушено хотя бы одно правило.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	res := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		res = append(res, FieldError{Field: fe.Field(), Reason: reason(fe)})
	}
	return res
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "document":
		return "must contain 5 to 15 digits"
	case "plate":
		return "must contain 3 to 10 letters or digits"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// IsValidDocumentID проверяет номер документа: от 5 до 15 цифр ASCII.
func IsValidDocumentID(doc string) bool {
	if len(doc) < 5 || len(doc) > 15 {
		return false
	}
	for i := 0; i < len(doc); i++ {
		if doc[i] < '0' || doc[i] > '9' {
			return false
		}
	}
	return true
}

// IsValidPlate проверяет номер автомобиля. Пробелы и дефисы игнорируются, регистр не важен.
func IsValidPlate(plate string) bool {
	n := 0
	for _, ch := range plate {
		switch {
		case ch == ' ' || ch == '-':
			continue
		case ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch)):
			n++
		default:
			return false
		}
	}
	return n >= 3 && n <= 10
}
