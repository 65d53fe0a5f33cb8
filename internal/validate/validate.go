// Package validate checks decoded request bodies against their `validate`
// struct tags. Field names in errors follow the `json` tag.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// Error lists the failing fields of a request. Fields maps the JSON field
// name to the rule that failed.
type Error struct {
	Fields  map[string]string
	message string
}

func (e *Error) Error() string { return e.message }

type Validator struct {
	v             *validator.Validate
	defaultRegion string
}

// New builds a Validator. defaultRegion is the ISO country code used by the
// phone rule when the tag carries no region.
func New(defaultRegion string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	val := &Validator{v: v, defaultRegion: strings.ToUpper(defaultRegion)}
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("phone", val.phone)
	_ = v.RegisterValidation("decimal", decimalRule(func(decimal.Decimal) bool { return true }))
	_ = v.RegisterValidation("decimal_gt0", decimalRule(decimal.Decimal.IsPositive))
	_ = v.RegisterValidation("decimal_gte0", decimalRule(func(d decimal.Decimal) bool { return !d.IsNegative() }))
	_ = v.RegisterValidation("money", scaleRule(2, maxMoney))
	_ = v.RegisterValidation("qty", scaleRule(3, maxQty))
	return val
}

// Struct validates s. Rule failures come back as *Error; anything else means
// s was not a struct.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(verrs))}
	for i, fe := range verrs {
		name := fieldPath(fe)
		out.Fields[name] = fe.Tag()
		if i == 0 {
			out.message = message(name, fe)
		}
	}
	return out
}

// FormatPhone parses raw in region (or the default region) and returns it
// in E.164 form.
func (val *Validator) FormatPhone(raw, region string) (string, error) {
	if region == "" {
		region = val.defaultRegion
	}
	p, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func (val *Validator) phone(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	_, err := val.FormatPhone(raw, strings.ToUpper(fl.Param()))
	return err == nil
}

// decimalRule accepts empty strings so that optional fields can combine it
// with omitempty or required as needed.
func decimalRule(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		if raw == "" {
			return true
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return false
		}
		return ok(d)
	}
}

// Bounds of NUMERIC(12,2) and NUMERIC(14,3) columns.
var (
	maxMoney = decimal.RequireFromString("9999999999.99")
	maxQty   = decimal.RequireFromString("99999999999.999")
)

// scaleRule accepts plain decimals with at most places fractional digits
// and an absolute value no larger than limit. Exponent notation is refused.
func scaleRule(places int32, limit decimal.Decimal) validator.Func {
	return func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		if raw == "" {
			return true
		}
		if strings.ContainsAny(raw, "eE") {
			return false
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return false
		}
		return d.Equal(d.Truncate(places)) && d.Abs().LessThanOrEqual(limit)
	}
}

// fieldPath drops the top-level struct name from the namespace so nested
// fields read as items[0].quantity.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "decimal":
		return name + " must be a decimal number"
	case "decimal_gt0":
		return name + " must be a decimal greater than 0"
	case "decimal_gte0":
		return name + " must be a decimal of 0 or more"
	case "money":
		return name + " must have at most 2 decimal places and be at most 9999999999.99"
	case "qty":
		return name + " must have at most 3 decimal places and be at most 99999999999.999"
	case "phone":
		return name + " must be a valid phone number"
	case "email":
		return name + " must be a valid email"
	case "uuid", "uuid4":
		return name + " must be a valid UUID"
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}
