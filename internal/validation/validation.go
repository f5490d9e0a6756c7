// Package validation binds request bodies and turns validator failures into
// ordered field details.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"farm-backend/internal/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
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

	// decimals are compared as numbers so gt/gte/lte tags work on money fields
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		n, _ := d.Float64()
		return n
	}, decimal.Decimal{})

	// scale=N caps the fractional digits so a value survives its numeric(p,N) column unrounded
	_ = v.RegisterValidation("scale", func(fl validator.FieldLevel) bool {
		places, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return Places(toDecimal(fl.Field())) <= places
	})

	return v
}

func toDecimal(f reflect.Value) decimal.Decimal {
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(f.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(f.Int())
	}
	if d, ok := f.Interface().(decimal.Decimal); ok {
		return d
	}
	return decimal.Zero
}

// Places counts the significant fractional digits of d ("1.250" has 2).
func Places(d decimal.Decimal) int {
	s := d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// Struct validates v and returns a 400 with one detail per failing field, in declaration order.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return response.Internal(err)
	}

	details := make([]response.Detail, 0, len(ves))
	for _, fe := range ves {
		details = append(details, response.Detail{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return response.Validation(details...)
}

// Bind parses the JSON body into dst and validates it.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return response.Validation(response.Detail{Message: "Request body is not valid JSON"})
	}
	return Struct(dst)
}

// fieldPath drops the top-level struct name: "CreateInvoiceRequest.lineItems[0].quantity" -> "lineItems[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "ltefield":
		return "must not exceed " + fe.Param()
	case "scale":
		return fmt.Sprintf("must have at most %s decimal places", fe.Param())
	case "cron":
		return "must be a valid cron expression"
	default:
		return "is invalid"
	}
}

const dateLayout = "2006-01-02"

// ParseDate accepts "2006-01-02" or RFC3339 and reports failures against field.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, response.FieldError(field, "must be a date formatted as YYYY-MM-DD")
}

// ParseOptionalDate returns nil for a nil or blank value.
func ParseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
