// Package schema validates create and update shapes before they reach a store.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

// ErrBadJSON wraps malformed request bodies, including unknown fields.
var ErrBadJSON = errors.New("invalid JSON body")

// ValidationErrors maps a JSON field path to a human readable message.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the domain tags registered.
func Validator() *validator.Validate {
	once.Do(func() { validate = newValidator() })
	return validate
}

var enumTags = map[string]func(string) bool{
	"substatus": func(s string) bool { return model.SubscriptionStatus(s).Valid() },
	"paymethod": func(s string) bool { return model.PaymentMethod(s).Valid() },
	"paystatus": func(s string) bool { return model.PaymentStatus(s).Valid() },
	"regstatus": func(s string) bool { return model.RegistrationStatus(s).Valid() },
	"platform":  func(s string) bool { return model.Platform(s).Valid() },
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if o, ok := field.Interface().(interface{ Get() any }); ok {
			return o.Get()
		}
		return nil
	},
		query.Optional[string]{},
		query.Optional[int64]{},
		query.Optional[float64]{},
		query.Optional[time.Time]{},
	)

	for tag, valid := range enumTags {
		v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
	}
	v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return isCurrency(fl.Field().String())
	})
	return v
}

func isCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Validate checks v against its validate tags. It returns ValidationErrors
// for rule violations and a plain error when v cannot be validated at all.
func Validate(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

// DecodeJSON reads a single JSON document into v, rejecting unknown fields.
func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrBadJSON)
	}
	return nil
}

// Decode is DecodeJSON followed by Validate.
func Decode(r io.Reader, v any) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return Validate(v)
}

// fieldPath drops the root struct name from the namespace: "items[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a UUID"
	case "datetime":
		return "must be a date formatted as " + fe.Param()
	case "currency":
		return "must be an upper-case ISO 4217 currency code"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return "must be at most " + fe.Param() + " characters"
		case reflect.Slice:
			return "must have at most " + fe.Param() + " items"
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "substatus":
		return "must be one of " + joinValues(model.SubscriptionStatuses)
	case "paymethod":
		return "must be one of " + joinValues(model.PaymentMethods)
	case "paystatus":
		return "must be one of " + joinValues(model.PaymentStatuses)
	case "regstatus":
		return "must be one of " + joinValues(model.RegistrationStatuses)
	case "platform":
		return "must be one of " + joinValues(model.Platforms)
	}
	return "failed " + fe.Tag() + " check"
}

func joinValues[T ~string](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, " ")
}
