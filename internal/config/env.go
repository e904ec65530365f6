package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// envKey joins prefix and key with an underscore, skipping empty parts.
func envKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "_" + key
}

// ParseEnvTags fills the struct pointed to by cfg from environment variables.
// Fields carry `env:"KEY"`, optional `default:"..."`, `required:"true"` and
// `separator:","` tags. Nested structs are walked with their own `env`
// tag appended to the prefix.
func ParseEnvTags(prefix string, cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.New("cfg must be a pointer to a struct")
	}
	return parseStruct(prefix, v.Elem())
}

func parseStruct(prefix string, v reflect.Value) error {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		key := fieldType.Tag.Get("env")
		if field.Kind() == reflect.Struct {
			if err := parseStruct(envKey(prefix, key), field); err != nil {
				return err
			}
			continue
		}
		if key == "" {
			continue
		}

		ek := envKey(prefix, key)
		value := os.Getenv(ek)
		if value == "" {
			if fieldType.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", ek)
			}
			value = fieldType.Tag.Get("default")
		}

		if err := setFieldValue(field, value, fieldType.Tag.Get("separator")); err != nil {
			return fmt.Errorf("set field %s from %s: %w", fieldType.Name, ek, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value, separator string) error {
	if value == "" {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("parse duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("parse int: %w", err)
		}
		field.SetInt(n)

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parse float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse bool: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		if separator == "" {
			separator = ","
		}
		parts := strings.Split(value, separator)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
