package http

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thyroidcheck/ml"
)

// ErrInvalidInput wraps every input coercion failure.
var ErrInvalidInput = errors.New("invalid input")

var titleCaser = cases.Title(language.English, cases.NoLower)

// fieldLabel turns a column name into a form label: "on thyroxine" -> "On Thyroxine".
func fieldLabel(name string) string {
	return titleCaser.String(name)
}

// ParseForm reads one value per schema field from submitted form values.
// Absent fields take their default; no range checks are applied.
func ParseForm(schema ml.Schema, values url.Values) (ml.Input, error) {
	in := make(ml.Input, schema.Len())
	for _, field := range schema.Fields {
		v, err := field.Encode(values.Get(formKey(field.Name)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		in[field.Name] = v
	}
	return in, nil
}

// ParseJSON accepts a decoded JSON object keyed by field name (or its form
// key). Values may be numbers, booleans or strings such as "Yes"/"Male".
func ParseJSON(schema ml.Schema, payload map[string]any) (ml.Input, error) {
	in := make(ml.Input, schema.Len())
	for _, field := range schema.Fields {
		raw, ok := payload[field.Name]
		if !ok {
			raw, ok = payload[formKey(field.Name)]
		}
		if !ok || raw == nil {
			in[field.Name] = field.Default
			continue
		}
		var (
			v   float64
			err error
		)
		switch value := raw.(type) {
		case float64:
			v = value
		case bool:
			if value {
				v = 1
			}
		case string:
			v, err = field.Encode(value)
		default:
			err = fmt.Errorf("%s: unsupported value %v", field.Name, raw)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		in[field.Name] = v
	}
	return in, nil
}

// formKey maps a column name to an HTML-safe form key: "on thyroxine" -> "on_thyroxine".
func formKey(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
