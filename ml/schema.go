package ml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FieldKind describes how a feature is collected and encoded.
type FieldKind string

const (
	// KindSlider is an integer value picked from a bounded range.
	KindSlider FieldKind = "slider"
	// KindChoice is a two-valued choice encoded as 1 (first option) or 0.
	KindChoice FieldKind = "choice"
	// KindNumber is a free-form continuous value.
	KindNumber FieldKind = "number"
)

// LabelColumn is the dataset column holding the 0/1 disease label.
const LabelColumn = "classes"

// Field is one named, typed feature column.
type Field struct {
	Name    string    `json:"name"`
	Kind    FieldKind `json:"kind"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Default float64   `json:"default"`
	// Options holds the two choices of a KindChoice field. Options[0] encodes to 1.
	Options []string `json:"options,omitempty"`
}

// Schema is the ordered list of features shared by training and inference.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Input is a feature row keyed by field name.
type Input map[string]float64

var yesNo = []string{"Yes", "No"}

// ThyroidSchema returns the 21 thyroid features in training column order.
func ThyroidSchema() Schema {
	flag := func(name string) Field {
		return Field{Name: name, Kind: KindChoice, Default: 1, Options: yesNo}
	}
	lab := func(name string) Field {
		return Field{Name: name, Kind: KindNumber, Default: 0}
	}
	return Schema{Fields: []Field{
		{Name: "age", Kind: KindSlider, Min: 1, Max: 100, Default: 50},
		{Name: "sex", Kind: KindChoice, Default: 1, Options: []string{"Male", "Female"}},
		flag("on thyroxine"),
		flag("query on thyroxine"),
		flag("on antithyroid medication"),
		flag("sick"),
		flag("pregnant"),
		flag("thyroid surgery"),
		flag("I131 treatment"),
		flag("query hypothyroid"),
		flag("query hyperthyroid"),
		flag("lithium"),
		flag("goitre"),
		flag("tumor"),
		flag("hypopituitary"),
		flag("psych"),
		lab("TSH"),
		lab("T3"),
		lab("TT4"),
		lab("T4U"),
		lab("FTI"),
	}}
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of features.
func (s Schema) Len() int {
	return len(s.Fields)
}

// Index returns the position of the named field, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Equal reports whether both schemas list the same names and kinds in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i].Name != other.Fields[i].Name || s.Fields[i].Kind != other.Fields[i].Kind {
			return false
		}
	}
	return true
}

// Validate checks the schema for duplicate or malformed fields.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New("schema has no fields")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return errors.New("schema field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate schema field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Kind == KindChoice && len(f.Options) != 2 {
			return fmt.Errorf("choice field %q needs exactly two options", f.Name)
		}
	}
	return nil
}

// Defaults returns an input with every field at its default value.
func (s Schema) Defaults() Input {
	in := make(Input, len(s.Fields))
	for _, f := range s.Fields {
		in[f.Name] = f.Default
	}
	return in
}

// Vector assembles the input into a row in schema order. Missing fields take
// their default value.
func (s Schema) Vector(in Input) []float64 {
	row := make([]float64, len(s.Fields))
	for i, f := range s.Fields {
		if v, ok := in[f.Name]; ok {
			row[i] = v
			continue
		}
		row[i] = f.Default
	}
	return row
}

// Encode converts a raw user value for the field into its numeric form.
// Choice fields accept either option label (case-insensitive) or "1"/"0".
// Empty values take the field default. Ranges are not enforced.
func (f Field) Encode(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return f.Default, nil
	}
	if f.Kind == KindChoice {
		switch {
		case strings.EqualFold(raw, f.Options[0]) || raw == "1":
			return 1, nil
		case strings.EqualFold(raw, f.Options[1]) || raw == "0":
			return 0, nil
		}
		return 0, fmt.Errorf("%s: expected %q or %q, got %q", f.Name, f.Options[0], f.Options[1], raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", f.Name, raw)
	}
	return v, nil
}

// Decode renders a numeric value back into the user-facing form.
func (f Field) Decode(v float64) string {
	if f.Kind == KindChoice {
		if v == 1 {
			return f.Options[0]
		}
		return f.Options[1]
	}
	if f.Kind == KindSlider {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
