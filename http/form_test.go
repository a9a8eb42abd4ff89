package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thyroidcheck/ml"
)

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "On Thyroxine", fieldLabel("on thyroxine"))
	assert.Equal(t, "I131 Treatment", fieldLabel("I131 treatment"))
	assert.Equal(t, "TSH", fieldLabel("TSH"))
}

func TestParseForm(t *testing.T) {
	schema := ml.ThyroidSchema()
	values := url.Values{}
	values.Set("age", "34")
	values.Set("sex", "Female")
	values.Set("on_thyroxine", "No")
	values.Set("TSH", "7.25")

	in, err := ParseForm(schema, values)
	require.NoError(t, err)
	assert.Equal(t, 34.0, in["age"])
	assert.Equal(t, 0.0, in["sex"])
	assert.Equal(t, 0.0, in["on thyroxine"])
	assert.Equal(t, 7.25, in["TSH"])
	// untouched fields keep the widget defaults
	assert.Equal(t, 1.0, in["pregnant"])
	assert.Equal(t, 0.0, in["FTI"])
	assert.Len(t, in, schema.Len())
}

func TestParseFormNoRangeChecks(t *testing.T) {
	values := url.Values{}
	values.Set("age", "250")
	values.Set("T3", "-4")

	in, err := ParseForm(ml.ThyroidSchema(), values)
	require.NoError(t, err)
	assert.Equal(t, 250.0, in["age"])
	assert.Equal(t, -4.0, in["T3"])
}

func TestParseFormRejectsBadValues(t *testing.T) {
	for name, values := range map[string]url.Values{
		"number": {"TSH": {"high"}},
		"choice": {"sick": {"maybe"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseForm(ml.ThyroidSchema(), values)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestParseJSON(t *testing.T) {
	schema := ml.ThyroidSchema()
	in, err := ParseJSON(schema, map[string]any{
		"age":               61.0,
		"sex":               "male",
		"on thyroxine":      false,
		"query_hypothyroid": true,
		"goitre":            "0",
		"TSH":               "3.1",
		"T4U":               nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 61.0, in["age"])
	assert.Equal(t, 1.0, in["sex"])
	assert.Equal(t, 0.0, in["on thyroxine"])
	assert.Equal(t, 1.0, in["query hypothyroid"])
	assert.Equal(t, 0.0, in["goitre"])
	assert.Equal(t, 3.1, in["TSH"])
	assert.Equal(t, 0.0, in["T4U"])

	_, err = ParseJSON(schema, map[string]any{"age": []any{1.0}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
