package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThyroidTests(t *testing.T) {
	rows := ThyroidTests()
	require.Len(t, rows, 4)

	want := map[string]string{
		"TSH":                 "0.5 - 5.0 mIU/L",
		"Free T4 (Thyroxine)": "0.7 - 1.9 ng/dL",
		"Total T4":            "5.0 - 12.0 µg/dL",
		"Total T3":            "80 - 220 ng/dL",
	}
	for _, row := range rows {
		assert.Equal(t, want[row.Test], row.NormalRange, row.Test)
		assert.NotEmpty(t, row.Implications, row.Test)
	}
	assert.Equal(t, "TSH", rows[0].Test)
	assert.Equal(t, "Total T3", rows[3].Test)
	assert.Len(t, rows[3].Implications, 1)
}

func TestThyroidTestsIsolated(t *testing.T) {
	rows := ThyroidTests()
	rows[0].NormalRange = "changed"
	rows[0].Implications[0].Meaning = "changed"

	fresh := ThyroidTests()
	assert.Equal(t, "0.5 - 5.0 mIU/L", fresh[0].NormalRange)
	assert.Equal(t, "Possible hypothyroidism.", fresh[0].Implications[0].Meaning)
}
