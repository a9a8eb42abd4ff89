package ml

import (
	"fmt"
	"math/rand"
	"strings"
)

// syntheticRows draws thyroid-shaped rows where elevated TSH marks disease.
func syntheticRows(n int, seed int64) ([][]float64, []int) {
	schema := ThyroidSchema()
	rng := rand.New(rand.NewSource(seed))
	features := make([][]float64, n)
	labels := make([]int, n)
	tsh := schema.Index("TSH")
	for i := 0; i < n; i++ {
		row := make([]float64, schema.Len())
		for j, f := range schema.Fields {
			switch f.Kind {
			case KindSlider:
				row[j] = float64(1 + rng.Intn(100))
			case KindChoice:
				row[j] = float64(rng.Intn(2))
			default:
				row[j] = rng.Float64() * 150
			}
		}
		row[tsh] = rng.Float64() * 12
		if row[tsh] > 6 {
			labels[i] = 1
		}
		features[i] = row
	}
	return features, labels
}

func syntheticCSV(n int, seed int64) string {
	schema := ThyroidSchema()
	features, labels := syntheticRows(n, seed)
	var b strings.Builder
	b.WriteString(strings.Join(append(schema.Names(), LabelColumn), ","))
	b.WriteString("\n")
	for i, row := range features {
		cells := make([]string, 0, len(row)+1)
		for _, v := range row {
			cells = append(cells, fmt.Sprintf("%g", v))
		}
		cells = append(cells, fmt.Sprintf("%d", labels[i]))
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// negativeBaseline is the all-flags-off row: male, age 50, labs at zero.
func negativeBaseline() Input {
	in := ThyroidSchema().Defaults()
	for _, f := range ThyroidSchema().Fields {
		if f.Kind == KindChoice {
			in[f.Name] = 0
		}
	}
	in["sex"] = 1
	in["age"] = 50
	return in
}
