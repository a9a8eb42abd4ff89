package ml

import "context"

type MLModel interface {
	Train(features [][]float64, labels []int) error
	Predict(features []float64) (int, float64, error)
	Save(path string) error
	Load(path string) error
}

// ModelProvider predicts from a named feature row.
type ModelProvider interface {
	Predict(ctx context.Context, in Input) (Prediction, error)
}

// Prediction is the outcome of one inference call.
type Prediction struct {
	Label      int       `json:"label"`
	Confidence float64   `json:"confidence"`
	Features   []float64 `json:"features"`
}

// Positive reports whether the model flagged thyroid disease.
func (p Prediction) Positive() bool {
	return p.Label == 1
}

// Outcome returns "positive" for label 1 and "negative" otherwise.
func (p Prediction) Outcome() string {
	if p.Positive() {
		return "positive"
	}
	return "negative"
}
