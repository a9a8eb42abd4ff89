package ml

// Metrics summarizes holdout performance for the positive class (label 1).
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Samples   int     `json:"samples"`
}

// Predictor is the inference half of MLModel.
type Predictor interface {
	Predict(features []float64) (int, float64, error)
}

func Evaluate(model Predictor, testX [][]float64, testY []int) Metrics {
	if len(testX) == 0 {
		return Metrics{}
	}

	var correct int
	var truePositive int
	var predictedPositive int
	var actualPositive int
	var evaluated int

	for i, feature := range testX {
		label, _, err := model.Predict(feature)
		if err != nil {
			continue
		}
		evaluated++
		if label == testY[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if testY[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	m := Metrics{Samples: evaluated}
	if evaluated == 0 {
		return m
	}
	m.Accuracy = float64(correct) / float64(evaluated)
	if predictedPositive > 0 {
		m.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		m.Recall = float64(truePositive) / float64(actualPositive)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
