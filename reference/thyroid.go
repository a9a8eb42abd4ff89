// Package reference holds the static thyroid lab reference table shown next
// to the prediction form.
package reference

// Implication is one abnormal-level finding for a lab test.
type Implication struct {
	Level   string `json:"level"`
	Meaning string `json:"meaning"`
}

// LabTest is one row of the reference table.
type LabTest struct {
	Test         string        `json:"test"`
	NormalRange  string        `json:"normal_range"`
	Implications []Implication `json:"implications"`
}

// ThyroidTests returns the four reference rows in display order. The slice is
// freshly allocated on every call so callers cannot alter the table.
func ThyroidTests() []LabTest {
	return []LabTest{
		{
			Test:        "TSH",
			NormalRange: "0.5 - 5.0 mIU/L",
			Implications: []Implication{
				{Level: "High TSH", Meaning: "Possible hypothyroidism."},
				{Level: "Low TSH", Meaning: "Possible hyperthyroidism."},
			},
		},
		{
			Test:        "Free T4 (Thyroxine)",
			NormalRange: "0.7 - 1.9 ng/dL",
			Implications: []Implication{
				{Level: "Low Free T4", Meaning: "Possible hypothyroidism."},
				{Level: "High Free T4", Meaning: "Possible hyperthyroidism."},
			},
		},
		{
			Test:        "Total T4",
			NormalRange: "5.0 - 12.0 µg/dL",
			Implications: []Implication{
				{Level: "Low Total T4", Meaning: "Possible hypothyroidism"},
				{Level: "High Total T4", Meaning: "Possible hyperthyroidism"},
			},
		},
		{
			Test:        "Total T3",
			NormalRange: "80 - 220 ng/dL",
			Implications: []Implication{
				{Level: "High Total T3", Meaning: "Possible hyperthyroidism."},
			},
		},
	}
}

// Disclaimer is printed under every prediction page.
const Disclaimer = "Note: Please consult with a healthcare professional for accurate diagnosis and treatment."
