package http

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"thyroidcheck/ml"
	"thyroidcheck/reference"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	pageTitle         = "Thyroid Disease Prediction"
	msgModelLoaded    = "Model loaded successfully."
	msgModelMissing   = "Model file not found. Please run train_model first."
	msgModelNotLoaded = "Model is not loaded."
	msgPositive       = "Prediction: Positive for Thyroid Disease"
	msgNegative       = "Prediction: Negative for Thyroid Disease"
)

// formControl is one sidebar input.
type formControl struct {
	Key     string
	Label   string
	Kind    string
	Value   string
	Min     float64
	Max     float64
	Options []formOption
}

type formOption struct {
	Label    string
	Selected bool
}

type inputCell struct {
	Column string
	Value  string
}

type pageView struct {
	Title      string
	Loaded     bool
	Status     string
	Controls   []formControl
	InputRow   []inputCell
	Reference  []reference.LabTest
	Result     string
	Error      string
	Disclaimer string
}

func newPageView(schema ml.Schema, in ml.Input, status ModelStatus) pageView {
	view := pageView{
		Title:      pageTitle,
		Loaded:     status.Loaded,
		Status:     msgModelLoaded,
		Reference:  reference.ThyroidTests(),
		Disclaimer: reference.Disclaimer,
	}
	switch {
	case status.Loaded:
	case status.Missing:
		view.Status = msgModelMissing
	default:
		view.Status = "Model could not be loaded: " + status.Error
	}

	row := schema.Vector(in)
	for i, field := range schema.Fields {
		control := formControl{
			Key:   formKey(field.Name),
			Label: fieldLabel(field.Name),
			Kind:  string(field.Kind),
			Value: field.Decode(row[i]),
			Min:   field.Min,
			Max:   field.Max,
		}
		for _, opt := range field.Options {
			control.Options = append(control.Options, formOption{Label: opt, Selected: opt == control.Value})
		}
		view.Controls = append(view.Controls, control)
		view.InputRow = append(view.InputRow, inputCell{Column: field.Name, Value: formatCell(row[i])})
	}
	return view
}

// formatCell shows the value exactly as it enters the feature vector.
func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func resultLine(p ml.Prediction) string {
	if p.Positive() {
		return msgPositive
	}
	return msgNegative
}

func renderPage(w io.Writer, view pageView) error {
	return pageTemplate.Execute(w, view)
}
