package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// ErrLabelColumnMissing is returned when a dataset has no label column.
var ErrLabelColumnMissing = errors.New("label column missing")

// Dataset is a labeled feature table whose columns follow a Schema.
type Dataset struct {
	Columns  []string
	Features [][]float64
	Labels   []int
}

func (d *Dataset) Len() int {
	return len(d.Labels)
}

// ClassBalance counts rows per label.
func (d *Dataset) ClassBalance() map[int]int {
	balance := make(map[int]int)
	for _, label := range d.Labels {
		balance[label]++
	}
	return balance
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path string, schema Schema, labelColumn string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file, schema, labelColumn)
}

// ReadCSV parses a header row followed by numeric rows. Columns are bound by
// name, so the file may list them in any order and carry extra columns; the
// resulting feature rows always follow the schema order.
func ReadCSV(r io.Reader, schema Schema, labelColumn string) (*Dataset, error) {
	if labelColumn == "" {
		labelColumn = LabelColumn
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	position := make(map[string]int, len(header))
	for i, name := range header {
		position[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	labelIdx, ok := position[labelColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLabelColumnMissing, labelColumn)
	}
	columns := make([]int, schema.Len())
	for i, field := range schema.Fields {
		idx, ok := position[field.Name]
		if !ok {
			return nil, fmt.Errorf("feature column %q missing", field.Name)
		}
		columns[i] = idx
	}

	ds := &Dataset{Columns: schema.Names()}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, len(columns))
		for i, idx := range columns {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[idx], err)
			}
			row[i] = v
		}
		label, err := parseLabel(record[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d column %q: %w", line, labelColumn, err)
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, label)
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

func parseLabel(raw string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v != math.Trunc(v) {
		return 0, fmt.Errorf("label %v is not a class index", v)
	}
	return int(v), nil
}

// Split is a train/holdout partition.
type Split struct {
	TrainX [][]float64
	TrainY []int
	TestX  [][]float64
	TestY  []int
}

// SplitDataset shuffles rows with a seeded source and holds out testRatio of
// them. The same inputs and seed always produce the same partition. A ratio
// outside (0,1) falls back to 0.2.
func SplitDataset(features [][]float64, labels []int, testRatio float64, seed int64) Split {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	testSize := int(math.Ceil(float64(len(features)) * testRatio))
	split := len(features) - testSize
	var s Split
	for i, idx := range indices {
		if i < split {
			s.TrainX = append(s.TrainX, features[idx])
			s.TrainY = append(s.TrainY, labels[idx])
		} else {
			s.TestX = append(s.TestX, features[idx])
			s.TestY = append(s.TestY, labels[idx])
		}
	}
	return s
}
