// Package ml implements the in-process model math for the prediction
// pipeline: feature standardization, binary and multinomial logistic
// classifiers, and the stratified split used for held-out evaluation.
// The numeric heavy lifting is done with gonum.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes feature rows to zero mean and unit variance per
// column. The column list captured at fit time is the authoritative
// schema for the model trained alongside it.
type Scaler struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation over the
// given rows. Rows must all have len(columns) values.
func FitScaler(columns []string, rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: no rows")
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("fit scaler: row %d has %d values, want %d", i, len(r), len(columns))
		}
	}

	s := &Scaler{
		Columns: append([]string(nil), columns...),
		Mean:    make([]float64, len(columns)),
		Std:     make([]float64, len(columns)),
	}

	col := make([]float64, len(rows))
	for j := range columns {
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		s.Mean[j] = mean
		// A constant column scales by 1 so it passes through as zero.
		if std == 0 || std != std {
			std = 1
		}
		s.Std[j] = std
	}
	return s, nil
}

// Transform standardizes a single row in place-compatible fashion,
// returning a new slice.
func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Columns) {
		return nil, fmt.Errorf("transform: row has %d values, scaler expects %d", len(row), len(s.Columns))
	}
	out := make([]float64, len(row))
	for j, x := range row {
		out[j] = (x - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll standardizes a batch of rows.
func (s *Scaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		t, err := s.Transform(r)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
