package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// KindLogistic names the binary logistic regression family.
const KindLogistic = "logistic"

// Logistic is a binary logistic regression classifier trained with
// full-batch gradient descent and L2 regularization. Weights start at
// zero, so training is deterministic.
type Logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Iters   int       `json:"iters"`
	LR      float64   `json:"lr"`
	L2      float64   `json:"l2"`
}

// NewLogistic creates a classifier with default training hyperparameters.
func NewLogistic() *Logistic {
	return &Logistic{Iters: 500, LR: 0.1, L2: 1e-4}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Fit trains on standardized rows with labels in {0, 1}.
func (l *Logistic) Fit(rows [][]float64, labels []int) error {
	if len(rows) == 0 {
		return fmt.Errorf("logistic fit: no rows")
	}
	if len(rows) != len(labels) {
		return fmt.Errorf("logistic fit: %d rows but %d labels", len(rows), len(labels))
	}
	for _, y := range labels {
		if y != 0 && y != 1 {
			return fmt.Errorf("logistic fit: label %d outside {0,1}", y)
		}
	}

	n := len(rows)
	d := len(rows[0])
	l.Weights = make([]float64, d)
	l.Bias = 0

	grad := make([]float64, d)
	for iter := 0; iter < l.Iters; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		biasGrad := 0.0

		for i, row := range rows {
			p := sigmoid(floats.Dot(l.Weights, row) + l.Bias)
			diff := p - float64(labels[i])
			floats.AddScaled(grad, diff, row)
			biasGrad += diff
		}

		scale := l.LR / float64(n)
		for j := range l.Weights {
			l.Weights[j] -= scale*grad[j] + l.LR*l.L2*l.Weights[j]
		}
		l.Bias -= scale * biasGrad
	}
	return nil
}

// Proba returns [P(class 0), P(class 1)] for a standardized row.
func (l *Logistic) Proba(row []float64) ([]float64, error) {
	if len(row) != len(l.Weights) {
		return nil, fmt.Errorf("logistic proba: row has %d features, model has %d", len(row), len(l.Weights))
	}
	p := sigmoid(floats.Dot(l.Weights, row) + l.Bias)
	return []float64{1 - p, p}, nil
}

// Classes returns 2.
func (l *Logistic) Classes() int { return 2 }

// Kind returns the model family identifier.
func (l *Logistic) Kind() string { return KindLogistic }
