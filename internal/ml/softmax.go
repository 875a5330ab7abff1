package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// KindSoftmax names the multinomial logistic regression family.
const KindSoftmax = "softmax"

// Softmax is a multinomial logistic regression classifier trained with
// full-batch gradient descent on the cross-entropy loss. Used for bet
// types with more than two outcomes.
type Softmax struct {
	NumClasses int `json:"num_classes"`
	// Weights is row-major with one row of feature weights per class.
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
	Iters   int         `json:"iters"`
	LR      float64     `json:"lr"`
	L2      float64     `json:"l2"`
}

// NewSoftmax creates a classifier for the given number of classes with
// default training hyperparameters.
func NewSoftmax(classes int) *Softmax {
	return &Softmax{NumClasses: classes, Iters: 500, LR: 0.1, L2: 1e-4}
}

// Fit trains on standardized rows with labels in [0, NumClasses).
func (s *Softmax) Fit(rows [][]float64, labels []int) error {
	if len(rows) == 0 {
		return fmt.Errorf("softmax fit: no rows")
	}
	if len(rows) != len(labels) {
		return fmt.Errorf("softmax fit: %d rows but %d labels", len(rows), len(labels))
	}
	n := len(rows)
	d := len(rows[0])
	k := s.NumClasses
	if k < 2 {
		return fmt.Errorf("softmax fit: need at least 2 classes, have %d", k)
	}
	for _, y := range labels {
		if y < 0 || y >= k {
			return fmt.Errorf("softmax fit: label %d outside [0,%d)", y, k)
		}
	}

	flat := make([]float64, 0, n*d)
	for _, row := range rows {
		if len(row) != d {
			return fmt.Errorf("softmax fit: ragged rows")
		}
		flat = append(flat, row...)
	}
	x := mat.NewDense(n, d, flat)

	oneHot := mat.NewDense(n, k, nil)
	for i, y := range labels {
		oneHot.Set(i, y, 1)
	}

	w := mat.NewDense(d, k, nil)
	bias := make([]float64, k)

	logits := mat.NewDense(n, k, nil)
	probs := mat.NewDense(n, k, nil)
	grad := mat.NewDense(d, k, nil)

	for iter := 0; iter < s.Iters; iter++ {
		logits.Mul(x, w)

		// Row-wise softmax with the usual max shift for stability.
		for i := 0; i < n; i++ {
			maxZ := math.Inf(-1)
			for j := 0; j < k; j++ {
				z := logits.At(i, j) + bias[j]
				logits.Set(i, j, z)
				if z > maxZ {
					maxZ = z
				}
			}
			sum := 0.0
			for j := 0; j < k; j++ {
				e := math.Exp(logits.At(i, j) - maxZ)
				probs.Set(i, j, e)
				sum += e
			}
			for j := 0; j < k; j++ {
				probs.Set(i, j, probs.At(i, j)/sum)
			}
		}

		probs.Sub(probs, oneHot)
		grad.Mul(x.T(), probs)

		scale := s.LR / float64(n)
		for r := 0; r < d; r++ {
			for c := 0; c < k; c++ {
				updated := w.At(r, c) - scale*grad.At(r, c) - s.LR*s.L2*w.At(r, c)
				w.Set(r, c, updated)
			}
		}
		for j := 0; j < k; j++ {
			colSum := 0.0
			for i := 0; i < n; i++ {
				colSum += probs.At(i, j)
			}
			bias[j] -= scale * colSum
		}
	}

	s.Weights = make([][]float64, k)
	for j := 0; j < k; j++ {
		s.Weights[j] = make([]float64, d)
		for r := 0; r < d; r++ {
			s.Weights[j][r] = w.At(r, j)
		}
	}
	s.Bias = bias
	return nil
}

// Proba returns one probability per class for a standardized row.
func (s *Softmax) Proba(row []float64) ([]float64, error) {
	if len(s.Weights) == 0 {
		return nil, fmt.Errorf("softmax proba: model not fitted")
	}
	if len(row) != len(s.Weights[0]) {
		return nil, fmt.Errorf("softmax proba: row has %d features, model has %d", len(row), len(s.Weights[0]))
	}

	logits := make([]float64, s.NumClasses)
	maxZ := math.Inf(-1)
	for j, w := range s.Weights {
		z := s.Bias[j]
		for r, x := range row {
			z += w[r] * x
		}
		logits[j] = z
		if z > maxZ {
			maxZ = z
		}
	}

	sum := 0.0
	for j, z := range logits {
		logits[j] = math.Exp(z - maxZ)
		sum += logits[j]
	}
	for j := range logits {
		logits[j] /= sum
	}
	return logits, nil
}

// Classes returns the number of classes the model predicts.
func (s *Softmax) Classes() int { return s.NumClasses }

// Kind returns the model family identifier.
func (s *Softmax) Kind() string { return KindSoftmax }
