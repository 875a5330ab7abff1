package ml

import (
	"math"
	"testing"
)

func TestFitScaler_MeanAndStd(t *testing.T) {
	cols := []string{"a", "b"}
	rows := [][]float64{
		{1, 10},
		{2, 10},
		{3, 10},
	}

	s, err := FitScaler(cols, rows)
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}

	if s.Mean[0] != 2 {
		t.Errorf("mean[0] = %v, want 2", s.Mean[0])
	}
	// Constant column: std forced to 1 so transform passes zeros through.
	if s.Std[1] != 1 {
		t.Errorf("std[1] = %v, want 1 for constant column", s.Std[1])
	}

	out, err := s.Transform([]float64{2, 10})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("transform of the mean row = %v, want zeros", out)
	}
}

func TestScaler_TransformRoundTrip(t *testing.T) {
	cols := []string{"x"}
	rows := [][]float64{{2}, {4}, {6}, {8}}

	s, err := FitScaler(cols, rows)
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}

	scaled, err := s.TransformAll(rows)
	if err != nil {
		t.Fatalf("TransformAll: %v", err)
	}

	var sum float64
	for _, r := range scaled {
		sum += r[0]
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("standardized column sum = %v, want ~0", sum)
	}
}

func TestScaler_DimensionMismatch(t *testing.T) {
	s, err := FitScaler([]string{"a", "b"}, [][]float64{{1, 2}})
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}
	if _, err := s.Transform([]float64{1}); err == nil {
		t.Error("expected error for row narrower than scaler schema")
	}
}

func TestFitScaler_Empty(t *testing.T) {
	if _, err := FitScaler([]string{"a"}, nil); err == nil {
		t.Error("expected error for empty fit")
	}
}
