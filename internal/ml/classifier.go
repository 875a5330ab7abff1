package ml

// Classifier is a trainable multi-class probability model. Implementations
// must be JSON-serializable so the registry can persist them.
type Classifier interface {
	// Fit trains the model on standardized rows and class-index labels.
	Fit(rows [][]float64, labels []int) error
	// Proba returns one probability per class for a standardized row.
	Proba(row []float64) ([]float64, error)
	// Classes returns the number of classes the model predicts.
	Classes() int
	// Kind identifies the concrete model family for persistence.
	Kind() string
}

// Argmax returns the index of the largest probability.
func Argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

// Accuracy is the fraction of predictions matching the true labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	hits := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue))
}
