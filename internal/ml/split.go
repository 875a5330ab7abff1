package ml

import (
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions rows into train and test sets, keeping the
// per-label class proportions of the full dataset in both. The shuffle is
// seeded, so the same inputs always produce the same split. Labels with a
// single sample stay in the training set.
func StratifiedSplit(rows [][]float64, labels []int, testFrac float64, seed int64) (trainX, testX [][]float64, trainY, testY []int) {
	rng := rand.New(rand.NewSource(seed))

	byLabel := make(map[int][]int)
	for i, y := range labels {
		byLabel[y] = append(byLabel[y], i)
	}

	classes := make([]int, 0, len(byLabel))
	for y := range byLabel {
		classes = append(classes, y)
	}
	sort.Ints(classes)

	for _, y := range classes {
		idx := byLabel[y]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(testFrac * float64(len(idx))))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		if nTest < 0 {
			nTest = 0
		}

		for i, row := range idx {
			if i < nTest {
				testX = append(testX, rows[row])
				testY = append(testY, labels[row])
			} else {
				trainX = append(trainX, rows[row])
				trainY = append(trainY, labels[row])
			}
		}
	}
	return trainX, testX, trainY, testY
}
