package sequence

import "github.com/mesh-intelligence/proyek/pkg/types"

// WithinLimit reports whether the candidate set of weights sums to at most
// types.MaxTotalWeight.
func WithinLimit(weights []float64) bool {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum <= types.MaxTotalWeight+types.WeightEpsilon
}

// TotalWeight sums the weights of all stages.
func TotalWeight(stages []types.Stage) float64 {
	var sum float64
	for _, s := range stages {
		sum += s.Weight
	}
	return sum
}

// Remaining returns how much weight can still be allocated, ignoring the
// stage with excludeID (pass "" to count every stage). Never negative.
func Remaining(stages []types.Stage, excludeID string) float64 {
	var sum float64
	for _, s := range stages {
		if excludeID != "" && s.StageID == excludeID {
			continue
		}
		sum += s.Weight
	}
	rem := types.MaxTotalWeight - sum
	if rem < 0 {
		return 0
	}
	return rem
}

// checkWeight runs WithinLimit over the post-change weights: every stage
// except excludeID, plus the candidate weight.
func checkWeight(stages []types.Stage, excludeID string, weight float64) error {
	weights := make([]float64, 0, len(stages)+1)
	for _, s := range stages {
		if excludeID != "" && s.StageID == excludeID {
			continue
		}
		weights = append(weights, s.Weight)
	}
	weights = append(weights, weight)
	if WithinLimit(weights) {
		return nil
	}
	return &types.WeightExceededError{
		Requested: weight,
		Remaining: Remaining(stages, excludeID),
	}
}
