package scenario

import (
	"fmt"
	"math"
)

// RenewableShare derives the per-hour fraction of generation that is renewable,
// clipped to [0,1]. Hours with zero or negative generation yield a share of 0
// so that a division by zero never surfaces as NaN or Inf downstream.
func RenewableShare(renewable, generation []float64) ([]float64, error) {
	if len(renewable) != len(generation) {
		return nil, fmt.Errorf("renewable share: %d renewable values vs %d generation values", len(renewable), len(generation))
	}

	out := make([]float64, len(renewable))
	for i := range renewable {
		if generation[i] <= 0 {
			continue
		}
		share := renewable[i] / generation[i]
		if math.IsNaN(share) || math.IsInf(share, 0) {
			continue
		}
		out[i] = math.Min(math.Max(share, 0.0), 1.0)
	}
	return out, nil
}
