package logistics

import (
	"math"

	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// Utilization holds capacity consumption as percentages of a container's
// maxima, rounded to three decimals.
type Utilization struct {
	WeightPct float64
	VolumePct float64
}

// Round3 rounds to three decimals, the precision persisted on plans and
// analyses.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ComputeUtilization returns weight and volume consumption percentages.
// A zero or negative maximum yields 0 for that dimension rather than a
// division blowup.
func ComputeUtilization(totalWeightKg, totalVolumeM3, maxWeightKg, maxVolumeM3 float64) Utilization {
	u := Utilization{}
	if maxWeightKg > 0 {
		u.WeightPct = Round3(totalWeightKg / maxWeightKg * 100)
	}
	if maxVolumeM3 > 0 {
		u.VolumePct = Round3(totalVolumeM3 / maxVolumeM3 * 100)
	}
	return u
}

// DetectLimitingFactor classifies which dimension is closer to saturation.
// Percentages within epsilon of each other count as jointly limiting.
func DetectLimitingFactor(weightPct, volumePct, epsilon float64) enums.LimitingFactor {
	if math.Abs(weightPct-volumePct) <= epsilon {
		return enums.LimitingFactorBoth
	}
	if weightPct > volumePct {
		return enums.LimitingFactorWeight
	}
	return enums.LimitingFactorVolume
}

// CandidatePressure scores how much of the remaining capacity a candidate
// would consume: the max of the per-dimension consumption ratios. A
// dimension with no remaining capacity is non-binding, not infinite.
func CandidatePressure(totalWeightKg, totalVolumeM3, remainingWeightKg, remainingVolumeM3 float64) float64 {
	pressure := 0.0
	if remainingWeightKg > 0 {
		pressure = totalWeightKg / remainingWeightKg
	}
	if remainingVolumeM3 > 0 {
		if p := totalVolumeM3 / remainingVolumeM3; p > pressure {
			pressure = p
		}
	}
	return pressure
}
