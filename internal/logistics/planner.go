package logistics

import (
	"sort"

	"github.com/google/uuid"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// Candidate is one shipment weighed for admission to a load plan.
type Candidate struct {
	ShipmentID uuid.UUID
	Reference  string
	Customer   string
	WeightKg   float64
	VolumeM3   float64
	Incomplete bool
	Score      float64
}

// Rejection records why a candidate was not admitted.
type Rejection struct {
	Candidate Candidate
	Reason    enums.RejectionReason
}

// Suggestion is the outcome of one greedy packing pass.
type Suggestion struct {
	Selected          []Candidate
	Rejected          []Rejection
	RemainingWeightKg float64
	RemainingVolumeM3 float64
}

// SuggestShipments runs a single greedy best-fit-first pass: candidates
// with unknown weight or volume are rejected before scoring, the rest are
// scored by pressure against the remaining capacity as it stands before the
// pass, sorted most-constraining first, then admitted in order when they fit
// both dimensions. No backtracking, no alternate orderings; a better
// combination can be left on the table and that is accepted.
func SuggestShipments(candidates []Candidate, remainingWeightKg, remainingVolumeM3 float64) Suggestion {
	suggestion := Suggestion{
		RemainingWeightKg: remainingWeightKg,
		RemainingVolumeM3: remainingVolumeM3,
	}

	scored := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Incomplete || candidate.WeightKg <= 0 || candidate.VolumeM3 <= 0 {
			suggestion.Rejected = append(suggestion.Rejected, Rejection{
				Candidate: candidate,
				Reason:    enums.RejectionReasonIncomplete,
			})
			continue
		}
		candidate.Score = CandidatePressure(candidate.WeightKg, candidate.VolumeM3, remainingWeightKg, remainingVolumeM3)
		scored = append(scored, candidate)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	for _, candidate := range scored {
		overWeight := candidate.WeightKg > suggestion.RemainingWeightKg
		overVolume := candidate.VolumeM3 > suggestion.RemainingVolumeM3
		switch {
		case overWeight && overVolume:
			suggestion.Rejected = append(suggestion.Rejected, Rejection{Candidate: candidate, Reason: enums.RejectionReasonBoth})
		case overWeight:
			suggestion.Rejected = append(suggestion.Rejected, Rejection{Candidate: candidate, Reason: enums.RejectionReasonWeight})
		case overVolume:
			suggestion.Rejected = append(suggestion.Rejected, Rejection{Candidate: candidate, Reason: enums.RejectionReasonVolume})
		default:
			suggestion.Selected = append(suggestion.Selected, candidate)
			suggestion.RemainingWeightKg -= candidate.WeightKg
			suggestion.RemainingVolumeM3 -= candidate.VolumeM3
		}
	}
	return suggestion
}

// RecommendContainer walks active profiles cheapest-first and returns the
// first whose capacity covers the totals. Sort order is cost_rank, then
// max_volume, then max_weight, all ascending; cheapest-fitting wins over
// smallest-fitting.
func RecommendContainer(profiles []models.ContainerProfile, totalWeightKg, totalVolumeM3 float64) *models.ContainerProfile {
	active := make([]models.ContainerProfile, 0, len(profiles))
	for _, profile := range profiles {
		if profile.IsActive {
			active = append(active, profile)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].CostRank != active[j].CostRank {
			return active[i].CostRank < active[j].CostRank
		}
		if active[i].MaxVolumeM3 != active[j].MaxVolumeM3 {
			return active[i].MaxVolumeM3 < active[j].MaxVolumeM3
		}
		return active[i].MaxWeightKg < active[j].MaxWeightKg
	})
	for i := range active {
		if totalWeightKg <= active[i].MaxWeightKg && totalVolumeM3 <= active[i].MaxVolumeM3 {
			return &active[i]
		}
	}
	return nil
}
