package sinks

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownLandType = errors.New("invalid land type or forest type")
	ErrInvalidTarget   = errors.New("target carbon sequestration must be positive")
)

// DefaultProjectDuration is used when a land request leaves the duration
// unset.
const DefaultProjectDuration = 20

// SoilSuitability scales the standard rate by how well the soil supports
// the vegetation.
var SoilSuitability = map[string]float64{
	"ideal":               1.0,
	"moderately_suitable": 0.8,
	"marginally_suitable": 0.5,
	"unsuitable":          0.2,
}

// LandRequest asks how much land a sink needs to absorb a yearly target.
type LandRequest struct {
	TargetCarbonSequestration float64 `json:"targetCarbonSequestration" binding:"required"` // t CO2 / year
	LandType                  string  `json:"landType" binding:"required"`
	ForestType                string  `json:"forestType,omitempty"`
	ProjectDuration           float64 `json:"projectDuration,omitempty"` // years
	SoilCondition             string  `json:"soilCondition,omitempty"`
}

// LandResult is the answer to a LandRequest.
type LandResult struct {
	RequiredLand              float64 `json:"requiredLand"` // hectares, rounded up
	SequestrationRate         float64 `json:"sequestrationRate"`
	SoilEfficiency            float64 `json:"soilEfficiency"`
	ProjectDuration           float64 `json:"projectDuration"`
	TotalCarbonSequestered    float64 `json:"totalCarbonSequestered"`
	LandUtilizationEfficiency float64 `json:"landUtilizationEfficiency"`
}

// RequiredLand sizes a new sink for req.
func RequiredLand(req LandRequest) (LandResult, error) {
	if math.IsNaN(req.TargetCarbonSequestration) || req.TargetCarbonSequestration <= 0 {
		return LandResult{}, ErrInvalidTarget
	}
	rate, ok := landRate(req.LandType, req.ForestType)
	if !ok {
		return LandResult{}, fmt.Errorf("%w: %q/%q", ErrUnknownLandType, req.LandType, req.ForestType)
	}

	suitability, ok := SoilSuitability[req.SoilCondition]
	if !ok {
		suitability = 1.0
	}
	duration := req.ProjectDuration
	if duration <= 0 {
		duration = DefaultProjectDuration
	}

	land := req.TargetCarbonSequestration / (rate.Default * suitability)
	total := land * rate.Default * suitability * duration

	return LandResult{
		RequiredLand:              math.Ceil(land),
		SequestrationRate:         rate.Default,
		SoilEfficiency:            suitability,
		ProjectDuration:           duration,
		TotalCarbonSequestered:    total,
		LandUtilizationEfficiency: total / (req.TargetCarbonSequestration * duration) * 100,
	}, nil
}
