package sinks

import (
	"strings"
)

// RateRange is a sequestration rate band in tonnes CO2 per hectare per year.
type RateRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

var forestRates = map[string]RateRange{
	"tropical":  {Min: 5, Max: 15, Default: 10},
	"temperate": {Min: 2, Max: 8, Default: 5},
	"boreal":    {Min: 1, Max: 5, Default: 3},
}

var landRates = map[string]RateRange{
	"mangrove":     {Min: 8, Max: 20, Default: 14},
	"grassland":    {Min: 1, Max: 5, Default: 3},
	"wetland":      {Min: 2, Max: 6, Default: 4},
	"agroforestry": {Min: 3, Max: 10, Default: 6},
}

const defaultForestType = "temperate"

var vegetationReplacer = strings.NewReplacer("_", " ", "-", " ", ":", " ", "/", " ")

// LookupRate finds the rate band for a vegetation type. It accepts
// "mangrove", "forest:tropical", "tropical forest", "tropical" and plain
// "forest", which means temperate forest.
func LookupRate(vegetationType string) (RateRange, bool) {
	key := strings.Join(strings.Fields(vegetationReplacer.Replace(strings.ToLower(vegetationType))), " ")
	if key == "" {
		return RateRange{}, false
	}
	if r, ok := landRates[key]; ok {
		return r, true
	}
	if r, ok := forestRates[key]; ok {
		return r, true
	}
	if strings.Contains(key, "forest") {
		sub := strings.TrimSpace(strings.ReplaceAll(key, "forest", ""))
		if sub == "" {
			sub = defaultForestType
		}
		r, ok := forestRates[sub]
		return r, ok
	}
	return RateRange{}, false
}

// DefaultRate is the standard rate for a vegetation type, or 0.
func DefaultRate(vegetationType string) float64 {
	r, _ := LookupRate(vegetationType)
	return r.Default
}

// landRate resolves the land type/forest type pair used by the land
// calculator.
func landRate(landType, forestType string) (RateRange, bool) {
	landType = strings.ToLower(strings.TrimSpace(landType))
	if landType == "forest" {
		r, ok := forestRates[strings.ToLower(strings.TrimSpace(forestType))]
		return r, ok
	}
	r, ok := landRates[landType]
	return r, ok
}
