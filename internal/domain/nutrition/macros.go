// Package nutrition builds meal plans from a food composition table and
// daily macro targets.
package nutrition

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for unusable macro targets or meal counts.
var ErrInvalidInput = errors.New("invalid nutrition input")

// Energy per gram.
const (
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

// Macros are daily targets in grams and kilocalories.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fats    float64 `json:"fats"`
	Kcal    float64 `json:"kcal"`
}

// EnergyOf returns the kilocalories supplied by the given grams.
func EnergyOf(protein, carbs, fats float64) float64 {
	return protein*kcalPerGramProtein + carbs*kcalPerGramCarbs + fats*kcalPerGramFat
}

// CompleteMacros fills in whichever targets are nil.
//
//   - All three macros given: kcal is recomputed from them.
//   - Otherwise kcal must be given and positive; the energy not covered by
//     the known macros is split over the missing ones (30/40/30 for
//     protein/carbs/fats, renormalized over the missing fields, except that a
//     known protein splits the rest 60/40 between carbs and fats).
//
// Computed grams are rounded to one decimal.
func CompleteMacros(protein, carbs, fats, kcal *float64) (Macros, error) {
	if protein != nil && carbs != nil && fats != nil {
		return Macros{
			Protein: *protein,
			Carbs:   *carbs,
			Fats:    *fats,
			Kcal:    EnergyOf(*protein, *carbs, *fats),
		}, nil
	}
	if kcal == nil || *kcal <= 0 {
		return Macros{}, fmt.Errorf("%w: at least the calorie target or all three macros are required", ErrInvalidInput)
	}

	m := Macros{Kcal: *kcal}
	known := 0.0
	if protein != nil {
		m.Protein = *protein
		known += *protein * kcalPerGramProtein
	}
	if carbs != nil {
		m.Carbs = *carbs
		known += *carbs * kcalPerGramCarbs
	}
	if fats != nil {
		m.Fats = *fats
		known += *fats * kcalPerGramFat
	}
	remaining := *kcal - known
	if remaining < 0 {
		return Macros{}, fmt.Errorf("%w: the given macros exceed %.0f kcal", ErrInvalidInput, *kcal)
	}

	shareP, shareC, shareF := 0.3, 0.4, 0.3
	if protein != nil {
		shareC, shareF = 0.6, 0.4
	}
	total := 0.0
	if protein == nil {
		total += shareP
	}
	if carbs == nil {
		total += shareC
	}
	if fats == nil {
		total += shareF
	}

	if protein == nil {
		m.Protein = round1(remaining * shareP / total / kcalPerGramProtein)
	}
	if carbs == nil {
		m.Carbs = round1(remaining * shareC / total / kcalPerGramCarbs)
	}
	if fats == nil {
		m.Fats = round1(remaining * shareF / total / kcalPerGramFat)
	}
	return m, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
