package combat

import (
	"math"

	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

// Grid describes the scene grid: UnitSize scene units per square and
// UnitDistance world distance (e.g. feet) per square.
type Grid struct {
	UnitSize     float64 `yaml:"unit_size" json:"unitSize"`
	UnitDistance float64 `yaml:"unit_distance" json:"unitDistance"`
}

// DefaultGrid is a 100-unit square measuring 5 feet.
var DefaultGrid = Grid{UnitSize: 100, UnitDistance: 5}

// MeleeReach is the greatest distance that still counts as melee: one grid square.
func (g Grid) MeleeReach() float64 { return g.UnitDistance }

// RangeBand classifies the distance between attacker and target.
type RangeBand string

const (
	// BandUnchecked means no classification was made (no target, or range checks off).
	BandUnchecked  RangeBand = ""
	BandMelee      RangeBand = "melee"
	BandShort      RangeBand = "short"
	BandMedium     RangeBand = "medium"
	BandLong       RangeBand = "long"
	BandOutOfRange RangeBand = "out-of-range"
)

// jsRound rounds half toward positive infinity so that footprint adjustments of
// -0.5 become 0 rather than -1.
func jsRound(x float64) float64 { return math.Floor(x + 0.5) }

// Distance returns the grid distance between two positioned combatants in world
// units. Diagonal steps cost the same as straight steps, and the result is
// measured edge to edge by subtracting the combined footprint.
//
// Precondition: g.UnitSize > 0.
// Postcondition: Returns >= 0; overlapping large footprints clamp to 0.
func Distance(a, b Position, g Grid) float64 {
	nx := math.Ceil(math.Abs(a.X-b.X) / g.UnitSize)
	ny := math.Ceil(math.Abs(a.Y-b.Y) / g.UnitSize)
	steps := math.Min(nx, ny) + math.Abs(nx-ny)
	footprint := jsRound((a.Size+b.Size)/2 - 1)
	d := steps*g.UnitDistance - footprint*g.UnitDistance
	if d < 0 {
		return 0
	}
	return d
}

// ClassifyRangeBand places distance into a band. Melee weapons are either within
// reach or out of range; ranged weapons fall into short, medium or long, and
// anything beyond long is out of range.
//
// Precondition: bands satisfy inventory.RangeBands.Validate for ranged weapons.
func ClassifyRangeBand(distance float64, melee bool, bands inventory.RangeBands, reach float64) RangeBand {
	if melee {
		if distance <= reach {
			return BandMelee
		}
		return BandOutOfRange
	}
	switch {
	case distance <= float64(bands.Short):
		return BandShort
	case distance <= float64(bands.Medium):
		return BandMedium
	case distance <= float64(bands.Long):
		return BandLong
	default:
		return BandOutOfRange
	}
}
