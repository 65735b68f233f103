package combat

// HitResult is the tri-state hit determination of an attack.
type HitResult int

const (
	// HitUndetermined means there was no target to compare against.
	HitUndetermined HitResult = iota
	Hit
	Miss
)

// String returns a human-readable label.
func (h HitResult) String() string {
	switch h {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "undetermined"
	}
}

// MarshalText encodes the result by name.
func (h HitResult) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText decodes a result name; unknown names decode as undetermined.
func (h *HitResult) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hit":
		*h = Hit
	case "miss":
		*h = Miss
	default:
		*h = HitUndetermined
	}
	return nil
}

// AttackOutcome is the classified result of one attack roll.
type AttackOutcome struct {
	Natural   int    `json:"natural"`
	Total     int    `json:"total"`
	CritRange int    `json:"critRange"`
	TargetAC  int    `json:"targetAC,omitempty"`
	Formula   string `json:"formula"`
	IsFumble  bool   `json:"isFumble"`
	// IsNaturalCrit is evaluated independently of IsFumble.
	IsNaturalCrit bool `json:"isNaturalCrit"`
	// IsCrit is the effective crit: a natural crit that is not also a fumble.
	IsCrit bool      `json:"isCrit"`
	Hit    HitResult `json:"hit"`
}

// Classify labels an attack roll. A natural 1 is a fumble and always misses; a
// natural result at or above critRange is a crit and always hits; otherwise the
// total is compared with targetAC. targetAC <= 0 means no target, leaving the hit
// undetermined.
//
// Postcondition: IsFumble implies Hit == Miss and !IsCrit; IsCrit implies Hit == Hit.
func Classify(natural, total, critRange, targetAC int) AttackOutcome {
	o := AttackOutcome{
		Natural:       natural,
		Total:         total,
		CritRange:     critRange,
		IsFumble:      natural == 1,
		IsNaturalCrit: natural >= critRange,
	}
	o.IsCrit = o.IsNaturalCrit && !o.IsFumble
	if targetAC > 0 {
		o.TargetAC = targetAC
	}
	switch {
	case o.IsFumble:
		o.Hit = Miss
	case o.IsNaturalCrit:
		o.Hit = Hit
	case targetAC > 0 && total >= targetAC:
		o.Hit = Hit
	case targetAC > 0:
		o.Hit = Miss
	default:
		o.Hit = HitUndetermined
	}
	return o
}

// AdjustCritRange shifts a crit threshold by the signed change in action die
// faces, so a d20 crit range of 20 becomes 16 on a d16. Unknown face counts
// (<= 0) leave the threshold unchanged.
func AdjustCritRange(threshold, originalFaces, finalFaces int) int {
	if originalFaces <= 0 || finalFaces <= 0 {
		return threshold
	}
	return threshold + (finalFaces - originalFaces)
}
