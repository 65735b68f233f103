package dice_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
)

// fixedSrc always returns min(v, n-1), enabling deterministic test rolls.
type fixedSrc struct{ v int }

func (f fixedSrc) Intn(n int) int {
	if f.v >= n {
		return n - 1
	}
	return f.v
}

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{
		Expression: "1d20+1d3-1d4+2",
		Groups: []dice.GroupResult{
			{Count: 1, Sides: 20, Dice: []int{14}},
			{Count: 1, Sides: 3, Dice: []int{2}},
			{Count: 1, Sides: 4, Negative: true, Dice: []int{3}},
		},
		Modifier: 2,
	}
	assert.Equal(t, 15, r.Total())
	assert.Equal(t, []int{14, 2, 3}, r.Dice())
	n, ok := r.Natural()
	require.True(t, ok)
	assert.Equal(t, 14, n)
}

func TestRollResult_Natural_NoDice(t *testing.T) {
	_, ok := dice.RollResult{Expression: "3", Modifier: 3}.Natural()
	assert.False(t, ok)
}

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{
		Expression: "2d6+3",
		Groups:     []dice.GroupResult{{Count: 2, Sides: 6, Dice: []int{4, 5}}},
		Modifier:   3,
	}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Groups: []dice.GroupResult{{Dice: []int{4}}}}
	assert.Panics(t, func() { _ = r.String() })
}

// TestRollResult_Total_Property verifies Total() == sum of signed groups + Modifier.
func TestRollResult_Total_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(rt, "groups")
		modifier := rapid.IntRange(-100, 100).Draw(rt, "modifier")
		r := dice.RollResult{Expression: "x", Modifier: modifier}
		expected := modifier
		for i := 0; i < n; i++ {
			vals := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 4).Draw(rt, fmt.Sprintf("dice%d", i))
			neg := rapid.Bool().Draw(rt, fmt.Sprintf("neg%d", i))
			r.Groups = append(r.Groups, dice.GroupResult{Count: len(vals), Sides: 20, Negative: neg, Dice: vals})
			sum := 0
			for _, v := range vals {
				sum += v
			}
			if neg {
				sum = -sum
			}
			expected += sum
		}
		assert.Equal(rt, expected, r.Total())
	})
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(20), b.Intn(20))
	}
}

func TestSeededSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(0) })
}

func TestRoller_Evaluate(t *testing.T) {
	r := dice.NewLoggedRoller(fixedSrc{v: 13}, zap.NewNop())
	res, err := r.Evaluate(context.Background(), "1d20+1d3+2")
	require.NoError(t, err)
	// 1d20 -> 14, 1d3 -> 3 (clamped), +2
	assert.Equal(t, 19, res.Total())
	n, _ := res.Natural()
	assert.Equal(t, 14, n)
}

func TestRoller_Evaluate_CancelledContext(t *testing.T) {
	r := dice.NewLoggedRoller(fixedSrc{v: 0}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Evaluate(ctx, "1d20")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoller_Evaluate_InvalidFormula(t *testing.T) {
	r := dice.NewLoggedRoller(fixedSrc{v: 0}, zap.NewNop())
	_, err := r.Evaluate(context.Background(), "1d20+@ab")
	assert.Error(t, err)
}

func TestRollExpr_KeepHighest(t *testing.T) {
	res, err := dice.RollExpr("4d6kh3", fixedSrc{v: 2})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Dice, 3)
	assert.Equal(t, 9, res.Total())
}

// TestRollExpr_Property_WithinBounds verifies every rolled total lies within the
// formula's minimum and maximum.
func TestRollExpr_Property_WithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(rt, "count")
		sides := rapid.IntRange(2, 30).Draw(rt, "sides")
		mod := rapid.IntRange(-10, 10).Draw(rt, "mod")
		seed := rapid.Int64().Draw(rt, "seed")
		expr := fmt.Sprintf("%dd%d%+d", count, sides, mod)
		res, err := dice.RollExpr(expr, dice.NewSeededSource(seed))
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, res.Total(), count+mod)
		assert.LessOrEqual(rt, res.Total(), count*sides+mod)
		assert.True(rt, strings.Contains(res.String(), expr))
	})
}
