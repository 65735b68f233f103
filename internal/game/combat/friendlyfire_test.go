package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dccqol/internal/game/combat"
)

func TestAlliesNear(t *testing.T) {
	archer := newPC("archer", combat.Position{})
	target := newNPC("orc", combat.Position{X: square(6)})

	engaged := newPC("engaged", combat.Position{X: square(7)})
	far := newPC("far", combat.Position{X: square(10)})
	foe := newNPC("foe", combat.Position{X: square(7), Y: square(1)})
	downed := newPC("downed", combat.Position{X: square(5)})
	downed.HP.Value = 0

	got := combat.AlliesNear(archer, target, []*combat.Combatant{archer, target, engaged, far, foe, downed}, combat.DefaultGrid)
	require.Len(t, got, 1)
	assert.Equal(t, "engaged", got[0].ID)
}

func TestAlliesNear_NilInputs(t *testing.T) {
	assert.Nil(t, combat.AlliesNear(nil, newNPC("x", combat.Position{}), nil, combat.DefaultGrid))
	assert.Nil(t, combat.AlliesNear(newPC("x", combat.Position{}), nil, nil, combat.DefaultGrid))
}

func TestResolveFriendlyFire_Threshold(t *testing.T) {
	archer := newPC("archer", combat.Position{})
	allies := []*combat.Combatant{newPC("ally", combat.Position{})}

	res, err := combat.ResolveFriendlyFire(archer, shortbow(), allies, fixedSrc{v: 50})
	require.NoError(t, err)
	assert.False(t, res.Occurred)
	assert.Equal(t, 51, res.Check)
	assert.Nil(t, res.Victim)

	res, err = combat.ResolveFriendlyFire(archer, shortbow(), allies, fixedSrc{v: 49})
	require.NoError(t, err)
	assert.True(t, res.Occurred)
	assert.Equal(t, 50, res.Check)
	require.NotNil(t, res.Victim)
	assert.Equal(t, "ally", res.Victim.ID)
}

func TestResolveFriendlyFire_Property_Boundary(t *testing.T) {
	archer := newPC("archer", combat.Position{})
	allies := []*combat.Combatant{newPC("a", combat.Position{}), newPC("b", combat.Position{})}
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.IntRange(0, 99).Draw(rt, "d100")
		res, err := combat.ResolveFriendlyFire(archer, shortbow(), allies, fixedSrc{v: v})
		require.NoError(rt, err)
		assert.Equal(rt, v+1 <= combat.FriendlyFireThreshold, res.Occurred)
		assert.Equal(rt, v+1, res.Check)
	})
}

func TestResolveFriendlyFire_SecondaryAttack(t *testing.T) {
	archer := newPC("archer", combat.Position{})
	ally := newPC("ally", combat.Position{})
	ally.AC = 14

	res, err := combat.ResolveFriendlyFire(archer, shortbow(), []*combat.Combatant{ally}, fixedSrc{v: 49})
	require.NoError(t, err)
	require.NotNil(t, res.Attack)
	assert.Equal(t, "1d20+2", res.Attack.Formula)
	assert.Equal(t, 20, res.Attack.Roll)
	assert.Equal(t, 2, res.Attack.Bonus)
	assert.Equal(t, 22, res.Attack.Total)
	assert.Equal(t, combat.Hit, res.Attack.Hit)
}

func TestResolveFriendlyFire_VictimWithoutAC(t *testing.T) {
	ally := newPC("ally", combat.Position{})
	ally.AC = 0
	res, err := combat.ResolveFriendlyFire(newPC("archer", combat.Position{}), shortbow(), []*combat.Combatant{ally}, fixedSrc{v: 0})
	require.NoError(t, err)
	require.True(t, res.Occurred)
	assert.Equal(t, combat.HitUndetermined, res.Attack.Hit)
}

func TestResolveFriendlyFire_NoAllies(t *testing.T) {
	res, err := combat.ResolveFriendlyFire(newPC("archer", combat.Position{}), shortbow(), nil, fixedSrc{v: 0})
	require.NoError(t, err)
	assert.False(t, res.Occurred)
	assert.Zero(t, res.Check)
}
