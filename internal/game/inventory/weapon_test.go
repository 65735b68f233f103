package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

func shortbowDef() *inventory.WeaponDef {
	return &inventory.WeaponDef{
		ID:      "shortbow",
		Name:    "Shortbow",
		Damage:  "1d6",
		Range:   inventory.RangeBands{Short: 50, Medium: 100, Long: 150},
		Trained: true,
		ToHit:   "+@ab",
	}
}

func TestWeaponDef_Validate_RejectsEmpty(t *testing.T) {
	w := &inventory.WeaponDef{}
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for empty WeaponDef, got nil")
	}
}

func TestWeaponDef_Validate_AcceptsMinimalMelee(t *testing.T) {
	w := &inventory.WeaponDef{Name: "Dagger", Damage: "1d4", Melee: true}
	if err := w.Validate(); err != nil {
		t.Fatalf("expected no error for minimal melee WeaponDef, got: %v", err)
	}
}

func TestWeaponDef_Validate_RangedRequiresBands(t *testing.T) {
	w := shortbowDef()
	w.Range = inventory.RangeBands{}
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for ranged weapon without range bands, got nil")
	}
}

func TestWeaponDef_Validate_RejectsBadFormulas(t *testing.T) {
	w := shortbowDef()
	w.ToHit = "+@ab+banana"
	assert.Error(t, w.Validate())

	w = shortbowDef()
	w.Damage = "1dX"
	assert.Error(t, w.Validate())

	w = shortbowDef()
	w.ActionDie = "1d20+1d4"
	assert.Error(t, w.Validate())

	w = shortbowDef()
	w.Damage = "1000000000000000d6"
	assert.Error(t, w.Validate())
}

func TestWeaponDef_ToHitWith(t *testing.T) {
	w := shortbowDef()
	assert.Equal(t, "+3", w.ToHitWith("3"))
	assert.Equal(t, "-2", w.ToHitWith("-2"))
	assert.Equal(t, "+1d3", w.ToHitWith("1d3"))

	w.ToHit = "@ab + 1"
	assert.Equal(t, "-1+1", w.ToHitWith("-1"))

	w.ToHit = ""
	assert.Equal(t, "+0", w.ToHitWith("5"))
}

func TestParseRangeBands(t *testing.T) {
	r, err := inventory.ParseRangeBands("30/60/90")
	require.NoError(t, err)
	assert.Equal(t, inventory.RangeBands{Short: 30, Medium: 60, Long: 90}, r)

	r, err = inventory.ParseRangeBands("40:80:160")
	require.NoError(t, err)
	assert.Equal(t, inventory.RangeBands{Short: 40, Medium: 80, Long: 160}, r)

	r, err = inventory.ParseRangeBands("")
	require.NoError(t, err)
	assert.True(t, r.IsZero())

	for _, bad := range []string{"30/60", "30/x/90", "60/30/90", "30/60/60", "0/10/20"} {
		_, err := inventory.ParseRangeBands(bad)
		assert.Error(t, err, bad)
	}
}

func TestProperty_ParseRangeBands_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.IntRange(1, 100).Draw(rt, "short")
		m := rapid.IntRange(s+1, 200).Draw(rt, "medium")
		l := rapid.IntRange(m+1, 400).Draw(rt, "long")
		in := inventory.RangeBands{Short: s, Medium: m, Long: l}
		out, err := inventory.ParseRangeBands(in.String())
		require.NoError(rt, err)
		assert.Equal(rt, in, out)
	})
}

func TestDecodeWeaponJSON_NormalizesHostShapes(t *testing.T) {
	w, err := inventory.DecodeWeaponJSON([]byte(`{
		"name": "Longbow",
		"damage": {"value": "1d6"},
		"melee": false,
		"range": "70/140/210",
		"equipped": true,
		"trained": true,
		"toHit": "+@ab",
		"critRange": 19
	}`))
	require.NoError(t, err)
	assert.Equal(t, inventory.DamageFormula("1d6"), w.Damage)
	assert.Equal(t, 70, w.Range.Short)
	assert.Equal(t, 210, w.Range.Long)
	assert.Equal(t, 19, w.CritRange)

	w, err = inventory.DecodeWeaponJSON([]byte(`{"name": "Club", "damage": "1d4", "melee": true}`))
	require.NoError(t, err)
	assert.Equal(t, inventory.DamageFormula("1d4"), w.Damage)
	assert.True(t, w.Range.IsZero())
}

func TestDecodeWeaponJSON_RejectsInvalid(t *testing.T) {
	_, err := inventory.DecodeWeaponJSON([]byte(`{"name": "Sling", "damage": "1d4", "range": "30/20/10"}`))
	assert.Error(t, err)
	_, err = inventory.DecodeWeaponJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestDamageFormula_YAMLShapes(t *testing.T) {
	var w inventory.WeaponDef
	require.NoError(t, yaml.Unmarshal([]byte("name: Axe\ndamage:\n  value: 1d10\nmelee: true\n"), &w))
	assert.Equal(t, inventory.DamageFormula("1d10"), w.Damage)

	require.NoError(t, yaml.Unmarshal([]byte("name: Axe\ndamage: 1d8\nmelee: true\n"), &w))
	assert.Equal(t, inventory.DamageFormula("1d8"), w.Damage)
}

func TestLoadWeapons_LoadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := `id: crossbow
name: Crossbow
damage: 1d6
range: 80/160/240
trained: true
two_handed: true
to_hit: "+@ab"
action_die: 1d20
`
	if err := os.WriteFile(filepath.Join(dir, "crossbow.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp YAML: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	weapons, err := inventory.LoadWeapons(dir)
	if err != nil {
		t.Fatalf("LoadWeapons failed: %v", err)
	}
	if len(weapons) != 1 {
		t.Fatalf("expected 1 weapon, got %d", len(weapons))
	}
	w := weapons[0]
	if w.ID != "crossbow" || !w.TwoHanded || w.Range.Medium != 160 {
		t.Errorf("unexpected weapon: %+v", w)
	}
}

func TestLoadWeapons_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: Bow\ndamage: 1d6\nrange: 10/5/1\n"), 0644); err != nil {
		t.Fatalf("failed to write temp YAML: %v", err)
	}
	if _, err := inventory.LoadWeapons(dir); err == nil {
		t.Fatal("expected error for invalid range bands, got nil")
	}
}

func TestLoadWeapons_MissingDir(t *testing.T) {
	_, err := inventory.LoadWeapons("/nonexistent/weapons")
	assert.Error(t, err)
}
