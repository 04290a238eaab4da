package archetype

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolEmbedded(t *testing.T) {
	p, err := NewPool()
	require.NoError(t, err)
	require.Len(t, p.Names(), 10)
	for _, pers := range p.All() {
		assert.NoError(t, pers.Validate(), pers.Name)
	}

	duelist, err := p.Get("Duelist")
	require.NoError(t, err)
	assert.InDelta(t, 0.65, duelist.BlockProfile, 1e-9)
	assert.InDelta(t, 0.15, duelist.ThinkInterval, 1e-9)
	assert.Equal(t, 8, duelist.CounterDamage)
	assert.Equal(t, 4, duelist.ComboDamage)

	mage, err := p.Get("Mage")
	require.NoError(t, err)
	assert.True(t, mage.UsesProjectiles)

	berserker, err := p.Get("Berserker")
	require.NoError(t, err)
	assert.False(t, berserker.UsesProjectiles)
	// omitted think_interval falls back to the default
	assert.InDelta(t, 0.20, berserker.ThinkInterval, 1e-9)

	_, err = p.Get("Nonexistent")
	assert.Error(t, err)
}

func TestPoolCandidates(t *testing.T) {
	p, err := NewPool()
	require.NoError(t, err)

	agg := p.CandidatesFor(StyleAggressive)
	assert.Equal(t, []string{"Duelist", "Coward", "Mage", "Defender", "Tactician"}, agg)
	for _, n := range agg {
		_, err := p.Get(n)
		assert.NoError(t, err, n)
	}

	assert.Len(t, p.CandidatesFor(StyleUnknown), 10)

	// a style with no configured pool falls back to everything
	assert.Len(t, p.CandidatesFor(Style("berserk-only")), 10)
}

func TestPoolRandomNDeterministic(t *testing.T) {
	p, err := NewPool()
	require.NoError(t, err)

	a := p.RandomN(rand.New(rand.NewSource(7)), 3)
	b := p.RandomN(rand.New(rand.NewSource(7)), 3)
	require.Len(t, a, 3)
	require.Len(t, b, 3)
	for i := range a {
		assert.Equal(t, a[i].Name, b[i].Name, "draw %d", i)
	}

	seen := make(map[string]bool)
	for _, pers := range a {
		assert.False(t, seen[pers.Name], "duplicate %s", pers.Name)
		seen[pers.Name] = true
	}

	assert.Len(t, p.RandomN(rand.New(rand.NewSource(1)), 0), 10)
	assert.Len(t, p.RandomN(rand.New(rand.NewSource(1)), 99), 10)
}

func TestParsePoolRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"not yaml", "archetypes: ["},
		{"no archetypes", "pools:\n  aggressive: [Duelist]\n"},
		{"empty list", "archetypes: []"},
		{"out of range", "archetypes:\n  - name: Broken\n    attack_frequency: 1.0\n    aggression: 1.5\n"},
		{"zero attack frequency", "archetypes:\n  - name: Frozen\n    attack_frequency: 0\n"},
		{"duplicate name", "archetypes:\n  - name: Twin\n    attack_frequency: 1.0\n  - name: Twin\n    attack_frequency: 1.0\n"},
		{"unknown pool member", "archetypes:\n  - name: Solo\n    attack_frequency: 1.0\npools:\n  aggressive: [Ghost]\n"},
		{"empty pool", "archetypes:\n  - name: Solo\n    attack_frequency: 1.0\npools:\n  aggressive: []\n"},
	}
	for _, tc := range cases {
		_, err := parsePool([]byte(tc.yaml))
		assert.Error(t, err, tc.name)
	}
}

func TestLoadPoolFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	content := "archetypes:\n  - name: Custom\n    attack_frequency: 1.1\n    aggression: 0.4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadPool(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Custom"}, p.Names())

	pers, err := p.Get("Custom")
	require.NoError(t, err)
	assert.InDelta(t, 1.1, pers.AttackFrequency, 1e-9)
	assert.InDelta(t, 1.0, pers.IntentAttackMult, 1e-9)

	_, err = LoadPool(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
