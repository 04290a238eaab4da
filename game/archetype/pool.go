package archetype

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"

	"github.com/darshang-108/ai-learning-opponent/game/brain"
	"gopkg.in/yaml.v3"
)

//go:embed personalities.yaml
var defaultPoolYAML []byte

// record mirrors one YAML archetype entry. Omitted optional fields
// fall back to the balanced defaults before validation.
type record struct {
	Name              string  `yaml:"name"`
	AttackFrequency   float64 `yaml:"attack_frequency"`
	DodgeProbability  float64 `yaml:"dodge_probability"`
	RetreatTendency   float64 `yaml:"retreat_tendency"`
	Aggression        float64 `yaml:"aggression"`
	UsesProjectiles   bool    `yaml:"uses_projectiles"`
	ComboExtension    float64 `yaml:"combo_extension"`
	RiskTolerance     float64 `yaml:"risk_tolerance"`
	BlockProfile      float64 `yaml:"block_profile"`
	IntentAttackMult  float64 `yaml:"intent_attack_mult"`
	IntentDefenseMult float64 `yaml:"intent_defense_mult"`
	ThinkInterval     float64 `yaml:"think_interval"`
	CounterWindow     float64 `yaml:"counter_window"`
	CounterDamage     int     `yaml:"counter_damage"`
	ComboWindow       float64 `yaml:"combo_window"`
	ComboDamage       int     `yaml:"combo_damage"`
}

type poolFile struct {
	Archetypes []record            `yaml:"archetypes"`
	Pools      map[string][]string `yaml:"pools"`
}

// Pool holds the loaded archetype personalities and the per-style
// candidate pools used by the selector.
type Pool struct {
	names  []string
	byName map[string]brain.Personality
	pools  map[Style][]string
}

// NewPool loads the embedded default personality pool.
func NewPool() (*Pool, error) {
	p, err := parsePool(defaultPoolYAML)
	if err != nil {
		return nil, fmt.Errorf("archetype: embedded pool: %w", err)
	}
	return p, nil
}

// LoadPool loads a personality pool from a YAML file, replacing the
// embedded defaults entirely.
func LoadPool(path string) (*Pool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archetype: read pool %s: %w", path, err)
	}
	p, err := parsePool(raw)
	if err != nil {
		return nil, fmt.Errorf("archetype: pool %s: %w", path, err)
	}
	return p, nil
}

func parsePool(raw []byte) (*Pool, error) {
	var f poolFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Archetypes) == 0 {
		return nil, fmt.Errorf("no archetypes defined")
	}

	p := &Pool{
		byName: make(map[string]brain.Personality, len(f.Archetypes)),
		pools:  make(map[Style][]string, len(f.Pools)),
	}
	for _, r := range f.Archetypes {
		pers := r.toPersonality()
		if err := pers.Validate(); err != nil {
			return nil, err
		}
		if _, dup := p.byName[pers.Name]; dup {
			return nil, fmt.Errorf("duplicate archetype %q", pers.Name)
		}
		p.byName[pers.Name] = pers
		p.names = append(p.names, pers.Name)
	}
	for style, members := range f.Pools {
		if len(members) == 0 {
			return nil, fmt.Errorf("pool %q is empty", style)
		}
		for _, m := range members {
			if _, ok := p.byName[m]; !ok {
				return nil, fmt.Errorf("pool %q references unknown archetype %q", style, m)
			}
		}
		p.pools[Style(style)] = members
	}
	return p, nil
}

func (r record) toPersonality() brain.Personality {
	p := brain.Personality{
		Name:              r.Name,
		AttackFrequency:   r.AttackFrequency,
		DodgeProbability:  r.DodgeProbability,
		RetreatTendency:   r.RetreatTendency,
		Aggression:        r.Aggression,
		UsesProjectiles:   r.UsesProjectiles,
		ComboExtension:    r.ComboExtension,
		RiskTolerance:     r.RiskTolerance,
		BlockProfile:      r.BlockProfile,
		IntentAttackMult:  r.IntentAttackMult,
		IntentDefenseMult: r.IntentDefenseMult,
		ThinkInterval:     r.ThinkInterval,
		CounterWindow:     r.CounterWindow,
		CounterDamage:     r.CounterDamage,
		ComboWindow:       r.ComboWindow,
		ComboDamage:       r.ComboDamage,
	}
	if p.IntentAttackMult <= 0 {
		p.IntentAttackMult = 1.0
	}
	if p.IntentDefenseMult <= 0 {
		p.IntentDefenseMult = 1.0
	}
	if p.ThinkInterval <= 0 {
		p.ThinkInterval = 0.20
	}
	return p
}

// Names returns the archetype names in definition order.
func (p *Pool) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// All returns every personality in definition order.
func (p *Pool) All() []brain.Personality {
	out := make([]brain.Personality, 0, len(p.names))
	for _, n := range p.names {
		out = append(out, p.byName[n])
	}
	return out
}

// Get looks up one personality by archetype name.
func (p *Pool) Get(name string) (brain.Personality, error) {
	pers, ok := p.byName[name]
	if !ok {
		return brain.Personality{}, fmt.Errorf("archetype %q not found", name)
	}
	return pers, nil
}

// CandidatesFor returns the candidate archetype names for a detected
// player style. Styles without a configured pool fall back to the
// full archetype list.
func (p *Pool) CandidatesFor(style Style) []string {
	if members, ok := p.pools[style]; ok {
		out := make([]string, len(members))
		copy(out, members)
		return out
	}
	return p.Names()
}

// RandomN picks n distinct personalities using the supplied generator,
// so the draw is reproducible for a fixed seed. n outside [1,len]
// returns the whole pool shuffled.
func (p *Pool) RandomN(rng *rand.Rand, n int) []brain.Personality {
	if n <= 0 || n > len(p.names) {
		n = len(p.names)
	}
	perm := rng.Perm(len(p.names))
	out := make([]brain.Personality, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, p.byName[p.names[idx]])
	}
	return out
}
