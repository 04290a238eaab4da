package brain

import (
	"fmt"
	"math/rand"
)

// StyleName identifies one of the blendable attack-style archetypes.
type StyleName string

const (
	StyleTrickster StyleName = "Trickster"
	StyleAnalyzer  StyleName = "Analyzer"
	StylePredator  StyleName = "Predator"
	StyleTactician StyleName = "Tactician"
	StyleBerserker StyleName = "Berserker"
	StyleMirror    StyleName = "Mirror"
	StylePhantom   StyleName = "Phantom"
)

// AllStyles lists every blendable archetype.
var AllStyles = []StyleName{
	StyleTrickster, StyleAnalyzer, StylePredator, StyleTactician,
	StyleBerserker, StyleMirror, StylePhantom,
}

// StyleModifier is the blended per-tick output of the style system.
type StyleModifier struct {
	AggressionMult   float64
	CooldownMult     float64
	BlockReadiness   float64
	DodgeReadiness   float64
	FeintChance      float64
	ComboComplexity  float64
	ChaseSpeedMult   float64
	RetreatTendency  float64
	SpacingOffset    float64 // px adjustment to preferred distance
	HeavyBias        float64 // positive = prefer heavy attacks
	PunishAggression float64
	StrafeSpeedMult  float64
	MovementErratic  float64 // 0 = straight lines, 1 = zigzag
}

// styleTable holds each archetype's base tuning vector. Mirror starts
// neutral and is rewritten every tick from the opponent profile.
var styleTable = map[StyleName]StyleModifier{
	StyleTrickster: {
		AggressionMult: 0.95, CooldownMult: 0.90, BlockReadiness: 0.20,
		DodgeReadiness: 0.35, FeintChance: 0.40, ComboComplexity: 0.80,
		ChaseSpeedMult: 1.05, RetreatTendency: 0.30, SpacingOffset: -5,
		HeavyBias: -0.15, PunishAggression: 0.40, StrafeSpeedMult: 1.30,
		MovementErratic: 0.50,
	},
	StyleAnalyzer: {
		AggressionMult: 0.85, CooldownMult: 1.10, BlockReadiness: 0.55,
		DodgeReadiness: 0.25, FeintChance: 0.10, ComboComplexity: 0.70,
		ChaseSpeedMult: 0.95, RetreatTendency: 0.35, SpacingOffset: 10,
		HeavyBias: 0.10, PunishAggression: 0.65, StrafeSpeedMult: 1.00,
		MovementErratic: 0.10,
	},
	StylePredator: {
		AggressionMult: 1.40, CooldownMult: 0.75, BlockReadiness: 0.15,
		DodgeReadiness: 0.10, FeintChance: 0.05, ComboComplexity: 0.45,
		ChaseSpeedMult: 1.35, RetreatTendency: 0.05, SpacingOffset: -15,
		HeavyBias: 0.15, PunishAggression: 0.50, StrafeSpeedMult: 0.80,
		MovementErratic: 0.15,
	},
	StyleTactician: {
		AggressionMult: 1.00, CooldownMult: 1.00, BlockReadiness: 0.40,
		DodgeReadiness: 0.20, FeintChance: 0.15, ComboComplexity: 0.65,
		ChaseSpeedMult: 1.00, RetreatTendency: 0.25, SpacingOffset: 5,
		HeavyBias: 0.05, PunishAggression: 0.55, StrafeSpeedMult: 1.10,
		MovementErratic: 0.20,
	},
	StyleBerserker: {
		AggressionMult: 1.55, CooldownMult: 0.60, BlockReadiness: 0.05,
		DodgeReadiness: 0.05, FeintChance: 0.00, ComboComplexity: 0.30,
		ChaseSpeedMult: 1.30, RetreatTendency: 0.00, SpacingOffset: -20,
		HeavyBias: 0.35, PunishAggression: 0.25, StrafeSpeedMult: 0.70,
		MovementErratic: 0.10,
	},
	StyleMirror: {
		AggressionMult: 1.00, CooldownMult: 1.00, BlockReadiness: 0.30,
		DodgeReadiness: 0.15, FeintChance: 0.10, ComboComplexity: 0.50,
		ChaseSpeedMult: 1.00, RetreatTendency: 0.20, SpacingOffset: 0,
		HeavyBias: 0.00, PunishAggression: 0.35, StrafeSpeedMult: 1.00,
		MovementErratic: 0.20,
	},
	StylePhantom: {
		AggressionMult: 0.80, CooldownMult: 0.85, BlockReadiness: 0.15,
		DodgeReadiness: 0.45, FeintChance: 0.25, ComboComplexity: 0.60,
		ChaseSpeedMult: 1.15, RetreatTendency: 0.50, SpacingOffset: 15,
		HeavyBias: -0.10, PunishAggression: 0.45, StrafeSpeedMult: 1.40,
		MovementErratic: 0.70,
	},
}

// StyleConfig tunes archetype rotation and blending.
type StyleConfig struct {
	ShiftInterval  float64 // seconds between rotations
	ShiftJitter    float64 // +- uniform jitter, rerolled per rotation
	ActionBuffer   int     // anti-repetition memory
	MirrorStrength float64 // how strongly Mirror copies the opponent
	MinWeight      float64 // weight a freshly rotated-in archetype starts at
	StalenessTimer float64 // seconds a dominant archetype may hold before forced out
}

// DefaultStyleConfig returns the stock tuning.
func DefaultStyleConfig() StyleConfig {
	return StyleConfig{
		ShiftInterval:  8.0,
		ShiftJitter:    3.0,
		ActionBuffer:   6,
		MirrorStrength: 0.75,
		MinWeight:      0.15,
		StalenessTimer: 12.0,
	}
}

// Validate rejects out-of-range tuning.
func (c StyleConfig) Validate() error {
	if c.ShiftInterval <= 0 {
		return fmt.Errorf("style: shift_interval %v must be > 0", c.ShiftInterval)
	}
	if c.ShiftJitter < 0 || c.ShiftJitter >= c.ShiftInterval {
		return fmt.Errorf("style: shift_jitter %v outside [0, shift_interval)", c.ShiftJitter)
	}
	if c.ActionBuffer < 2 {
		return fmt.Errorf("style: action_buffer %d must be >= 2", c.ActionBuffer)
	}
	if c.MirrorStrength < 0 || c.MirrorStrength > 1 {
		return fmt.Errorf("style: mirror_strength %v outside [0,1]", c.MirrorStrength)
	}
	if c.MinWeight <= 0 || c.MinWeight >= 0.5 {
		return fmt.Errorf("style: min_weight %v outside (0,0.5)", c.MinWeight)
	}
	if c.StalenessTimer <= 0 {
		return fmt.Errorf("style: staleness_timer %v must be > 0", c.StalenessTimer)
	}
	return nil
}

// AttackStyleSystem blends exactly two distinct archetypes with weights
// summing to 1, rotating the weaker one out on a jittered interval so a
// fight never settles into a single readable style.
type AttackStyleSystem struct {
	cfg StyleConfig
	rng *rand.Rand

	active  [2]StyleName
	weights [2]float64
	mirror  StyleModifier // live Mirror vector, rewritten from the profile

	shiftTimer float64
	staleness  map[StyleName]float64

	actionBuf []string
	mod       StyleModifier
}

// NewAttackStyleSystem validates cfg and picks the opening blend.
func NewAttackStyleSystem(cfg StyleConfig, rng *rand.Rand) (*AttackStyleSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("style: rng required")
	}
	s := &AttackStyleSystem{cfg: cfg, rng: rng}
	s.roll()
	return s, nil
}

// roll picks two distinct archetypes and fresh weights.
func (s *AttackStyleSystem) roll() {
	perm := s.rng.Perm(len(AllStyles))
	s.active[0] = AllStyles[perm[0]]
	s.active[1] = AllStyles[perm[1]]

	a := 0.3 + s.rng.Float64()*0.7
	b := 0.3 + s.rng.Float64()*0.7
	s.weights[0] = a / (a + b)
	s.weights[1] = b / (a + b)

	s.mirror = styleTable[StyleMirror]
	s.shiftTimer = s.nextShiftDelay()
	s.staleness = map[StyleName]float64{s.active[0]: 0, s.active[1]: 0}
	s.actionBuf = s.actionBuf[:0]
	s.blend()
}

func (s *AttackStyleSystem) nextShiftDelay() float64 {
	return s.cfg.ShiftInterval + (s.rng.Float64()*2-1)*s.cfg.ShiftJitter
}

// Modifier returns the blend computed by the last Update.
func (s *AttackStyleSystem) Modifier() StyleModifier { return s.mod }

// Active returns the two live archetypes and their weights.
func (s *AttackStyleSystem) Active() ([2]StyleName, [2]float64) {
	return s.active, s.weights
}

// Dominant returns the higher-weighted live archetype.
func (s *AttackStyleSystem) Dominant() StyleName {
	if s.weights[1] > s.weights[0] {
		return s.active[1]
	}
	return s.active[0]
}

// Update advances rotation timers and rebuilds the blend. The profile
// feeds the Mirror archetype when it is active.
func (s *AttackStyleSystem) Update(dt float64, profile *PlayerProfile) {
	cfg := s.cfg

	s.shiftTimer -= dt
	if s.shiftTimer <= 0 {
		s.rotateWeakest()
		s.shiftTimer = s.nextShiftDelay()
	}

	s.staleness[s.active[0]] += dt
	s.staleness[s.active[1]] += dt
	if dom := s.Dominant(); s.staleness[dom] > cfg.StalenessTimer {
		s.replaceAt(s.indexOf(dom))
	}

	if profile != nil && (s.active[0] == StyleMirror || s.active[1] == StyleMirror) {
		s.updateMirror(*profile)
	}

	s.blend()
}

func (s *AttackStyleSystem) indexOf(name StyleName) int {
	if s.active[1] == name {
		return 1
	}
	return 0
}

// rotateWeakest swaps the lower-weighted archetype for a random one not
// currently active.
func (s *AttackStyleSystem) rotateWeakest() {
	idx := 0
	if s.weights[1] < s.weights[0] {
		idx = 1
	}
	s.replaceAt(idx)
}

func (s *AttackStyleSystem) replaceAt(idx int) {
	other := s.active[1-idx]
	var candidates []StyleName
	for _, name := range AllStyles {
		if name != s.active[0] && name != s.active[1] {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return
	}
	incoming := candidates[s.rng.Intn(len(candidates))]

	delete(s.staleness, s.active[idx])
	s.active[idx] = incoming
	s.staleness[incoming] = 0
	if incoming == StyleMirror {
		s.mirror = styleTable[StyleMirror]
	}

	// Fresh archetype enters at the minimum weight; renormalise so the
	// pair still sums to 1.
	keep := s.weights[1-idx]
	total := keep + s.cfg.MinWeight
	s.weights[1-idx] = keep / total
	s.weights[idx] = s.cfg.MinWeight / total
	_ = other
}

// updateMirror rewrites the Mirror vector to copy the opponent.
func (s *AttackStyleSystem) updateMirror(p PlayerProfile) {
	str := s.cfg.MirrorStrength
	m := &s.mirror
	m.AggressionMult = 0.7 + p.AttackFrequency*str*0.8
	m.CooldownMult = 1.2 - p.AttackFrequency*str*0.4
	m.BlockReadiness = p.BlockAfterHit * str
	m.DodgeReadiness = p.DodgeFrequency * str
	m.RetreatTendency = p.RetreatAfterAttack * str
	m.HeavyBias = (p.HeavyRatio - 0.5) * str
	m.ComboComplexity = clamp01(0.3 + (1.0-p.ComboRepetition)*str*0.5)
}

func (s *AttackStyleSystem) vectorFor(name StyleName) StyleModifier {
	if name == StyleMirror {
		return s.mirror
	}
	return styleTable[name]
}

// blend computes the weighted sum of both active tuning vectors.
func (s *AttackStyleSystem) blend() {
	var out StyleModifier
	for i := 0; i < 2; i++ {
		v := s.vectorFor(s.active[i])
		w := s.weights[i]
		out.AggressionMult += v.AggressionMult * w
		out.CooldownMult += v.CooldownMult * w
		out.BlockReadiness += v.BlockReadiness * w
		out.DodgeReadiness += v.DodgeReadiness * w
		out.FeintChance += v.FeintChance * w
		out.ComboComplexity += v.ComboComplexity * w
		out.ChaseSpeedMult += v.ChaseSpeedMult * w
		out.RetreatTendency += v.RetreatTendency * w
		out.SpacingOffset += v.SpacingOffset * w
		out.HeavyBias += v.HeavyBias * w
		out.PunishAggression += v.PunishAggression * w
		out.StrafeSpeedMult += v.StrafeSpeedMult * w
		out.MovementErratic += v.MovementErratic * w
	}
	s.mod = out
}

// RecordAction feeds the anti-repetition buffer.
func (s *AttackStyleSystem) RecordAction(action string) {
	s.actionBuf = append(s.actionBuf, action)
	if len(s.actionBuf) > s.cfg.ActionBuffer {
		s.actionBuf = s.actionBuf[1:]
	}
}

// ShouldVaryAction reports whether the proposed action just repeated
// twice and ought to be varied.
func (s *AttackStyleSystem) ShouldVaryAction(proposed string) bool {
	n := len(s.actionBuf)
	if n < 2 {
		return false
	}
	return s.actionBuf[n-1] == proposed && s.actionBuf[n-2] == proposed
}

// Reset rerolls the blend for a new fight.
func (s *AttackStyleSystem) Reset() {
	s.roll()
}
