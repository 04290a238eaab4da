package brain

import (
	"fmt"
	"math/rand"
)

// DesperationModifier is applied on top of everything else once the
// fighter has been pushed into desperation. Activation latches: a
// fighter that clawed back HP keeps fighting desperately for the rest
// of the match.
type DesperationModifier struct {
	Active    bool
	Intensity float64 // 0 at the threshold, 1 near death

	AggressionBoost  float64
	CooldownMult     float64 // <1 = faster attacks
	ComboChanceBoost float64
	ChaseSpeedMult   float64
	DefenseReduction float64
	RiskBoost        float64

	BurstActive bool // brief spike right after activation

	FeintChance        float64
	AttackCancelChance float64
	RiskComboChance    float64
	RiskComboHits      int

	RageActive          bool
	RageStaminaIgnore   float64
	RageRetreatOverride float64 // >= 0 overrides retreat tendency
	RageBlockOverride   float64 // >= 0 overrides block chance
}

// DesperationConfig tunes the low-HP comeback behaviour.
type DesperationConfig struct {
	ActivationHP float64 // activate at or below this HP fraction

	MaxAggressionBoost   float64
	MaxCooldownReduction float64
	MaxComboChanceBoost  float64
	MaxChaseSpeedBoost   float64
	MaxDefenseReduction  float64
	MaxRiskBoost         float64

	BurstDuration        float64
	BurstAggressionExtra float64
	BurstCooldownExtra   float64

	FeintChanceBase float64
	FeintChanceMax  float64

	AttackCancelBase float64
	AttackCancelMax  float64

	RiskComboBase float64
	RiskComboMax  float64
	RiskComboHits int

	RageHP              float64
	RageAggressionFloor float64
	RageCooldownFloor   float64 // seconds; divided by the nominal quick cooldown
	RageStaminaIgnore   float64
	RageChaseSpeed      float64
}

// DefaultDesperationConfig returns the stock tuning.
func DefaultDesperationConfig() DesperationConfig {
	return DesperationConfig{
		ActivationHP: 0.30,

		MaxAggressionBoost:   0.45,
		MaxCooldownReduction: 0.45,
		MaxComboChanceBoost:  0.35,
		MaxChaseSpeedBoost:   0.40,
		MaxDefenseReduction:  0.35,
		MaxRiskBoost:         0.40,

		BurstDuration:        1.5,
		BurstAggressionExtra: 0.20,
		BurstCooldownExtra:   0.15,

		FeintChanceBase: 0.10,
		FeintChanceMax:  0.35,

		AttackCancelBase: 0.12,
		AttackCancelMax:  0.30,

		RiskComboBase: 0.15,
		RiskComboMax:  0.40,
		RiskComboHits: 3,

		RageHP:              0.12,
		RageAggressionFloor: 0.70,
		RageCooldownFloor:   0.20,
		RageStaminaIgnore:   0.60,
		RageChaseSpeed:      1.60,
	}
}

// Validate rejects out-of-range tuning.
func (c DesperationConfig) Validate() error {
	if c.ActivationHP <= 0 || c.ActivationHP > 1 {
		return fmt.Errorf("desperation: activation_hp %v outside (0,1]", c.ActivationHP)
	}
	if c.RageHP <= 0 || c.RageHP >= c.ActivationHP {
		return fmt.Errorf("desperation: rage_hp %v must be in (0, activation_hp)", c.RageHP)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"feint_chance_base", c.FeintChanceBase},
		{"feint_chance_max", c.FeintChanceMax},
		{"attack_cancel_base", c.AttackCancelBase},
		{"attack_cancel_max", c.AttackCancelMax},
		{"risk_combo_base", c.RiskComboBase},
		{"risk_combo_max", c.RiskComboMax},
		{"rage_stamina_ignore", c.RageStaminaIgnore},
		{"max_cooldown_reduction", c.MaxCooldownReduction},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("desperation: %s %v outside [0,1]", p.name, p.v)
		}
	}
	if c.BurstDuration < 0 {
		return fmt.Errorf("desperation: burst_duration %v negative", c.BurstDuration)
	}
	if c.RiskComboHits < 1 {
		return fmt.Errorf("desperation: risk_combo_hits %d must be >= 1", c.RiskComboHits)
	}
	return nil
}

// DesperationMode tracks own HP and produces comeback modifiers.
// Both desperation and rage latch for the rest of the match once
// entered; only Reset clears them.
type DesperationMode struct {
	cfg DesperationConfig
	rng *rand.Rand
	mod DesperationModifier

	burstTimer float64
	activated  bool
	raged      bool
}

// NewDesperationMode validates cfg and builds the mode tracker.
func NewDesperationMode(cfg DesperationConfig, rng *rand.Rand) (*DesperationMode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("desperation: rng required")
	}
	d := &DesperationMode{cfg: cfg, rng: rng}
	d.mod = neutralDesperation()
	return d, nil
}

func neutralDesperation() DesperationModifier {
	return DesperationModifier{
		CooldownMult:        1,
		ChaseSpeedMult:      1,
		RageRetreatOverride: -1,
		RageBlockOverride:   -1,
	}
}

// Modifier returns the output computed by the last Update.
func (d *DesperationMode) Modifier() DesperationModifier { return d.mod }

// Active reports whether desperation has latched.
func (d *DesperationMode) Active() bool { return d.mod.Active }

// RageActive reports whether rage has latched.
func (d *DesperationMode) RageActive() bool { return d.mod.RageActive }

// ShouldCancelAttack rolls the cancel chance. Call during wind-up.
func (d *DesperationMode) ShouldCancelAttack() bool {
	return d.mod.Active && d.rng.Float64() < d.mod.AttackCancelChance
}

// ShouldRiskCombo rolls the risk-combo chance. Call on hit confirm.
func (d *DesperationMode) ShouldRiskCombo() bool {
	return d.mod.Active && d.rng.Float64() < d.mod.RiskComboChance
}

// Update recalculates modifiers from current HP. Call every tick.
func (d *DesperationMode) Update(dt, selfHPFrac float64) {
	cfg := d.cfg
	m := &d.mod

	wasActive := d.activated
	if selfHPFrac <= cfg.ActivationHP {
		d.activated = true
	}
	if !d.activated {
		return
	}

	m.Active = true

	// Intensity scales with how deep below the threshold HP sits. If the
	// fighter healed back above it the mode stays on at floor strength.
	m.Intensity = clamp01(1.0 - selfHPFrac/cfg.ActivationHP)

	if !wasActive {
		d.burstTimer = cfg.BurstDuration
	}
	if d.burstTimer > 0 {
		d.burstTimer -= dt
	}
	m.BurstActive = d.burstTimer > 0

	t := m.Intensity
	burstAggr, burstCD := 0.0, 0.0
	if m.BurstActive {
		burstAggr = cfg.BurstAggressionExtra
		burstCD = cfg.BurstCooldownExtra
	}

	m.AggressionBoost = t*cfg.MaxAggressionBoost + burstAggr
	m.CooldownMult = clampF(1.0-(t*cfg.MaxCooldownReduction+burstCD), 0.3, 1.0)
	m.ComboChanceBoost = t * cfg.MaxComboChanceBoost
	m.ChaseSpeedMult = 1.0 + t*cfg.MaxChaseSpeedBoost
	m.DefenseReduction = t * cfg.MaxDefenseReduction
	m.RiskBoost = t * cfg.MaxRiskBoost

	m.FeintChance = lerp(cfg.FeintChanceBase, cfg.FeintChanceMax, t)
	m.AttackCancelChance = lerp(cfg.AttackCancelBase, cfg.AttackCancelMax, t)
	m.RiskComboChance = lerp(cfg.RiskComboBase, cfg.RiskComboMax, t)
	m.RiskComboHits = cfg.RiskComboHits

	if selfHPFrac <= cfg.RageHP {
		d.raged = true
	}
	if d.raged {
		m.RageActive = true
		if m.AggressionBoost < cfg.RageAggressionFloor {
			m.AggressionBoost = cfg.RageAggressionFloor
		}
		// Rage guarantees fast attacks regardless of intensity.
		if fast := cfg.RageCooldownFloor / 0.6; m.CooldownMult > fast {
			m.CooldownMult = fast
		}
		if m.ChaseSpeedMult < cfg.RageChaseSpeed {
			m.ChaseSpeedMult = cfg.RageChaseSpeed
		}
		m.RageStaminaIgnore = cfg.RageStaminaIgnore
		m.RageRetreatOverride = 0
		m.RageBlockOverride = 0
	}
}

// Reset clears all latches for a new match.
func (d *DesperationMode) Reset() {
	d.mod = neutralDesperation()
	d.burstTimer = 0
	d.activated = false
	d.raged = false
}
