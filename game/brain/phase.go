package brain

import "fmt"

// Phase is a stage of the fight arc. Phases only ever escalate; a
// fighter that healed back above a threshold stays in the phase it
// reached.
type Phase int

const (
	PhaseObserve Phase = iota
	PhaseCounter
	PhaseDesperation
	PhaseRage
)

var phaseNames = map[Phase]string{
	PhaseObserve:     "observe",
	PhaseCounter:     "counter",
	PhaseDesperation: "desperation",
	PhaseRage:        "rage",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return "unknown"
}

// PhaseModifier is the phase system's per-tick output.
type PhaseModifier struct {
	Phase         Phase
	Aggression    float64 // multiplier on attack drive
	BlockBonus    float64 // additive block chance
	CooldownMult  float64 // multiplier on attack cooldown
	ComboMult     float64 // multiplier on combo chance
	PunishMult    float64 // multiplier on punish-window damage
	ChaseMult     float64 // multiplier on chase speed
	FeintChance   float64
	RiskBoost     float64
	StaminaIgnore float64 // fraction of stamina cost the fighter will ignore

	// JustTransitioned is true for exactly one tick after a phase change.
	JustTransitioned bool
	PreviousPhase    Phase
}

// PhaseConfig tunes phase transitions and per-phase modifiers.
type PhaseConfig struct {
	ObserveMinDuration    float64 // minimum seconds in observe
	ObserveExitConfidence float64 // learner confidence needed to leave observe
	DesperationHP         float64 // enter desperation at or below this HP fraction
	RageHP                float64 // enter rage at or below this HP fraction

	ObserveAggression float64
	ObserveBlockBonus float64
	ObserveCooldown   float64
	ObserveCombo      float64
	ObserveChase      float64

	CounterAggression float64
	CounterBlockBonus float64
	CounterCooldown   float64
	CounterCombo      float64
	CounterPunish     float64
	CounterChase      float64

	DespAggression float64
	DespBlockBonus float64
	DespCooldown   float64
	DespCombo      float64
	DespChase      float64
	DespFeint      float64
	DespRisk       float64

	RageAggression    float64
	RageBlockBonus    float64
	RageCooldown      float64
	RageCombo         float64
	RageChase         float64
	RageRisk          float64
	RageFeint         float64
	RageStaminaIgnore float64
}

// DefaultPhaseConfig returns the stock tuning.
func DefaultPhaseConfig() PhaseConfig {
	return PhaseConfig{
		ObserveMinDuration:    4.0,
		ObserveExitConfidence: 0.35,
		DesperationHP:         0.35,
		RageHP:                0.12,

		ObserveAggression: 0.65,
		ObserveBlockBonus: 0.15,
		ObserveCooldown:   1.25,
		ObserveCombo:      0.50,
		ObserveChase:      0.85,

		CounterAggression: 1.15,
		CounterBlockBonus: 0.05,
		CounterCooldown:   0.88,
		CounterCombo:      1.20,
		CounterPunish:     1.40,
		CounterChase:      1.10,

		DespAggression: 1.35,
		DespBlockBonus: -0.10,
		DespCooldown:   0.70,
		DespCombo:      1.50,
		DespChase:      1.35,
		DespFeint:      0.20,
		DespRisk:       0.30,

		RageAggression:    1.60,
		RageBlockBonus:    -0.25,
		RageCooldown:      0.50,
		RageCombo:         1.80,
		RageChase:         1.55,
		RageRisk:          0.50,
		RageFeint:         0.30,
		RageStaminaIgnore: 0.60,
	}
}

// Validate rejects tuning that breaks phase ordering or probability ranges.
func (c PhaseConfig) Validate() error {
	if c.ObserveMinDuration < 0 {
		return fmt.Errorf("phase: observe_min_duration %v negative", c.ObserveMinDuration)
	}
	if c.ObserveExitConfidence < 0 || c.ObserveExitConfidence > 1 {
		return fmt.Errorf("phase: observe_exit_confidence %v outside [0,1]", c.ObserveExitConfidence)
	}
	if c.DesperationHP <= 0 || c.DesperationHP > 1 {
		return fmt.Errorf("phase: desperation_hp %v outside (0,1]", c.DesperationHP)
	}
	if c.RageHP <= 0 || c.RageHP > 1 {
		return fmt.Errorf("phase: rage_hp %v outside (0,1]", c.RageHP)
	}
	if c.RageHP >= c.DesperationHP {
		return fmt.Errorf("phase: rage_hp %v must be below desperation_hp %v", c.RageHP, c.DesperationHP)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"desp_feint", c.DespFeint},
		{"rage_feint", c.RageFeint},
		{"rage_stamina_ignore", c.RageStaminaIgnore},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("phase: %s %v outside [0,1]", p.name, p.v)
		}
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"observe_cooldown", c.ObserveCooldown},
		{"counter_cooldown", c.CounterCooldown},
		{"desp_cooldown", c.DespCooldown},
		{"rage_cooldown", c.RageCooldown},
	} {
		if p.v <= 0 {
			return fmt.Errorf("phase: %s %v must be > 0", p.name, p.v)
		}
	}
	return nil
}

// PhaseSystem walks the fight arc forward and produces per-tick
// modifiers for the other subsystems.
type PhaseSystem struct {
	cfg        PhaseConfig
	phase      Phase
	phaseTimer float64
	fightTimer float64
	mod        PhaseModifier
}

// NewPhaseSystem validates cfg and builds the system.
func NewPhaseSystem(cfg PhaseConfig) (*PhaseSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ps := &PhaseSystem{cfg: cfg}
	ps.applyPhase(PhaseObserve, false, PhaseObserve)
	return ps, nil
}

// Phase returns the current phase.
func (ps *PhaseSystem) Phase() Phase { return ps.phase }

// Modifier returns the output computed by the last Update.
func (ps *PhaseSystem) Modifier() PhaseModifier { return ps.mod }

// Update evaluates transitions and recomputes the modifier.
// selfHPFrac is the brain's own HP fraction, confidence the learner's
// pattern confidence, flowRatio the match momentum in [-1,1].
func (ps *PhaseSystem) Update(dt, selfHPFrac, confidence, flowRatio float64) {
	ps.fightTimer += dt
	ps.phaseTimer += dt
	cfg := ps.cfg

	old := ps.phase
	switch {
	case selfHPFrac <= cfg.RageHP && ps.phase != PhaseRage:
		ps.phase = PhaseRage
	case selfHPFrac <= cfg.DesperationHP && ps.phase < PhaseDesperation:
		ps.phase = PhaseDesperation
	case ps.phase == PhaseObserve &&
		ps.phaseTimer >= cfg.ObserveMinDuration &&
		confidence >= cfg.ObserveExitConfidence:
		ps.phase = PhaseCounter
	case ps.phase == PhaseObserve && ps.fightTimer > cfg.ObserveMinDuration*2.5:
		// Fight has dragged on; stop observing regardless of confidence.
		ps.phase = PhaseCounter
	}

	transitioned := ps.phase != old
	if transitioned {
		ps.phaseTimer = 0
	}
	ps.applyPhase(ps.phase, transitioned, old)
	_ = flowRatio // reserved for future transition rules
}

func (ps *PhaseSystem) applyPhase(p Phase, transitioned bool, prev Phase) {
	cfg := ps.cfg
	m := &ps.mod
	m.Phase = p
	m.JustTransitioned = transitioned
	m.PreviousPhase = prev

	switch p {
	case PhaseObserve:
		m.Aggression = cfg.ObserveAggression
		m.BlockBonus = cfg.ObserveBlockBonus
		m.CooldownMult = cfg.ObserveCooldown
		m.ComboMult = cfg.ObserveCombo
		m.PunishMult = 1.0
		m.ChaseMult = cfg.ObserveChase
		m.FeintChance = 0
		m.RiskBoost = 0
		m.StaminaIgnore = 0
	case PhaseCounter:
		m.Aggression = cfg.CounterAggression
		m.BlockBonus = cfg.CounterBlockBonus
		m.CooldownMult = cfg.CounterCooldown
		m.ComboMult = cfg.CounterCombo
		m.PunishMult = cfg.CounterPunish
		m.ChaseMult = cfg.CounterChase
		m.FeintChance = 0
		m.RiskBoost = 0
		m.StaminaIgnore = 0
	case PhaseDesperation:
		m.Aggression = cfg.DespAggression
		m.BlockBonus = cfg.DespBlockBonus
		m.CooldownMult = cfg.DespCooldown
		m.ComboMult = cfg.DespCombo
		m.PunishMult = cfg.CounterPunish
		m.ChaseMult = cfg.DespChase
		m.FeintChance = cfg.DespFeint
		m.RiskBoost = cfg.DespRisk
		m.StaminaIgnore = 0
	case PhaseRage:
		m.Aggression = cfg.RageAggression
		m.BlockBonus = cfg.RageBlockBonus
		m.CooldownMult = cfg.RageCooldown
		m.ComboMult = cfg.RageCombo
		m.PunishMult = cfg.CounterPunish
		m.ChaseMult = cfg.RageChase
		m.FeintChance = cfg.RageFeint
		m.RiskBoost = cfg.RageRisk
		m.StaminaIgnore = cfg.RageStaminaIgnore
	}
}

// Reset returns the system to observe for a new fight.
func (ps *PhaseSystem) Reset() {
	ps.phase = PhaseObserve
	ps.phaseTimer = 0
	ps.fightTimer = 0
	ps.mod = PhaseModifier{}
	ps.applyPhase(PhaseObserve, false, PhaseObserve)
}
