package brain

import "fmt"

// TempoMode is the aggression system's pacing stance.
type TempoMode int

const (
	TempoNeutral TempoMode = iota
	TempoPressure
	TempoGuard
	TempoBurst
)

var tempoNames = map[TempoMode]string{
	TempoNeutral:  "neutral",
	TempoPressure: "pressure",
	TempoGuard:    "guard",
	TempoBurst:    "burst",
}

func (t TempoMode) String() string {
	if n, ok := tempoNames[t]; ok {
		return n
	}
	return "unknown"
}

// IntentSignal carries the four per-tick desire signals, each in [0,1].
type IntentSignal struct {
	AttackIntent    float64
	AggressionLevel float64
	DefensiveBias   float64
	RiskTolerance   float64
}

// IntentInput is everything Compute reads. The evaluator holds no state
// of its own, so identical inputs always produce identical signals.
type IntentInput struct {
	Distance      float64
	SelfHPFrac    float64
	SelfStamina   float64 // fraction
	OpponentAggro float64 // observed opponent aggression in [0,1]
	Tempo         TempoMode
	ExchangeRatio float64 // recent damage exchange in [-1,1], positive = winning
}

// IntentConfig tunes the intent curves.
type IntentConfig struct {
	OptimalRange    float64 // ideal melee distance
	MaxChaseRange   float64 // beyond this attack intent bottoms out
	CloseRangeBonus float64 // extra intent when right in the opponent's face

	StaminaPenaltyThreshold float64 // below this stamina fraction intent drops
	StaminaPenaltyMult      float64

	BaseIntent float64 // floor: there is always some desire to attack
}

// DefaultIntentConfig returns the stock tuning.
func DefaultIntentConfig() IntentConfig {
	return IntentConfig{
		OptimalRange:            70,
		MaxChaseRange:           300,
		CloseRangeBonus:         0.35,
		StaminaPenaltyThreshold: 0.30,
		StaminaPenaltyMult:      0.5,
		BaseIntent:              0.15,
	}
}

// Validate rejects out-of-range tuning.
func (c IntentConfig) Validate() error {
	if c.OptimalRange <= 0 {
		return fmt.Errorf("intent: optimal_range %v must be > 0", c.OptimalRange)
	}
	if c.MaxChaseRange <= c.OptimalRange {
		return fmt.Errorf("intent: max_chase_range %v must exceed optimal_range %v", c.MaxChaseRange, c.OptimalRange)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"close_range_bonus", c.CloseRangeBonus},
		{"stamina_penalty_threshold", c.StaminaPenaltyThreshold},
		{"stamina_penalty_mult", c.StaminaPenaltyMult},
		{"base_intent", c.BaseIntent},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("intent: %s %v outside [0,1]", p.name, p.v)
		}
	}
	return nil
}

// CombatIntentSystem turns a world snapshot into desire signals. It is
// a pure evaluator: config and personality in, IntentSignal out.
type CombatIntentSystem struct {
	cfg IntentConfig
	p   Personality
}

// NewCombatIntentSystem validates cfg and builds the evaluator.
func NewCombatIntentSystem(cfg IntentConfig, p Personality) (*CombatIntentSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CombatIntentSystem{cfg: cfg, p: p}, nil
}

// Compute evaluates all four signals from the given input.
func (s *CombatIntentSystem) Compute(in IntentInput) IntentSignal {
	cfg := s.cfg

	// Distance curve: full desire inside optimal range, fading to zero
	// at max chase range.
	var distIntent float64
	switch {
	case in.Distance <= cfg.OptimalRange:
		distIntent = 1.0
	case in.Distance < cfg.MaxChaseRange:
		distIntent = 1.0 - (in.Distance-cfg.OptimalRange)/(cfg.MaxChaseRange-cfg.OptimalRange)
	}
	if in.Distance < cfg.OptimalRange*0.6 {
		distIntent = clamp01(distIntent + cfg.CloseRangeBonus)
	}

	stamMult := 1.0
	if in.SelfStamina < cfg.StaminaPenaltyThreshold {
		stamMult = cfg.StaminaPenaltyMult +
			(1.0-cfg.StaminaPenaltyMult)*(in.SelfStamina/cfg.StaminaPenaltyThreshold)
	}

	// Heavy observed opponent aggression pushes toward defense.
	aggrReaction := 0.0
	if in.OpponentAggro > 0.6 {
		aggrReaction = (in.OpponentAggro - 0.6) * 0.5
	}

	var stratAttack, stratDefense float64
	switch in.Tempo {
	case TempoPressure:
		stratAttack, stratDefense = 0.25, -0.15
	case TempoGuard:
		stratAttack, stratDefense = -0.15, 0.25
	case TempoBurst:
		stratAttack, stratDefense = 0.30, -0.10
	}

	exchangeBonus := in.ExchangeRatio * 0.15

	desperationBoost := 0.0
	if in.SelfHPFrac < 0.35 {
		desperationBoost = (0.35 - in.SelfHPFrac) * 0.8
	}

	rawAttack := (cfg.BaseIntent +
		distIntent*0.50 +
		exchangeBonus +
		desperationBoost +
		stratAttack) * s.p.IntentAttackMult * stamMult

	rawAggression := (0.5 +
		stratAttack +
		desperationBoost*0.6 +
		exchangeBonus*0.5 -
		aggrReaction*0.3) * s.p.IntentAttackMult

	rawDefensive := (0.3 + aggrReaction + stratDefense) * s.p.IntentDefenseMult

	rawRisk := in.SelfHPFrac*0.4 +
		in.SelfStamina*0.3 +
		desperationBoost*0.5 +
		stratAttack*0.3

	return IntentSignal{
		AttackIntent:    clamp01(rawAttack),
		AggressionLevel: clamp01(rawAggression),
		DefensiveBias:   clamp01(rawDefensive),
		RiskTolerance:   clamp01(rawRisk),
	}
}
