package brain

import "fmt"

// Personality is a pure data bundle of tuning values. Archetype
// identity is only a lookup key into a bundle like this; no behaviour
// code ever branches on the name.
type Personality struct {
	Name string

	AttackFrequency  float64 // multiplier on attack rate
	DodgeProbability float64
	RetreatTendency  float64
	Aggression       float64
	UsesProjectiles  bool
	ComboExtension   float64 // chance to extend a landed combo
	RiskTolerance    float64
	BlockProfile     float64 // base block chance

	IntentAttackMult  float64
	IntentDefenseMult float64

	ThinkInterval float64 // seconds between decision re-evaluations

	// Reactive windows. Zero disables the mechanic for this personality.
	CounterWindow float64 // seconds after a successful block to counter-strike
	CounterDamage int
	ComboWindow   float64 // seconds after a landed hit to queue a follow-up
	ComboDamage   int
}

// DefaultPersonality returns a balanced all-rounder.
func DefaultPersonality() Personality {
	return Personality{
		Name:              "Balanced",
		AttackFrequency:   1.0,
		DodgeProbability:  0.20,
		RetreatTendency:   0.30,
		Aggression:        0.50,
		ComboExtension:    0.30,
		RiskTolerance:     0.50,
		BlockProfile:      0.40,
		IntentAttackMult:  1.0,
		IntentDefenseMult: 1.0,
		ThinkInterval:     0.20,
	}
}

// Validate rejects out-of-range tuning.
func (p Personality) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("personality: name required")
	}
	if p.AttackFrequency <= 0 {
		return fmt.Errorf("personality %s: attack_frequency %v must be > 0", p.Name, p.AttackFrequency)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"dodge_probability", p.DodgeProbability},
		{"retreat_tendency", p.RetreatTendency},
		{"aggression", p.Aggression},
		{"combo_extension", p.ComboExtension},
		{"risk_tolerance", p.RiskTolerance},
		{"block_profile", p.BlockProfile},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("personality %s: %s %v outside [0,1]", p.Name, f.name, f.v)
		}
	}
	if p.IntentAttackMult <= 0 || p.IntentDefenseMult <= 0 {
		return fmt.Errorf("personality %s: intent multipliers must be > 0", p.Name)
	}
	if p.ThinkInterval <= 0 {
		return fmt.Errorf("personality %s: think_interval %v must be > 0", p.Name, p.ThinkInterval)
	}
	if p.CounterWindow < 0 || p.ComboWindow < 0 {
		return fmt.Errorf("personality %s: reactive windows must be >= 0", p.Name)
	}
	if p.CounterDamage < 0 || p.ComboDamage < 0 {
		return fmt.Errorf("personality %s: reactive damage must be >= 0", p.Name)
	}
	return nil
}
