package brain

import "fmt"

// BalanceModifier is the difficulty balancer's per-tick output.
// BalanceScore is positive when the opponent is dominating and negative
// when the brain's fighter is; easing kicks in below the ease threshold,
// sharpening above the sharpen threshold.
type BalanceModifier struct {
	BalanceScore float64 // smoothed, in [-1,1]

	ReactionDelayMult float64 // >1 = slower decisions
	AggressionMult    float64
	CooldownMult      float64
	ComboMult         float64
	AccuracyMult      float64
	TelegraphBias     float64 // chance to telegraph attacks with a slow wind-up
	PunishMult        float64
	VariationBoost    float64 // additive to combo complexity
	SpacingTightness  float64
	ComboChainCap     int // longest combo chain currently allowed
}

func neutralBalance(cap int) BalanceModifier {
	return BalanceModifier{
		ReactionDelayMult: 1,
		AggressionMult:    1,
		CooldownMult:      1,
		ComboMult:         1,
		AccuracyMult:      1,
		PunishMult:        1,
		SpacingTightness:  1,
		ComboChainCap:     cap,
	}
}

// BalancerConfig tunes the rubber-banding.
type BalancerConfig struct {
	Strength float64 // 0 = off, 1 = maximum adjustment

	EaseThreshold    float64 // score below this eases up
	SharpenThreshold float64 // score above this sharpens

	// SmoothRate is the sole knob for how fast perceived difficulty
	// moves: each update applies score = old*(1-a) + raw*a with
	// a = min(1, SmoothRate*dt).
	SmoothRate float64

	WindowExchanges int // rolling window length, in damage exchanges

	EaseReactionMult float64
	EaseAggression   float64
	EaseCooldown     float64
	EaseCombo        float64
	EaseAccuracy     float64
	EaseTelegraph    float64
	EaseChainCap     int

	SharpReactionMult float64
	SharpAggression   float64
	SharpCooldown     float64
	SharpCombo        float64
	SharpPunish       float64
	SharpVariation    float64
	SharpSpacing      float64
	SharpChainCap     int

	NeutralChainCap int
}

// DefaultBalancerConfig returns the stock tuning.
func DefaultBalancerConfig() BalancerConfig {
	return BalancerConfig{
		Strength:         0.65,
		EaseThreshold:    -0.25,
		SharpenThreshold: 0.25,
		SmoothRate:       1.5,
		WindowExchanges:  40,

		EaseReactionMult: 1.40,
		EaseAggression:   0.70,
		EaseCooldown:     1.35,
		EaseCombo:        0.50,
		EaseAccuracy:     0.80,
		EaseTelegraph:    0.20,
		EaseChainCap:     1,

		SharpReactionMult: 0.80,
		SharpAggression:   1.30,
		SharpCooldown:     0.80,
		SharpCombo:        1.40,
		SharpPunish:       1.50,
		SharpVariation:    0.80,
		SharpSpacing:      1.25,
		SharpChainCap:     5,

		NeutralChainCap: 3,
	}
}

// Validate rejects out-of-range tuning.
func (c BalancerConfig) Validate() error {
	if c.Strength < 0 || c.Strength > 1 {
		return fmt.Errorf("balancer: strength %v outside [0,1]", c.Strength)
	}
	if c.EaseThreshold >= 0 || c.EaseThreshold <= -1 {
		return fmt.Errorf("balancer: ease_threshold %v must be in (-1,0)", c.EaseThreshold)
	}
	if c.SharpenThreshold <= 0 || c.SharpenThreshold >= 1 {
		return fmt.Errorf("balancer: sharpen_threshold %v must be in (0,1)", c.SharpenThreshold)
	}
	if c.SmoothRate <= 0 {
		return fmt.Errorf("balancer: smooth_rate %v must be > 0", c.SmoothRate)
	}
	if c.WindowExchanges < 1 {
		return fmt.Errorf("balancer: window_exchanges %d must be >= 1", c.WindowExchanges)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"ease_reaction_mult", c.EaseReactionMult},
		{"ease_aggression", c.EaseAggression},
		{"ease_cooldown", c.EaseCooldown},
		{"ease_combo", c.EaseCombo},
		{"ease_accuracy", c.EaseAccuracy},
		{"sharp_reaction_mult", c.SharpReactionMult},
		{"sharp_aggression", c.SharpAggression},
		{"sharp_cooldown", c.SharpCooldown},
		{"sharp_combo", c.SharpCombo},
		{"sharp_punish", c.SharpPunish},
		{"sharp_spacing", c.SharpSpacing},
	} {
		if p.v <= 0 {
			return fmt.Errorf("balancer: %s %v must be > 0", p.name, p.v)
		}
	}
	if c.EaseTelegraph < 0 || c.EaseTelegraph > 1 {
		return fmt.Errorf("balancer: ease_telegraph %v outside [0,1]", c.EaseTelegraph)
	}
	if c.EaseChainCap < 1 || c.NeutralChainCap < 1 || c.SharpChainCap < 1 {
		return fmt.Errorf("balancer: chain caps must be >= 1")
	}
	return nil
}

// exchange is one damage event from either side.
type exchange struct {
	dealt    int // damage the brain's fighter landed
	taken    int // damage the opponent landed
	selfHit  bool
	selfMiss bool
	oppHit   bool
	oppMiss  bool
	oppBlock bool
	oppDodge bool
}

// DifficultyBalancer watches recent exchanges and rubber-bands the
// brain's sharpness so fights stay close without feeling scripted.
type DifficultyBalancer struct {
	cfg    BalancerConfig
	window []exchange // ring, newest appended, oldest dropped
	mod    BalanceModifier
	score  float64 // smoothed
}

// NewDifficultyBalancer validates cfg and builds the balancer.
func NewDifficultyBalancer(cfg BalancerConfig) (*DifficultyBalancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &DifficultyBalancer{cfg: cfg}
	b.mod = neutralBalance(cfg.NeutralChainCap)
	return b, nil
}

// Modifier returns the output computed by the last Update.
func (b *DifficultyBalancer) Modifier() BalanceModifier { return b.mod }

// Score returns the smoothed balance score.
func (b *DifficultyBalancer) Score() float64 { return b.score }

func (b *DifficultyBalancer) push(e exchange) {
	b.window = append(b.window, e)
	if len(b.window) > b.cfg.WindowExchanges {
		b.window = b.window[1:]
	}
}

// RecordDealt notes a hit the brain's fighter landed.
func (b *DifficultyBalancer) RecordDealt(damage int) {
	b.push(exchange{dealt: damage, selfHit: true})
}

// RecordMissed notes a whiffed or blocked attack by the brain's fighter.
func (b *DifficultyBalancer) RecordMissed() {
	b.push(exchange{selfMiss: true})
}

// RecordTaken notes a hit the opponent landed.
func (b *DifficultyBalancer) RecordTaken(damage int) {
	b.push(exchange{taken: damage, oppHit: true})
}

// RecordOpponentMissed notes a whiffed attack by the opponent.
func (b *DifficultyBalancer) RecordOpponentMissed() {
	b.push(exchange{oppMiss: true})
}

// RecordOpponentBlocked notes the opponent blocking an attack.
func (b *DifficultyBalancer) RecordOpponentBlocked() {
	b.push(exchange{oppBlock: true})
}

// RecordOpponentDodged notes the opponent dodging an attack.
func (b *DifficultyBalancer) RecordOpponentDodged() {
	b.push(exchange{oppDodge: true})
}

// rawScore computes the unsmoothed balance score over the window:
// damage ratio 50%, accuracy differential 25%, opponent defense 25%.
func (b *DifficultyBalancer) rawScore() float64 {
	var dealt, taken, selfHits, selfMisses, oppHits, oppMisses, oppDefended int
	for _, e := range b.window {
		dealt += e.dealt
		taken += e.taken
		if e.selfHit {
			selfHits++
		}
		if e.selfMiss {
			selfMisses++
		}
		if e.oppHit {
			oppHits++
		}
		if e.oppMiss {
			oppMisses++
		}
		if e.oppBlock || e.oppDodge {
			oppDefended++
		}
	}

	dmg := 0.0
	if total := dealt + taken; total > 0 {
		dmg = float64(taken-dealt) / float64(total)
	}

	selfAcc := float64(selfHits) / float64(max(1, selfHits+selfMisses))
	oppAcc := float64(oppHits) / float64(max(1, oppHits+oppMisses))
	hit := oppAcc - selfAcc

	defense := 0.5
	if attacksOnOpp := selfHits + oppDefended; attacksOnOpp > 0 {
		defense = float64(oppDefended) / float64(attacksOnOpp)
	}

	return clampF(dmg*0.50+hit*0.25+(defense-0.5)*0.25, -1, 1)
}

// Update smooths the score toward the window's raw value and maps it to
// modifiers. Call every tick.
func (b *DifficultyBalancer) Update(dt float64) {
	cfg := b.cfg
	raw := b.rawScore()

	alpha := cfg.SmoothRate * dt
	if alpha > 1 {
		alpha = 1
	}
	b.score = clampF(b.score*(1-alpha)+raw*alpha, -1, 1)

	m := &b.mod
	*m = neutralBalance(cfg.NeutralChainCap)
	m.BalanceScore = b.score
	s := cfg.Strength

	switch {
	case b.score < cfg.EaseThreshold:
		// Opponent struggling: slow down, telegraph, drop combos.
		intensity := clamp01((cfg.EaseThreshold - b.score) / (1.0 + cfg.EaseThreshold))
		t := intensity * s
		m.ReactionDelayMult = 1 + (cfg.EaseReactionMult-1)*t
		m.AggressionMult = 1 + (cfg.EaseAggression-1)*t
		m.CooldownMult = 1 + (cfg.EaseCooldown-1)*t
		m.ComboMult = 1 + (cfg.EaseCombo-1)*t
		m.AccuracyMult = 1 + (cfg.EaseAccuracy-1)*t
		m.TelegraphBias = cfg.EaseTelegraph * t
		m.ComboChainCap = cfg.EaseChainCap
	case b.score > cfg.SharpenThreshold:
		// Opponent dominating: tighten up.
		intensity := clamp01((b.score - cfg.SharpenThreshold) / (1.0 - cfg.SharpenThreshold))
		t := intensity * s
		m.ReactionDelayMult = 1 + (cfg.SharpReactionMult-1)*t
		m.AggressionMult = 1 + (cfg.SharpAggression-1)*t
		m.CooldownMult = 1 + (cfg.SharpCooldown-1)*t
		m.ComboMult = 1 + (cfg.SharpCombo-1)*t
		m.PunishMult = 1 + (cfg.SharpPunish-1)*t
		m.VariationBoost = cfg.SharpVariation * t
		m.SpacingTightness = 1 + (cfg.SharpSpacing-1)*t
		m.ComboChainCap = cfg.SharpChainCap
	}
}

// Reset clears the window and score for a new match.
func (b *DifficultyBalancer) Reset() {
	b.window = b.window[:0]
	b.score = 0
	b.mod = neutralBalance(b.cfg.NeutralChainCap)
}
