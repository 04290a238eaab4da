package brain

import "fmt"

// Composite is the single merged modifier the decision layer reads.
// Every probability field is in [0,1] and every multiplier is > 0 after
// Combine; the subsystem outputs that fed it are never read directly by
// the FSM.
type Composite struct {
	// Multiplicative lanes: product of subsystem multipliers, clamped.
	AggressionMult  float64
	CooldownMult    float64
	ChaseSpeedMult  float64
	StrafeSpeedMult float64
	PunishMult      float64
	AccuracyMult    float64

	// Probability lanes: weighted averages of subsystem chances.
	BlockChance      float64
	DodgeChance      float64
	FeintChance      float64
	ComboChance      float64
	GuardBreakChance float64
	TelegraphBias    float64

	// Additive lanes.
	SpacingOffset   float64 // px adjustment to preferred engage distance
	HeavyBias       float64 // [-1,1], positive = prefer heavy
	RetreatTendency float64 // [0,1]
	MovementErratic float64 // [0,1]

	// Pass-through knobs.
	ReactionDelay       float64 // seconds added to the think interval
	StaminaIgnore       float64 // fraction of stamina cost ignored
	StaminaDrainMult    float64 // own attack cost multiplier vs this build
	ComboChainCap       int
	ComboComplexity     float64
	PunishReady         bool
	OpponentSpam        bool
	PreferredEngageDist float64
}

// CombineWeights names every tuning constant of the combination step.
// Probability lanes average their inputs with these weights; the caps
// bound the multiplicative lanes after the product.
type CombineWeights struct {
	// Block chance = personality base, then weighted contributions.
	BlockStyleW  float64
	BlockAdviceW float64
	BlockPhaseW  float64 // applied to the phase block bonus
	BlockBuildW  float64

	// Dodge chance.
	DodgeStyleW  float64
	DodgeAdviceW float64
	DodgeBuildW  float64

	// Feint chance.
	FeintPhaseW       float64
	FeintStyleW       float64
	FeintDesperationW float64
	FeintAdviceW      float64

	// Combo chance = tempo base plus weighted boosts.
	ComboPhaseW       float64
	ComboBalanceW     float64
	ComboDesperationW float64

	// Spacing offset blends advice toward the nominal engage distance.
	SpacingAdviceScale float64

	// Bounds applied after multiplication.
	AggressionCap float64
	CooldownFloor float64
	CooldownCap   float64
	ChaseCap      float64
	PunishCap     float64
}

// DefaultCombineWeights returns the stock combination tuning.
func DefaultCombineWeights() CombineWeights {
	return CombineWeights{
		BlockStyleW:  0.45,
		BlockAdviceW: 0.35,
		BlockPhaseW:  1.0,
		BlockBuildW:  1.0,

		DodgeStyleW:  0.50,
		DodgeAdviceW: 0.50,
		DodgeBuildW:  1.0,

		FeintPhaseW:       0.30,
		FeintStyleW:       0.30,
		FeintDesperationW: 0.25,
		FeintAdviceW:      0.15,

		ComboPhaseW:       0.30,
		ComboBalanceW:     0.30,
		ComboDesperationW: 0.40,

		SpacingAdviceScale: 0.30,

		AggressionCap: 3.0,
		CooldownFloor: 0.30,
		CooldownCap:   2.5,
		ChaseCap:      2.5,
		PunishCap:     3.0,
	}
}

// Validate rejects weights that could push probabilities out of range.
func (w CombineWeights) Validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"block_style_w", w.BlockStyleW},
		{"block_advice_w", w.BlockAdviceW},
		{"block_phase_w", w.BlockPhaseW},
		{"block_build_w", w.BlockBuildW},
		{"dodge_style_w", w.DodgeStyleW},
		{"dodge_advice_w", w.DodgeAdviceW},
		{"dodge_build_w", w.DodgeBuildW},
		{"feint_phase_w", w.FeintPhaseW},
		{"feint_style_w", w.FeintStyleW},
		{"feint_desperation_w", w.FeintDesperationW},
		{"feint_advice_w", w.FeintAdviceW},
		{"combo_phase_w", w.ComboPhaseW},
		{"combo_balance_w", w.ComboBalanceW},
		{"combo_desperation_w", w.ComboDesperationW},
		{"spacing_advice_scale", w.SpacingAdviceScale},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("combine: %s %v outside [0,1]", p.name, p.v)
		}
	}
	if w.AggressionCap <= 1 {
		return fmt.Errorf("combine: aggression_cap %v must exceed 1", w.AggressionCap)
	}
	if w.CooldownFloor <= 0 || w.CooldownCap <= w.CooldownFloor {
		return fmt.Errorf("combine: cooldown bounds [%v,%v] invalid", w.CooldownFloor, w.CooldownCap)
	}
	if w.ChaseCap <= 1 || w.PunishCap <= 1 {
		return fmt.Errorf("combine: chase/punish caps must exceed 1")
	}
	return nil
}

// Combine merges all eight subsystem outputs into one Composite.
// Multiplicative lanes multiply then clamp, probability lanes average
// with the named weights, and everything lands back in its valid range.
func Combine(w CombineWeights, p Personality,
	phase PhaseModifier, style StyleModifier, diff BalanceModifier,
	intent IntentSignal, tempo TempoModifier, desp DesperationModifier,
	build BuildModifier, advice CounterAdvice) Composite {

	var c Composite

	// Aggression: phase x style x balance, desperation boost and advice
	// adjustment added on top.
	aggr := phase.Aggression * style.AggressionMult * diff.AggressionMult * p.IntentAttackMult
	aggr *= 1.0 + desp.AggressionBoost
	aggr += advice.AggressionAdj + build.AggressionOffset
	c.AggressionMult = clampF(aggr, 0.05, w.AggressionCap)

	// Cooldown: every subsystem multiplier is individually floored so no
	// single layer can zero the attack rate.
	cd := 1.0
	for _, m := range []float64{
		phase.CooldownMult, style.CooldownMult, diff.CooldownMult,
		desp.CooldownMult, build.CooldownMult,
	} {
		if m < w.CooldownFloor {
			m = w.CooldownFloor
		}
		cd *= m
	}
	c.CooldownMult = clampF(cd, w.CooldownFloor, w.CooldownCap)

	chase := phase.ChaseMult * style.ChaseSpeedMult * tempo.ChaseSpeedMult *
		desp.ChaseSpeedMult * build.ChaseSpeedMult * advice.ApproachSpeedMult
	c.ChaseSpeedMult = clampF(chase, 0.2, w.ChaseCap)

	c.StrafeSpeedMult = clampF(style.StrafeSpeedMult, 0.2, 2.0)
	c.PunishMult = clampF(phase.PunishMult*diff.PunishMult*build.PunishMult, 0.2, w.PunishCap)
	c.AccuracyMult = clampF(diff.AccuracyMult, 0.1, 1.5)

	// Block: personality base plus weighted layer contributions, minus
	// desperation's guard drop. Rage overrides the whole lane.
	block := p.BlockProfile +
		phase.BlockBonus*w.BlockPhaseW +
		style.BlockReadiness*w.BlockStyleW +
		advice.BlockReadiness*w.BlockAdviceW +
		(build.BlockAdd+build.ParryAdd)*w.BlockBuildW -
		desp.DefenseReduction
	if desp.RageBlockOverride >= 0 {
		block = desp.RageBlockOverride
	}
	c.BlockChance = clamp01(block)

	dodge := p.DodgeProbability +
		style.DodgeReadiness*w.DodgeStyleW +
		advice.DodgeReadiness*w.DodgeAdviceW +
		build.DodgeAdd*w.DodgeBuildW -
		desp.DefenseReduction*0.5
	c.DodgeChance = clamp01(dodge)

	feint := phase.FeintChance*w.FeintPhaseW +
		style.FeintChance*w.FeintStyleW +
		desp.FeintChance*w.FeintDesperationW +
		advice.FeintRate*w.FeintAdviceW
	c.FeintChance = clamp01(feint)

	combo := tempo.ComboChance * p.ComboExtension * 2.0
	combo += (phase.ComboMult - 1.0) * w.ComboPhaseW
	combo += (diff.ComboMult - 1.0) * w.ComboBalanceW
	combo += desp.ComboChanceBoost * w.ComboDesperationW
	c.ComboChance = clamp01(combo)

	c.GuardBreakChance = clamp01(build.GuardBreakChance)
	c.TelegraphBias = clamp01(diff.TelegraphBias)

	c.SpacingOffset = (style.SpacingOffset + build.SpacingOffset +
		(advice.PreferredEngageDist-70)*w.SpacingAdviceScale) * diff.SpacingTightness
	c.HeavyBias = clampF(style.HeavyBias+advice.HeavyBias, -1, 1)

	retreat := p.RetreatTendency * (1.0 + style.RetreatTendency - intent.AggressionLevel*0.5)
	if desp.RageRetreatOverride >= 0 {
		retreat = desp.RageRetreatOverride
	}
	c.RetreatTendency = clamp01(retreat)

	c.MovementErratic = clamp01(style.MovementErratic)

	c.ReactionDelay = advice.ReactionDelayAdj
	if diff.ReactionDelayMult > 1 {
		c.ReactionDelay += (diff.ReactionDelayMult - 1) * 0.1
	} else {
		c.ReactionDelay -= (1 - diff.ReactionDelayMult) * 0.05
	}

	c.StaminaIgnore = phase.StaminaIgnore
	if desp.RageStaminaIgnore > c.StaminaIgnore {
		c.StaminaIgnore = desp.RageStaminaIgnore
	}
	c.StaminaIgnore = clamp01(c.StaminaIgnore)
	c.StaminaDrainMult = clampF(build.StaminaDrainMult, 0.1, 3.0)

	c.ComboChainCap = diff.ComboChainCap
	c.ComboComplexity = clamp01(advice.ComboComplexity + diff.VariationBoost*0.3)
	c.PunishReady = tempo.PunishReady
	c.OpponentSpam = tempo.OpponentSpam
	c.PreferredEngageDist = advice.PreferredEngageDist

	return c
}
