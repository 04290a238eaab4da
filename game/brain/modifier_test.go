package brain

import (
	"math"
	"testing"
)

// neutralInputs returns subsystem outputs that should combine into an
// identity Composite for the default personality.
func neutralInputs() (PhaseModifier, StyleModifier, BalanceModifier,
	IntentSignal, TempoModifier, DesperationModifier, BuildModifier, CounterAdvice) {

	phase := PhaseModifier{Aggression: 1, CooldownMult: 1, ComboMult: 1, PunishMult: 1, ChaseMult: 1}
	style := StyleModifier{AggressionMult: 1, CooldownMult: 1, ChaseSpeedMult: 1, StrafeSpeedMult: 1}
	diff := neutralBalance(3)
	tempo := TempoModifier{ChaseSpeedMult: 1}
	desp := neutralDesperation()
	build := neutralBuild()
	advice := CounterAdvice{ApproachSpeedMult: 1, PreferredEngageDist: 70}
	return phase, style, diff, IntentSignal{}, tempo, desp, build, advice
}

func TestCombineNeutralIdentity(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)

	for name, got := range map[string]float64{
		"aggression": c.AggressionMult,
		"cooldown":   c.CooldownMult,
		"chase":      c.ChaseSpeedMult,
		"punish":     c.PunishMult,
	} {
		if math.Abs(got-1.0) > 1e-9 {
			t.Errorf("%s = %v, want 1.0 for neutral inputs", name, got)
		}
	}
	if math.Abs(c.BlockChance-p.BlockProfile) > 1e-9 {
		t.Errorf("block = %v, want personality base %v", c.BlockChance, p.BlockProfile)
	}
	if c.SpacingOffset != 0 {
		t.Errorf("spacing = %v, want 0", c.SpacingOffset)
	}
	if c.StaminaDrainMult != 1 {
		t.Errorf("stamina drain = %v, want 1", c.StaminaDrainMult)
	}
}

func TestCombineMultiplicativeLanes(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	phase.Aggression = 1.35
	style.AggressionMult = 1.40
	diff.AggressionMult = 1.30

	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	want := 1.35 * 1.40 * 1.30
	if math.Abs(c.AggressionMult-want) > 1e-9 {
		t.Errorf("aggression = %v, want product %v", c.AggressionMult, want)
	}

	// The cap binds when the product explodes.
	phase.Aggression = 3.0
	style.AggressionMult = 3.0
	c = Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if c.AggressionMult != w.AggressionCap {
		t.Errorf("aggression = %v, want cap %v", c.AggressionMult, w.AggressionCap)
	}
}

func TestCombineCooldownPerLayerFloor(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	// One crazy layer gets floored before multiplying.
	phase.CooldownMult = 0.01
	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if math.Abs(c.CooldownMult-w.CooldownFloor) > 1e-9 {
		t.Errorf("cooldown = %v, want per-layer floor %v", c.CooldownMult, w.CooldownFloor)
	}

	// Two floored layers still cannot break the final floor.
	style.CooldownMult = 0.01
	c = Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if c.CooldownMult < w.CooldownFloor {
		t.Errorf("cooldown = %v, below final floor %v", c.CooldownMult, w.CooldownFloor)
	}
}

func TestCombineBlockLane(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	phase.BlockBonus = 0.10
	style.BlockReadiness = 0.40
	advice.BlockReadiness = 0.20
	build.BlockAdd = 0.05
	build.ParryAdd = 0.05

	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	want := p.BlockProfile + 0.10*w.BlockPhaseW + 0.40*w.BlockStyleW +
		0.20*w.BlockAdviceW + 0.10*w.BlockBuildW
	if math.Abs(c.BlockChance-want) > 1e-9 {
		t.Errorf("block = %v, want %v", c.BlockChance, want)
	}
}

func TestCombineRageOverridesDefense(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	style.BlockReadiness = 0.8
	advice.BlockReadiness = 0.7
	desp.RageActive = true
	desp.RageBlockOverride = 0
	desp.RageRetreatOverride = 0

	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if c.BlockChance != 0 {
		t.Errorf("block under rage = %v, want 0", c.BlockChance)
	}
	if c.RetreatTendency != 0 {
		t.Errorf("retreat under rage = %v, want 0", c.RetreatTendency)
	}
}

func TestCombineStaminaIgnoreTakesMax(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	phase.StaminaIgnore = 0.3
	desp.RageStaminaIgnore = 0.6
	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if c.StaminaIgnore != 0.6 {
		t.Errorf("stamina ignore = %v, want 0.6 (max of layers)", c.StaminaIgnore)
	}

	phase.StaminaIgnore = 0.9
	c = Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if c.StaminaIgnore != 0.9 {
		t.Errorf("stamina ignore = %v, want 0.9", c.StaminaIgnore)
	}
}

func TestCombineProbabilitiesStayInRange(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	// Stack every contribution high.
	phase.BlockBonus = 1
	phase.FeintChance = 1
	phase.ComboMult = 2
	style.BlockReadiness = 1
	style.DodgeReadiness = 1
	style.FeintChance = 1
	tempo.ComboChance = 1
	desp.FeintChance = 1
	desp.ComboChanceBoost = 1
	advice.BlockReadiness = 1
	advice.DodgeReadiness = 1
	advice.FeintRate = 1
	build.DodgeAdd = 1
	build.GuardBreakChance = 2

	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	for name, v := range map[string]float64{
		"block":       c.BlockChance,
		"dodge":       c.DodgeChance,
		"feint":       c.FeintChance,
		"combo":       c.ComboChance,
		"guard_break": c.GuardBreakChance,
		"telegraph":   c.TelegraphBias,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", name, v)
		}
	}
}

func TestCombineSpacingUsesAdviceDelta(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	style.SpacingOffset = 10
	build.SpacingOffset = -20
	advice.PreferredEngageDist = 90

	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	want := (10.0 - 20.0 + 20.0*w.SpacingAdviceScale) * diff.SpacingTightness
	if math.Abs(c.SpacingOffset-want) > 1e-9 {
		t.Errorf("spacing = %v, want %v", c.SpacingOffset, want)
	}
}

func TestCombineReactionDelayMapping(t *testing.T) {
	w := DefaultCombineWeights()
	p := DefaultPersonality()
	phase, style, diff, sig, tempo, desp, build, advice := neutralInputs()

	diff.ReactionDelayMult = 1.4
	c := Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if c.ReactionDelay <= 0 {
		t.Errorf("eased reaction delay = %v, want positive", c.ReactionDelay)
	}

	diff.ReactionDelayMult = 0.8
	advice.ReactionDelayAdj = -0.05
	c = Combine(w, p, phase, style, diff, sig, tempo, desp, build, advice)
	if c.ReactionDelay >= 0 {
		t.Errorf("sharpened reaction delay = %v, want negative", c.ReactionDelay)
	}
}

func TestCombineWeightsValidate(t *testing.T) {
	w := DefaultCombineWeights()
	w.BlockStyleW = 1.2
	if err := w.Validate(); err == nil {
		t.Error("weight above 1 should fail validation")
	}

	w = DefaultCombineWeights()
	w.CooldownCap = w.CooldownFloor
	if err := w.Validate(); err == nil {
		t.Error("cap at floor should fail validation")
	}
}
