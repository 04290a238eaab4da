package brain

import "testing"

func stepPhase(ps *PhaseSystem, seconds, hp, confidence float64) {
	const dt = 1.0 / 60.0
	for t := 0.0; t < seconds; t += dt {
		ps.Update(dt, hp, confidence, 0)
	}
}

func TestPhaseStartsInObserve(t *testing.T) {
	ps, err := NewPhaseSystem(DefaultPhaseConfig())
	if err != nil {
		t.Fatal(err)
	}
	if ps.Phase() != PhaseObserve {
		t.Errorf("phase = %v, want observe", ps.Phase())
	}
	m := ps.Modifier()
	if m.Aggression >= 1.0 {
		t.Errorf("observe aggression = %v, want < 1.0", m.Aggression)
	}
	if m.CooldownMult <= 1.0 {
		t.Errorf("observe cooldown = %v, want > 1.0 (slower attacks)", m.CooldownMult)
	}
}

func TestPhaseObserveToCounter_NeedsTimeAndConfidence(t *testing.T) {
	ps, _ := NewPhaseSystem(DefaultPhaseConfig())

	// High confidence but too early: stays in observe.
	stepPhase(ps, 2.0, 1.0, 0.9)
	if ps.Phase() != PhaseObserve {
		t.Fatalf("at 2s: phase = %v, want observe", ps.Phase())
	}

	// Past the minimum, confidence carries it over.
	stepPhase(ps, 2.5, 1.0, 0.9)
	if ps.Phase() != PhaseCounter {
		t.Errorf("at 4.5s with confidence: phase = %v, want counter", ps.Phase())
	}
}

func TestPhaseObserveForcedExit(t *testing.T) {
	ps, _ := NewPhaseSystem(DefaultPhaseConfig())

	// Zero confidence the whole way: the drag timeout still ends observe.
	stepPhase(ps, 11.0, 1.0, 0.0)
	if ps.Phase() != PhaseCounter {
		t.Errorf("after 11s with no confidence: phase = %v, want counter", ps.Phase())
	}
}

func TestPhaseDesperationAndRageByHP(t *testing.T) {
	ps, _ := NewPhaseSystem(DefaultPhaseConfig())

	ps.Update(1.0/60.0, 0.30, 0, 0)
	if ps.Phase() != PhaseDesperation {
		t.Fatalf("at 30%% HP: phase = %v, want desperation", ps.Phase())
	}
	m := ps.Modifier()
	if !m.JustTransitioned {
		t.Error("JustTransitioned should be true on the transition tick")
	}
	if m.PreviousPhase != PhaseObserve {
		t.Errorf("previous = %v, want observe", m.PreviousPhase)
	}

	ps.Update(1.0/60.0, 0.30, 0, 0)
	if ps.Modifier().JustTransitioned {
		t.Error("JustTransitioned should clear after one tick")
	}

	ps.Update(1.0/60.0, 0.10, 0, 0)
	if ps.Phase() != PhaseRage {
		t.Errorf("at 10%% HP: phase = %v, want rage", ps.Phase())
	}
	if ps.Modifier().StaminaIgnore <= 0 {
		t.Error("rage should ignore part of the stamina gate")
	}
}

func TestPhaseNeverRegresses(t *testing.T) {
	ps, _ := NewPhaseSystem(DefaultPhaseConfig())

	ps.Update(1.0/60.0, 0.10, 0, 0)
	if ps.Phase() != PhaseRage {
		t.Fatalf("phase = %v, want rage", ps.Phase())
	}

	// Healed back to full: the phase sticks.
	stepPhase(ps, 3.0, 1.0, 0.9)
	if ps.Phase() != PhaseRage {
		t.Errorf("after heal: phase = %v, want rage (phases only escalate)", ps.Phase())
	}
}

func TestPhaseReset(t *testing.T) {
	ps, _ := NewPhaseSystem(DefaultPhaseConfig())
	ps.Update(1.0/60.0, 0.10, 0, 0)
	ps.Reset()
	if ps.Phase() != PhaseObserve {
		t.Errorf("after reset: phase = %v, want observe", ps.Phase())
	}
}

func TestPhaseConfigValidate(t *testing.T) {
	cfg := DefaultPhaseConfig()
	cfg.RageHP = 0.5
	cfg.DesperationHP = 0.3
	if err := cfg.Validate(); err == nil {
		t.Error("rage threshold above desperation should fail validation")
	}

	cfg = DefaultPhaseConfig()
	cfg.DespCooldown = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero cooldown multiplier should fail validation")
	}
}
