package brain

import (
	"math"
	"testing"
)

// driveAttacks feeds n opponent swings at a fixed interval and distance,
// with idle gaps so each swing registers as a fresh edge.
func driveAttacks(l *AdaptiveLearning, start float64, n int, interval, dist float64, heavy bool) float64 {
	const dt = 1.0 / 60.0
	now := start
	for i := 0; i < n; i++ {
		now += dt
		l.Observe(dt, now, Observation{Distance: dist, OpponentAttacking: true, OpponentHeavy: heavy, OpponentStamina: 1})
		for now < start+float64(i+1)*interval {
			now += dt
			l.Observe(dt, now, Observation{Distance: dist, OpponentStamina: 1})
		}
	}
	return now
}

func TestLearningDefaultsBeforeEvidence(t *testing.T) {
	l, err := NewAdaptiveLearning(DefaultLearningConfig())
	if err != nil {
		t.Fatal(err)
	}
	if l.Confidence() != 0 {
		t.Errorf("confidence = %v, want 0", l.Confidence())
	}
	a := l.Advice()
	if a.PunishProbability != 0.3 || a.PreferredEngageDist != 70 {
		t.Errorf("advice should start at defaults, got %+v", a)
	}
}

func TestLearningConfidenceGrowsWithAttacks(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	driveAttacks(l, 0, 20, 0.5, 100, false)
	if l.Confidence() < 0.2 {
		t.Errorf("confidence after 20 swings = %v, want >= 0.2", l.Confidence())
	}
}

func TestLearningAttackFrequency(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())

	// Spam: one swing every 0.4s within the window.
	driveAttacks(l, 0, 16, 0.4, 100, false)
	spam := l.Profile().AttackFrequency

	l.Reset()
	// Passive: one swing every 2.5s.
	driveAttacks(l, 0, 4, 2.5, 100, false)
	passive := l.Profile().AttackFrequency

	if spam <= passive {
		t.Errorf("spam frequency %v should exceed passive %v", spam, passive)
	}
	if spam < 0.6 {
		t.Errorf("spam frequency = %v, want >= 0.6", spam)
	}
}

func TestLearningHeavyRatio(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	driveAttacks(l, 0, 10, 0.5, 100, true)
	if got := l.Profile().HeavyRatio; got < 0.99 {
		t.Errorf("heavy ratio = %v, want 1.0", got)
	}
	if got := l.Advice().HeavyBias; got >= 0 {
		t.Errorf("advice heavy bias = %v, want negative (answer heavies with quicks)", got)
	}
}

func TestLearningRhythmDetection(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	// Metronomic 0.5s cadence.
	driveAttacks(l, 0, 14, 0.5, 100, false)
	if got := l.Profile().AttackRhythm; got < 0.6 {
		t.Errorf("metronomic rhythm = %v, want >= 0.6", got)
	}
	if got := l.Advice().ReactionDelayAdj; got >= 0 {
		t.Errorf("reaction adj vs rhythmic attacker = %v, want negative", got)
	}
}

func TestLearningSpamAdvice(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	driveAttacks(l, 0, 18, 0.35, 100, false)

	a := l.Advice()
	if a.PunishProbability <= 0.3 {
		t.Errorf("punish probability vs spammer = %v, want > 0.3", a.PunishProbability)
	}
	if a.BlockReadiness <= 0.3 {
		t.Errorf("block readiness vs spammer = %v, want > 0.3", a.BlockReadiness)
	}
}

func TestLearningRangePreference(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())

	// Opponent camps far out; a few swings so advice regenerates.
	driveAttacks(l, 0, 6, 1.0, 250, false)
	p := l.Profile()
	if p.PreferredRange != RangeFar {
		t.Errorf("preferred range = %v, want far", p.PreferredRange)
	}
	a := l.Advice()
	if a.ApproachSpeedMult <= 1.0 {
		t.Errorf("approach speed vs camper = %v, want > 1.0", a.ApproachSpeedMult)
	}
	if a.PreferredEngageDist >= 70 {
		t.Errorf("engage dist vs camper = %v, want < 70 (close the gap)", a.PreferredEngageDist)
	}
}

func TestLearningBlockAfterHit(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	const dt = 1.0 / 60.0
	now := 0.0

	// A few swings to clear the advice event floor.
	now = driveAttacks(l, now, 5, 0.8, 60, false)

	// Every hit confirm is answered with a block.
	for i := 0; i < 8; i++ {
		l.NotifyOpponentHit()
		now += dt
		l.Observe(dt, now, Observation{Distance: 60, OpponentBlocking: true, OpponentStamina: 1})
		for j := 0; j < 30; j++ {
			now += dt
			l.Observe(dt, now, Observation{Distance: 60, OpponentStamina: 1})
		}
	}

	if got := l.Profile().BlockAfterHit; got < 0.5 {
		t.Errorf("block-after-hit = %v, want >= 0.5", got)
	}
	a := l.Advice()
	if a.HeavyBias < 0.25 {
		t.Errorf("heavy bias vs turtle = %v, want >= 0.25 (guard pressure)", a.HeavyBias)
	}
}

func TestLearningDodgeFrequency(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	const dt = 1.0 / 60.0
	now := 0.0
	for i := 0; i < 10; i++ {
		now += dt
		l.Observe(dt, now, Observation{Distance: 80, OpponentDodging: true, OpponentStamina: 1})
		for j := 0; j < 20; j++ {
			now += dt
			l.Observe(dt, now, Observation{Distance: 80, OpponentStamina: 1})
		}
	}
	if got := l.Profile().DodgeFrequency; got < 0.9 {
		t.Errorf("dodge frequency = %v, want >= 0.9 (all defences were dodges)", got)
	}
}

func TestLearningActionMixNormalised(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	driveAttacks(l, 0, 10, 0.5, 100, false)

	var sum float64
	for _, v := range l.Profile().ActionMix {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("action mix sums to %v, want 1", sum)
	}
}

func TestLearningWindowForgets(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	now := driveAttacks(l, 0, 12, 0.4, 100, false)
	spam := l.Profile().AttackFrequency

	// Long quiet stretch pushes the burst outside the window.
	const dt = 1.0 / 60.0
	for t2 := 0.0; t2 < 12.0; t2 += dt {
		now += dt
		l.Observe(dt, now, Observation{Distance: 100, OpponentStamina: 1})
	}

	if after := l.Profile().AttackFrequency; after >= spam {
		t.Errorf("frequency after quiet spell = %v, want < %v", after, spam)
	}
}

func TestLearningReset(t *testing.T) {
	l, _ := NewAdaptiveLearning(DefaultLearningConfig())
	driveAttacks(l, 0, 10, 0.5, 100, true)
	l.Reset()

	if l.Confidence() != 0 {
		t.Errorf("confidence after reset = %v, want 0", l.Confidence())
	}
	if got := l.Profile(); got != defaultProfile() {
		t.Errorf("profile after reset = %+v, want defaults", got)
	}
}
