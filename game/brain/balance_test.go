package brain

import "testing"

func settleBalancer(b *DifficultyBalancer, seconds float64) {
	const dt = 1.0 / 60.0
	for t := 0.0; t < seconds; t += dt {
		b.Update(dt)
	}
}

func TestBalancerStartsNeutral(t *testing.T) {
	b, err := NewDifficultyBalancer(DefaultBalancerConfig())
	if err != nil {
		t.Fatal(err)
	}
	m := b.Modifier()
	if m.AggressionMult != 1 || m.CooldownMult != 1 || m.ReactionDelayMult != 1 {
		t.Errorf("fresh balancer should be neutral, got %+v", m)
	}
	if m.ComboChainCap != DefaultBalancerConfig().NeutralChainCap {
		t.Errorf("chain cap = %d, want %d", m.ComboChainCap, DefaultBalancerConfig().NeutralChainCap)
	}
}

func TestBalancerEasesWhenDominating(t *testing.T) {
	b, _ := NewDifficultyBalancer(DefaultBalancerConfig())

	// One-sided beating: the brain lands everything, opponent lands nothing.
	for i := 0; i < 20; i++ {
		b.RecordDealt(10)
		b.RecordOpponentMissed()
	}
	settleBalancer(b, 3.0)

	if b.Score() >= 0 {
		t.Fatalf("score while dominating = %v, want negative", b.Score())
	}
	m := b.Modifier()
	if m.AggressionMult >= 1 {
		t.Errorf("ease aggression = %v, want < 1", m.AggressionMult)
	}
	if m.CooldownMult <= 1 {
		t.Errorf("ease cooldown = %v, want > 1 (slower attacks)", m.CooldownMult)
	}
	if m.ReactionDelayMult <= 1 {
		t.Errorf("ease reaction = %v, want > 1", m.ReactionDelayMult)
	}
	if m.TelegraphBias <= 0 {
		t.Errorf("ease telegraph = %v, want > 0", m.TelegraphBias)
	}
	if m.ComboChainCap != DefaultBalancerConfig().EaseChainCap {
		t.Errorf("ease chain cap = %d, want %d", m.ComboChainCap, DefaultBalancerConfig().EaseChainCap)
	}
}

func TestBalancerSharpensWhenLosing(t *testing.T) {
	b, _ := NewDifficultyBalancer(DefaultBalancerConfig())

	for i := 0; i < 20; i++ {
		b.RecordTaken(10)
		b.RecordMissed()
	}
	settleBalancer(b, 3.0)

	if b.Score() <= 0 {
		t.Fatalf("score while losing = %v, want positive", b.Score())
	}
	m := b.Modifier()
	if m.AggressionMult <= 1 {
		t.Errorf("sharp aggression = %v, want > 1", m.AggressionMult)
	}
	if m.CooldownMult >= 1 {
		t.Errorf("sharp cooldown = %v, want < 1", m.CooldownMult)
	}
	if m.PunishMult <= 1 {
		t.Errorf("sharp punish = %v, want > 1", m.PunishMult)
	}
	if m.ComboChainCap != DefaultBalancerConfig().SharpChainCap {
		t.Errorf("sharp chain cap = %d, want %d", m.ComboChainCap, DefaultBalancerConfig().SharpChainCap)
	}
}

func TestBalancerScoreIsSmoothed(t *testing.T) {
	b, _ := NewDifficultyBalancer(DefaultBalancerConfig())

	for i := 0; i < 20; i++ {
		b.RecordTaken(10)
	}
	b.Update(1.0 / 60.0)
	first := b.Score()
	if first <= 0 {
		t.Fatalf("score = %v, want positive", first)
	}
	// One tick must not jump anywhere near the raw value.
	if first > 0.1 {
		t.Errorf("score after one tick = %v, want <= 0.1 (smoothing)", first)
	}
	settleBalancer(b, 3.0)
	if b.Score() <= first {
		t.Errorf("score should keep rising toward raw, got %v", b.Score())
	}
}

func TestBalancerWindowSlides(t *testing.T) {
	cfg := DefaultBalancerConfig()
	cfg.WindowExchanges = 10
	b, _ := NewDifficultyBalancer(cfg)

	// Old dominance fully displaced by recent struggle.
	for i := 0; i < 10; i++ {
		b.RecordDealt(10)
	}
	for i := 0; i < 10; i++ {
		b.RecordTaken(10)
	}
	settleBalancer(b, 4.0)
	if b.Score() <= 0 {
		t.Errorf("score after window slid = %v, want positive", b.Score())
	}
}

func TestBalancerDefenseFeedsScore(t *testing.T) {
	b, _ := NewDifficultyBalancer(DefaultBalancerConfig())

	// Opponent blocks or dodges everything; no damage flows.
	for i := 0; i < 12; i++ {
		b.RecordOpponentBlocked()
		b.RecordOpponentDodged()
	}
	settleBalancer(b, 3.0)
	if b.Score() <= 0 {
		t.Errorf("score vs perfect defense = %v, want positive", b.Score())
	}
}

func TestBalancerReset(t *testing.T) {
	b, _ := NewDifficultyBalancer(DefaultBalancerConfig())
	for i := 0; i < 20; i++ {
		b.RecordTaken(10)
	}
	settleBalancer(b, 2.0)
	b.Reset()
	if b.Score() != 0 {
		t.Errorf("score after reset = %v, want 0", b.Score())
	}
	if m := b.Modifier(); m.AggressionMult != 1 {
		t.Errorf("modifier after reset = %+v, want neutral", m)
	}
}

func TestBalancerConfigValidate(t *testing.T) {
	cfg := DefaultBalancerConfig()
	cfg.EaseThreshold = 0.1
	if err := cfg.Validate(); err == nil {
		t.Error("positive ease threshold should fail validation")
	}

	cfg = DefaultBalancerConfig()
	cfg.Strength = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("strength above 1 should fail validation")
	}
}
