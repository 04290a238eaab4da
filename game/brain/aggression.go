package brain

import (
	"fmt"
	"math/rand"
)

// TempoModifier is the aggression system's per-tick output.
type TempoModifier struct {
	Tempo          TempoMode
	FlowRatio      float64 // [-1,1], positive = winning the recent exchange
	ChaseSpeedMult float64
	ComboChance    float64
	StrafeDir      int // -1, 0, +1 micro-movement
	PunishReady    bool
	OpponentSpam   bool
	ComboQueued    int // steps waiting in the queue
}

// ComboStep is one planned follow-up attack in the combo queue.
type ComboStep struct {
	Heavy bool
}

// AggressionConfig tunes pressure, tempo, and punish behaviour.
type AggressionConfig struct {
	BaseCooldownMin     float64
	BaseCooldownMax     float64
	PressureCooldownMin float64
	PressureCooldownMax float64
	BurstCooldownMin    float64
	BurstCooldownMax    float64
	GuardCooldownScale  float64 // applied on top of base when guarding

	StrafeSpeed          float64 // px per tick at the nominal tick rate
	StrafeChangeInterval float64 // seconds between direction rerolls

	ComboChanceBase     float64
	ComboChancePressure float64
	ComboChainCooldown  float64 // seconds between chained hits
	ComboQueueMax       int     // FIFO queue capacity

	ChasePressure float64
	ChaseBurst    float64
	ChaseGuard    float64

	FlowWindow  float64 // seconds of damage history for flow ratio
	AggroWindow float64 // seconds of aggression samples for tempo

	TempoDwellTicks int // minimum ticks before a tempo switch

	PunishWindow        float64 // seconds the punish window stays open
	PunishExposureTicks int     // opponent must stay exposed this many ticks

	SpamWindow    float64 // seconds
	SpamThreshold int     // attacks within SpamWindow that count as spam
}

// DefaultAggressionConfig returns the stock tuning.
func DefaultAggressionConfig() AggressionConfig {
	return AggressionConfig{
		BaseCooldownMin:     0.6,
		BaseCooldownMax:     0.8,
		PressureCooldownMin: 0.3,
		PressureCooldownMax: 0.5,
		BurstCooldownMin:    0.25,
		BurstCooldownMax:    0.45,
		GuardCooldownScale:  1.15,

		StrafeSpeed:          2.5,
		StrafeChangeInterval: 0.4,

		ComboChanceBase:     0.35,
		ComboChancePressure: 0.55,
		ComboChainCooldown:  0.18,
		ComboQueueMax:       3,

		ChasePressure: 1.40,
		ChaseBurst:    1.55,
		ChaseGuard:    0.85,

		FlowWindow:  10.0,
		AggroWindow: 1.5,

		TempoDwellTicks: 30,

		PunishWindow:        0.25,
		PunishExposureTicks: 2,

		SpamWindow:    2.0,
		SpamThreshold: 4,
	}
}

// Validate rejects out-of-range tuning.
func (c AggressionConfig) Validate() error {
	ranges := []struct {
		name     string
		min, max float64
	}{
		{"base_cooldown", c.BaseCooldownMin, c.BaseCooldownMax},
		{"pressure_cooldown", c.PressureCooldownMin, c.PressureCooldownMax},
		{"burst_cooldown", c.BurstCooldownMin, c.BurstCooldownMax},
	}
	for _, r := range ranges {
		if r.min <= 0 || r.max < r.min {
			return fmt.Errorf("aggression: %s range [%v,%v] invalid", r.name, r.min, r.max)
		}
	}
	if c.GuardCooldownScale <= 0 {
		return fmt.Errorf("aggression: guard_cooldown_scale %v must be > 0", c.GuardCooldownScale)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"combo_chance_base", c.ComboChanceBase},
		{"combo_chance_pressure", c.ComboChancePressure},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("aggression: %s %v outside [0,1]", p.name, p.v)
		}
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"chase_pressure", c.ChasePressure},
		{"chase_burst", c.ChaseBurst},
		{"chase_guard", c.ChaseGuard},
	} {
		if p.v <= 0 {
			return fmt.Errorf("aggression: %s %v must be > 0", p.name, p.v)
		}
	}
	if c.ComboQueueMax < 1 {
		return fmt.Errorf("aggression: combo_queue_max %d must be >= 1", c.ComboQueueMax)
	}
	if c.FlowWindow <= 0 || c.AggroWindow <= 0 || c.SpamWindow <= 0 {
		return fmt.Errorf("aggression: rolling windows must be > 0")
	}
	if c.TempoDwellTicks < 0 {
		return fmt.Errorf("aggression: tempo_dwell_ticks %d negative", c.TempoDwellTicks)
	}
	if c.PunishWindow <= 0 || c.PunishExposureTicks < 1 {
		return fmt.Errorf("aggression: punish window tuning invalid")
	}
	if c.SpamThreshold < 1 {
		return fmt.Errorf("aggression: spam_threshold %d must be >= 1", c.SpamThreshold)
	}
	return nil
}

// timedSample is a value stamped with match time for rolling windows.
type timedSample struct {
	t float64
	v float64
}

func pruneSamples(s []timedSample, cutoff float64) []timedSample {
	i := 0
	for i < len(s) && s[i].t < cutoff {
		i++
	}
	return s[i:]
}

// flowTracker holds damage dealt/taken in a rolling time window so the
// brain knows who is winning moment to moment.
type flowTracker struct {
	window float64
	dealt  []timedSample
	taken  []timedSample
}

func (f *flowTracker) recordDealt(now float64, amount int) {
	f.dealt = append(f.dealt, timedSample{now, float64(amount)})
}

func (f *flowTracker) recordTaken(now float64, amount int) {
	f.taken = append(f.taken, timedSample{now, float64(amount)})
}

// ratio returns -1 (losing badly) to +1 (dominating), 0 when even.
func (f *flowTracker) ratio(now float64) float64 {
	cutoff := now - f.window
	f.dealt = pruneSamples(f.dealt, cutoff)
	f.taken = pruneSamples(f.taken, cutoff)
	var d, t float64
	for _, s := range f.dealt {
		d += s.v
	}
	for _, s := range f.taken {
		t += s.v
	}
	if d+t == 0 {
		return 0
	}
	return (d - t) / (d + t)
}

func (f *flowTracker) clear() {
	f.dealt = f.dealt[:0]
	f.taken = f.taken[:0]
}

// AggressionSystem drives pressure pacing: tempo mode with hysteresis,
// strafing during cooldowns, punish windows after opponent whiffs, and
// a FIFO queue of planned combo follow-ups.
type AggressionSystem struct {
	cfg AggressionConfig
	rng *rand.Rand

	flow flowTracker
	mod  TempoModifier

	aggroSamples []timedSample // rolling aggression_level history

	tempo      TempoMode
	tempoDwell int // ticks spent in the current tempo

	strafeDir   int
	strafeTimer float64

	opponentWasAttacking bool
	exposureTicks        int
	punishTimer          float64

	attackStamps []float64 // opponent attack start times for spam detection

	comboQueue []ComboStep
	chainTimer float64
}

// NewAggressionSystem validates cfg and builds the system.
func NewAggressionSystem(cfg AggressionConfig, rng *rand.Rand) (*AggressionSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("aggression: rng required")
	}
	return &AggressionSystem{
		cfg:  cfg,
		rng:  rng,
		flow: flowTracker{window: cfg.FlowWindow},
	}, nil
}

// Modifier returns the output computed by the last Update.
func (a *AggressionSystem) Modifier() TempoModifier { return a.mod }

// Tempo returns the current tempo mode.
func (a *AggressionSystem) Tempo() TempoMode { return a.tempo }

// FlowRatio returns the rolling damage flow at the given time.
func (a *AggressionSystem) FlowRatio(now float64) float64 { return a.flow.ratio(now) }

// RecordDealt feeds the flow tracker with damage the fighter landed.
func (a *AggressionSystem) RecordDealt(now float64, amount int) {
	a.flow.recordDealt(now, amount)
}

// RecordTaken feeds the flow tracker with damage the fighter received.
func (a *AggressionSystem) RecordTaken(now float64, amount int) {
	a.flow.recordTaken(now, amount)
}

// Update advances tempo, strafe, punish, and combo timers. Call every tick.
func (a *AggressionSystem) Update(dt, now, selfHPFrac, aggressionLevel float64,
	opponentAttacking bool, distance, attackRange float64) {

	cfg := a.cfg

	// Rolling aggression average for tempo selection.
	a.aggroSamples = append(a.aggroSamples, timedSample{now, aggressionLevel})
	a.aggroSamples = pruneSamples(a.aggroSamples, now-cfg.AggroWindow)
	avgAggro := aggressionLevel
	if n := len(a.aggroSamples); n > 0 {
		sum := 0.0
		for _, s := range a.aggroSamples {
			sum += s.v
		}
		avgAggro = sum / float64(n)
	}

	flowRatio := a.flow.ratio(now)

	// Tempo candidate, then hysteresis: a switch needs the current mode
	// to have dwelt long enough.
	candidate := TempoNeutral
	switch {
	case selfHPFrac < 0.35:
		candidate = TempoBurst
	case flowRatio < -0.3:
		candidate = TempoPressure
	case flowRatio > 0.3:
		candidate = TempoGuard
	case avgAggro > 0.65:
		candidate = TempoPressure
	case avgAggro < 0.35:
		candidate = TempoGuard
	}
	a.tempoDwell++
	if candidate != a.tempo && a.tempoDwell >= cfg.TempoDwellTicks {
		a.tempo = candidate
		a.tempoDwell = 0
	}

	// Punish: the opponent's whiff must leave them exposed for a run of
	// ticks before the window opens.
	whiffEnded := a.opponentWasAttacking && !opponentAttacking
	if whiffEnded && distance < attackRange*1.8 {
		a.exposureTicks = 1
	} else if a.exposureTicks > 0 && !opponentAttacking && distance < attackRange*1.8 {
		a.exposureTicks++
	} else {
		a.exposureTicks = 0
	}
	if a.exposureTicks >= cfg.PunishExposureTicks && a.punishTimer <= 0 {
		a.punishTimer = cfg.PunishWindow
		a.exposureTicks = 0
		// Punish confirmed: pressure it into a combo, gated by how
		// aggressive the fighter currently feels.
		if a.rng.Float64() < aggressionLevel {
			a.Enqueue(ComboStep{}, ComboStep{Heavy: true})
		}
	}
	if a.punishTimer > 0 {
		a.punishTimer -= dt
	}

	// Spam detection on opponent attack starts.
	if opponentAttacking && !a.opponentWasAttacking {
		a.attackStamps = append(a.attackStamps, now)
	}
	a.opponentWasAttacking = opponentAttacking
	i := 0
	for i < len(a.attackStamps) && now-a.attackStamps[i] >= cfg.SpamWindow {
		i++
	}
	a.attackStamps = a.attackStamps[i:]

	// Strafe reroll.
	a.strafeTimer -= dt
	if a.strafeTimer <= 0 {
		a.strafeDir = a.rng.Intn(3) - 1
		a.strafeTimer = cfg.StrafeChangeInterval + (a.rng.Float64()*0.2 - 0.1)
	}

	// Chain pacing between queued combo hits.
	if a.chainTimer > 0 {
		a.chainTimer -= dt
	}

	a.mod = TempoModifier{
		Tempo:          a.tempo,
		FlowRatio:      flowRatio,
		ChaseSpeedMult: a.chaseMult(),
		ComboChance:    a.comboChance(),
		StrafeDir:      a.strafeDir,
		PunishReady:    a.punishTimer > 0,
		OpponentSpam:   len(a.attackStamps) >= cfg.SpamThreshold,
		ComboQueued:    len(a.comboQueue),
	}
}

func (a *AggressionSystem) chaseMult() float64 {
	switch a.tempo {
	case TempoPressure:
		return a.cfg.ChasePressure
	case TempoBurst:
		return a.cfg.ChaseBurst
	case TempoGuard:
		return a.cfg.ChaseGuard
	}
	return 1.0
}

func (a *AggressionSystem) comboChance() float64 {
	if a.tempo == TempoPressure || a.tempo == TempoBurst {
		return a.cfg.ComboChancePressure
	}
	return a.cfg.ComboChanceBase
}

// DynamicCooldown rolls the next attack cooldown for the current tempo.
func (a *AggressionSystem) DynamicCooldown() float64 {
	cfg := a.cfg
	roll := func(lo, hi float64) float64 {
		return lo + a.rng.Float64()*(hi-lo)
	}
	switch a.tempo {
	case TempoPressure:
		return roll(cfg.PressureCooldownMin, cfg.PressureCooldownMax)
	case TempoBurst:
		return roll(cfg.BurstCooldownMin, cfg.BurstCooldownMax)
	case TempoGuard:
		return roll(cfg.BaseCooldownMin, cfg.BaseCooldownMax) * cfg.GuardCooldownScale
	}
	return roll(cfg.BaseCooldownMin, cfg.BaseCooldownMax)
}

// Enqueue pushes combo steps FIFO, dropping overflow past the queue
// cap. Returns how many steps were accepted.
func (a *AggressionSystem) Enqueue(steps ...ComboStep) int {
	accepted := 0
	for _, s := range steps {
		if len(a.comboQueue) >= a.cfg.ComboQueueMax {
			break
		}
		a.comboQueue = append(a.comboQueue, s)
		accepted++
	}
	return accepted
}

// TrimQueue drops queued steps beyond n (the balancer's chain cap).
func (a *AggressionSystem) TrimQueue(n int) {
	if n < 0 {
		n = 0
	}
	if len(a.comboQueue) > n {
		a.comboQueue = a.comboQueue[:n]
	}
}

// NextComboStep pops the head of the queue once the chain cooldown has
// elapsed, arming it again for the following step.
func (a *AggressionSystem) NextComboStep() (ComboStep, bool) {
	if len(a.comboQueue) == 0 || a.chainTimer > 0 {
		return ComboStep{}, false
	}
	step := a.comboQueue[0]
	a.comboQueue = a.comboQueue[1:]
	a.chainTimer = a.cfg.ComboChainCooldown
	return step, true
}

// PendingCombo returns the number of queued steps.
func (a *AggressionSystem) PendingCombo() int { return len(a.comboQueue) }

// StrafeSpeed returns the configured micro-movement speed.
func (a *AggressionSystem) StrafeSpeed() float64 { return a.cfg.StrafeSpeed }

// Reset clears all rolling state for a new match.
func (a *AggressionSystem) Reset() {
	a.flow.clear()
	a.mod = TempoModifier{ChaseSpeedMult: 1}
	a.aggroSamples = a.aggroSamples[:0]
	a.tempo = TempoNeutral
	a.tempoDwell = 0
	a.strafeDir = 0
	a.strafeTimer = 0
	a.opponentWasAttacking = false
	a.exposureTicks = 0
	a.punishTimer = 0
	a.attackStamps = a.attackStamps[:0]
	a.comboQueue = a.comboQueue[:0]
	a.chainTimer = 0
}
