package brain

import (
	"fmt"
	"math"
)

// RangeBand buckets engagement distance.
type RangeBand int

const (
	RangeClose RangeBand = iota
	RangeMid
	RangeFar
)

func (r RangeBand) String() string {
	switch r {
	case RangeClose:
		return "close"
	case RangeFar:
		return "far"
	}
	return "mid"
}

// ObservedAction categorizes one tick of opponent behaviour.
type ObservedAction int

const (
	ObservedNone ObservedAction = iota
	ObservedQuick
	ObservedHeavy
	ObservedBlock
	ObservedDodge

	observedActionCount
)

// PlayerProfile is the learned model of the opponent's habits. All
// scores are normalised to [0,1]. Callers receive copies; the learner
// keeps the only mutable instance.
type PlayerProfile struct {
	AttackFrequency float64 // 0 = passive, 1 = spam
	AttackRhythm    float64 // 0 = erratic, 1 = metronomic
	ComboRepetition float64
	HeavyRatio      float64

	PreferredRange RangeBand
	RangeCloseBias float64
	RangeMidBias   float64
	RangeFarBias   float64

	BlockAfterHit      float64
	DodgeFrequency     float64
	RetreatAfterAttack float64

	StaminaReckless float64

	// ActionMix is the decayed share of each observed action category,
	// ObservedNone excluded. Entries sum to 1 once anything was seen.
	ActionMix [observedActionCount]float64
}

func defaultProfile() PlayerProfile {
	return PlayerProfile{
		AttackFrequency: 0.5,
		HeavyRatio:      0.5,
		PreferredRange:  RangeMid,
		RangeCloseBias:  0.33,
		RangeMidBias:    0.34,
		RangeFarBias:    0.33,
		StaminaReckless: 0.5,
	}
}

// CounterAdvice is the learner's per-tick tactical suggestion set.
type CounterAdvice struct {
	ReactionDelayAdj  float64 // seconds; negative = respond faster
	PunishProbability float64
	FeintRate         float64

	AggressionAdj   float64 // additive
	ComboComplexity float64
	HeavyBias       float64

	PreferredEngageDist float64
	ApproachSpeedMult   float64

	BlockReadiness float64
	DodgeReadiness float64
}

func defaultAdvice() CounterAdvice {
	return CounterAdvice{
		PunishProbability:   0.3,
		ComboComplexity:     0.5,
		PreferredEngageDist: 70,
		ApproachSpeedMult:   1.0,
		BlockReadiness:      0.3,
		DodgeReadiness:      0.1,
	}
}

// LearningConfig tunes the per-match pattern learner.
type LearningConfig struct {
	EventWindow float64 // seconds of history the analysis looks at

	ConfidencePerEvent float64
	ConfidenceDecay    float64 // per second after inactivity
	ConfidenceMax      float64

	ComboMemory int // ring buffer of recent attack kinds

	CloseRange float64 // px
	MidRange   float64 // px; beyond is far

	MinEventsForAdvice int

	AttackLogCap   int
	DefenseLogCap  int
	PositionLogCap int

	HistogramDecay    float64 // per second, applied to the action mix
	ReanalyzeInterval float64 // seconds between profile rebuilds
}

// DefaultLearningConfig returns the stock tuning.
func DefaultLearningConfig() LearningConfig {
	return LearningConfig{
		EventWindow:        8.0,
		ConfidencePerEvent: 0.012,
		ConfidenceDecay:    0.002,
		ConfidenceMax:      1.0,
		ComboMemory:        12,
		CloseRange:         80,
		MidRange:           160,
		MinEventsForAdvice: 4,
		AttackLogCap:       200,
		DefenseLogCap:      100,
		PositionLogCap:     300,
		HistogramDecay:     0.15,
		ReanalyzeInterval:  0.5,
	}
}

// Validate rejects out-of-range tuning.
func (c LearningConfig) Validate() error {
	if c.EventWindow <= 0 {
		return fmt.Errorf("learning: event_window %v must be > 0", c.EventWindow)
	}
	if c.ConfidencePerEvent < 0 || c.ConfidenceDecay < 0 {
		return fmt.Errorf("learning: confidence rates must be >= 0")
	}
	if c.ConfidenceMax <= 0 || c.ConfidenceMax > 1 {
		return fmt.Errorf("learning: confidence_max %v outside (0,1]", c.ConfidenceMax)
	}
	if c.ComboMemory < 4 {
		return fmt.Errorf("learning: combo_memory %d must be >= 4", c.ComboMemory)
	}
	if c.CloseRange <= 0 || c.MidRange <= c.CloseRange {
		return fmt.Errorf("learning: range bins close=%v mid=%v invalid", c.CloseRange, c.MidRange)
	}
	if c.MinEventsForAdvice < 0 {
		return fmt.Errorf("learning: min_events_for_advice %d negative", c.MinEventsForAdvice)
	}
	if c.AttackLogCap < 1 || c.DefenseLogCap < 1 || c.PositionLogCap < 1 {
		return fmt.Errorf("learning: log caps must be >= 1")
	}
	if c.HistogramDecay < 0 || c.HistogramDecay >= 1 {
		return fmt.Errorf("learning: histogram_decay %v outside [0,1)", c.HistogramDecay)
	}
	if c.ReanalyzeInterval <= 0 {
		return fmt.Errorf("learning: reanalyze_interval %v must be > 0", c.ReanalyzeInterval)
	}
	return nil
}

// Observation is what the learner sees of the opponent each tick.
type Observation struct {
	Distance          float64
	OpponentAttacking bool
	OpponentHeavy     bool
	OpponentBlocking  bool
	OpponentDodging   bool
	OpponentStamina   float64 // fraction
}

type attackEvent struct {
	t        float64
	heavy    bool
	distance float64
}

type defenseAction int

const (
	defBlock defenseAction = iota
	defDodge
)

type defenseEvent struct {
	t        float64
	action   defenseAction
	afterHit bool
}

// AdaptiveLearning watches the opponent within the current match and
// builds a pattern model plus counter advice. Nothing here persists
// across matches: a player who changes style forces a re-learn.
type AdaptiveLearning struct {
	cfg LearningConfig

	profile    PlayerProfile
	advice     CounterAdvice
	confidence float64

	histogram [observedActionCount]float64

	attacks   []attackEvent
	defenses  []defenseEvent
	positions []timedSample
	comboRing []bool // recent attack kinds, true = heavy

	wasAttacking bool
	wasBlocking  bool
	wasDodging   bool

	justTookHit  bool
	hitCooldown  float64
	lastStamina  float64
	inactivity   float64
	analyzeTimer float64
}

// NewAdaptiveLearning validates cfg and builds the learner.
func NewAdaptiveLearning(cfg LearningConfig) (*AdaptiveLearning, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AdaptiveLearning{
		cfg:         cfg,
		profile:     defaultProfile(),
		advice:      defaultAdvice(),
		lastStamina: 1.0,
	}, nil
}

// Profile returns a snapshot copy of the learned model.
func (l *AdaptiveLearning) Profile() PlayerProfile { return l.profile }

// Advice returns a snapshot copy of the current counter advice.
func (l *AdaptiveLearning) Advice() CounterAdvice { return l.advice }

// Confidence reports how sure the learner is about its model, [0,1].
func (l *AdaptiveLearning) Confidence() float64 { return l.confidence }

// NotifyOpponentHit marks that the opponent just took damage, opening
// the window that classifies their next defence as "after hit".
func (l *AdaptiveLearning) NotifyOpponentHit() {
	l.justTookHit = true
	l.hitCooldown = 1.0
}

// Observe ingests one tick of opponent behaviour. Call every tick.
func (l *AdaptiveLearning) Observe(dt, now float64, obs Observation) {
	cfg := l.cfg

	l.positions = append(l.positions, timedSample{now, obs.Distance})
	if len(l.positions) > cfg.PositionLogCap {
		l.positions = l.positions[1:]
	}

	// Decay the action histogram, then credit this tick's category.
	decay := 1.0 - cfg.HistogramDecay*dt
	if decay < 0 {
		decay = 0
	}
	for i := range l.histogram {
		l.histogram[i] *= decay
	}

	category := ObservedNone

	if obs.OpponentAttacking && !l.wasAttacking {
		ev := attackEvent{t: now, heavy: obs.OpponentHeavy, distance: obs.Distance}
		l.attacks = append(l.attacks, ev)
		if len(l.attacks) > cfg.AttackLogCap {
			l.attacks = l.attacks[1:]
		}
		l.comboRing = append(l.comboRing, obs.OpponentHeavy)
		if len(l.comboRing) > cfg.ComboMemory {
			l.comboRing = l.comboRing[1:]
		}
		l.confidence = math.Min(cfg.ConfidenceMax, l.confidence+cfg.ConfidencePerEvent)
		l.inactivity = 0
		category = ObservedQuick
		if obs.OpponentHeavy {
			category = ObservedHeavy
		}
	}
	l.wasAttacking = obs.OpponentAttacking

	if obs.OpponentBlocking && !l.wasBlocking {
		l.pushDefense(defenseEvent{t: now, action: defBlock, afterHit: l.justTookHit})
		l.confidence = math.Min(cfg.ConfidenceMax, l.confidence+cfg.ConfidencePerEvent*0.5)
		category = ObservedBlock
	}
	l.wasBlocking = obs.OpponentBlocking

	if obs.OpponentDodging && !l.wasDodging {
		l.pushDefense(defenseEvent{t: now, action: defDodge, afterHit: l.justTookHit})
		l.confidence = math.Min(cfg.ConfidenceMax, l.confidence+cfg.ConfidencePerEvent*0.5)
		category = ObservedDodge
	}
	l.wasDodging = obs.OpponentDodging

	if category != ObservedNone {
		l.histogram[category] += 1.0
	}

	if l.hitCooldown > 0 {
		l.hitCooldown -= dt
		if l.hitCooldown <= 0 {
			l.justTookHit = false
		}
	}

	l.lastStamina = obs.OpponentStamina

	l.inactivity += dt
	if l.inactivity > 2.0 {
		l.confidence = math.Max(0, l.confidence-cfg.ConfidenceDecay*dt)
	}

	l.analyzeTimer -= dt
	if l.analyzeTimer <= 0 {
		l.analyzeTimer = cfg.ReanalyzeInterval
		l.analyze(now)
	}
}

func (l *AdaptiveLearning) pushDefense(ev defenseEvent) {
	l.defenses = append(l.defenses, ev)
	if len(l.defenses) > l.cfg.DefenseLogCap {
		l.defenses = l.defenses[1:]
	}
}

// analyze rebuilds the profile and advice from the event window.
func (l *AdaptiveLearning) analyze(now float64) {
	cfg := l.cfg
	p := &l.profile
	cutoff := now - cfg.EventWindow

	var attacks []attackEvent
	for _, a := range l.attacks {
		if a.t >= cutoff {
			attacks = append(attacks, a)
		}
	}
	var defenses []defenseEvent
	for _, d := range l.defenses {
		if d.t >= cutoff {
			defenses = append(defenses, d)
		}
	}
	var positions []timedSample
	for _, s := range l.positions {
		if s.t >= cutoff {
			positions = append(positions, s)
		}
	}

	// Attack frequency and rhythm.
	n := len(attacks)
	if n >= 2 {
		span := attacks[n-1].t - attacks[0].t
		if span > 0 {
			aps := float64(n) / span
			p.AttackFrequency = math.Min(1.0, aps/3.0)

			mean := span / float64(n-1)
			variance := 0.0
			for i := 1; i < n; i++ {
				iv := attacks[i].t - attacks[i-1].t
				variance += (iv - mean) * (iv - mean)
			}
			variance /= float64(n - 1)
			p.AttackRhythm = math.Max(0, 1.0-math.Sqrt(variance)/math.Max(0.01, mean))
		} else {
			p.AttackFrequency = 0.5
			p.AttackRhythm = 0
		}
	} else {
		p.AttackFrequency = 0.3
		p.AttackRhythm = 0
	}

	if n > 0 {
		heavies := 0
		for _, a := range attacks {
			if a.heavy {
				heavies++
			}
		}
		p.HeavyRatio = float64(heavies) / float64(n)
	}

	// Combo repetition: adjacent repeated 2- and 3-step patterns.
	if len(l.comboRing) >= 4 {
		repeats, checks := 0, 0
		for _, length := range []int{2, 3} {
			for i := 0; i+length*2 <= len(l.comboRing); i++ {
				same := true
				for j := 0; j < length; j++ {
					if l.comboRing[i+j] != l.comboRing[i+length+j] {
						same = false
						break
					}
				}
				if same {
					repeats++
				}
				checks++
			}
		}
		if checks > 0 {
			p.ComboRepetition = float64(repeats) / float64(checks)
		}
	} else {
		p.ComboRepetition = 0
	}

	// Distance preference.
	if len(positions) > 0 {
		var closeN, midN, farN int
		for _, s := range positions {
			switch {
			case s.v < cfg.CloseRange:
				closeN++
			case s.v < cfg.MidRange:
				midN++
			default:
				farN++
			}
		}
		total := float64(closeN + midN + farN)
		p.RangeCloseBias = float64(closeN) / total
		p.RangeMidBias = float64(midN) / total
		p.RangeFarBias = float64(farN) / total
		switch {
		case p.RangeCloseBias >= p.RangeMidBias && p.RangeCloseBias >= p.RangeFarBias:
			p.PreferredRange = RangeClose
		case p.RangeFarBias >= p.RangeMidBias:
			p.PreferredRange = RangeFar
		default:
			p.PreferredRange = RangeMid
		}
	}

	// Defensive habits.
	if len(defenses) > 0 {
		blocks, dodges, afterHitBlocks := 0, 0, 0
		for _, d := range defenses {
			switch d.action {
			case defBlock:
				blocks++
				if d.afterHit {
					afterHitBlocks++
				}
			case defDodge:
				dodges++
			}
		}
		p.DodgeFrequency = math.Min(1.0, float64(dodges)/float64(len(defenses)))
		p.BlockAfterHit = math.Min(1.0, float64(afterHitBlocks)/float64(blocks+1))
	} else {
		p.DodgeFrequency = 0
		p.BlockAfterHit = 0
	}

	// Post-attack retreat: distance gained between consecutive attacks.
	if n >= 2 {
		retreats := 0
		for i := 0; i < n-1; i++ {
			if attacks[i+1].distance > attacks[i].distance+20 {
				retreats++
			}
		}
		p.RetreatAfterAttack = float64(retreats) / float64(n-1)
	}

	if n > 0 {
		p.StaminaReckless = math.Min(1.0, p.AttackFrequency*1.2+(1.0-l.lastStamina)*0.5)
	}

	// Normalised action mix from the decayed histogram.
	var histTotal float64
	for i := ObservedQuick; i < observedActionCount; i++ {
		histTotal += l.histogram[i]
	}
	if histTotal > 0 {
		for i := ObservedQuick; i < observedActionCount; i++ {
			p.ActionMix[i] = l.histogram[i] / histTotal
		}
	}

	l.generateAdvice(n)
}

// generateAdvice converts the profile into tactical directives.
func (l *AdaptiveLearning) generateAdvice(nEvents int) {
	cfg := l.cfg
	p := l.profile
	a := &l.advice

	if nEvents < cfg.MinEventsForAdvice {
		*a = defaultAdvice()
		return
	}

	// Rhythmic attackers get exploited between beats.
	if p.AttackRhythm > 0.6 {
		a.ReactionDelayAdj = -0.05
		a.FeintRate = math.Min(0.35, p.AttackRhythm*0.4)
	} else {
		a.ReactionDelayAdj = 0
		a.FeintRate = 0.05
	}

	// Spammers get punished and blocked.
	if p.AttackFrequency > 0.7 {
		a.PunishProbability = math.Min(0.8, 0.3+(p.AttackFrequency-0.5))
		a.BlockReadiness = math.Min(0.7, 0.3+p.AttackFrequency*0.4)
		a.AggressionAdj = -0.10
	} else {
		a.PunishProbability = 0.3 + p.AttackFrequency*0.2
		a.BlockReadiness = 0.3
	}

	// Combo repeaters get dodged and baited.
	if p.ComboRepetition > 0.4 {
		a.DodgeReadiness = math.Min(0.5, p.ComboRepetition*0.8)
		a.FeintRate = math.Max(a.FeintRate, p.ComboRepetition*0.3)
	}

	// Range preference shapes spacing.
	switch p.PreferredRange {
	case RangeClose:
		a.PreferredEngageDist = 90
		a.ApproachSpeedMult = 0.90
		a.AggressionAdj = math.Max(a.AggressionAdj, 0.05)
	case RangeFar:
		a.PreferredEngageDist = 55
		a.ApproachSpeedMult = 1.25
		a.AggressionAdj = math.Max(a.AggressionAdj, 0.10)
	default:
		a.PreferredEngageDist = 70
		a.ApproachSpeedMult = 1.0
	}

	// Heavy users give time to react; answer with quick punishes.
	if p.HeavyRatio > 0.5 {
		a.ReactionDelayAdj = math.Min(a.ReactionDelayAdj, -0.03)
		a.DodgeReadiness = math.Max(a.DodgeReadiness, 0.3)
		a.HeavyBias = -0.20
	}

	// Turtles get guard-broken.
	if p.BlockAfterHit > 0.5 {
		a.AggressionAdj = math.Max(a.AggressionAdj, 0.15)
		a.HeavyBias = math.Max(a.HeavyBias, 0.25)
		a.FeintRate = math.Max(a.FeintRate, 0.15)
	}

	// Reckless stamina burners get drained and punished.
	if p.StaminaReckless > 0.7 {
		a.PunishProbability = math.Min(0.85, a.PunishProbability+0.15)
		a.AggressionAdj = math.Max(a.AggressionAdj, 0.05)
	}

	a.ComboComplexity = math.Min(1.0, 0.3+l.confidence*0.5+(1.0-p.ComboRepetition)*0.2)
}

// Reset clears all learned data for a new fight.
func (l *AdaptiveLearning) Reset() {
	l.profile = defaultProfile()
	l.advice = defaultAdvice()
	l.confidence = 0
	l.histogram = [observedActionCount]float64{}
	l.attacks = l.attacks[:0]
	l.defenses = l.defenses[:0]
	l.positions = l.positions[:0]
	l.comboRing = l.comboRing[:0]
	l.wasAttacking = false
	l.wasBlocking = false
	l.wasDodging = false
	l.justTookHit = false
	l.hitCooldown = 0
	l.lastStamina = 1.0
	l.inactivity = 0
	l.analyzeTimer = 0
}
