package brain

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

// Brain is the adaptive combat AI for one fighter. Per tick it observes
// the opponent, runs every subsystem in a fixed order, combines their
// modifiers, settles the decision FSM, and emits one Action. Given the
// same seed, personality, and snapshot sequence it is deterministic.
//
// Brain is not safe for concurrent use; each fight session owns one.
type Brain struct {
	cfg    Config
	p      Personality
	rng    *rand.Rand
	logger *zap.Logger

	learner  *AdaptiveLearning
	phases   *PhaseSystem
	styles   *AttackStyleSystem
	balancer *DifficultyBalancer
	intent   *CombatIntentSystem
	aggro    *AggressionSystem
	desp     *DesperationMode
	builds   *BuildAdapter
	fsm      *DecisionFSM

	now  float64
	comp Composite
	sig  IntentSignal // smoothed

	cooldownTimer float64
	thinkTimer    float64
	feintTimer    float64
	blockTimer    float64
	projTimer     float64
	riskComboLeft int
	defendDodge   bool // this block_wait entry resolved to a dodge
	dodgeSpent    bool

	lastState State
	lastHeavy bool

	// One-observation latches fed by the notify hooks, for callers whose
	// snapshots can miss brief opponent frames between ticks.
	latchAttack bool
	latchHeavy  bool
	latchBlock  bool
	latchDodge  bool
}

// New builds a Brain. rng is required: all randomness flows through it
// so seeded runs replay exactly. A nil logger is replaced with a nop.
func New(cfg Config, p Personality, build Build, rng *rand.Rand, logger *zap.Logger) (*Brain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("brain: rng required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	learner, err := NewAdaptiveLearning(cfg.Learning)
	if err != nil {
		return nil, err
	}
	phases, err := NewPhaseSystem(cfg.Phase)
	if err != nil {
		return nil, err
	}
	styles, err := NewAttackStyleSystem(cfg.Style, rng)
	if err != nil {
		return nil, err
	}
	balancer, err := NewDifficultyBalancer(cfg.Balancer)
	if err != nil {
		return nil, err
	}
	intent, err := NewCombatIntentSystem(cfg.Intent, p)
	if err != nil {
		return nil, err
	}
	aggro, err := NewAggressionSystem(cfg.Aggression, rng)
	if err != nil {
		return nil, err
	}
	desp, err := NewDesperationMode(cfg.Desperation, rng)
	if err != nil {
		return nil, err
	}
	fsm, err := NewDecisionFSM(cfg.Decide, logger)
	if err != nil {
		return nil, err
	}

	return &Brain{
		cfg:      cfg,
		p:        p,
		rng:      rng,
		logger:   logger,
		learner:  learner,
		phases:   phases,
		styles:   styles,
		balancer: balancer,
		intent:   intent,
		aggro:    aggro,
		desp:     desp,
		builds:   NewBuildAdapter(build),
		fsm:      fsm,
	}, nil
}

// Personality returns the tuning bundle the brain was built with.
func (b *Brain) Personality() Personality { return b.p }

// Phase returns the current fight-arc phase.
func (b *Brain) Phase() Phase { return b.phases.Phase() }

// State returns the decision state settled by the last Step.
func (b *Brain) State() State { return b.fsm.State() }

// Composite returns the combined modifier from the last Step.
func (b *Brain) Composite() Composite { return b.comp }

// Intent returns the smoothed intent signal from the last Step.
func (b *Brain) Intent() IntentSignal { return b.sig }

// Elapsed returns accumulated match time in seconds.
func (b *Brain) Elapsed() float64 { return b.now }

// ForceStun relays an arena stun (guard break, knockdown) to the FSM.
func (b *Brain) ForceStun(duration float64) { b.fsm.ForceStun(duration) }

// SetBuild swaps the opponent build hint mid-session.
func (b *Brain) SetBuild(build Build) { b.builds.SetBuild(build) }

// ---- Notify hooks ----
// The arena (or the HTTP driver) reports resolved outcomes here between
// Steps. Hooks only record; nothing re-decides until the next tick.

// NotifyPlayerAttack marks that the opponent began a swing, for callers
// whose snapshots may have missed the start frame.
func (b *Brain) NotifyPlayerAttack(heavy bool) {
	b.latchAttack = true
	b.latchHeavy = heavy
}

// NotifyPlayerBlock marks that the opponent blocked the brain's attack.
func (b *Brain) NotifyPlayerBlock() {
	b.latchBlock = true
	b.balancer.RecordOpponentBlocked()
}

// NotifyPlayerDodge marks that the opponent dodged the brain's attack.
func (b *Brain) NotifyPlayerDodge() {
	b.latchDodge = true
	b.balancer.RecordOpponentDodged()
}

// NotifyDamageDealt records damage the brain's fighter landed.
func (b *Brain) NotifyDamageDealt(amount int) {
	b.aggro.RecordDealt(b.now, amount)
	b.balancer.RecordDealt(amount)
}

// NotifyDamageTaken records damage the opponent landed on the fighter.
func (b *Brain) NotifyDamageTaken(amount int) {
	b.aggro.RecordTaken(b.now, amount)
	b.balancer.RecordTaken(amount)
}

// NotifyPlayerHitLanded is the hit-confirm hook: the opponent just took
// the brain's hit. Opens combo follow-ups and, in desperation, risk
// chains.
func (b *Brain) NotifyPlayerHitLanded() {
	b.learner.NotifyOpponentHit()
	if b.rng.Float64() < clamp01(b.comp.ComboChance) {
		b.aggro.Enqueue(ComboStep{}, ComboStep{Heavy: b.rng.Float64() < 0.5+b.comp.HeavyBias})
	}
	if b.riskComboLeft <= 0 && b.desp.ShouldRiskCombo() {
		b.riskComboLeft = b.desp.Modifier().RiskComboHits - 1
	}
}

// NotifyPlayerWhiff records an opponent attack that hit nothing.
func (b *Brain) NotifyPlayerWhiff() {
	b.balancer.RecordOpponentMissed()
}

// NotifySelfWhiff records the brain's own attack missing or being
// absorbed by a block.
func (b *Brain) NotifySelfWhiff() {
	b.balancer.RecordMissed()
}

// Step runs one tick: subsystems in fixed order, composite, FSM, then
// the state executor that turns the settled state into an Action.
func (b *Brain) Step(view View, dt float64) Decision {
	b.now += dt
	dist := view.Distance()
	selfHP := view.Self.HPFrac()

	// 1. Observe the opponent, merging any hook latches.
	obs := Observation{
		Distance:          dist,
		OpponentAttacking: view.Opponent.Attacking || b.latchAttack,
		OpponentHeavy:     view.Opponent.HeavySwing || b.latchHeavy,
		OpponentBlocking:  view.Opponent.Blocking || b.latchBlock,
		OpponentDodging:   view.Opponent.Dodging || b.latchDodge,
		OpponentStamina:   view.Opponent.StaminaFrac(),
	}
	b.latchAttack, b.latchHeavy, b.latchBlock, b.latchDodge = false, false, false, false
	b.learner.Observe(dt, b.now, obs)
	profile := b.learner.Profile()

	// 2. Phase arc.
	flowRatio := b.aggro.FlowRatio(b.now)
	b.phases.Update(dt, selfHP, b.learner.Confidence(), flowRatio)

	// 3. Style blend.
	b.styles.Update(dt, &profile)

	// 4. Rubber-banding.
	b.balancer.Update(dt)

	// 5. Intent, smoothed toward the fresh signal.
	raw := b.intent.Compute(IntentInput{
		Distance:      dist,
		SelfHPFrac:    selfHP,
		SelfStamina:   view.Self.StaminaFrac(),
		OpponentAggro: profile.AttackFrequency,
		Tempo:         b.aggro.Tempo(),
		ExchangeRatio: flowRatio,
	})
	a := b.cfg.IntentSmoothing
	b.sig.AttackIntent = lerp(b.sig.AttackIntent, raw.AttackIntent, a)
	b.sig.AggressionLevel = lerp(b.sig.AggressionLevel, raw.AggressionLevel, a)
	b.sig.DefensiveBias = lerp(b.sig.DefensiveBias, raw.DefensiveBias, a)
	b.sig.RiskTolerance = lerp(b.sig.RiskTolerance, raw.RiskTolerance, a)

	// 6. Tempo and pressure.
	b.aggro.Update(dt, b.now, selfHP, b.sig.AggressionLevel,
		obs.OpponentAttacking, dist, b.cfg.AttackRange)

	// 7. Desperation and rage.
	b.desp.Update(dt, selfHP)

	// 8. Build counters, then combine everything.
	build := b.builds.Modifier(view.Opponent.Blocking)
	b.comp = Combine(b.cfg.Combine, b.p,
		b.phases.Modifier(), b.styles.Modifier(), b.balancer.Modifier(),
		b.sig, b.aggro.Modifier(), b.desp.Modifier(), build,
		b.learner.Advice())
	b.aggro.TrimQueue(b.comp.ComboChainCap)

	// Cooldown ticks faster when the combined multiplier is low.
	if b.cooldownTimer > 0 {
		b.cooldownTimer -= dt / b.comp.CooldownMult
		if b.cooldownTimer < 0 {
			b.cooldownTimer = 0
		}
	}
	if b.projTimer > 0 {
		b.projTimer -= dt
	}

	// Feint expiry converts into the real swing.
	if b.fsm.State() == StateFeint {
		b.feintTimer -= dt
		if b.feintTimer <= 0 {
			b.fsm.Force(StateAttack)
			b.thinkTimer = 0
		}
	}

	// Risk-combo chain keeps forcing attacks while hits remain.
	if b.riskComboLeft > 0 && b.cooldownTimer <= 0 && dist <= b.cfg.AttackRange*1.2 {
		b.fsm.Force(StateAttack)
	}

	// Punish windows bypass the think gate.
	if b.comp.PunishReady && b.cooldownTimer <= 0 {
		b.thinkTimer = 0
	}

	// Think-interval gate, widened or tightened by the reaction delay.
	effectiveThink := b.p.ThinkInterval + b.comp.ReactionDelay
	if effectiveThink < 0.05 {
		effectiveThink = 0.05
	}
	b.thinkTimer -= dt
	decide := b.thinkTimer <= 0
	if decide {
		b.thinkTimer = effectiveThink
	}

	staminaNeed := b.cfg.QuickStaminaCost * b.comp.StaminaDrainMult *
		(1.0 - b.comp.StaminaIgnore)
	ctx := &StepContext{
		View:        view,
		Comp:        b.comp,
		Intent:      b.sig,
		Distance:    dist,
		AttackReady: b.cooldownTimer <= 0,
		StaminaOK:   view.Self.Stamina >= staminaNeed,
		EngageDist:  clampF(b.cfg.AttackRange+b.comp.SpacingOffset, 20, 400),
		AttackRange: b.cfg.AttackRange,
		Rng:         b.rng,
	}
	state := b.fsm.Step(ctx, dt, decide)

	// State-entry bookkeeping.
	if state != b.lastState {
		switch state {
		case StateFeint:
			b.feintTimer = b.cfg.FeintDuration
		case StateBlockWait:
			b.blockTimer = 0
			total := b.comp.BlockChance + b.comp.DodgeChance
			b.defendDodge = total > 0 && b.rng.Float64() < b.comp.DodgeChance/total
			b.dodgeSpent = false
		}
		b.lastState = state
	}

	action := b.execute(state, view, dist, dt)
	return Decision{State: state, Action: action}
}

// execute turns the settled state into this tick's Action.
func (b *Brain) execute(state State, view View, dist, dt float64) Action {
	dir := 1.0
	if view.Opponent.X < view.Self.X {
		dir = -1.0
	}

	switch state {
	case StateStunned:
		return Action{}

	case StateChase:
		speed := b.cfg.ChaseSpeed * b.comp.ChaseSpeedMult
		act := Action{Kind: ActionMove, MoveX: dir * speed}
		if b.comp.MovementErratic > 0.2 {
			act.MoveY = b.wobble() * speed * b.comp.MovementErratic * 0.5
		}
		return b.maybeProjectile(act, dist)

	case StateRetreat:
		return Action{Kind: ActionMove, MoveX: -dir * b.cfg.RetreatSpeed}

	case StateStrafe:
		speed := b.aggro.StrafeSpeed() * 60 * b.comp.StrafeSpeedMult
		return b.maybeProjectile(Action{
			Kind:  ActionMove,
			MoveX: float64(b.aggro.Modifier().StrafeDir) * speed,
			MoveY: b.wobble() * speed * 0.3,
		}, dist)

	case StateBlockWait:
		b.blockTimer += dt
		if b.defendDodge && !b.dodgeSpent {
			b.dodgeSpent = true
			return Action{Kind: ActionDodge, MoveX: -dir * b.cfg.RetreatSpeed}
		}
		if b.blockTimer >= b.cfg.MaxBlockHold {
			return Action{}
		}
		return Action{Kind: ActionBlock}

	case StateFeint:
		// Sell the fake with erratic micro-movement.
		speed := b.aggro.StrafeSpeed() * 60
		return Action{
			Kind:  ActionMove,
			MoveX: float64(b.aggro.Modifier().StrafeDir) * speed * 0.6,
			MoveY: b.wobble() * speed * 0.4,
		}

	case StateAttack:
		// Desperation cancel: pull the committed swing mid wind-up and
		// sell a fake instead.
		if b.desp.ShouldCancelAttack() {
			b.feintTimer = b.cfg.FeintDuration
			b.lastState = StateFeint
			b.fsm.Force(StateFeint)
			speed := b.aggro.StrafeSpeed() * 60
			return Action{
				Kind:  ActionMove,
				MoveX: float64(b.aggro.Modifier().StrafeDir) * speed * 0.6,
				MoveY: b.wobble() * speed * 0.4,
			}
		}
		if act, ok := b.executeAttack(view, dist); ok {
			return act
		}
		// Attack gate failed (stamina, cooldown race): close in instead.
		b.fsm.Force(StateChase)
		return Action{Kind: ActionMove, MoveX: dir * b.cfg.ChaseSpeed * b.comp.ChaseSpeedMult}

	default: // StateIdle
		return Action{}
	}
}

// wobble returns a uniform value in [-1,1] for erratic movement.
func (b *Brain) wobble() float64 {
	return b.rng.Float64()*2 - 1
}

// maybeProjectile overrides a movement action with a ranged cast when
// the personality uses projectiles and the opponent sits out of reach.
func (b *Brain) maybeProjectile(act Action, dist float64) Action {
	if !b.p.UsesProjectiles || b.projTimer > 0 {
		return act
	}
	if dist <= b.cfg.AttackRange*b.cfg.ProjectileRangeMult {
		return act
	}
	b.projTimer = b.cfg.ProjectileCooldown
	return Action{Kind: ActionProjectile}
}

// executeAttack commits a swing: picks quick vs heavy through adapted
// weights, checks stamina, arms the cooldown, and rolls the post-attack
// reposition. Returns false when the gate fails.
func (b *Brain) executeAttack(view View, dist float64) (Action, bool) {
	if b.cooldownTimer > 0 {
		return Action{}, false
	}

	heavy := false
	if step, ok := b.aggro.NextComboStep(); ok {
		heavy = step.Heavy
	} else {
		heavy = b.pickHeavy(view.Opponent.Blocking)
	}

	cost := b.cfg.QuickStaminaCost
	if heavy {
		cost = b.cfg.HeavyStaminaCost
	}
	cost *= b.comp.StaminaDrainMult

	minFrac := 0.5 - b.comp.StaminaIgnore
	if minFrac < 0.1 {
		minFrac = 0.1
	}
	if view.Self.Stamina < cost*minFrac {
		return Action{}, false
	}

	kind := "quick"
	if heavy {
		kind = "heavy"
	}
	b.styles.RecordAction(kind)
	b.lastHeavy = heavy

	cd := b.aggro.DynamicCooldown() * b.comp.CooldownMult
	cd /= clampF(b.p.AttackFrequency, 0.5, 10)
	switch {
	case b.riskComboLeft > 0:
		cd *= 0.3
		b.riskComboLeft--
	case b.rng.Float64() < clampF(b.comp.ComboChance, 0, 0.9):
		cd *= 0.5
	}
	if cd < 0.15 {
		cd = 0.15
	}
	b.cooldownTimer = cd

	// Post-attack reposition: retreat chance rises after a heavy.
	retreat := b.comp.RetreatTendency
	if heavy {
		retreat = clamp01(retreat + 0.2)
	}
	if b.rng.Float64() < retreat {
		b.fsm.Force(StateRetreat)
	} else {
		b.fsm.Force(StateChase)
	}

	return Action{Kind: ActionMelee, Heavy: heavy}, true
}

// pickHeavy chooses quick vs heavy through weights shifted by
// aggression, heavy bias, guard-break odds, and the anti-repetition
// buffer.
func (b *Brain) pickHeavy(opponentBlocking bool) bool {
	wQuick, wHeavy := 3.0, 3.0

	switch {
	case b.sig.AggressionLevel > 0.8:
		wQuick, wHeavy = 2, 5
	case b.sig.AggressionLevel < 0.3:
		wQuick, wHeavy = 5, 1
	}

	switch {
	case b.comp.HeavyBias > 0.15:
		wQuick = maxF(1, wQuick-1)
		wHeavy += 2
	case b.comp.HeavyBias < -0.10:
		wQuick += 2
		wHeavy = maxF(1, wHeavy-1)
	}

	if opponentBlocking && b.comp.GuardBreakChance > 0 &&
		b.rng.Float64() < b.comp.GuardBreakChance {
		wQuick, wHeavy = 1, 6
	}

	proposed := "quick"
	if wHeavy > wQuick {
		proposed = "heavy"
	}
	if b.styles.ShouldVaryAction(proposed) {
		wQuick, wHeavy = wHeavy, wQuick
	}

	return b.rng.Float64()*(wQuick+wHeavy) >= wQuick
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Reset clears every subsystem and timer for a fresh match. The rng is
// left alone so a session's stream stays reproducible.
func (b *Brain) Reset() {
	b.learner.Reset()
	b.phases.Reset()
	b.styles.Reset()
	b.balancer.Reset()
	b.aggro.Reset()
	b.desp.Reset()
	b.fsm.Reset()

	b.now = 0
	b.comp = Composite{}
	b.sig = IntentSignal{}
	b.cooldownTimer = 0
	b.thinkTimer = 0
	b.feintTimer = 0
	b.blockTimer = 0
	b.projTimer = 0
	b.riskComboLeft = 0
	b.defendDodge = false
	b.dodgeSpent = false
	b.lastState = StateIdle
	b.lastHeavy = false
	b.latchAttack, b.latchHeavy, b.latchBlock, b.latchDodge = false, false, false, false
}

// DebugState is the full introspection snapshot for the debug API.
type DebugState struct {
	State      string  `json:"state"`
	Phase      string  `json:"phase"`
	Tempo      string  `json:"tempo"`
	Elapsed    float64 `json:"elapsed_sec"`
	Confidence float64 `json:"confidence"`

	Styles       [2]string  `json:"styles"`
	StyleWeights [2]float64 `json:"style_weights"`

	BalanceScore      float64 `json:"balance_score"`
	FlowRatio         float64 `json:"flow_ratio"`
	DesperationActive bool    `json:"desperation_active"`
	RageActive        bool    `json:"rage_active"`

	Intent    IntentSignal  `json:"intent"`
	Profile   PlayerProfile `json:"player_profile"`
	Composite Composite     `json:"composite"`

	CooldownRemaining float64 `json:"cooldown_remaining"`
	ComboQueued       int     `json:"combo_queued"`
	Build             string  `json:"opponent_build"`
	Personality       string  `json:"personality"`
}

// DebugState snapshots every subsystem for the debug endpoint.
func (b *Brain) DebugState() DebugState {
	names, weights := b.styles.Active()
	return DebugState{
		State:      b.fsm.State().String(),
		Phase:      b.phases.Phase().String(),
		Tempo:      b.aggro.Tempo().String(),
		Elapsed:    b.now,
		Confidence: b.learner.Confidence(),

		Styles:       [2]string{string(names[0]), string(names[1])},
		StyleWeights: weights,

		BalanceScore:      b.balancer.Score(),
		FlowRatio:         b.aggro.FlowRatio(b.now),
		DesperationActive: b.desp.Active(),
		RageActive:        b.desp.RageActive(),

		Intent:    b.sig,
		Profile:   b.learner.Profile(),
		Composite: b.comp,

		CooldownRemaining: b.cooldownTimer,
		ComboQueued:       b.aggro.PendingCombo(),
		Build:             b.builds.Build().String(),
		Personality:       b.p.Name,
	}
}
