package brain

import (
	"fmt"

	"go.uber.org/zap"
)

// DecideConfig tunes the decision FSM.
type DecideConfig struct {
	MinDwellTicks int // ticks a state must hold before a normal transition

	IdleLimit int // consecutive idle decisions before forced chase

	IntentThreshold float64 // base attack-intent gate, divided by aggression
	ReactRangeMult  float64 // defend when opponent swings inside range x this
	PunishRangeMult float64 // punish reach as a multiple of attack range

	StaminaMinFrac float64 // stamina fraction needed to keep fighting
}

// DefaultDecideConfig returns the stock tuning.
func DefaultDecideConfig() DecideConfig {
	return DecideConfig{
		MinDwellTicks:   4,
		IdleLimit:       6,
		IntentThreshold: 0.35,
		ReactRangeMult:  1.4,
		PunishRangeMult: 1.6,
		StaminaMinFrac:  0.50,
	}
}

// Validate rejects out-of-range tuning.
func (c DecideConfig) Validate() error {
	if c.MinDwellTicks < 0 {
		return fmt.Errorf("decide: min_dwell_ticks %d negative", c.MinDwellTicks)
	}
	if c.IdleLimit < 1 {
		return fmt.Errorf("decide: idle_limit %d must be >= 1", c.IdleLimit)
	}
	if c.IntentThreshold <= 0 || c.IntentThreshold > 1 {
		return fmt.Errorf("decide: intent_threshold %v outside (0,1]", c.IntentThreshold)
	}
	if c.ReactRangeMult < 1 || c.PunishRangeMult < 1 {
		return fmt.Errorf("decide: range multipliers must be >= 1")
	}
	if c.StaminaMinFrac <= 0 || c.StaminaMinFrac > 1 {
		return fmt.Errorf("decide: stamina_min_frac %v outside (0,1]", c.StaminaMinFrac)
	}
	return nil
}

// DecisionFSM settles the per-tick state through a fixed priority
// cascade with minimum dwell. Stun is the only externally forced state:
// it enters through ForceStun and leaves only when the timer expires.
type DecisionFSM struct {
	cfg    DecideConfig
	logger *zap.Logger
	tree   *DecisionTree

	state     State
	dwell     int // ticks spent in the current state
	stunTimer float64
	idleRun   int // consecutive idle proposals, for the watchdog
}

// NewDecisionFSM validates cfg and builds the cascade.
func NewDecisionFSM(cfg DecideConfig, logger *zap.Logger) (*DecisionFSM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &DecisionFSM{cfg: cfg, logger: logger, state: StateIdle}
	f.tree = f.buildCascade()
	return f, nil
}

// State returns the settled state from the last Step.
func (f *DecisionFSM) State() State { return f.state }

// Dwell returns how many ticks the current state has held.
func (f *DecisionFSM) Dwell() int { return f.dwell }

// ForceStun pushes the FSM into stunned for the given duration. The
// transition bypasses dwell and nothing but expiry releases it.
func (f *DecisionFSM) ForceStun(duration float64) {
	if duration <= 0 {
		return
	}
	f.stunTimer = duration
	f.enter(StateStunned)
}

// Force jumps straight to a state, bypassing dwell. Used for the
// mechanical transitions the cascade does not decide: feint expiring
// into the real swing, post-attack repositioning, risk-combo chains.
// Stunned is rejected here; that state only enters through ForceStun.
func (f *DecisionFSM) Force(s State) {
	if s == StateStunned || f.stunTimer > 0 {
		return
	}
	f.enter(s)
}

// buildCascade wires the priority rules. Order is the contract: an
// earlier rule firing shadows everything below it, and the trailing
// idle rule makes the table total.
func (f *DecisionFSM) buildCascade() *DecisionTree {
	cfg := f.cfg
	return &DecisionTree{Root: &Selector{Children: []Node{
		rule(func(ctx *StepContext) bool {
			return f.stunTimer > 0
		}, StateStunned),

		// Stamina collapse: back off to regen unless rage lets the
		// fighter ignore the cost.
		rule(func(ctx *StepContext) bool {
			need := cfg.StaminaMinFrac * (1.0 - ctx.Comp.StaminaIgnore)
			return ctx.View.Self.StaminaFrac() < need
		}, StateRetreat),

		// Punish an exposed opponent immediately.
		rule(func(ctx *StepContext) bool {
			return ctx.Comp.PunishReady && ctx.AttackReady &&
				ctx.Distance < ctx.AttackRange*cfg.PunishRangeMult
		}, StateAttack),

		// Defensive reaction to an incoming swing. Telegraph bias is the
		// eased-difficulty chance of simply not reacting in time.
		rule(func(ctx *StepContext) bool {
			if !ctx.View.Opponent.Attacking || ctx.Distance > ctx.AttackRange*cfg.ReactRangeMult {
				return false
			}
			if ctx.Rng.Float64() < ctx.Comp.TelegraphBias {
				return false
			}
			return ctx.Rng.Float64() < clamp01(ctx.Comp.BlockChance+ctx.Comp.DodgeChance)
		}, StateBlockWait),

		// Attack when in range, off cooldown, stocked on stamina, and the
		// intent gate clears. Higher aggression lowers the gate.
		rule(func(ctx *StepContext) bool {
			if ctx.Distance > ctx.EngageDist || !ctx.AttackReady || !ctx.StaminaOK {
				return false
			}
			gate := cfg.IntentThreshold / clampF(ctx.Comp.AggressionMult, 0.1, 10)
			return ctx.Intent.AttackIntent >= gate
		}, StateAttack),

		// Feint: fake pressure while near range, cooldown or not.
		rule(func(ctx *StepContext) bool {
			return ctx.Distance <= ctx.EngageDist*1.2 &&
				ctx.Rng.Float64() < ctx.Comp.FeintChance
		}, StateFeint),

		rule(func(ctx *StepContext) bool {
			return ctx.Distance > ctx.EngageDist
		}, StateChase),

		// In range but the attack is cooling down: circle.
		&Sequence{Children: []Node{
			&Inverter{Child: &ConditionNode{Fn: func(ctx *StepContext) bool {
				return ctx.AttackReady
			}}},
			&ActionNode{Fn: func(ctx *StepContext) Status { return ctx.propose(StateStrafe) }},
		}},

		rule(func(ctx *StepContext) bool { return true }, StateIdle),
	}}}
}

// Step settles this tick's state. dt advances the stun timer; the
// cascade reruns only when decide is true (the think-interval gate),
// otherwise the current state holds for the tick.
func (f *DecisionFSM) Step(ctx *StepContext, dt float64, decide bool) State {
	if f.stunTimer > 0 {
		f.stunTimer -= dt
		if f.stunTimer > 0 {
			f.dwell++
			return f.state
		}
		// Stun just expired; decide fresh regardless of the gate.
		decide = true
	}

	if !decide {
		f.dwell++
		return f.state
	}

	ctx.Matched = false
	f.tree.Tick(ctx)
	if !ctx.Matched {
		// The trailing idle rule makes this unreachable unless the
		// cascade was edited badly. Hold position rather than glitch.
		f.logger.Error("decision cascade matched nothing",
			zap.String("state", f.state.String()),
			zap.Float64("distance", ctx.Distance))
		f.dwell++
		return f.state
	}
	proposed := ctx.Proposed

	// Idle watchdog: a brain that keeps proposing idle gets shoved
	// toward the opponent.
	if proposed == StateIdle {
		f.idleRun++
		if f.idleRun >= f.cfg.IdleLimit {
			f.idleRun = 0
			f.enter(StateChase)
			return f.state
		}
	} else {
		f.idleRun = 0
	}

	if proposed == f.state {
		f.dwell++
		return f.state
	}

	// Dwell gate for normal transitions. Stun never reaches here.
	if f.dwell < f.cfg.MinDwellTicks {
		f.dwell++
		return f.state
	}

	f.enter(proposed)
	return f.state
}

func (f *DecisionFSM) enter(s State) {
	f.state = s
	f.dwell = 0
}

// Reset returns the FSM to idle for a new match.
func (f *DecisionFSM) Reset() {
	f.state = StateIdle
	f.dwell = 0
	f.stunTimer = 0
	f.idleRun = 0
}
