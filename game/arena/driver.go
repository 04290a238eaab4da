package arena

import (
	"github.com/darshang-108/ai-learning-opponent/game/brain"
)

// Driver produces one action per tick from its side's view of the
// lane. Implementations must be deterministic for a given view
// sequence (any randomness comes from an injected source).
type Driver interface {
	Act(view brain.View, dt float64) brain.Action
}

// Hooks is implemented by drivers that want resolved combat outcomes
// fed back between ticks. The match calls these after resolution;
// drivers that don't adapt simply don't implement it.
type Hooks interface {
	OnOpponentSwing(heavy bool)
	OnOpponentBlocked() // own swing absorbed by the opponent's guard
	OnOpponentDodged()  // own swing avoided by a dodge or i-frames
	OnOpponentWhiff()   // opponent's swing hit nothing
	OnHitDealt(amount int)
	OnHitTaken(amount int)
	OnSelfWhiff() // own swing hit nothing
	OnStunned(duration float64)
}

// BrainDriver runs a combat brain as a match driver and relays every
// hook into the brain's notify surface.
type BrainDriver struct {
	b *brain.Brain
}

func NewBrainDriver(b *brain.Brain) *BrainDriver {
	return &BrainDriver{b: b}
}

// Brain exposes the wrapped brain for phase and aggression sampling.
func (d *BrainDriver) Brain() *brain.Brain { return d.b }

func (d *BrainDriver) Act(view brain.View, dt float64) brain.Action {
	return d.b.Step(view, dt).Action
}

func (d *BrainDriver) OnOpponentSwing(heavy bool) { d.b.NotifyPlayerAttack(heavy) }
func (d *BrainDriver) OnOpponentDodged()          { d.b.NotifyPlayerDodge() }
func (d *BrainDriver) OnOpponentWhiff()           { d.b.NotifyPlayerWhiff() }
func (d *BrainDriver) OnHitTaken(amount int)      { d.b.NotifyDamageTaken(amount) }
func (d *BrainDriver) OnSelfWhiff()               { d.b.NotifySelfWhiff() }
func (d *BrainDriver) OnStunned(duration float64) { d.b.ForceStun(duration) }

func (d *BrainDriver) OnOpponentBlocked() {
	d.b.NotifyPlayerBlock()
	d.b.NotifySelfWhiff()
}

func (d *BrainDriver) OnHitDealt(amount int) {
	d.b.NotifyDamageDealt(amount)
	d.b.NotifyPlayerHitLanded()
}

// --- Scripted drivers ---
// Deterministic opponents for tests and batch calibration. Each one
// exercises a recognizable human style for the behavior analyzer.

// Rusher closes distance and pokes with quick attacks the moment the
// target is in reach.
type Rusher struct {
	Speed float64 // 0 = 300 px/s
}

func (r Rusher) Act(view brain.View, dt float64) brain.Action {
	speed := r.Speed
	if speed <= 0 {
		speed = 300
	}
	dist := view.Distance()
	if dist <= 65 && view.Self.Stamina >= 22 && !view.Self.Attacking {
		return brain.Action{Kind: brain.ActionMelee}
	}
	dir := 1.0
	if view.Opponent.X < view.Self.X {
		dir = -1.0
	}
	return brain.Action{Kind: brain.ActionMove, MoveX: dir * speed}
}

// Turtle keeps its distance and raises the guard whenever the
// opponent closes in or starts a swing. It only pokes back at a
// cornered opponent, so its matches read as defensive play.
type Turtle struct {
	HoldDistance float64 // 0 = 260 px
}

func (t Turtle) Act(view brain.View, dt float64) brain.Action {
	hold := t.HoldDistance
	if hold <= 0 {
		hold = 260
	}
	dist := view.Distance()
	dir := 1.0
	if view.Opponent.X < view.Self.X {
		dir = -1.0
	}

	if view.Opponent.Attacking && dist <= 110 {
		return brain.Action{Kind: brain.ActionBlock}
	}
	if dist < hold*0.45 {
		if view.Self.Stamina >= 40 {
			return brain.Action{Kind: brain.ActionBlock}
		}
		return brain.Action{Kind: brain.ActionMove, MoveX: -dir * 240}
	}
	if dist < hold {
		return brain.Action{Kind: brain.ActionMove, MoveX: -dir * 150}
	}
	return brain.Action{}
}

// Spammer mashes quick attacks whenever the target is anywhere near,
// drifting forward otherwise. Stamina starvation is its natural
// governor; it never blocks or dodges.
type Spammer struct{}

func (Spammer) Act(view brain.View, dt float64) brain.Action {
	dist := view.Distance()
	if dist <= 70 && view.Self.Stamina > 0 {
		return brain.Action{Kind: brain.ActionMelee}
	}
	dir := 1.0
	if view.Opponent.X < view.Self.X {
		dir = -1.0
	}
	return brain.Action{Kind: brain.ActionMove, MoveX: dir * 200}
}

// Idle never acts. Useful as a punching bag in resolution tests.
type Idle struct{}

func (Idle) Act(view brain.View, dt float64) brain.Action {
	return brain.Action{}
}
