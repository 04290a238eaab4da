package brain

import "math"

// State is a discrete decision state of the combat brain.
type State int

const (
	StateIdle State = iota
	StateChase
	StateAttack
	StateRetreat
	StateBlockWait
	StateStrafe
	StateStunned
	StateFeint
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateChase:     "chase",
	StateAttack:    "attack",
	StateRetreat:   "retreat",
	StateBlockWait: "block_wait",
	StateStrafe:    "strafe",
	StateStunned:   "stunned",
	StateFeint:     "feint",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// ActionKind is the concrete output the brain asks the body to perform
// on a given tick.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionMelee
	ActionProjectile
	ActionMove
	ActionBlock
	ActionDodge
)

var actionNames = map[ActionKind]string{
	ActionNone:       "none",
	ActionMelee:      "melee_attack",
	ActionProjectile: "projectile_attack",
	ActionMove:       "move",
	ActionBlock:      "block",
	ActionDodge:      "dodge",
}

func (k ActionKind) String() string {
	if n, ok := actionNames[k]; ok {
		return n
	}
	return "unknown"
}

// Action is the per-tick output command.
type Action struct {
	Kind  ActionKind
	Heavy bool    // melee only: heavy vs quick
	MoveX float64 // move only: velocity in px/s
	MoveY float64
}

// Decision pairs the FSM state the brain settled on with the action it
// wants executed this tick.
type Decision struct {
	State  State
	Action Action
}

// FighterView is one combatant's externally observable state.
type FighterView struct {
	X, Y       float64
	HP         float64
	MaxHP      float64
	Stamina    float64
	MaxStamina float64
	Blocking   bool
	Attacking  bool // in wind-up or active frames
	HeavySwing bool // the current attack is a heavy
	Stunned    bool
	Dodging    bool
}

// HPFrac returns HP as a fraction of max, clamped to [0,1].
func (f FighterView) HPFrac() float64 {
	if f.MaxHP <= 0 {
		return 0
	}
	return clamp01(f.HP / f.MaxHP)
}

// StaminaFrac returns stamina as a fraction of max, clamped to [0,1].
func (f FighterView) StaminaFrac() float64 {
	if f.MaxStamina <= 0 {
		return 0
	}
	return clamp01(f.Stamina / f.MaxStamina)
}

// View is the world snapshot the brain reads each tick. Self is the
// brain's own fighter, Opponent the one it is fighting.
type View struct {
	Self     FighterView
	Opponent FighterView
}

// Distance returns the distance between the two fighters.
func (v View) Distance() float64 {
	dx := v.Opponent.X - v.Self.X
	dy := v.Opponent.Y - v.Self.Y
	return math.Hypot(dx, dy)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
