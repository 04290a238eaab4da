package brain

import "math/rand"

// Status is the result of a decision tree node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

// StepContext is the scratch space one decision pass works in: the
// world snapshot and combined modifier going in, the proposed state
// coming out of whichever rule fired.
type StepContext struct {
	View     View
	Comp     Composite
	Intent   IntentSignal
	Distance float64

	AttackReady bool    // attack cooldown elapsed
	StaminaOK   bool    // enough stamina for at least a quick hit
	EngageDist  float64 // preferred spacing after all offsets
	AttackRange float64 // nominal melee reach
	Rng         *rand.Rand

	Proposed State
	Matched  bool
}

// propose records the state the winning rule wants.
func (c *StepContext) propose(s State) Status {
	c.Proposed = s
	c.Matched = true
	return StatusSuccess
}

// Node is a single node in a decision tree.
type Node interface {
	Tick(ctx *StepContext) Status
}

// ---- Composite nodes ----

// Selector succeeds as soon as one child succeeds (logical OR).
type Selector struct {
	Children []Node
}

func (s *Selector) Tick(ctx *StepContext) Status {
	for _, c := range s.Children {
		switch c.Tick(ctx) {
		case StatusSuccess:
			return StatusSuccess
		case StatusRunning:
			return StatusRunning
		}
	}
	return StatusFailure
}

// Sequence succeeds only when all children succeed (logical AND).
type Sequence struct {
	Children []Node
}

func (s *Sequence) Tick(ctx *StepContext) Status {
	for _, c := range s.Children {
		switch c.Tick(ctx) {
		case StatusFailure:
			return StatusFailure
		case StatusRunning:
			return StatusRunning
		}
	}
	return StatusSuccess
}

// ---- Leaf nodes ----

// ConditionNode evaluates a boolean predicate.
type ConditionNode struct {
	Fn func(*StepContext) bool
}

func (cn *ConditionNode) Tick(ctx *StepContext) Status {
	if cn.Fn(ctx) {
		return StatusSuccess
	}
	return StatusFailure
}

// ActionNode executes an action and returns its status.
type ActionNode struct {
	Fn func(*StepContext) Status
}

func (an *ActionNode) Tick(ctx *StepContext) Status {
	return an.Fn(ctx)
}

// ---- Decorator nodes ----

// Inverter negates the result of its child.
type Inverter struct {
	Child Node
}

func (i *Inverter) Tick(ctx *StepContext) Status {
	switch i.Child.Tick(ctx) {
	case StatusSuccess:
		return StatusFailure
	case StatusFailure:
		return StatusSuccess
	default:
		return StatusRunning
	}
}

// ---- DecisionTree root ----

// DecisionTree wraps the root node of a priority cascade.
type DecisionTree struct {
	Root Node
}

// Tick runs one decision pass.
func (dt *DecisionTree) Tick(ctx *StepContext) Status {
	if dt.Root == nil {
		return StatusFailure
	}
	return dt.Root.Tick(ctx)
}

// rule builds the Sequence{Condition, propose} shape every cascade
// entry shares.
func rule(cond func(*StepContext) bool, target State) Node {
	return &Sequence{Children: []Node{
		&ConditionNode{Fn: cond},
		&ActionNode{Fn: func(ctx *StepContext) Status { return ctx.propose(target) }},
	}}
}
