package session

import "github.com/darshang-108/ai-learning-opponent/game/brain"

// FighterState is the wire form of one fighter's observable state.
type FighterState struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HP         float64 `json:"hp"`
	MaxHP      float64 `json:"max_hp"`
	Stamina    float64 `json:"stamina"`
	MaxStamina float64 `json:"max_stamina"`
	Blocking   bool    `json:"blocking"`
	Attacking  bool    `json:"attacking"`
	HeavySwing bool    `json:"heavy_swing"`
	Stunned    bool    `json:"stunned"`
	Dodging    bool    `json:"dodging"`
}

func (f FighterState) toView() brain.FighterView {
	return brain.FighterView{
		X: f.X, Y: f.Y,
		HP: f.HP, MaxHP: f.MaxHP,
		Stamina: f.Stamina, MaxStamina: f.MaxStamina,
		Blocking: f.Blocking, Attacking: f.Attacking,
		HeavySwing: f.HeavySwing, Stunned: f.Stunned, Dodging: f.Dodging,
	}
}

// TickInput is one snapshot the game client sends per decision tick.
// Self is the AI-driven fighter, Opponent the human player.
type TickInput struct {
	Dt       float64       `json:"dt" binding:"required,gt=0,lte=0.5"`
	Self     FighterState  `json:"self"`
	Opponent FighterState  `json:"opponent"`
	Events   []EventReport `json:"events,omitempty"`
}

// View converts the snapshot into the brain's input form.
func (in TickInput) View() brain.View {
	return brain.View{Self: in.Self.toView(), Opponent: in.Opponent.toView()}
}

// TickOutput is the decision returned for one tick.
type TickOutput struct {
	State  string     `json:"state"`
	Phase  string     `json:"phase"`
	Action ActionWire `json:"action"`
}

// ActionWire is the wire form of a brain action.
type ActionWire struct {
	Kind  string  `json:"kind"`
	Heavy bool    `json:"heavy,omitempty"`
	MoveX float64 `json:"move_x,omitempty"`
	MoveY float64 `json:"move_y,omitempty"`
}

// EncodeDecision flattens a decision for the wire.
func EncodeDecision(dec brain.Decision, phase string) TickOutput {
	return TickOutput{
		State: dec.State.String(),
		Phase: phase,
		Action: ActionWire{
			Kind:  dec.Action.Kind.String(),
			Heavy: dec.Action.Heavy,
			MoveX: dec.Action.MoveX,
			MoveY: dec.Action.MoveY,
		},
	}
}

// StreamEvent is one observer-stream frame, published per tick for SSE
// spectators. Winner is set only on the terminal frame.
type StreamEvent struct {
	T       float64    `json:"t"`
	State   string     `json:"state"`
	Phase   string     `json:"phase"`
	Action  ActionWire `json:"action"`
	SelfHP  float64    `json:"self_hp"`
	OppHP   float64    `json:"opp_hp"`
	EventIn int        `json:"events_in,omitempty"`
	Winner  string     `json:"winner,omitempty"`
}

// EventChannel names the pubsub channel for one session's observer
// stream.
func EventChannel(sessionID string) string {
	return "fight:events:" + sessionID
}
