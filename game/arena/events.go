package arena

// MatchEvent is emitted by Match for the SSE layer and the match
// logger to consume.
type MatchEvent interface {
	EventType() string
}

// Side identifies a combatant in event payloads and results.
type Side int

const (
	SideOpponent Side = iota // the adaptive archetype
	SidePlayer
)

func (s Side) String() string {
	if s == SidePlayer {
		return "player"
	}
	return "opponent"
}

// FighterSnapshot is a fighter's observable state for event payloads.
type FighterSnapshot struct {
	Name    string  `json:"name"`
	HP      float64 `json:"hp"`
	MaxHP   float64 `json:"max_hp"`
	Stamina float64 `json:"stamina"`
	X       float64 `json:"x"`
}

func snapshotFighter(f *Fighter) FighterSnapshot {
	return FighterSnapshot{
		Name:    f.Name,
		HP:      f.HP,
		MaxHP:   f.MaxHP,
		Stamina: f.Stamina,
		X:       f.X,
	}
}

// --- Concrete event types ---

type EventMatchStart struct {
	Seed     int64           `json:"seed"`
	Opponent FighterSnapshot `json:"opponent"`
	Player   FighterSnapshot `json:"player"`
}

func (EventMatchStart) EventType() string { return "match_start" }

// EventAction marks an action commit: a swing, a cast, a dodge, a
// block going up, or movement changing direction. It is the analyzer's
// per-action granularity, so it fires on commits rather than per tick.
type EventAction struct {
	Side     string  `json:"side"`
	T        float64 `json:"t"`
	Category string  `json:"category"` // attack, projectile, move, block, dodge
	Heavy    bool    `json:"heavy,omitempty"`
	Distance float64 `json:"distance"`
}

func (EventAction) EventType() string { return "action" }

type EventHit struct {
	Attacker   string  `json:"attacker"`
	T          float64 `json:"t"`
	Damage     int     `json:"damage"`
	Heavy      bool    `json:"heavy,omitempty"`
	Blocked    bool    `json:"blocked,omitempty"`
	Parried    bool    `json:"parried,omitempty"`
	Dodged     bool    `json:"dodged,omitempty"`
	Execution  bool    `json:"execution,omitempty"`
	Projectile bool    `json:"projectile,omitempty"`
	TargetHP   float64 `json:"target_hp"`
}

func (EventHit) EventType() string { return "hit" }

type EventPhaseChange struct {
	T     float64 `json:"t"`
	Phase string  `json:"phase"`
}

func (EventPhaseChange) EventType() string { return "phase_change" }

type EventMatchEnd struct {
	Winner   string  `json:"winner"`
	Duration float64 `json:"duration_sec"`

	Opponent FighterSnapshot `json:"opponent"`
	Player   FighterSnapshot `json:"player"`
}

func (EventMatchEnd) EventType() string { return "match_end" }
