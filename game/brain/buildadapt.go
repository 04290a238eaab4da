package brain

import "strings"

// Build categorizes the opponent's loadout. The category arrives as a
// session hint and is not learned.
type Build int

const (
	BuildBalanced Build = iota
	BuildMage
	BuildDexterity
	BuildTank
)

var buildNames = map[Build]string{
	BuildBalanced:  "balanced",
	BuildMage:      "mage",
	BuildDexterity: "dexterity",
	BuildTank:      "tank",
}

func (b Build) String() string {
	if n, ok := buildNames[b]; ok {
		return n
	}
	return "balanced"
}

// ParseBuild maps a hint string to a build, defaulting to balanced.
func ParseBuild(s string) Build {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mage", "caster":
		return BuildMage
	case "dexterity", "dex", "rogue":
		return BuildDexterity
	case "tank", "heavy":
		return BuildTank
	}
	return BuildBalanced
}

// BuildModifier is the static counter vector for one opponent build.
type BuildModifier struct {
	ChaseSpeedMult   float64
	DodgeAdd         float64
	BlockAdd         float64
	CooldownMult     float64
	SpacingOffset    float64 // px
	GuardBreakChance float64
	StaminaDrainMult float64 // own attack stamina cost against this build
	PunishMult       float64
	ParryAdd         float64
	AggressionOffset float64
}

func neutralBuild() BuildModifier {
	return BuildModifier{
		ChaseSpeedMult:   1.0,
		CooldownMult:     1.0,
		StaminaDrainMult: 1.0,
		PunishMult:       1.0,
	}
}

// buildTable holds the counter vector per build. Mages get chased down
// and dodged, dex builds get punished hard, tanks get guard-broken and
// drain extra stamina to crack open.
var buildTable = map[Build]BuildModifier{
	BuildBalanced: neutralBuild(),
	BuildMage: {
		ChaseSpeedMult:   1.45,
		DodgeAdd:         0.25,
		CooldownMult:     0.85,
		SpacingOffset:    -20,
		StaminaDrainMult: 1.0,
		PunishMult:       1.30,
		AggressionOffset: 0.15,
	},
	BuildDexterity: {
		ChaseSpeedMult:   1.10,
		DodgeAdd:         0.10,
		BlockAdd:         0.20,
		CooldownMult:     1.05,
		StaminaDrainMult: 1.0,
		PunishMult:       1.50,
		ParryAdd:         0.15,
		AggressionOffset: -0.05,
	},
	BuildTank: {
		ChaseSpeedMult:   1.05,
		DodgeAdd:         0.05,
		BlockAdd:         0.05,
		CooldownMult:     1.10,
		SpacingOffset:    5,
		GuardBreakChance: 0.10,
		StaminaDrainMult: 1.30,
		PunishMult:       1.10,
		ParryAdd:         0.05,
		AggressionOffset: -0.10,
	},
}

// tankGuardBreakBlocking replaces the tank guard-break chance while the
// opponent is actively holding block.
const tankGuardBreakBlocking = 0.35

// BuildAdapter looks up the static counter vector for the opponent's
// build each tick. It holds no learned state.
type BuildAdapter struct {
	build Build
}

// NewBuildAdapter creates an adapter for the given opponent build.
func NewBuildAdapter(b Build) *BuildAdapter {
	return &BuildAdapter{build: b}
}

// Build returns the configured opponent build.
func (a *BuildAdapter) Build() Build { return a.build }

// SetBuild swaps the opponent build mid-session.
func (a *BuildAdapter) SetBuild(b Build) { a.build = b }

// Modifier returns the counter vector, raising the guard-break chance
// when a tank opponent is currently blocking.
func (a *BuildAdapter) Modifier(opponentBlocking bool) BuildModifier {
	m, ok := buildTable[a.build]
	if !ok {
		return neutralBuild()
	}
	if a.build == BuildTank && opponentBlocking {
		m.GuardBreakChance = tankGuardBreakBlocking
	}
	return m
}
