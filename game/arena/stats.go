package arena

// AggressionInterval is the cadence for aggression snapshots.
const AggressionInterval = 10.0

// SideStats accumulates one side's combat events for a match.
type SideStats struct {
	Attacks      int `json:"attacks"` // swings committed, hit or miss
	QuickAttacks int `json:"quick_attacks"`
	HeavyAttacks int `json:"heavy_attacks"`
	Projectiles  int `json:"projectiles"`
	Hits         int `json:"hits"`
	DamageDealt  int `json:"damage_dealt"`
	Blocked      int `json:"blocked"` // own swings the opponent blocked
	Parried      int `json:"parried"` // own swings the opponent parried
	Dodges       int `json:"dodges"`  // dodge actions performed
	ForwardMoves int `json:"forward_moves"` // ticks moving toward the opponent
	Retreats     int `json:"retreats"`      // entries into away-movement
	MoveTicks    int `json:"move_ticks"`
}

// MatchStats tracks both sides plus the shared distance trace and the
// opponent-side aggression history, snapshotted on a fixed cadence.
type MatchStats struct {
	Opponent SideStats `json:"opponent"`
	Player   SideStats `json:"player"`

	AggressionHistory []int `json:"aggression_history"`

	distanceSum   float64
	distanceTicks int
	sampleTimer   float64

	lastMoveDir [2]int // -1 away, 0 none, +1 toward; indexed by Side
}

func (s *MatchStats) side(sd Side) *SideStats {
	if sd == SidePlayer {
		return &s.Player
	}
	return &s.Opponent
}

// RecordSwing counts a committed swing.
func (s *MatchStats) RecordSwing(sd Side, heavy bool) {
	st := s.side(sd)
	st.Attacks++
	if heavy {
		st.HeavyAttacks++
	} else {
		st.QuickAttacks++
	}
}

// RecordProjectile counts a cast.
func (s *MatchStats) RecordProjectile(sd Side) {
	st := s.side(sd)
	st.Attacks++
	st.Projectiles++
}

// RecordHit books a landed hit for the attacker.
func (s *MatchStats) RecordHit(sd Side, res HitResult) {
	st := s.side(sd)
	if res.Parried {
		st.Parried++
		return
	}
	if res.Blocked {
		st.Blocked++
	}
	if res.Landed {
		st.Hits++
		st.DamageDealt += res.Damage
	}
}

// RecordDodge counts a dodge action.
func (s *MatchStats) RecordDodge(sd Side) {
	s.side(sd).Dodges++
}

// RecordMove classifies one tick of movement. toward is the sign of
// travel relative to the opponent. Retreats count entries rather than
// ticks so the aggression formula isn't swamped by long back-pedals.
func (s *MatchStats) RecordMove(sd Side, toward bool) {
	st := s.side(sd)
	st.MoveTicks++
	dir := 1
	if !toward {
		dir = -1
	}
	if toward {
		st.ForwardMoves++
	} else if s.lastMoveDir[sd] != -1 {
		st.Retreats++
	}
	s.lastMoveDir[sd] = dir
}

// RecordStill clears the movement-direction memory for a tick with no
// travel, so the next back-pedal counts as a fresh retreat.
func (s *MatchStats) RecordStill(sd Side) {
	s.lastMoveDir[sd] = 0
}

// Tick accumulates the distance trace and snapshots the opponent-side
// aggression score on the sampling cadence.
func (s *MatchStats) Tick(dt, distance float64) {
	s.distanceSum += distance
	s.distanceTicks++
	s.sampleTimer += dt
	if s.sampleTimer >= AggressionInterval {
		s.sampleTimer -= AggressionInterval
		s.AggressionHistory = append(s.AggressionHistory, s.aggressionScore())
	}
}

// Finish takes the closing aggression snapshot so the history is
// never empty.
func (s *MatchStats) Finish() {
	s.AggressionHistory = append(s.AggressionHistory, s.aggressionScore())
}

// aggressionScore is the opponent's quick attacks plus chase ticks
// minus retreats.
func (s *MatchStats) aggressionScore() int {
	return s.Opponent.QuickAttacks + s.Opponent.ForwardMoves - s.Opponent.Retreats
}

// AvgDistance returns the mean fighter separation over the match.
func (s *MatchStats) AvgDistance() float64 {
	if s.distanceTicks == 0 {
		return 0
	}
	return s.distanceSum / float64(s.distanceTicks)
}

// AvgAggression averages the snapshot history.
func (s *MatchStats) AvgAggression() float64 {
	if len(s.AggressionHistory) == 0 {
		return 0
	}
	sum := 0
	for _, v := range s.AggressionHistory {
		sum += v
	}
	return float64(sum) / float64(len(s.AggressionHistory))
}
