package arena

import (
	"math"
	"testing"
)

func TestStatsSwingAndHitCounters(t *testing.T) {
	var s MatchStats

	s.RecordSwing(SideOpponent, false)
	s.RecordSwing(SideOpponent, true)
	s.RecordProjectile(SideOpponent)
	s.RecordHit(SideOpponent, HitResult{Landed: true, Damage: 5})
	s.RecordHit(SideOpponent, HitResult{Landed: true, Blocked: true, Damage: 2})
	s.RecordHit(SideOpponent, HitResult{Parried: true, Blocked: true})

	o := s.Opponent
	if o.Attacks != 3 || o.QuickAttacks != 1 || o.HeavyAttacks != 1 || o.Projectiles != 1 {
		t.Errorf("attack counters = %+v, want 3/1/1/1", o)
	}
	if o.Hits != 2 || o.DamageDealt != 7 {
		t.Errorf("hits = %d damage = %d, want 2 and 7", o.Hits, o.DamageDealt)
	}
	if o.Blocked != 1 || o.Parried != 1 {
		t.Errorf("blocked = %d parried = %d, want 1 and 1", o.Blocked, o.Parried)
	}
	if s.Player != (SideStats{}) {
		t.Errorf("player side touched: %+v", s.Player)
	}
}

func TestStatsRetreatCountsEntriesNotTicks(t *testing.T) {
	var s MatchStats

	// A sustained back-pedal is one retreat.
	s.RecordMove(SideOpponent, false)
	s.RecordMove(SideOpponent, false)
	s.RecordMove(SideOpponent, false)
	if s.Opponent.Retreats != 1 {
		t.Fatalf("retreats = %d, want 1 for a sustained back-pedal", s.Opponent.Retreats)
	}

	// Advancing then retreating again is a second entry.
	s.RecordMove(SideOpponent, true)
	s.RecordMove(SideOpponent, false)
	if s.Opponent.Retreats != 2 {
		t.Errorf("retreats = %d, want 2 after direction change", s.Opponent.Retreats)
	}

	// Standing still also resets the entry detector.
	s.RecordStill(SideOpponent)
	s.RecordMove(SideOpponent, false)
	if s.Opponent.Retreats != 3 {
		t.Errorf("retreats = %d, want 3 after a pause", s.Opponent.Retreats)
	}

	if s.Opponent.ForwardMoves != 1 {
		t.Errorf("forward moves = %d, want 1 per advancing tick", s.Opponent.ForwardMoves)
	}
	if s.Opponent.MoveTicks != 6 {
		t.Errorf("move ticks = %d, want 6", s.Opponent.MoveTicks)
	}
}

func TestStatsAggressionSnapshotCadence(t *testing.T) {
	var s MatchStats

	for i := 0; i < 25; i++ {
		s.RecordMove(SideOpponent, true)
		s.Tick(1.0, 100)
	}
	if got := len(s.AggressionHistory); got != 2 {
		t.Fatalf("snapshots after 25s = %d, want 2", got)
	}

	s.Finish()
	if got := len(s.AggressionHistory); got != 3 {
		t.Errorf("snapshots after finish = %d, want 3", got)
	}
	// 25 advancing ticks, no quick attacks, no retreats.
	if got := s.AggressionHistory[2]; got != 25 {
		t.Errorf("final score = %d, want 25", got)
	}
}

func TestStatsAggressionScore(t *testing.T) {
	var s MatchStats

	s.RecordSwing(SideOpponent, false) // quick: +1
	s.RecordSwing(SideOpponent, true)  // heavy does not score
	s.RecordMove(SideOpponent, true)   // +1
	s.RecordMove(SideOpponent, false)  // -1
	// Player-side activity must not leak into the opponent score.
	s.RecordSwing(SidePlayer, false)
	s.RecordMove(SidePlayer, true)

	if got := s.aggressionScore(); got != 1 {
		t.Errorf("score = %d, want 1", got)
	}
}

func TestStatsAvgDistance(t *testing.T) {
	var s MatchStats

	s.Tick(1.0/60, 100)
	s.Tick(1.0/60, 300)
	if got := s.AvgDistance(); math.Abs(got-200) > 1e-9 {
		t.Errorf("avg distance = %v, want 200", got)
	}
}

func TestStatsAvgAggressionEmptyHistory(t *testing.T) {
	var s MatchStats
	if got := s.AvgAggression(); got != 0 {
		t.Errorf("avg aggression with no history = %v, want 0", got)
	}
}
