package model

import (
	"time"

	"gorm.io/datatypes"
)

// Match winners.
const (
	WinnerOpponent = "opponent"
	WinnerPlayer   = "player"
	WinnerDraw     = "draw"
)

// MatchRecord summarizes one completed match. The player-side
// aggregates (TotalAttacks, AvgDistance, MovementCount) feed the
// style analyzer for the next match's archetype selection.
type MatchRecord struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID     string         `gorm:"index:idx_match_session;size:36" json:"session_id"`
	Seed          int64          `json:"seed"`
	Archetype     string         `gorm:"index:idx_match_archetype;size:32;not null" json:"archetype"`
	PlayerStyle   string         `gorm:"size:16" json:"player_style"`
	Winner        string         `gorm:"size:16;not null" json:"winner"`
	Duration      float64        `json:"duration"` // seconds
	DamageDealt   int            `json:"damage_dealt"`
	DamageTaken   int            `json:"damage_taken"`
	TotalAttacks  int            `json:"total_attacks"`
	MovementCount int            `json:"movement_count"`
	DodgeCount    int            `json:"dodge_count"`
	AvgDistance   float64        `json:"avg_distance"`
	Fighters      datatypes.JSON `json:"fighters"`   // archetype pair, simulation matches
	Phases        datatypes.JSON `json:"phases"`     // phase transition timestamps
	Aggression    datatypes.JSON `json:"aggression"` // sampled aggression curve
	CreatedAt     time.Time      `gorm:"index:idx_match_created;autoCreateTime" json:"created_at"`
}

// MatchAction is one observed player action within a match,
// appended by the match logger for later behavior analysis.
type MatchAction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID   int64     `gorm:"index:idx_action_match" json:"match_id"`
	SessionID string    `gorm:"index:idx_action_session;size:36" json:"session_id"`
	T         float64   `json:"t"` // seconds since match start
	Category  string    `gorm:"size:16;not null" json:"category"`
	Heavy     bool      `json:"heavy"`
	Distance  float64   `json:"distance"`
	CreatedAt time.Time `gorm:"autoCreateTime:milli" json:"created_at"`
}
