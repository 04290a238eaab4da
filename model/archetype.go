package model

import "time"

// ArchetypeStats tracks the lifetime performance of one opponent
// archetype across matches. PlayCount must always equal Wins+Losses;
// rows violating that are reset by the stats store.
type ArchetypeStats struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Wins        int       `gorm:"default:0" json:"wins"`
	Losses      int       `gorm:"default:0" json:"losses"`
	PlayCount   int       `gorm:"default:0" json:"play_count"`
	AvgDamage   float64   `gorm:"default:0" json:"avg_damage"`
	AvgSurvival float64   `gorm:"default:0" json:"avg_survival"` // seconds
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WinRate returns wins over plays, 0 for an unplayed archetype.
func (s *ArchetypeStats) WinRate() float64 {
	if s.PlayCount <= 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.PlayCount)
}
