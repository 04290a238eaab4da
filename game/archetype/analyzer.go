package archetype

import (
	"context"

	"github.com/darshang-108/ai-learning-opponent/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Style is a coarse classification of how the player fights.
type Style string

const (
	StyleAggressive Style = "aggressive"
	StyleDefensive  Style = "defensive"
	StyleBalanced   Style = "balanced"
	StyleEvasive    Style = "evasive"
	StyleUnknown    Style = "unknown"
)

// Classification thresholds, tuned against real match data.
const (
	analyzerLookback   = 3
	styleAttackVolume  = 12.0 // swings per match
	styleCloseDistance = 140.0
)

// Analyzer classifies the player's style from recent match records.
type Analyzer struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer over the match record table.
func NewAnalyzer(db *gorm.DB, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{db: db, logger: logger}
}

// DetectStyle classifies the player's recent behavior. A non-empty
// sessionID restricts the history to that session; empty looks at
// all matches. No history yields StyleUnknown.
func (a *Analyzer) DetectStyle(ctx context.Context, sessionID string) (Style, error) {
	q := a.db.WithContext(ctx).Model(&model.MatchRecord{})
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var recent []model.MatchRecord
	if err := q.Order("id DESC").Limit(analyzerLookback).Find(&recent).Error; err != nil {
		return StyleUnknown, err
	}
	if len(recent) == 0 {
		return StyleUnknown, nil
	}

	var attacks, distance, movement float64
	for _, m := range recent {
		attacks += float64(m.TotalAttacks)
		distance += m.AvgDistance
		movement += float64(m.MovementCount)
	}
	n := float64(len(recent))
	avgAttacks := attacks / n
	avgDistance := distance / n

	a.logger.Debug("player style sample",
		zap.Int("matches", len(recent)),
		zap.Float64("avg_attacks", avgAttacks),
		zap.Float64("avg_distance", avgDistance),
		zap.Float64("avg_movement", movement/n),
	)

	switch {
	case avgAttacks >= styleAttackVolume && avgDistance < styleCloseDistance:
		return StyleAggressive, nil
	case avgAttacks < styleAttackVolume && avgDistance >= styleCloseDistance:
		return StyleDefensive, nil
	default:
		return StyleBalanced, nil
	}
}
