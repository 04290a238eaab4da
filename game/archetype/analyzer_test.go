package archetype

import (
	"context"
	"testing"

	"github.com/darshang-108/ai-learning-opponent/model"
	"github.com/darshang-108/ai-learning-opponent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMatch(t *testing.T, db *gorm.DB, sessionID string, attacks int, dist float64) {
	t.Helper()
	require.NoError(t, db.Create(&model.MatchRecord{
		SessionID:     sessionID,
		Archetype:     "Duelist",
		Winner:        model.WinnerOpponent,
		Duration:      42,
		TotalAttacks:  attacks,
		AvgDistance:   dist,
		MovementCount: 30,
	}).Error)
}

func TestAnalyzerUnknownWithoutHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := NewAnalyzer(db, nopLogger())

	style, err := a.DetectStyle(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StyleUnknown, style)
}

func TestAnalyzerAggressive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := NewAnalyzer(db, nopLogger())
	for i := 0; i < 3; i++ {
		seedMatch(t, db, "s1", 20, 80)
	}

	style, err := a.DetectStyle(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StyleAggressive, style)
}

func TestAnalyzerDefensive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := NewAnalyzer(db, nopLogger())
	for i := 0; i < 3; i++ {
		seedMatch(t, db, "s1", 4, 300)
	}

	style, err := a.DetectStyle(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StyleDefensive, style)
}

func TestAnalyzerBalancedWhenMixed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := NewAnalyzer(db, nopLogger())
	// Heavy attack volume from long range matches neither rule.
	for i := 0; i < 3; i++ {
		seedMatch(t, db, "s1", 20, 300)
	}

	style, err := a.DetectStyle(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StyleBalanced, style)
}

func TestAnalyzerUsesOnlyRecentMatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := NewAnalyzer(db, nopLogger())
	for i := 0; i < 3; i++ {
		seedMatch(t, db, "s1", 25, 60) // old aggressive run
	}
	for i := 0; i < 3; i++ {
		seedMatch(t, db, "s1", 2, 280) // recent turtling
	}

	style, err := a.DetectStyle(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StyleDefensive, style)
}

func TestAnalyzerFiltersBySession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := NewAnalyzer(db, nopLogger())
	for i := 0; i < 3; i++ {
		seedMatch(t, db, "rusher", 22, 70)
	}
	for i := 0; i < 3; i++ {
		seedMatch(t, db, "turtle", 3, 260)
	}

	ctx := context.Background()
	style, err := a.DetectStyle(ctx, "rusher")
	require.NoError(t, err)
	assert.Equal(t, StyleAggressive, style)

	style, err = a.DetectStyle(ctx, "turtle")
	require.NoError(t, err)
	assert.Equal(t, StyleDefensive, style)

	// unfiltered history is dominated by the most recent session
	style, err = a.DetectStyle(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StyleDefensive, style)
}
