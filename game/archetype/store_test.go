package archetype

import (
	"context"
	"testing"

	"github.com/darshang-108/ai-learning-opponent/model"
	"github.com/darshang-108/ai-learning-opponent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestStoreCreatesZeroRowOnFirstReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStatsStore(db, nil, nopLogger())
	ctx := context.Background()

	st, err := s.Get(ctx, "Duelist")
	require.NoError(t, err)
	assert.Equal(t, "Duelist", st.Name)
	assert.Zero(t, st.PlayCount)
	assert.Zero(t, st.WinRate())

	again, err := s.Get(ctx, "Duelist")
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID)
}

func TestStoreRecordResultRunningAverages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStatsStore(db, nil, nopLogger())
	ctx := context.Background()

	require.NoError(t, s.RecordResult(ctx, "Berserker", true, 40, 30))
	require.NoError(t, s.RecordResult(ctx, "Berserker", false, 60, 60))

	st, err := s.Get(ctx, "Berserker")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 2, st.PlayCount)
	assert.InDelta(t, 50.0, st.AvgDamage, 1e-9)
	assert.InDelta(t, 45.0, st.AvgSurvival, 1e-9)
	assert.InDelta(t, 0.5, st.WinRate(), 1e-9)
}

func TestStoreRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStatsStore(db, nil, nopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordResult(ctx, "Predator", true, 80, 45))
	}
	require.NoError(t, s.RecordResult(ctx, "Predator", false, 20, 12))

	// a fresh store over the same database sees identical values
	reopened := NewStatsStore(db, nil, nopLogger())
	st, err := reopened.Get(ctx, "Predator")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 4, st.PlayCount)
	assert.InDelta(t, 0.75, st.WinRate(), 1e-9)
}

func TestStoreResetsInconsistentRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStatsStore(db, nil, nopLogger())
	ctx := context.Background()

	require.NoError(t, db.Create(&model.ArchetypeStats{
		Name: "Corrupt", Wins: 5, Losses: 2, PlayCount: 3,
	}).Error)

	st, err := s.Get(ctx, "Corrupt")
	require.NoError(t, err)
	assert.Zero(t, st.Wins)
	assert.Zero(t, st.Losses)
	assert.Zero(t, st.PlayCount)

	// the reset was persisted, not just returned
	var raw model.ArchetypeStats
	require.NoError(t, db.Where("name = ?", "Corrupt").First(&raw).Error)
	assert.Zero(t, raw.PlayCount)
	assert.Zero(t, raw.Wins)
}

func TestStoreSnapshotReadsWithoutWriting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStatsStore(db, nil, nopLogger())
	ctx := context.Background()

	require.NoError(t, s.RecordResult(ctx, "Mage", true, 30, 20))

	snap, err := s.Snapshot(ctx, []string{"Mage", "Ghost"})
	require.NoError(t, err)
	assert.Equal(t, 1, snap["Mage"].PlayCount)
	assert.Zero(t, snap["Ghost"].PlayCount)

	// the unseen name was not materialized as a row
	var count int64
	require.NoError(t, db.Model(&model.ArchetypeStats{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStoreLeaderboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	s := NewStatsStore(db, c, nopLogger())
	ctx := context.Background()

	require.NoError(t, s.RecordResult(ctx, "Duelist", true, 50, 40))
	require.NoError(t, s.RecordResult(ctx, "Coward", false, 10, 25))

	top, err := c.ZRevRange(ctx, LeaderboardKey, 0, 9)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, "Duelist", top[0])

	score, err := c.ZScore(ctx, LeaderboardKey, "Duelist")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	n, err := s.RefreshLeaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStoreAllOrdered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := NewStatsStore(db, nil, nopLogger())
	ctx := context.Background()

	require.NoError(t, s.RecordResult(ctx, "Trickster", true, 10, 10))
	require.NoError(t, s.RecordResult(ctx, "Aggressor", false, 5, 8))

	rows, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Aggressor", rows[0].Name)
	assert.Equal(t, "Trickster", rows[1].Name)
}
