package archetype

import (
	"context"
	"errors"
	"sync"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LeaderboardKey is the sorted set holding per-archetype win rates.
const LeaderboardKey = "archetype:leaderboard"

// StatsStore persists per-archetype performance. Reads happen at
// match start and writes at match end, so a single mutex is enough
// to serialize writers from concurrent matches.
type StatsStore struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStatsStore creates a StatsStore.
func NewStatsStore(db *gorm.DB, c cache.Cache, logger *zap.Logger) *StatsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsStore{db: db, cache: c, logger: logger}
}

// Get returns the stats row for one archetype, creating a zero row on
// first reference. Rows violating the count invariant are reset and
// the reset is persisted.
func (s *StatsStore) Get(ctx context.Context, name string) (*model.ArchetypeStats, error) {
	var st model.ArchetypeStats
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = model.ArchetypeStats{Name: name}
		if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
			return nil, err
		}
		return &st, nil
	}
	if err != nil {
		return nil, err
	}
	if s.sanitize(&st) {
		if err := s.db.WithContext(ctx).Save(&st).Error; err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// Snapshot returns a read-only copy of the stats for the given names.
// Names without a row yet map to zero-value stats; nothing is written.
func (s *StatsStore) Snapshot(ctx context.Context, names []string) (map[string]model.ArchetypeStats, error) {
	var rows []model.ArchetypeStats
	if err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]model.ArchetypeStats, len(names))
	for _, n := range names {
		out[n] = model.ArchetypeStats{Name: n}
	}
	for _, r := range rows {
		s.sanitize(&r)
		out[r.Name] = r
	}
	return out, nil
}

// All returns every stats row ordered by name.
func (s *StatsStore) All(ctx context.Context) ([]model.ArchetypeStats, error) {
	var rows []model.ArchetypeStats
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RecordResult folds one match outcome into the archetype's stats
// using running averages, then refreshes the leaderboard entry.
func (s *StatsStore) RecordResult(ctx context.Context, name string, won bool, damageDealt int, duration float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Get(ctx, name)
	if err != nil {
		return err
	}

	n := float64(st.PlayCount)
	st.AvgDamage += (float64(damageDealt) - st.AvgDamage) / (n + 1)
	st.AvgSurvival += (duration - st.AvgSurvival) / (n + 1)
	st.PlayCount++
	if won {
		st.Wins++
	} else {
		st.Losses++
	}
	if err := s.db.WithContext(ctx).Save(st).Error; err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.ZAdd(ctx, LeaderboardKey, st.WinRate(), st.Name); err != nil {
			s.logger.Warn("leaderboard refresh failed", zap.String("archetype", st.Name), zap.Error(err))
		}
	}

	s.logger.Info("archetype result recorded",
		zap.String("archetype", st.Name),
		zap.Bool("won", won),
		zap.Int("play_count", st.PlayCount),
		zap.Float64("win_rate", st.WinRate()),
		zap.Float64("avg_damage", st.AvgDamage),
		zap.Float64("avg_survival", st.AvgSurvival),
	)
	return nil
}

// RefreshLeaderboard rebuilds the full leaderboard sorted set from the
// database. Called by the scheduler and the admin refresh endpoint.
func (s *StatsStore) RefreshLeaderboard(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	rows, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	for i := range rows {
		r := &rows[i]
		if err := s.cache.ZAdd(ctx, LeaderboardKey, r.WinRate(), r.Name); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

// sanitize resets a row whose counters are inconsistent. Returns true
// when the row was reset.
func (s *StatsStore) sanitize(st *model.ArchetypeStats) bool {
	valid := st.Wins >= 0 && st.Losses >= 0 &&
		st.PlayCount == st.Wins+st.Losses &&
		st.AvgDamage >= 0 && st.AvgSurvival >= 0
	if valid {
		return false
	}
	s.logger.Warn("archetype stats inconsistent, resetting",
		zap.String("archetype", st.Name),
		zap.Int("wins", st.Wins),
		zap.Int("losses", st.Losses),
		zap.Int("play_count", st.PlayCount),
	)
	st.Wins = 0
	st.Losses = 0
	st.PlayCount = 0
	st.AvgDamage = 0
	st.AvgSurvival = 0
	return true
}
