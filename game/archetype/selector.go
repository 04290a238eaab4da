package archetype

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/darshang-108/ai-learning-opponent/game/brain"
	"github.com/darshang-108/ai-learning-opponent/model"
	"go.uber.org/zap"
)

// SelectionConfig tunes the explore/exploit balance of per-match
// archetype choice.
type SelectionConfig struct {
	Temperature float64 // softmax temperature, lower is greedier
	Epsilon     float64 // probability of a uniform random pick
	MinPlays    int     // UCB bonus applies below this play count
	UCBConstant float64 // exploration bonus scale
	UCBBonusCap float64 // bonus ceiling so exploration never drowns a proven win-rate gap
	Recency     float64 // score penalty on the previously chosen archetype
}

// DefaultSelectionConfig returns the standard selection tuning.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		Temperature: 0.35,
		Epsilon:     0.10,
		MinPlays:    5,
		UCBConstant: 0.5,
		UCBBonusCap: 0.25,
		Recency:     0.15,
	}
}

// Validate rejects out-of-range selection tuning.
func (c SelectionConfig) Validate() error {
	if c.Temperature <= 0 {
		return fmt.Errorf("selection: temperature %v must be > 0", c.Temperature)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("selection: epsilon %v outside [0,1]", c.Epsilon)
	}
	if c.MinPlays < 0 {
		return fmt.Errorf("selection: min_plays %d must be >= 0", c.MinPlays)
	}
	if c.UCBConstant < 0 {
		return fmt.Errorf("selection: ucb_constant %v must be >= 0", c.UCBConstant)
	}
	if c.UCBBonusCap <= 0 {
		return fmt.Errorf("selection: ucb_bonus_cap %v must be > 0", c.UCBBonusCap)
	}
	if c.Recency < 0 {
		return fmt.Errorf("selection: recency %v must be >= 0", c.Recency)
	}
	return nil
}

// Selector picks the opponent archetype for a match: the style pool is
// scored by win rate plus a capped UCB exploration bonus, then sampled
// through a temperature softmax so every candidate keeps non-zero
// probability.
type Selector struct {
	pool   *Pool
	store  *StatsStore
	cfg    SelectionConfig
	rng    *rand.Rand
	logger *zap.Logger

	mu        sync.Mutex
	last      string
	lastProbs map[string]float64
}

// NewSelector creates a Selector. The rng is required so selection
// stays reproducible under a fixed seed.
func NewSelector(pool *Pool, store *StatsStore, cfg SelectionConfig, rng *rand.Rand, logger *zap.Logger) (*Selector, error) {
	if pool == nil {
		return nil, fmt.Errorf("selector: pool required")
	}
	if store == nil {
		return nil, fmt.Errorf("selector: stats store required")
	}
	if rng == nil {
		return nil, fmt.Errorf("selector: rng required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{pool: pool, store: store, cfg: cfg, rng: rng, logger: logger}, nil
}

// Select picks one archetype for the detected player style. Runs once
// per match, before the first tick.
func (s *Selector) Select(ctx context.Context, style Style) (brain.Personality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.pool.CandidatesFor(style)

	if s.rng.Float64() < s.cfg.Epsilon {
		name := candidates[s.rng.Intn(len(candidates))]
		s.last = name
		s.logger.Info("archetype selected (explore)",
			zap.String("style", string(style)),
			zap.String("archetype", name),
		)
		return s.pool.Get(name)
	}

	stats, err := s.store.Snapshot(ctx, candidates)
	if err != nil {
		// A broken stats store is recoverable: fall back to an
		// empty history and let the softmax run uniform.
		s.logger.Warn("archetype stats unavailable, selecting without history", zap.Error(err))
		stats = make(map[string]model.ArchetypeStats, len(candidates))
		for _, n := range candidates {
			stats[n] = model.ArchetypeStats{Name: n}
		}
	}

	totalPlays := 0
	for _, name := range candidates {
		totalPlays += stats[name].PlayCount
	}

	scores := make([]float64, len(candidates))
	for i, name := range candidates {
		st := stats[name]
		score := st.WinRate()
		if st.PlayCount < s.cfg.MinPlays {
			bonus := s.cfg.UCBConstant * math.Sqrt(math.Log(float64(totalPlays)+1)/float64(st.PlayCount+1))
			if bonus > s.cfg.UCBBonusCap {
				bonus = s.cfg.UCBBonusCap
			}
			score += bonus
		}
		if name == s.last {
			score -= s.cfg.Recency
		}
		scores[i] = score
	}

	probs := softmax(scores, s.cfg.Temperature)

	r := s.rng.Float64()
	chosen := len(candidates) - 1
	cum := 0.0
	for i, p := range probs {
		cum += p
		if r <= cum {
			chosen = i
			break
		}
	}

	name := candidates[chosen]
	s.last = name
	s.lastProbs = make(map[string]float64, len(candidates))
	for i, n := range candidates {
		s.lastProbs[n] = probs[i]
	}

	s.logger.Info("archetype selected",
		zap.String("style", string(style)),
		zap.String("archetype", name),
		zap.Float64("probability", probs[chosen]),
		zap.Int("candidates", len(candidates)),
	)
	return s.pool.Get(name)
}

// LastProbabilities returns the softmax distribution from the most
// recent non-explore selection, for the debug surface.
func (s *Selector) LastProbabilities() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.lastProbs))
	for k, v := range s.lastProbs {
		out[k] = v
	}
	return out
}

// softmax converts scores into a probability distribution. Scores are
// max-shifted before exponentiation for numerical stability.
func softmax(scores []float64, temperature float64) []float64 {
	if temperature < 0.01 {
		temperature = 0.01
	}
	maxS := scores[0] / temperature
	scaled := make([]float64, len(scores))
	for i, v := range scores {
		scaled[i] = v / temperature
		if scaled[i] > maxS {
			maxS = scaled[i]
		}
	}
	total := 0.0
	out := make([]float64, len(scores))
	for i, v := range scaled {
		out[i] = math.Exp(v - maxS)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
