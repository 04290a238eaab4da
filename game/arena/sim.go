package arena

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/brain"
)

// PlayerAction is one logged player-side action commit, the behavior
// analyzer's raw material.
type PlayerAction struct {
	T        float64
	Category string
	Heavy    bool
	Distance float64
}

// Recorder persists completed matches. The simulator calls it once
// per finished match, from a single goroutine.
type Recorder interface {
	RecordMatch(ctx context.Context, res Result, actions []PlayerAction) error
}

// simRoles mirrors the character-select loadouts; the build feeds the
// other side's counter adapter.
var simRoles = []struct {
	Name  string
	Build brain.Build
}{
	{"Mage", brain.BuildMage},
	{"Berserker", brain.BuildDexterity},
	{"Tactician", brain.BuildBalanced},
	{"Guardian", brain.BuildTank},
	{"Assassin", brain.BuildDexterity},
	{"Adaptive", brain.BuildBalanced},
}

// BatchConfig configures RunBatch.
type BatchConfig struct {
	Matches     int
	Seed        int64
	Workers     int     // 0 = 1
	TickRate    int     // 0 = 60
	MaxDuration float64 // simulated seconds per match, 0 = 120

	Selector *archetype.Selector   // required: adaptive-side selection
	Pool     *archetype.Pool       // required: player-side draws
	Store    *archetype.StatsStore // optional: win/loss write-back
	Analyzer *archetype.Analyzer   // optional: style detection between matches
	Recorder Recorder              // optional: match log persistence

	BrainConfig *brain.Config // nil = brain.DefaultConfig
	Tunables    *Tunables
	Logger      *zap.Logger
}

// ArchetypeLine is one row of a per-personality distribution table.
type ArchetypeLine struct {
	Name    string
	Played  int
	Won     int
	WinRate float64
}

// RoleLine is one row of a per-role usage table.
type RoleLine struct {
	Name        string
	Played      int
	Won         int
	WinRate     float64
	Usage       float64
	AvgDuration float64
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	Matches      int
	OpponentWins int
	PlayerWins   int
	Draws        int

	AvgDuration         float64
	AvgAggression       float64
	AvgPhaseTransitions float64
	Elapsed             time.Duration

	Archetypes       []ArchetypeLine // adaptive side, sorted by plays
	PlayerArchetypes []ArchetypeLine
	OpponentRoles    []RoleLine
	PlayerRoles      []RoleLine
}

type simOutcome struct {
	res     Result
	oRole   string
	pRole   string
	actions []PlayerAction
	err     error
}

// RunBatch runs n independent matches with seeds derived from the
// root seed. Matches may run on a worker pool; each match owns its own
// brains and fighters, and all store and log writes happen on the
// collecting goroutine so the shared stores see a single writer.
func RunBatch(ctx context.Context, cfg BatchConfig) (*BatchSummary, error) {
	if cfg.Matches < 1 {
		return nil, fmt.Errorf("arena: batch needs at least 1 match, got %d", cfg.Matches)
	}
	if cfg.Selector == nil || cfg.Pool == nil {
		return nil, fmt.Errorf("arena: batch requires a selector and a pool")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	bcfg := brain.DefaultConfig()
	if cfg.BrainConfig != nil {
		bcfg = *cfg.BrainConfig
	}

	// Seeds come off the master stream up front so the per-match
	// sequence doesn't depend on worker interleaving.
	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Matches)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	results := make(chan simOutcome)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out := runOne(runCtx, cfg, bcfg, i, seeds[i])
				select {
				case results <- out:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Matches; i++ {
			select {
			case jobs <- i:
			case <-runCtx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	start := time.Now()
	summary := &BatchSummary{}
	archetypes := map[string]*ArchetypeLine{}
	playerArchetypes := map[string]*ArchetypeLine{}
	oRoles := map[string]*roleAcc{}
	pRoles := map[string]*roleAcc{}

	var firstErr error
	for out := range results {
		if out.err != nil {
			if firstErr == nil {
				firstErr = out.err
				cancel()
			}
			continue
		}
		res := out.res

		summary.Matches++
		switch res.Outcome {
		case OutcomeOpponentWin:
			summary.OpponentWins++
		case OutcomePlayerWin:
			summary.PlayerWins++
		default:
			summary.Draws++
		}
		summary.AvgDuration += res.Duration
		summary.AvgAggression += res.AvgAggression
		summary.AvgPhaseTransitions += float64(len(res.PhaseTransitions))

		bumpLine(archetypes, res.Opponent, res.Outcome == OutcomeOpponentWin)
		bumpLine(playerArchetypes, res.Player, res.Outcome == OutcomePlayerWin)
		bumpRole(oRoles, out.oRole, res.Outcome == OutcomeOpponentWin, res.Duration)
		bumpRole(pRoles, out.pRole, res.Outcome == OutcomePlayerWin, res.Duration)

		// Draws carry no win/loss signal, so the stats store only
		// sees decisive matches.
		if cfg.Store != nil && res.Outcome != OutcomeDraw {
			won := res.Outcome == OutcomeOpponentWin
			if err := cfg.Store.RecordResult(ctx, res.Opponent, won,
				res.Stats.Opponent.DamageDealt, res.Duration); err != nil {
				cfg.Logger.Warn("stats write failed",
					zap.String("archetype", res.Opponent), zap.Error(err))
			}
		}
		if cfg.Recorder != nil {
			if err := cfg.Recorder.RecordMatch(ctx, res, out.actions); err != nil {
				cfg.Logger.Warn("match log write failed", zap.Error(err))
			}
		}

		cfg.Logger.Debug("match recorded",
			zap.Int("seq", summary.Matches),
			zap.String("winner", res.Winner),
			zap.String("archetype", res.Opponent),
			zap.String("player_archetype", res.Player),
			zap.Float64("duration_sec", res.Duration))
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if summary.Matches > 0 {
		n := float64(summary.Matches)
		summary.AvgDuration /= n
		summary.AvgAggression /= n
		summary.AvgPhaseTransitions /= n
	}
	summary.Elapsed = time.Since(start)
	summary.Archetypes = sortLines(archetypes)
	summary.PlayerArchetypes = sortLines(playerArchetypes)
	summary.OpponentRoles = sortRoles(oRoles, summary.Matches)
	summary.PlayerRoles = sortRoles(pRoles, summary.Matches)
	return summary, nil
}

// runOne builds and runs a single seeded match.
func runOne(ctx context.Context, cfg BatchConfig, bcfg brain.Config, i int, seed int64) simOutcome {
	rng := rand.New(rand.NewSource(seed))

	style := archetype.StyleUnknown
	if cfg.Analyzer != nil {
		detected, err := cfg.Analyzer.DetectStyle(ctx, "")
		if err != nil {
			cfg.Logger.Warn("style detection failed", zap.Error(err))
		} else {
			style = detected
		}
	}

	opponentP, err := cfg.Selector.Select(ctx, style)
	if err != nil {
		return simOutcome{err: fmt.Errorf("select archetype: %w", err)}
	}
	playerP := cfg.Pool.RandomN(rng, 1)[0]

	oRole := simRoles[rng.Intn(len(simRoles))]
	pRole := simRoles[rng.Intn(len(simRoles))]

	// Each brain counters the build across from it.
	oppBrain, err := brain.New(bcfg, opponentP, pRole.Build,
		rand.New(rand.NewSource(rng.Int63())), cfg.Logger)
	if err != nil {
		return simOutcome{err: fmt.Errorf("opponent brain: %w", err)}
	}
	playerBrain, err := brain.New(bcfg, playerP, oRole.Build,
		rand.New(rand.NewSource(rng.Int63())), cfg.Logger)
	if err != nil {
		return simOutcome{err: fmt.Errorf("player brain: %w", err)}
	}

	m, err := NewMatch(MatchConfig{
		Seed:         seed,
		TickRate:     cfg.TickRate,
		MaxDuration:  cfg.MaxDuration,
		Opponent:     NewBrainDriver(oppBrain),
		Player:       NewBrainDriver(playerBrain),
		OpponentName: opponentP.Name,
		PlayerName:   playerP.Name,
		Tunables:     cfg.Tunables,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return simOutcome{err: err}
	}

	// Drain events, keeping the player's action trail for the log.
	var actions []PlayerAction
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for evt := range m.Events() {
			if act, ok := evt.(EventAction); ok && act.Side == SidePlayer.String() {
				actions = append(actions, PlayerAction{
					T:        act.T,
					Category: act.Category,
					Heavy:    act.Heavy,
					Distance: act.Distance,
				})
			}
		}
	}()

	res, err := m.Run(ctx)
	<-drained
	if err != nil {
		return simOutcome{err: err}
	}
	return simOutcome{res: res, oRole: oRole.Name, pRole: pRole.Name, actions: actions}
}

type roleAcc struct {
	played int
	won    int
	dur    float64
}

func bumpLine(m map[string]*ArchetypeLine, name string, won bool) {
	ln := m[name]
	if ln == nil {
		ln = &ArchetypeLine{Name: name}
		m[name] = ln
	}
	ln.Played++
	if won {
		ln.Won++
	}
}

func bumpRole(m map[string]*roleAcc, name string, won bool, dur float64) {
	acc := m[name]
	if acc == nil {
		acc = &roleAcc{}
		m[name] = acc
	}
	acc.played++
	if won {
		acc.won++
	}
	acc.dur += dur
}

func sortLines(m map[string]*ArchetypeLine) []ArchetypeLine {
	out := make([]ArchetypeLine, 0, len(m))
	for _, ln := range m {
		if ln.Played > 0 {
			ln.WinRate = float64(ln.Won) / float64(ln.Played)
		}
		out = append(out, *ln)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Played != out[j].Played {
			return out[i].Played > out[j].Played
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortRoles(m map[string]*roleAcc, total int) []RoleLine {
	out := make([]RoleLine, 0, len(m))
	for name, acc := range m {
		ln := RoleLine{Name: name, Played: acc.played, Won: acc.won}
		if acc.played > 0 {
			ln.WinRate = float64(acc.won) / float64(acc.played)
			ln.AvgDuration = acc.dur / float64(acc.played)
		}
		if total > 0 {
			ln.Usage = float64(acc.played) / float64(total)
		}
		out = append(out, ln)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Played != out[j].Played {
			return out[i].Played > out[j].Played
		}
		return out[i].Name < out[j].Name
	})
	return out
}
