package matchlog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/darshang-108/ai-learning-opponent/game/arena"
	"github.com/darshang-108/ai-learning-opponent/model"
)

// Action is one observed player action inside a match.
type Action struct {
	T        float64
	Category string
	Heavy    bool
	Distance float64
}

// Entry holds one finished match to be logged. The player-side
// aggregates feed the style analyzer on later matches.
type Entry struct {
	SessionID   string
	Seed        int64
	Archetype   string
	PlayerStyle string
	Winner      string
	Duration    float64

	DamageDealt   int // opponent's damage output
	DamageTaken   int
	TotalAttacks  int // player swings, the analyzer's volume signal
	MovementCount int
	DodgeCount    int
	AvgDistance   float64

	Fighters   interface{} // JSON payloads
	Phases     interface{}
	Aggression interface{}

	Actions []Action
}

type pending struct {
	record  *model.MatchRecord
	actions []Action
}

// Service writes match records and their action trails asynchronously
// in batches. Entries are dropped with a warning when the queue is
// full; match logging must never stall a fight.
type Service struct {
	db       *gorm.DB
	ch       chan pending
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates the service and starts its background writer.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:     db,
		ch:     make(chan pending, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues one match for async persistence.
func (svc *Service) Log(entry Entry) {
	fighters, _ := json.Marshal(entry.Fighters)
	phases, _ := json.Marshal(entry.Phases)
	aggression, _ := json.Marshal(entry.Aggression)

	record := &model.MatchRecord{
		SessionID:     entry.SessionID,
		Seed:          entry.Seed,
		Archetype:     entry.Archetype,
		PlayerStyle:   entry.PlayerStyle,
		Winner:        entry.Winner,
		Duration:      entry.Duration,
		DamageDealt:   entry.DamageDealt,
		DamageTaken:   entry.DamageTaken,
		TotalAttacks:  entry.TotalAttacks,
		MovementCount: entry.MovementCount,
		DodgeCount:    entry.DodgeCount,
		AvgDistance:   entry.AvgDistance,
		Fighters:      datatypes.JSON(fighters),
		Phases:        datatypes.JSON(phases),
		Aggression:    datatypes.JSON(aggression),
	}
	select {
	case svc.ch <- pending{record: record, actions: entry.Actions}:
	default:
		svc.logger.Warn("match log queue full, dropping match",
			zap.String("archetype", entry.Archetype),
			zap.String("winner", entry.Winner))
	}
}

// RecordMatch logs a completed arena match, satisfying the batch
// simulator's recorder seam.
func (svc *Service) RecordMatch(ctx context.Context, res arena.Result, actions []arena.PlayerAction) error {
	acts := make([]Action, len(actions))
	for i, a := range actions {
		acts[i] = Action{T: a.T, Category: a.Category, Heavy: a.Heavy, Distance: a.Distance}
	}
	svc.Log(Entry{
		Seed:          res.Seed,
		Archetype:     res.Opponent,
		Winner:        res.Winner,
		Duration:      res.Duration,
		DamageDealt:   res.Stats.Opponent.DamageDealt,
		DamageTaken:   res.Stats.Player.DamageDealt,
		TotalAttacks:  res.Stats.Player.Attacks,
		MovementCount: res.Stats.Player.MoveTicks,
		DodgeCount:    res.Stats.Player.Dodges,
		AvgDistance:   res.Stats.AvgDistance(),
		Fighters: map[string]interface{}{
			"opponent": res.Opponent, "player": res.Player,
			"opponent_hp": res.OpponentHP, "player_hp": res.PlayerHP,
		},
		Phases:     res.PhaseTransitions,
		Aggression: res.Stats.AggressionHistory,
		Actions:    acts,
	})
	return nil
}

// Stop flushes queued matches and shuts the writer down. It blocks
// until the worker has finished and tolerates concurrent callers.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]pending, 0, 64)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		records := make([]*model.MatchRecord, len(batch))
		for i := range batch {
			records[i] = batch[i].record
		}
		if err := svc.db.Create(&records).Error; err != nil {
			svc.logger.Error("match batch write failed", zap.Error(err))
			batch = batch[:0]
			return
		}

		// Batch insert back-fills the record IDs, which the action
		// rows reference.
		var rows []*model.MatchAction
		for i := range batch {
			rec := batch[i].record
			for _, a := range batch[i].actions {
				rows = append(rows, &model.MatchAction{
					MatchID:   rec.ID,
					SessionID: rec.SessionID,
					T:         a.T,
					Category:  a.Category,
					Heavy:     a.Heavy,
					Distance:  a.Distance,
				})
			}
		}
		if len(rows) > 0 {
			if err := svc.db.CreateInBatches(&rows, 200).Error; err != nil {
				svc.logger.Error("action batch write failed", zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= 64 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain whatever is still queued, then exit.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
