package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/brain"
	"github.com/darshang-108/ai-learning-opponent/matchlog"
)

const (
	sendChanBuf   = 64
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second

	aggressionSampleSec = 10.0
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventReport is one resolved combat outcome the game client reports
// alongside a tick snapshot. Unknown types are logged and skipped.
type EventReport struct {
	Type     string  `json:"type"`
	Heavy    bool    `json:"heavy,omitempty"`
	Amount   int     `json:"amount,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}

// Reportable event types.
const (
	EvPlayerAttack  = "player_attack"  // the player began a swing
	EvPlayerBlock   = "player_block"   // the player raised a guard
	EvPlayerDodge   = "player_dodge"   // the player dodged
	EvPlayerMove    = "player_move"    // the player committed to movement
	EvPlayerWhiff   = "player_whiff"   // the player's swing hit nothing
	EvAttackBlocked = "attack_blocked" // the player's guard absorbed our swing
	EvAttackDodged  = "attack_dodged"  // the player avoided our swing
	EvHitDealt      = "hit_dealt"      // our hit landed, Amount = damage
	EvHitTaken      = "hit_taken"      // we took a hit, Amount = damage
	EvSelfWhiff     = "self_whiff"     // our swing hit nothing
	EvStunned       = "stunned"        // we got stunned, Duration in seconds
)

type phaseMark struct {
	T     float64 `json:"t"`
	Phase string  `json:"phase"`
}

// FightSession binds one opponent brain to one remote fight. Tick
// snapshots arrive over REST or WS; the session serializes them into
// the brain and keeps the bookkeeping the match record needs.
type FightSession struct {
	ID        string
	Archetype string
	Style     archetype.Style
	CreatedAt time.Time

	// LastSeq is the highest packet seq seen; only the WS read pump
	// touches it.
	LastSeq uint64
	// TraceID tags the packet currently being dispatched.
	TraceID string

	b      *brain.Brain
	logger *zap.Logger

	mu       sync.Mutex
	lastSeen time.Time
	elapsed  float64

	damageDealt   int
	damageTaken   int
	playerAttacks int
	playerMoves   int
	playerDodges  int
	distanceSum   float64
	distanceTicks int
	actions       []matchlog.Action
	phases        []phaseMark
	aggression    []float64
	aggroTimer    float64
	finalized     bool

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a fight session around a freshly built brain.
func New(id string, b *brain.Brain, style archetype.Style, logger *zap.Logger) *FightSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FightSession{
		ID:        id,
		Archetype: b.Personality().Name,
		Style:     style,
		CreatedAt: time.Now(),
		b:         b,
		logger:    logger,
		lastSeen:  time.Now(),
		done:      make(chan struct{}),
	}
	s.phases = append(s.phases, phaseMark{T: 0, Phase: b.Phase().String()})
	return s
}

// Step feeds one tick: reported events first, then the snapshot, and
// returns the brain's decision for this tick.
func (s *FightSession) Step(view brain.View, dt float64, events []EventReport) brain.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	s.elapsed += dt

	for _, ev := range events {
		s.applyEvent(ev)
	}

	dec := s.b.Step(view, dt)

	s.distanceSum += view.Distance()
	s.distanceTicks++
	s.trackPhase()
	s.aggroTimer += dt
	if s.aggroTimer >= aggressionSampleSec {
		s.aggroTimer -= aggressionSampleSec
		s.aggression = append(s.aggression, s.b.Intent().AggressionLevel)
	}
	return dec
}

// Report applies reported outcomes without advancing the brain, for
// clients that deliver events out of band.
func (s *FightSession) Report(events []EventReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	for _, ev := range events {
		s.applyEvent(ev)
	}
}

// applyEvent routes one reported outcome into the brain and the
// session's own counters. Caller holds the lock.
func (s *FightSession) applyEvent(ev EventReport) {
	switch ev.Type {
	case EvPlayerAttack:
		s.b.NotifyPlayerAttack(ev.Heavy)
		s.playerAttacks++
		s.recordAction("attack", ev)
	case EvPlayerBlock:
		s.recordAction("block", ev)
	case EvPlayerDodge:
		s.playerDodges++
		s.recordAction("dodge", ev)
	case EvPlayerMove:
		s.playerMoves++
		s.recordAction("move", ev)
	case EvPlayerWhiff:
		s.b.NotifyPlayerWhiff()
	case EvAttackBlocked:
		s.b.NotifyPlayerBlock()
		s.b.NotifySelfWhiff()
	case EvAttackDodged:
		s.b.NotifyPlayerDodge()
		s.b.NotifySelfWhiff()
	case EvHitDealt:
		s.b.NotifyDamageDealt(ev.Amount)
		s.b.NotifyPlayerHitLanded()
		s.damageDealt += ev.Amount
	case EvHitTaken:
		s.b.NotifyDamageTaken(ev.Amount)
		s.damageTaken += ev.Amount
	case EvSelfWhiff:
		s.b.NotifySelfWhiff()
	case EvStunned:
		s.b.ForceStun(ev.Duration)
	default:
		s.logger.Warn("unknown event report",
			zap.String("session_id", s.ID),
			zap.String("type", ev.Type))
	}
}

func (s *FightSession) recordAction(category string, ev EventReport) {
	s.actions = append(s.actions, matchlog.Action{
		T:        s.elapsed,
		Category: category,
		Heavy:    ev.Heavy,
		Distance: ev.Distance,
	})
}

func (s *FightSession) trackPhase() {
	name := s.b.Phase().String()
	if s.phases[len(s.phases)-1].Phase != name {
		s.phases = append(s.phases, phaseMark{T: s.elapsed, Phase: name})
	}
}

// DebugState snapshots the brain's full internals.
func (s *FightSession) DebugState() brain.DebugState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.DebugState()
}

// State reports the session's coarse observables.
func (s *FightSession) State() (phase, state string, elapsed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Phase().String(), s.b.State().String(), s.elapsed
}

// SetBuild swaps the opponent build hint mid-session.
func (s *FightSession) SetBuild(b brain.Build) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.SetBuild(b)
}

// IdleFor reports how long ago the last tick arrived.
func (s *FightSession) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSeen)
}

// Finalize closes the books and produces the match log entry. The
// second return is false if the session was already finalized.
func (s *FightSession) Finalize(winner string) (matchlog.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return matchlog.Entry{}, false
	}
	s.finalized = true

	avgDist := 0.0
	if s.distanceTicks > 0 {
		avgDist = s.distanceSum / float64(s.distanceTicks)
	}
	// Phase list drops the priming entry; only transitions persist.
	var trans []phaseMark
	if len(s.phases) > 1 {
		trans = s.phases[1:]
	}
	return matchlog.Entry{
		SessionID:     s.ID,
		Archetype:     s.Archetype,
		PlayerStyle:   string(s.Style),
		Winner:        winner,
		Duration:      s.elapsed,
		DamageDealt:   s.damageDealt,
		DamageTaken:   s.damageTaken,
		TotalAttacks:  s.playerAttacks,
		MovementCount: s.playerMoves,
		DodgeCount:    s.playerDodges,
		AvgDistance:   avgDist,
		Fighters:      map[string]string{"opponent": s.Archetype, "player_style": string(s.Style)},
		Phases:        trans,
		Aggression:    s.aggression,
		Actions:       s.actions,
	}, true
}

// --- WebSocket attachment ---

// AttachConn binds a WS connection and starts the write pump. A
// session carries at most one connection; a second attach displaces
// the first.
func (s *FightSession) AttachConn(conn *websocket.Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.send = make(chan []byte, sendChanBuf)
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	go s.writePump(conn, s.send)
}

func (s *FightSession) writePump(conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer conn.Close()
	for {
		select {
		case data, ok := <-send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error",
					zap.String("session_id", s.ID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes pkt and queues it non-blocking; packets are dropped
// when the client can't keep up.
func (s *FightSession) Send(pkt *Packet) {
	if s.IsClosed() {
		return
	}
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send == nil {
		return
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		return
	}
	select {
	case send <- data:
	case <-s.done:
	default:
		s.logger.Warn("send channel full, dropping packet",
			zap.String("session_id", s.ID),
			zap.String("type", pkt.Type))
	}
}

// Close signals the write pump to shut down. Safe to call from any
// number of goroutines.
func (s *FightSession) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// IsClosed reports whether the session has been closed.
func (s *FightSession) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
