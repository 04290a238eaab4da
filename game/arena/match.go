package arena

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/game/brain"
)

// Outcome of a finished match.
type Outcome int

const (
	OutcomeOpponentWin Outcome = iota
	OutcomePlayerWin
	OutcomeDraw // duration cap reached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOpponentWin:
		return "opponent"
	case OutcomePlayerWin:
		return "player"
	default:
		return "draw"
	}
}

// PhaseTransition records when the opponent brain moved to a new
// fight-arc phase.
type PhaseTransition struct {
	T     float64 `json:"t"`
	Phase string  `json:"phase"`
}

// Result is the record of one completed match.
type Result struct {
	Outcome  Outcome
	Winner   string // Outcome.String(), for persistence
	Opponent string // archetype name
	Player   string // player driver / style label
	Seed     int64

	Duration float64
	Ticks    int
	Aborted  bool // context cancelled mid-match

	OpponentHP float64
	PlayerHP   float64

	// AvgAggression is the mean of the opponent brain's per-tick
	// aggression level; zero for scripted opponents.
	AvgAggression float64

	PhaseTransitions []PhaseTransition
	Stats            MatchStats
}

// MatchConfig configures a Match.
type MatchConfig struct {
	Seed        int64
	TickRate    int     // 0 = 60
	MaxDuration float64 // simulated seconds, 0 = 120

	Opponent Driver // required: the adaptive side
	Player   Driver // required

	OpponentName string
	PlayerName   string

	Tunables *Tunables // nil = DefaultTunables
	Logger   *zap.Logger
}

// Match runs one fight between two drivers on the lane with a fixed
// timestep. It owns all physical state; drivers only see views and
// emit actions, and learn outcomes through their hooks.
type Match struct {
	cfg  MatchConfig
	tun  Tunables
	dt   float64
	maxT float64
	log  *zap.Logger

	fighters [2]*Fighter
	drivers  [2]Driver
	hooks    [2]Hooks
	obrain   *brain.Brain // opponent brain when driven by one, else nil

	projectiles []projectile
	projCD      [2]float64

	now      float64
	ticks    int
	stats    MatchStats
	phases   []PhaseTransition
	aggroSum float64

	lastMoving [2]bool
	lastBlock  [2]bool

	events chan MatchEvent
}

type projectile struct {
	owner  Side
	x, vx  float64
	damage float64
	ttl    float64
}

// NewMatch validates the config and places both fighters at their
// starting marks.
func NewMatch(cfg MatchConfig) (*Match, error) {
	if cfg.Opponent == nil || cfg.Player == nil {
		return nil, fmt.Errorf("arena: both drivers are required")
	}
	tun := DefaultTunables()
	if cfg.Tunables != nil {
		tun = *cfg.Tunables
	}
	if err := tun.Validate(); err != nil {
		return nil, err
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 60
	}
	if cfg.TickRate < 1 || cfg.TickRate > 240 {
		return nil, fmt.Errorf("arena: tick_rate %d out of range [1,240]", cfg.TickRate)
	}
	if cfg.MaxDuration == 0 {
		cfg.MaxDuration = 120
	}
	if cfg.MaxDuration < 0 {
		return nil, fmt.Errorf("arena: max_duration %v must be > 0", cfg.MaxDuration)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OpponentName == "" {
		cfg.OpponentName = "opponent"
	}
	if cfg.PlayerName == "" {
		cfg.PlayerName = "player"
	}

	m := &Match{
		cfg:    cfg,
		tun:    tun,
		dt:     1.0 / float64(cfg.TickRate),
		maxT:   cfg.MaxDuration,
		log:    cfg.Logger,
		events: make(chan MatchEvent, 256),
	}

	span := tun.ArenaMax - tun.ArenaMin
	m.fighters[SideOpponent] = NewFighter(cfg.OpponentName, tun.ArenaMin+span*0.75, &tun)
	m.fighters[SidePlayer] = NewFighter(cfg.PlayerName, tun.ArenaMin+span*0.25, &tun)
	m.drivers[SideOpponent] = cfg.Opponent
	m.drivers[SidePlayer] = cfg.Player
	for i, d := range m.drivers {
		if h, ok := d.(Hooks); ok {
			m.hooks[i] = h
		}
	}
	if bd, ok := cfg.Opponent.(*BrainDriver); ok {
		m.obrain = bd.Brain()
	}
	return m, nil
}

// Events returns the event channel. It is closed when Run returns.
func (m *Match) Events() <-chan MatchEvent { return m.events }

// Fighter exposes one side's state, mainly for tests.
func (m *Match) Fighter(sd Side) *Fighter { return m.fighters[sd] }

// Run executes the match loop until a knockout, the duration cap, or
// context cancellation. Cancellation lands on a tick boundary, so no
// partial-tick state escapes.
func (m *Match) Run(ctx context.Context) (Result, error) {
	defer close(m.events)

	m.emit(EventMatchStart{
		Seed:     m.cfg.Seed,
		Opponent: snapshotFighter(m.fighters[SideOpponent]),
		Player:   snapshotFighter(m.fighters[SidePlayer]),
	})
	m.recordPhase() // initial phase is not a transition, but prime the tracker

	for {
		select {
		case <-ctx.Done():
			res := m.buildResult(OutcomeDraw)
			res.Aborted = true
			return res, ctx.Err()
		default:
		}

		if out, done := m.step(); done {
			m.stats.Finish()
			res := m.buildResult(out)
			m.emit(EventMatchEnd{
				Winner:   res.Winner,
				Duration: res.Duration,
				Opponent: snapshotFighter(m.fighters[SideOpponent]),
				Player:   snapshotFighter(m.fighters[SidePlayer]),
			})
			m.log.Debug("match finished",
				zap.String("winner", res.Winner),
				zap.String("archetype", res.Opponent),
				zap.Float64("duration_sec", res.Duration),
				zap.Int("ticks", res.Ticks))
			return res, nil
		}
	}
}

// step advances one tick. Returns the outcome when the match ended.
func (m *Match) step() (Outcome, bool) {
	dt := m.dt
	m.now += dt
	m.ticks++

	for _, f := range m.fighters {
		f.Tick(dt)
	}
	for i := range m.projCD {
		if m.projCD[i] > 0 {
			m.projCD[i] -= dt
		}
	}

	// Both drivers decide from the same pre-resolution snapshot.
	views := [2]brain.View{
		{Self: m.fighters[SideOpponent].View(), Opponent: m.fighters[SidePlayer].View()},
		{Self: m.fighters[SidePlayer].View(), Opponent: m.fighters[SideOpponent].View()},
	}
	var acts [2]brain.Action
	for i, d := range m.drivers {
		acts[i] = d.Act(views[i], dt)
	}

	// Player resolves first, matching the original frame order.
	for _, sd := range [2]Side{SidePlayer, SideOpponent} {
		if m.fighters[sd].Alive() {
			m.apply(sd, acts[sd], dt)
		}
		if out, done := m.checkKO(); done {
			return out, true
		}
	}

	m.updateProjectiles(dt)
	if out, done := m.checkKO(); done {
		return out, true
	}

	dist := math.Abs(m.fighters[SideOpponent].X - m.fighters[SidePlayer].X)
	m.stats.Tick(dt, dist)
	if m.obrain != nil {
		m.aggroSum += m.obrain.Intent().AggressionLevel
	}
	m.recordPhase()

	if m.now >= m.maxT {
		return OutcomeDraw, true
	}
	return 0, false
}

// apply resolves one side's action for this tick.
func (m *Match) apply(sd Side, act brain.Action, dt float64) {
	f := m.fighters[sd]
	other := 1 - sd
	target := m.fighters[other]
	dist := math.Abs(f.X - target.X)

	blockWanted := act.Kind == brain.ActionBlock
	moving := false

	switch act.Kind {
	case brain.ActionMelee:
		if f.BeginSwing(act.Heavy) {
			m.stats.RecordSwing(sd, act.Heavy)
			m.emitAction(sd, "attack", act.Heavy, dist)
			if m.hooks[other] != nil {
				m.hooks[other].OnOpponentSwing(act.Heavy)
			}
			m.resolveSwing(sd, act.Heavy)
		}

	case brain.ActionProjectile:
		if f.CanAct() && m.projCD[sd] <= 0 {
			m.projCD[sd] = m.tun.ProjectileCooldown
			dir := 1.0
			if target.X < f.X {
				dir = -1.0
			}
			m.projectiles = append(m.projectiles, projectile{
				owner:  sd,
				x:      f.X,
				vx:     dir * m.tun.ProjectileSpeed,
				damage: m.tun.ProjectileDamage,
				ttl:    m.tun.ProjectileLifetime,
			})
			m.stats.RecordProjectile(sd)
			m.emitAction(sd, "projectile", false, dist)
		}

	case brain.ActionMove:
		if act.MoveX != 0 {
			before := f.X
			f.Move(act.MoveX, dt)
			if f.X != before {
				moving = true
				toward := math.Abs(f.X-target.X) < dist
				m.stats.RecordMove(sd, toward)
			}
		}

	case brain.ActionDodge:
		dir := act.MoveX
		if dir == 0 {
			// Default away from the opponent.
			if target.X > f.X {
				dir = -1
			} else {
				dir = 1
			}
		}
		if f.StartDodge(dir) {
			m.stats.RecordDodge(sd)
			m.emitAction(sd, "dodge", false, dist)
		}
	}

	if !moving && act.Kind != brain.ActionDodge {
		m.stats.RecordStill(sd)
	}
	if moving && !m.lastMoving[sd] {
		m.emitAction(sd, "move", false, dist)
	}
	m.lastMoving[sd] = moving

	f.SetBlocking(blockWanted && f.CanAct())
	if f.Blocking() && !m.lastBlock[sd] {
		m.emitAction(sd, "block", false, dist)
	}
	m.lastBlock[sd] = f.Blocking()
}

// resolveSwing resolves a committed melee swing immediately and feeds
// both hooks.
func (m *Match) resolveSwing(sd Side, heavy bool) {
	other := 1 - sd
	attacker := m.fighters[sd]
	defender := m.fighters[other]

	res := ResolveMelee(attacker, defender, heavy, &m.tun)
	m.stats.RecordHit(sd, res)
	m.feedHooks(sd, res)

	m.emit(EventHit{
		Attacker:  sd.String(),
		T:         m.now,
		Damage:    res.Damage,
		Heavy:     res.Heavy,
		Blocked:   res.Blocked,
		Parried:   res.Parried,
		Dodged:    res.Dodged,
		Execution: res.Execution,
		TargetHP:  defender.HP,
	})
}

// feedHooks relays one resolved attack to both adaptive drivers.
func (m *Match) feedHooks(sd Side, res HitResult) {
	other := 1 - sd
	att, def := m.hooks[sd], m.hooks[other]

	switch {
	case res.Parried:
		if att != nil {
			att.OnOpponentBlocked()
			att.OnStunned(m.tun.ParryStun)
		}
	case res.Dodged:
		if att != nil {
			att.OnOpponentDodged()
			att.OnSelfWhiff()
		}
	case res.OutOfRange:
		if att != nil {
			att.OnSelfWhiff()
		}
		if def != nil {
			def.OnOpponentWhiff()
		}
	case res.Landed:
		if res.Blocked {
			if att != nil {
				att.OnOpponentBlocked()
			}
			if def != nil {
				def.OnOpponentWhiff()
			}
		}
		if res.Damage > 0 {
			if att != nil {
				att.OnHitDealt(res.Damage)
			}
			if def != nil {
				def.OnHitTaken(res.Damage)
			}
		}
	}
}

func (m *Match) updateProjectiles(dt float64) {
	alive := m.projectiles[:0]
	for _, p := range m.projectiles {
		p.x += p.vx * dt
		p.ttl -= dt
		if p.ttl <= 0 || p.x < m.tun.ArenaMin-50 || p.x > m.tun.ArenaMax+50 {
			continue
		}

		target := m.fighters[1-p.owner]
		if target.Alive() && math.Abs(p.x-target.X) <= m.tun.ProjectileRadius+m.tun.HalfWidth {
			if target.Dodging() || target.invuln > 0 {
				// Orbs sail through i-frames without despawning.
				alive = append(alive, p)
				continue
			}
			res := ApplyProjectileHit(m.fighters[p.owner], target, p.damage, &m.tun)
			m.stats.RecordHit(p.owner, res)
			m.feedHooks(p.owner, res)
			m.emit(EventHit{
				Attacker:   p.owner.String(),
				T:          m.now,
				Damage:     res.Damage,
				Blocked:    res.Blocked,
				Parried:    res.Parried,
				Dodged:     res.Dodged,
				Execution:  res.Execution,
				Projectile: true,
				TargetHP:   target.HP,
			})
			continue
		}
		alive = append(alive, p)
	}
	m.projectiles = alive
}

func (m *Match) checkKO() (Outcome, bool) {
	switch {
	case !m.fighters[SidePlayer].Alive():
		return OutcomeOpponentWin, true
	case !m.fighters[SideOpponent].Alive():
		return OutcomePlayerWin, true
	}
	return 0, false
}

// recordPhase tracks the opponent brain's phase arc. The first call
// primes the tracker; later changes are transitions.
func (m *Match) recordPhase() {
	if m.obrain == nil {
		return
	}
	name := m.obrain.Phase().String()
	if len(m.phases) == 0 {
		m.phases = append(m.phases, PhaseTransition{T: 0, Phase: name})
		return
	}
	if m.phases[len(m.phases)-1].Phase != name {
		m.phases = append(m.phases, PhaseTransition{T: m.now, Phase: name})
		m.emit(EventPhaseChange{T: m.now, Phase: name})
	}
}

func (m *Match) buildResult(out Outcome) Result {
	// The priming entry is the starting phase, not a transition.
	var trans []PhaseTransition
	if len(m.phases) > 1 {
		trans = m.phases[1:]
	}
	avgAggro := 0.0
	if m.ticks > 0 {
		avgAggro = m.aggroSum / float64(m.ticks)
	}
	return Result{
		Outcome:          out,
		Winner:           out.String(),
		Opponent:         m.cfg.OpponentName,
		Player:           m.cfg.PlayerName,
		Seed:             m.cfg.Seed,
		Duration:         m.now,
		Ticks:            m.ticks,
		OpponentHP:       m.fighters[SideOpponent].HP,
		PlayerHP:         m.fighters[SidePlayer].HP,
		AvgAggression:    avgAggro,
		PhaseTransitions: trans,
		Stats:            m.stats,
	}
}

func (m *Match) emitAction(sd Side, category string, heavy bool, dist float64) {
	m.emit(EventAction{
		Side:     sd.String(),
		T:        m.now,
		Category: category,
		Heavy:    heavy,
		Distance: dist,
	})
}

func (m *Match) emit(evt MatchEvent) {
	select {
	case m.events <- evt:
	default:
		m.log.Warn("match event dropped (channel full)", zap.String("type", evt.EventType()))
	}
}
