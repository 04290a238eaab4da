package arena

import (
	"fmt"
	"math"

	"github.com/darshang-108/ai-learning-opponent/game/brain"
)

// AttackSpec describes one melee attack class.
type AttackSpec struct {
	Damage float64
	Reach  float64 // px, center-to-center
}

// Tunables holds every combat constant the arena resolves with. Zero
// value is not usable; start from DefaultTunables.
type Tunables struct {
	MaxHP      float64
	MaxStamina float64

	StaminaRegen      float64 // per second, once the delay has passed
	StaminaRegenDelay float64 // seconds of inactivity before regen starts

	Quick AttackSpec
	Heavy AttackSpec

	QuickCost       float64
	HeavyCost       float64
	DodgeCost       float64
	BlockCostPerSec float64
	BlockChip       float64 // stamina chipped off the blocker per absorbed hit

	BlockReduction float64 // fraction of damage a block absorbs
	ParryWindow    float64 // block held at most this long still parries
	ParryStun      float64 // seconds the parried attacker is stunned
	ParryBonusMult float64 // damage multiplier granted to the parrier
	ParryCooldown  float64 // seconds between successful parries

	DodgeDuration float64
	DodgeCooldown float64
	DodgeSpeed    float64 // px/s while the dodge is active

	HitInvuln     float64 // i-frames after taking a hit
	SwingDuration float64 // attack animation time, drives the observable flag

	ExecutionThreshold float64 // HP fraction at or below which hits execute
	ExecutionMult      float64

	ProjectileSpeed    float64
	ProjectileDamage   float64
	ProjectileRadius   float64
	ProjectileLifetime float64
	ProjectileCooldown float64

	ArenaMin float64
	ArenaMax float64
	HalfWidth float64 // half a fighter's body width, for projectile contact

	MaxMoveSpeed   float64 // cap on driver-supplied movement, px/s
	KnockbackDecay float64 // per-tick velocity retention
}

// DefaultTunables returns the stock arena constants.
func DefaultTunables() Tunables {
	return Tunables{
		MaxHP:      120,
		MaxStamina: 100,

		StaminaRegen:      18,
		StaminaRegenDelay: 0.6,

		Quick: AttackSpec{Damage: 5, Reach: 65},
		Heavy: AttackSpec{Damage: 12, Reach: 85},

		QuickCost:       22,
		HeavyCost:       35,
		DodgeCost:       28,
		BlockCostPerSec: 14,
		BlockChip:       8,

		BlockReduction: 0.60,
		ParryWindow:    0.18,
		ParryStun:      1.2,
		ParryBonusMult: 1.8,
		ParryCooldown:  1.0,

		DodgeDuration: 0.2,
		DodgeCooldown: 0.5,
		DodgeSpeed:    720,

		HitInvuln:     0.25,
		SwingDuration: 0.35,

		ExecutionThreshold: 0.15,
		ExecutionMult:      3.0,

		ProjectileSpeed:    350,
		ProjectileDamage:   8,
		ProjectileRadius:   8,
		ProjectileLifetime: 3.0,
		ProjectileCooldown: 2.0,

		ArenaMin:  40,
		ArenaMax:  760,
		HalfWidth: 24,

		MaxMoveSpeed:   360,
		KnockbackDecay: 0.85,
	}
}

// Validate rejects impossible constants up front.
func (t Tunables) Validate() error {
	if t.MaxHP <= 0 || t.MaxStamina <= 0 {
		return fmt.Errorf("arena: max_hp and max_stamina must be > 0")
	}
	if t.StaminaRegen <= 0 || t.StaminaRegenDelay < 0 {
		return fmt.Errorf("arena: stamina regen %v / delay %v invalid", t.StaminaRegen, t.StaminaRegenDelay)
	}
	if t.Quick.Damage <= 0 || t.Heavy.Damage <= 0 || t.Quick.Reach <= 0 || t.Heavy.Reach <= 0 {
		return fmt.Errorf("arena: attack specs must have positive damage and reach")
	}
	if t.QuickCost <= 0 || t.HeavyCost < t.QuickCost || t.DodgeCost <= 0 {
		return fmt.Errorf("arena: stamina costs quick=%v heavy=%v dodge=%v invalid",
			t.QuickCost, t.HeavyCost, t.DodgeCost)
	}
	if t.BlockReduction < 0 || t.BlockReduction >= 1 {
		return fmt.Errorf("arena: block_reduction %v outside [0,1)", t.BlockReduction)
	}
	if t.ParryWindow <= 0 || t.ParryStun <= 0 || t.ParryBonusMult < 1 || t.ParryCooldown < 0 {
		return fmt.Errorf("arena: parry tuning invalid")
	}
	if t.DodgeDuration <= 0 || t.DodgeCooldown < t.DodgeDuration || t.DodgeSpeed <= 0 {
		return fmt.Errorf("arena: dodge tuning invalid")
	}
	if t.HitInvuln < 0 || t.SwingDuration <= 0 {
		return fmt.Errorf("arena: hit_invuln %v / swing_duration %v invalid", t.HitInvuln, t.SwingDuration)
	}
	if t.ExecutionThreshold < 0 || t.ExecutionThreshold >= 1 || t.ExecutionMult < 1 {
		return fmt.Errorf("arena: execution tuning invalid")
	}
	if t.ProjectileSpeed <= 0 || t.ProjectileDamage <= 0 || t.ProjectileRadius <= 0 ||
		t.ProjectileLifetime <= 0 || t.ProjectileCooldown <= 0 {
		return fmt.Errorf("arena: projectile tuning invalid")
	}
	if t.ArenaMax <= t.ArenaMin || t.HalfWidth <= 0 {
		return fmt.Errorf("arena: bounds [%v,%v] half_width %v invalid", t.ArenaMin, t.ArenaMax, t.HalfWidth)
	}
	if t.MaxMoveSpeed <= 0 || t.KnockbackDecay < 0 || t.KnockbackDecay >= 1 {
		return fmt.Errorf("arena: movement tuning invalid")
	}
	return nil
}

// Fighter is one combatant's physical state on the lane. All combat
// resolution flows through ResolveMelee / ApplyProjectileHit so the
// block, parry, execution, and i-frame rules stay in one place.
type Fighter struct {
	Name string

	HP         float64
	MaxHP      float64
	X          float64
	Stamina    float64
	MaxStamina float64

	blocking  bool
	blockHeld float64 // seconds the current block has been up
	parryCD   float64

	damageMult float64 // parry punish bonus; 1.0 is normal
	bonusLeft  float64 // punish window remaining

	stun     float64
	dodging  float64
	dodgeDir float64
	dodgeCD  float64
	invuln   float64
	swing    float64
	swingHeavy bool

	idle float64 // time since the last stamina-draining act
	kbVX float64 // knockback velocity, px/frame at 60fps

	tun *Tunables
}

// NewFighter places a fighter at x with full resources.
func NewFighter(name string, x float64, tun *Tunables) *Fighter {
	return &Fighter{
		Name:       name,
		HP:         tun.MaxHP,
		MaxHP:      tun.MaxHP,
		X:          x,
		Stamina:    tun.MaxStamina,
		MaxStamina: tun.MaxStamina,
		damageMult: 1.0,
		idle:       999,
		tun:        tun,
	}
}

func (f *Fighter) Alive() bool    { return f.HP > 0 }
func (f *Fighter) Stunned() bool  { return f.stun > 0 }
func (f *Fighter) Blocking() bool { return f.blocking }
func (f *Fighter) Dodging() bool  { return f.dodging > 0 }

// CanAct reports whether the fighter may start a voluntary action.
func (f *Fighter) CanAct() bool {
	return f.Alive() && f.stun <= 0 && f.dodging <= 0
}

// View snapshots the fighter for a brain's observation.
func (f *Fighter) View() brain.FighterView {
	return brain.FighterView{
		X:          f.X,
		HP:         f.HP,
		MaxHP:      f.MaxHP,
		Stamina:    f.Stamina,
		MaxStamina: f.MaxStamina,
		Blocking:   f.blocking,
		Attacking:  f.swing > 0,
		HeavySwing: f.swing > 0 && f.swingHeavy,
		Stunned:    f.stun > 0,
		Dodging:    f.dodging > 0,
	}
}

// Tick advances timers, knockback, dodge travel, block drain, and
// stamina regen by dt.
func (f *Fighter) Tick(dt float64) {
	if f.stun > 0 {
		f.stun -= dt
		if f.stun <= 0 {
			f.stun = 0
		}
	}
	if f.invuln > 0 {
		f.invuln -= dt
	}
	if f.parryCD > 0 {
		f.parryCD -= dt
	}
	if f.dodgeCD > 0 {
		f.dodgeCD -= dt
	}
	if f.swing > 0 {
		f.swing -= dt
	}
	if f.bonusLeft > 0 {
		f.bonusLeft -= dt
		if f.bonusLeft <= 0 {
			f.damageMult = 1.0
		}
	}

	if f.dodging > 0 {
		f.dodging -= dt
		f.X += f.dodgeDir * f.tun.DodgeSpeed * dt
	}

	// Knockback integrates in px/frame units and bleeds off each tick.
	if math.Abs(f.kbVX) > 0.1 {
		f.X += f.kbVX * dt * 60
		f.kbVX *= f.tun.KnockbackDecay
	} else {
		f.kbVX = 0
	}
	f.clampX()

	acting := f.blocking || f.dodging > 0 || f.swing > 0
	if f.blocking {
		f.blockHeld += dt
		f.Stamina -= f.tun.BlockCostPerSec * dt
		if f.Stamina <= 0 {
			f.Stamina = 0
			f.SetBlocking(false) // guard collapses when the tank runs dry
		}
	}

	if acting {
		f.idle = 0
	} else {
		f.idle += dt
	}
	if f.idle >= f.tun.StaminaRegenDelay {
		f.Stamina = math.Min(f.MaxStamina, f.Stamina+f.tun.StaminaRegen*dt)
	}
}

// Move applies a driver-supplied velocity for one tick, capped and
// refused while stunned, dodging, or swinging.
func (f *Fighter) Move(vx, dt float64) {
	if !f.CanAct() || f.swing > 0 {
		return
	}
	limit := f.tun.MaxMoveSpeed
	if vx > limit {
		vx = limit
	} else if vx < -limit {
		vx = -limit
	}
	f.X += vx * dt
	f.clampX()
}

// SetBlocking raises or drops the guard. Raising it restarts the parry
// timing window.
func (f *Fighter) SetBlocking(on bool) {
	if on && !f.blocking {
		if !f.CanAct() {
			return
		}
		f.blockHeld = 0
	}
	f.blocking = on
	if !on {
		f.blockHeld = 0
	}
}

// StartDodge begins an invulnerable dash in dir (+1/-1). Fails on
// cooldown or without the full stamina cost.
func (f *Fighter) StartDodge(dir float64) bool {
	if !f.CanAct() || f.dodgeCD > 0 {
		return false
	}
	if f.Stamina < f.tun.DodgeCost {
		return false
	}
	f.Stamina -= f.tun.DodgeCost
	f.idle = 0
	f.dodging = f.tun.DodgeDuration
	f.dodgeCD = f.tun.DodgeCooldown
	if dir >= 0 {
		f.dodgeDir = 1
	} else {
		f.dodgeDir = -1
	}
	f.SetBlocking(false)
	return true
}

// BeginSwing commits a melee swing: drains stamina leniently (down to
// whatever is left, refusing only on empty) and starts the animation.
func (f *Fighter) BeginSwing(heavy bool) bool {
	if !f.CanAct() {
		return false
	}
	cost := f.tun.QuickCost
	if heavy {
		cost = f.tun.HeavyCost
	}
	if f.Stamina <= 0 {
		return false
	}
	f.Stamina = math.Max(0, f.Stamina-cost)
	f.idle = 0
	f.swing = f.tun.SwingDuration
	f.swingHeavy = heavy
	f.SetBlocking(false)
	return true
}

// Knockback adds an impulse in px/frame units.
func (f *Fighter) Knockback(vx float64) {
	f.kbVX += vx
}

// takeDamage applies a raw hit, grants i-frames, and returns the actual
// amount. Damage is never less than 1.
func (f *Fighter) takeDamage(amount float64) int {
	actual := int(math.Max(1, amount))
	f.HP = math.Max(0, f.HP-float64(actual))
	f.invuln = f.tun.HitInvuln
	return actual
}

func (f *Fighter) clampX() {
	if f.X < f.tun.ArenaMin {
		f.X = f.tun.ArenaMin
	}
	if f.X > f.tun.ArenaMax {
		f.X = f.tun.ArenaMax
	}
}

// HitResult carries the outcome of one resolved attack.
type HitResult struct {
	Landed     bool
	Damage     int
	Blocked    bool
	Parried    bool
	Dodged     bool
	Execution  bool
	Heavy      bool
	Projectile bool
	OutOfRange bool
}

// ResolveMelee resolves attacker's committed swing against defender.
// The pipeline mirrors a single exchange: range gate, dodge/i-frames,
// parry, block reduction with stamina chip, execution bonus, knockback.
func ResolveMelee(attacker, defender *Fighter, heavy bool, tun *Tunables) HitResult {
	res := HitResult{Heavy: heavy}

	spec := tun.Quick
	if heavy {
		spec = tun.Heavy
	}
	if math.Abs(attacker.X-defender.X) > spec.Reach {
		res.OutOfRange = true
		return res
	}
	return resolveContact(attacker, defender, spec.Damage, heavy, false, tun)
}

// ApplyProjectileHit resolves a projectile contact through the same
// block/parry pipeline as melee.
func ApplyProjectileHit(owner, target *Fighter, damage float64, tun *Tunables) HitResult {
	return resolveContact(owner, target, damage, false, true, tun)
}

func resolveContact(attacker, defender *Fighter, damage float64, heavy, projectile bool, tun *Tunables) HitResult {
	res := HitResult{Heavy: heavy, Projectile: projectile}

	if defender.dodging > 0 || defender.invuln > 0 {
		res.Dodged = true
		return res
	}

	res.Landed = true
	dmg := damage * attacker.damageMult

	if defender.blocking {
		// A block raised inside the parry window flips the exchange.
		if defender.blockHeld <= tun.ParryWindow && defender.parryCD <= 0 {
			res.Parried = true
			res.Blocked = true
			res.Landed = false
			defender.parryCD = tun.ParryCooldown
			defender.damageMult = tun.ParryBonusMult
			defender.bonusLeft = tun.ParryStun
			attacker.stun = tun.ParryStun
			attacker.swing = 0
			return res
		}

		dmg *= 1.0 - tun.BlockReduction
		res.Blocked = true
		defender.Stamina = math.Max(0, defender.Stamina-tun.BlockChip)
		dir := 1.0
		if defender.X < attacker.X {
			dir = -1.0
		}
		defender.Knockback(2.5 * dir)
	}

	// Low-health hits finish the job.
	hpFrac := defender.HP / math.Max(1, defender.MaxHP)
	if hpFrac > 0 && hpFrac <= tun.ExecutionThreshold {
		dmg *= tun.ExecutionMult
		res.Execution = true
	}

	res.Damage = defender.takeDamage(dmg)
	attacker.damageMult = 1.0
	attacker.bonusLeft = 0

	if !res.Blocked {
		dir := 1.0
		if defender.X < attacker.X {
			dir = -1.0
		}
		kb := 3.0
		if heavy {
			kb = 7.0
		}
		if res.Execution {
			kb = 12.0
		}
		defender.Knockback(kb * dir)
		attacker.Knockback(3.0 * dir * 0.5) // hit-confirm lunge
	}
	return res
}
