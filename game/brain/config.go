package brain

import "fmt"

// Config bundles every subsystem's tuning plus the brain-level knobs.
// Zero value is not usable; start from DefaultConfig.
type Config struct {
	Phase       PhaseConfig
	Style       StyleConfig
	Balancer    BalancerConfig
	Intent      IntentConfig
	Aggression  AggressionConfig
	Desperation DesperationConfig
	Learning    LearningConfig
	Decide      DecideConfig
	Combine     CombineWeights

	AttackRange      float64 // nominal melee reach, px
	QuickStaminaCost float64
	HeavyStaminaCost float64

	ChaseSpeed   float64 // base approach speed, px/s
	RetreatSpeed float64

	IntentSmoothing float64 // EWMA weight of the fresh intent signal
	FeintDuration   float64 // seconds a feint holds before the real swing
	MaxBlockHold    float64 // seconds block_wait may hold before giving up

	ProjectileRangeMult float64 // casters shoot beyond range x this
	ProjectileCooldown  float64
}

// DefaultConfig returns the stock tuning for every subsystem.
func DefaultConfig() Config {
	return Config{
		Phase:       DefaultPhaseConfig(),
		Style:       DefaultStyleConfig(),
		Balancer:    DefaultBalancerConfig(),
		Intent:      DefaultIntentConfig(),
		Aggression:  DefaultAggressionConfig(),
		Desperation: DefaultDesperationConfig(),
		Learning:    DefaultLearningConfig(),
		Decide:      DefaultDecideConfig(),
		Combine:     DefaultCombineWeights(),

		AttackRange:      75,
		QuickStaminaCost: 22,
		HeavyStaminaCost: 35,

		ChaseSpeed:   120,
		RetreatSpeed: 240,

		IntentSmoothing: 0.25,
		FeintDuration:   0.35,
		MaxBlockHold:    1.5,

		ProjectileRangeMult: 1.5,
		ProjectileCooldown:  2.0,
	}
}

// Validate checks every subsystem config plus the brain-level knobs.
func (c Config) Validate() error {
	if err := c.Phase.Validate(); err != nil {
		return err
	}
	if err := c.Style.Validate(); err != nil {
		return err
	}
	if err := c.Balancer.Validate(); err != nil {
		return err
	}
	if err := c.Intent.Validate(); err != nil {
		return err
	}
	if err := c.Aggression.Validate(); err != nil {
		return err
	}
	if err := c.Desperation.Validate(); err != nil {
		return err
	}
	if err := c.Learning.Validate(); err != nil {
		return err
	}
	if err := c.Decide.Validate(); err != nil {
		return err
	}
	if err := c.Combine.Validate(); err != nil {
		return err
	}
	if c.AttackRange <= 0 {
		return fmt.Errorf("brain: attack_range %v must be > 0", c.AttackRange)
	}
	if c.QuickStaminaCost <= 0 || c.HeavyStaminaCost < c.QuickStaminaCost {
		return fmt.Errorf("brain: stamina costs quick=%v heavy=%v invalid",
			c.QuickStaminaCost, c.HeavyStaminaCost)
	}
	if c.ChaseSpeed <= 0 || c.RetreatSpeed <= 0 {
		return fmt.Errorf("brain: movement speeds must be > 0")
	}
	if c.IntentSmoothing <= 0 || c.IntentSmoothing > 1 {
		return fmt.Errorf("brain: intent_smoothing %v outside (0,1]", c.IntentSmoothing)
	}
	if c.FeintDuration <= 0 || c.MaxBlockHold <= 0 {
		return fmt.Errorf("brain: feint_duration and max_block_hold must be > 0")
	}
	if c.ProjectileRangeMult < 1 {
		return fmt.Errorf("brain: projectile_range_mult %v must be >= 1", c.ProjectileRangeMult)
	}
	if c.ProjectileCooldown <= 0 {
		return fmt.Errorf("brain: projectile_cooldown %v must be > 0", c.ProjectileCooldown)
	}
	return nil
}
