package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Fight    FightConfig    `mapstructure:"fight"`
	Sim      SimConfig      `mapstructure:"sim"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// AdminIPs restricts admin routes to these client IPs when non-empty.
	AdminIPs []string `mapstructure:"admin_ips"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type FightConfig struct {
	TickRate       int           `mapstructure:"tick_rate"`   // brain updates per second
	SessionTTL     time.Duration `mapstructure:"session_ttl"` // idle sessions are swept after this
	MaxSessions    int           `mapstructure:"max_sessions"`
	PoolPath       string        `mapstructure:"pool_path"` // personality pool YAML override, empty = embedded
	LeaderboardTop int           `mapstructure:"leaderboard_top"`
}

type SimConfig struct {
	Matches     int           `mapstructure:"matches"`
	Workers     int           `mapstructure:"workers"`
	Seed        int64         `mapstructure:"seed"`
	MaxDuration time.Duration `mapstructure:"max_duration"` // per-match simulated time cap
	Record      bool          `mapstructure:"record"`       // persist results to the stats store and match log
}

// Load reads config from the given YAML file path. A missing file is
// fine; the defaults describe a workable local setup.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/opponent.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("security.jwt_ttl_h", "24h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("fight.tick_rate", 60)
	v.SetDefault("fight.session_ttl", "5m")
	v.SetDefault("fight.max_sessions", 1024)
	v.SetDefault("fight.leaderboard_top", 20)
	v.SetDefault("sim.matches", 100)
	v.SetDefault("sim.workers", 1)
	v.SetDefault("sim.seed", 1)
	v.SetDefault("sim.max_duration", "90s")
	v.SetDefault("sim.record", true)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would misbehave at runtime. Out-of-range
// settings are an error here, never silently clamped.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Database.Mode {
	case "memory", "sqlite", "mysql":
	default:
		return fmt.Errorf("database.mode %q unknown (memory|sqlite|mysql)", c.Database.Mode)
	}
	if c.Database.Mode == "mysql" && c.Database.MySQLDSN == "" {
		return fmt.Errorf("database.mysql_dsn required for mysql mode")
	}
	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("security.rate_limit_rps must be > 0, got %v", c.Security.RateLimitRPS)
	}
	if c.Fight.TickRate < 1 || c.Fight.TickRate > 240 {
		return fmt.Errorf("fight.tick_rate %d out of range [1,240]", c.Fight.TickRate)
	}
	if c.Fight.MaxSessions < 1 {
		return fmt.Errorf("fight.max_sessions must be >= 1, got %d", c.Fight.MaxSessions)
	}
	if c.Fight.LeaderboardTop < 1 {
		return fmt.Errorf("fight.leaderboard_top must be >= 1, got %d", c.Fight.LeaderboardTop)
	}
	if c.Sim.Matches < 1 {
		return fmt.Errorf("sim.matches must be >= 1, got %d", c.Sim.Matches)
	}
	if c.Sim.Workers < 1 {
		return fmt.Errorf("sim.workers must be >= 1, got %d", c.Sim.Workers)
	}
	if c.Sim.MaxDuration <= 0 {
		return fmt.Errorf("sim.max_duration must be > 0, got %v", c.Sim.MaxDuration)
	}
	return nil
}
