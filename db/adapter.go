package db

import (
	"fmt"
	"sync/atomic"

	"github.com/darshang-108/ai-learning-opponent/config"
	dbmysql "github.com/darshang-108/ai-learning-opponent/db/mysql"
	dbsqlite "github.com/darshang-108/ai-learning-opponent/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeMemory = "memory"
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// memSeq makes every memory-mode DSN unique so independent Opens
// (e.g. parallel tests) do not share one in-memory database.
var memSeq atomic.Int64

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeMemory:
		// cache=shared keeps the database alive across pooled
		// connections within this handle.
		dsn := fmt.Sprintf("file:mem%d?mode=memory&cache=shared", memSeq.Add(1))
		return dbsqlite.Open(dsn)
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen:     cfg.MySQLMaxOpen,
			MaxIdle:     cfg.MySQLMaxIdle,
			MaxLifetime: cfg.MySQLMaxLife,
		})
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
