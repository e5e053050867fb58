package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings for the users database connection pool.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	PoolSize    int
	PoolRecycle time.Duration
	Timeout     time.Duration
}

// DSN renders cfg in go-sql-driver format with parseTime and utf8mb4 enabled.
func (cfg Config) DSN() string {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = timeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Connect opens the pool, applies the pool settings and verifies connectivity
// with a ping.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}

	if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.PoolSize * 3)
		db.SetMaxIdleConns(cfg.PoolSize)
	}
	if cfg.PoolRecycle > 0 {
		db.SetConnMaxLifetime(cfg.PoolRecycle)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}
