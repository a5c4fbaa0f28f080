package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/lugondev/go-cpiswap/internal/config"
	"github.com/lugondev/go-cpiswap/internal/storage"
)

func init() {
	storage.RegisterMySQLFactory(func(ctx context.Context, cfg *config.MySQLConfig) (storage.Repository, error) {
		return NewMySQLRepository(ctx, cfg)
	})
}

type MySQLRepository struct {
	db         *sql.DB
	recordRepo storage.RecordRepository
	swapRepo   storage.SwapRepository
}

// DSN builds a go-sql-driver DSN from cfg.
func DSN(cfg *config.MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.MultiStatements = true
	if cfg.SSLMode != "" && cfg.SSLMode != "false" && cfg.SSLMode != "disable" {
		mc.TLSConfig = cfg.SSLMode
	}
	return mc.FormatDSN()
}

func NewMySQLRepository(ctx context.Context, cfg *config.MySQLConfig) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator := NewMigrator(db)
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &MySQLRepository{
		db:         db,
		recordRepo: &mysqlRecordRepository{db: db},
		swapRepo:   &mysqlSwapRepository{db: db},
	}, nil
}

func (r *MySQLRepository) Records() storage.RecordRepository {
	return r.recordRepo
}

func (r *MySQLRepository) Swaps() storage.SwapRepository {
	return r.swapRepo
}

func (r *MySQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *MySQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
