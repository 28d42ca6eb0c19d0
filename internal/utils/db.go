package utils

import (
	"database/sql"

	"dvhc-api/internal/config"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// OpenPostgres：按配置打开连接池；不做 Ping，由调用方决定是否自检
func OpenPostgres(o config.PostgresOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", o.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	maxOpen := o.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 50
	}
	maxIdle := o.MaxIdleConns
	if maxIdle < 0 {
		maxIdle = 0
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}
