package migrate

import (
	"context"
	"database/sql"

	"dvhc-api/internal/logger"

	"github.com/pkg/errors"
)

// Statements：启动期建表语句，按顺序执行
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；不做版本化迁移
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS provinces (
        code TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        english_name TEXT NOT NULL DEFAULT '',
        full_name TEXT NOT NULL DEFAULT '',
        decree TEXT NOT NULL DEFAULT '',
        attrs JSONB NOT NULL DEFAULT '{}'::jsonb,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS communes (
        code TEXT PRIMARY KEY,
        province_code TEXT NOT NULL,
        name TEXT NOT NULL,
        english_name TEXT NOT NULL DEFAULT '',
        full_name TEXT NOT NULL DEFAULT '',
        kind TEXT NOT NULL DEFAULT '',
        decree TEXT NOT NULL DEFAULT '',
        attrs JSONB NOT NULL DEFAULT '{}'::jsonb,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_communes_province ON communes(province_code)`,
	// seq 固定“输入顺序”：全量读取按 seq 排序，UPSERT 不改写 seq
	`CREATE TABLE IF NOT EXISTS units (
        seq BIGSERIAL UNIQUE,
        code TEXT PRIMARY KEY,
        parent_code TEXT NULL,
        level TEXT NOT NULL,
        name TEXT NOT NULL DEFAULT '',
        english_name TEXT NOT NULL DEFAULT '',
        full_name TEXT NOT NULL DEFAULT '',
        decree TEXT NOT NULL DEFAULT '',
        attrs JSONB NOT NULL DEFAULT '{}'::jsonb,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_units_parent ON units(parent_code)`,
}

// EnsureSchema：首次运行自动创建所需表与索引
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range Statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return errors.Wrapf(err, "schema statement %d", i)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
