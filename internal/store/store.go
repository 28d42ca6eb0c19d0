// 包 store: 提供与 PostgreSQL 的数据访问层，包含省、乡与通用单元的读写
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"dvhc-api/internal/metrics"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// ErrNotFound：按 code 查询或删除时记录不存在
var ErrNotFound = errors.New("record not found")

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Ping：健康检查使用
func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.PingContext(ctx), "ping")
}

// Counts：各表记录数
type Counts struct {
	Provinces int64 `json:"provinces"`
	Communes  int64 `json:"communes"`
	Units     int64 `json:"units"`
}

func (s *Store) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	row := s.db.QueryRowContext(ctx, `SELECT
        (SELECT COUNT(1) FROM provinces),
        (SELECT COUNT(1) FROM communes),
        (SELECT COUNT(1) FROM units)`)
	if err := row.Scan(&c.Provinces, &c.Communes, &c.Units); err != nil {
		return nil, fail("counts", err)
	}
	return &c, nil
}

// fail：包装驱动错误并计数；sql.ErrNoRows 统一转换为 ErrNotFound
func fail(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	return errors.Wrap(err, op)
}

// mustAffect：删除/更新未命中任何行时返回 ErrNotFound
func mustAffect(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fail(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EncodeAttrs：JSONB 以文本参数写入；lib/pq 会把 []byte 编码为 bytea，因此返回 string
func EncodeAttrs(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeAttrs(b []byte) map[string]string {
	if len(b) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

// nullable：空白字符串写入 NULL
func nullable(p *string) any {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return strings.TrimSpace(*p)
}

type scanner interface {
	Scan(dest ...any) error
}
