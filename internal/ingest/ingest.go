// 包 ingest：行政区划数据集的拉取与批量导入，作为离线数据通道
package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"dvhc-api/internal/division"
	"dvhc-api/internal/logger"
	"dvhc-api/internal/metrics"
	"dvhc-api/internal/store"

	"github.com/pkg/errors"
)

// DefaultBatchSize：每批提交的记录数
const DefaultBatchSize = 5000

// Dataset：导入文件格式 {"provinces":[...],"communes":[...],"units":[...]}
type Dataset struct {
	Provinces []division.Province `json:"provinces"`
	Communes  []division.Commune  `json:"communes"`
	Units     []division.Unit     `json:"units"`
}

// TreeUnits：units 为空时由省、乡推导，省在前，乡按原顺序在后
func (d *Dataset) TreeUnits() []division.Unit {
	if len(d.Units) > 0 {
		return d.Units
	}
	out := make([]division.Unit, 0, len(d.Provinces)+len(d.Communes))
	for _, p := range d.Provinces {
		out = append(out, p.AsUnit())
	}
	for _, c := range d.Communes {
		out = append(out, c.AsUnit())
	}
	return out
}

// Result：各表写入条数
type Result struct {
	Provinces int `json:"provinces"`
	Communes  int `json:"communes"`
	Units     int `json:"units"`
	Skipped   int `json:"skipped"`
}

func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, errors.Wrap(err, "decode dataset")
	}
	return &ds, nil
}

// Fetch：HTTP 拉取数据集；非 200 视为失败，不做重试（交由调度层处理）
func Fetch(ctx context.Context, client *http.Client, srcURL string) (*Dataset, error) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch dataset")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch dataset: bad status %d", resp.StatusCode)
	}
	return Decode(resp.Body)
}

// Load：src 为 http(s) 地址时拉取，否则按本地文件读取
func Load(ctx context.Context, client *http.Client, src string) (*Dataset, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return Fetch(ctx, client, src)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, "open dataset")
	}
	defer f.Close()
	return Decode(f)
}

// batch：按 size 条提交一次事务，语句在事务内按需预编译
// 背景：分批提交降低锁持有与 WAL 压力
type batch struct {
	ctx   context.Context
	db    *sql.DB
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
	size  int
	n     int
}

func (b *batch) exec(q string, args ...any) error {
	if b.tx == nil {
		tx, err := b.db.BeginTx(b.ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin")
		}
		b.tx = tx
		b.stmts = map[string]*sql.Stmt{}
	}
	st, ok := b.stmts[q]
	if !ok {
		var err error
		if st, err = b.tx.PrepareContext(b.ctx, q); err != nil {
			return errors.Wrap(err, "prepare")
		}
		b.stmts[q] = st
	}
	if _, err := st.ExecContext(b.ctx, args...); err != nil {
		return errors.Wrap(err, "exec")
	}
	b.n++
	if b.n%b.size == 0 {
		logger.L().Info("ingest_progress", "count", b.n)
		return b.commit()
	}
	return nil
}

// commit：提交当前事务；tx 提交时随之关闭其预编译语句
func (b *batch) commit() error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Commit()
	b.tx = nil
	return errors.Wrap(err, "commit")
}

func (b *batch) rollback() {
	if b.tx != nil {
		_ = b.tx.Rollback()
		b.tx = nil
	}
}

// Import：UPSERT 省、乡与通用单元；code 为空的记录跳过
// 约束：已提交的批次不回滚；失败时仅回滚当前批次
func Import(ctx context.Context, db *sql.DB, ds *Dataset, batchSize int) (Result, error) {
	var res Result
	if ds == nil {
		return res, errors.New("nil dataset")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	l := logger.L()
	l.Info("ingest_start", "provinces", len(ds.Provinces), "communes", len(ds.Communes), "units", len(ds.Units))
	b := &batch{ctx: ctx, db: db, size: batchSize}
	defer b.rollback()

	skip := func(kind string, i int) {
		res.Skipped++
		l.Warn("ingest_record_skipped", "kind", kind, "index", i, "reason", "missing code")
	}
	for i, p := range ds.Provinces {
		if strings.TrimSpace(p.Code) == "" {
			skip("province", i)
			continue
		}
		if err := b.exec(store.SQLUpsertProvince, store.ProvinceArgs(p)...); err != nil {
			return res, errors.Wrapf(err, "province %s", p.Code)
		}
		res.Provinces++
		metrics.ImportRecordsTotal.WithLabelValues("province").Inc()
	}
	for i, c := range ds.Communes {
		if strings.TrimSpace(c.Code) == "" {
			skip("commune", i)
			continue
		}
		if err := b.exec(store.SQLUpsertCommune, store.CommuneArgs(c)...); err != nil {
			return res, errors.Wrapf(err, "commune %s", c.Code)
		}
		res.Communes++
		metrics.ImportRecordsTotal.WithLabelValues("commune").Inc()
	}
	for i, u := range ds.TreeUnits() {
		if strings.TrimSpace(u.Code) == "" {
			skip("unit", i)
			continue
		}
		if err := b.exec(store.SQLUpsertUnit, store.UnitArgs(u)...); err != nil {
			return res, errors.Wrapf(err, "unit %s", u.Code)
		}
		res.Units++
		metrics.ImportRecordsTotal.WithLabelValues("unit").Inc()
	}
	if err := b.commit(); err != nil {
		return res, err
	}
	l.Info("ingest_done", "provinces", res.Provinces, "communes", res.Communes, "units", res.Units, "skipped", res.Skipped)
	return res, nil
}

// Run：读取并导入；启动导入、每周刷新与命令行共用
func Run(ctx context.Context, client *http.Client, db *sql.DB, src string, batchSize int) (Result, error) {
	ds, err := Load(ctx, client, src)
	if err != nil {
		return Result{}, err
	}
	return Import(ctx, db, ds, batchSize)
}

// EnsureInitialized：units 表为空时执行一次初始化导入
func EnsureInitialized(ctx context.Context, db *sql.DB, src string, batchSize int) (bool, error) {
	var c int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(1) FROM units").Scan(&c); err != nil {
		return false, errors.Wrap(err, "count units")
	}
	if c > 0 {
		return false, nil
	}
	if _, err := Run(ctx, nil, db, src, batchSize); err != nil {
		return false, err
	}
	return true, nil
}
