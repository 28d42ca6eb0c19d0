package store

import (
	"context"

	"dvhc-api/internal/division"
)

const unitColumns = `code, parent_code, level, name, english_name, full_name, decree, attrs`

// SQLUpsertUnit：按 code UPSERT；冲突时不改写 seq，保持原有顺序
const SQLUpsertUnit = `INSERT INTO units(code, parent_code, level, name, english_name, full_name, decree, attrs, updated_at)
    VALUES($1,$2,$3,$4,$5,$6,$7,$8::jsonb,now())
    ON CONFLICT (code) DO UPDATE SET parent_code=EXCLUDED.parent_code, level=EXCLUDED.level, name=EXCLUDED.name,
        english_name=EXCLUDED.english_name, full_name=EXCLUDED.full_name, decree=EXCLUDED.decree, attrs=EXCLUDED.attrs, updated_at=now()`

// UnitArgs：SQLUpsertUnit 的参数列表
func UnitArgs(u division.Unit) []any {
	return []any{u.Code, nullable(u.ParentCode), string(u.Level), u.Name, u.EnglishName, u.FullName, u.Decree, EncodeAttrs(u.Attrs)}
}

func scanUnit(sc scanner) (division.Unit, error) {
	var u division.Unit
	var parent *string
	var level string
	var attrs []byte
	if err := sc.Scan(&u.Code, &parent, &level, &u.Name, &u.EnglishName, &u.FullName, &u.Decree, &attrs); err != nil {
		return u, err
	}
	u.ParentCode = parent
	u.Level = division.Level(level)
	u.Attrs = decodeAttrs(attrs)
	return u, nil
}

func (s *Store) queryUnits(ctx context.Context, op, q string, args ...any) ([]division.Unit, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()
	out := []division.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fail(op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(op, err)
	}
	return out, nil
}

// ListUnits：全量快照，按写入顺序（seq）返回，作为树构建的输入
func (s *Store) ListUnits(ctx context.Context) ([]division.Unit, error) {
	return s.queryUnits(ctx, "list_units", `SELECT `+unitColumns+` FROM units ORDER BY seq`)
}

// ListChildUnits：直接下级，按写入顺序
func (s *Store) ListChildUnits(ctx context.Context, parentCode string) ([]division.Unit, error) {
	return s.queryUnits(ctx, "list_child_units", `SELECT `+unitColumns+` FROM units WHERE parent_code=$1 ORDER BY seq`, parentCode)
}

func (s *Store) GetUnit(ctx context.Context, code string) (*division.Unit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE code=$1`, code)
	u, err := scanUnit(row)
	if err != nil {
		return nil, fail("get_unit", err)
	}
	return &u, nil
}

func (s *Store) UpsertUnit(ctx context.Context, u division.Unit) error {
	if _, err := s.db.ExecContext(ctx, SQLUpsertUnit, UnitArgs(u)...); err != nil {
		return fail("upsert_unit", err)
	}
	return nil
}

// DeleteUnit：只删除本条；下级记录保留（不做级联）
func (s *Store) DeleteUnit(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE code=$1`, code)
	if err != nil {
		return fail("delete_unit", err)
	}
	return mustAffect("delete_unit", res)
}
