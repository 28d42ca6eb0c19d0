package store

import (
	"context"

	"dvhc-api/internal/division"
)

const provinceColumns = `code, name, english_name, full_name, decree, attrs`

const SQLUpsertProvince = `INSERT INTO provinces(code, name, english_name, full_name, decree, attrs, updated_at)
    VALUES($1,$2,$3,$4,$5,$6::jsonb,now())
    ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, english_name=EXCLUDED.english_name, full_name=EXCLUDED.full_name,
        decree=EXCLUDED.decree, attrs=EXCLUDED.attrs, updated_at=now()`

func ProvinceArgs(p division.Province) []any {
	return []any{p.Code, p.Name, p.EnglishName, p.FullName, p.Decree, EncodeAttrs(p.Attrs)}
}

func scanProvince(sc scanner) (division.Province, error) {
	var p division.Province
	var attrs []byte
	if err := sc.Scan(&p.Code, &p.Name, &p.EnglishName, &p.FullName, &p.Decree, &attrs); err != nil {
		return p, err
	}
	p.Attrs = decodeAttrs(attrs)
	return p, nil
}

func (s *Store) ListProvinces(ctx context.Context) ([]division.Province, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+provinceColumns+` FROM provinces ORDER BY code`)
	if err != nil {
		return nil, fail("list_provinces", err)
	}
	defer rows.Close()
	out := []division.Province{}
	for rows.Next() {
		p, err := scanProvince(rows)
		if err != nil {
			return nil, fail("list_provinces", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list_provinces", err)
	}
	return out, nil
}

func (s *Store) GetProvince(ctx context.Context, code string) (*division.Province, error) {
	p, err := scanProvince(s.db.QueryRowContext(ctx, `SELECT `+provinceColumns+` FROM provinces WHERE code=$1`, code))
	if err != nil {
		return nil, fail("get_province", err)
	}
	return &p, nil
}

func (s *Store) UpsertProvince(ctx context.Context, p division.Province) error {
	if _, err := s.db.ExecContext(ctx, SQLUpsertProvince, ProvinceArgs(p)...); err != nil {
		return fail("upsert_province", err)
	}
	return nil
}

// DeleteProvince：不级联删除所属乡级单位
func (s *Store) DeleteProvince(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM provinces WHERE code=$1`, code)
	if err != nil {
		return fail("delete_province", err)
	}
	return mustAffect("delete_province", res)
}
