package store

import (
	"context"

	"dvhc-api/internal/division"
)

const communeColumns = `code, province_code, name, english_name, full_name, kind, decree, attrs`

const SQLUpsertCommune = `INSERT INTO communes(code, province_code, name, english_name, full_name, kind, decree, attrs, updated_at)
    VALUES($1,$2,$3,$4,$5,$6,$7,$8::jsonb,now())
    ON CONFLICT (code) DO UPDATE SET province_code=EXCLUDED.province_code, name=EXCLUDED.name, english_name=EXCLUDED.english_name,
        full_name=EXCLUDED.full_name, kind=EXCLUDED.kind, decree=EXCLUDED.decree, attrs=EXCLUDED.attrs, updated_at=now()`

func CommuneArgs(c division.Commune) []any {
	return []any{c.Code, c.ProvinceCode, c.Name, c.EnglishName, c.FullName, c.Kind, c.Decree, EncodeAttrs(c.Attrs)}
}

func scanCommune(sc scanner) (division.Commune, error) {
	var c division.Commune
	var attrs []byte
	if err := sc.Scan(&c.Code, &c.ProvinceCode, &c.Name, &c.EnglishName, &c.FullName, &c.Kind, &c.Decree, &attrs); err != nil {
		return c, err
	}
	c.Attrs = decodeAttrs(attrs)
	return c, nil
}

func (s *Store) queryCommunes(ctx context.Context, op, q string, args ...any) ([]division.Commune, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()
	out := []division.Commune{}
	for rows.Next() {
		c, err := scanCommune(rows)
		if err != nil {
			return nil, fail(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(op, err)
	}
	return out, nil
}

func (s *Store) ListCommunes(ctx context.Context) ([]division.Commune, error) {
	return s.queryCommunes(ctx, "list_communes", `SELECT `+communeColumns+` FROM communes ORDER BY province_code, code`)
}

func (s *Store) ListCommunesByProvince(ctx context.Context, provinceCode string) ([]division.Commune, error) {
	return s.queryCommunes(ctx, "list_communes_by_province", `SELECT `+communeColumns+` FROM communes WHERE province_code=$1 ORDER BY code`, provinceCode)
}

func (s *Store) GetCommune(ctx context.Context, code string) (*division.Commune, error) {
	c, err := scanCommune(s.db.QueryRowContext(ctx, `SELECT `+communeColumns+` FROM communes WHERE code=$1`, code))
	if err != nil {
		return nil, fail("get_commune", err)
	}
	return &c, nil
}

func (s *Store) UpsertCommune(ctx context.Context, c division.Commune) error {
	if _, err := s.db.ExecContext(ctx, SQLUpsertCommune, CommuneArgs(c)...); err != nil {
		return fail("upsert_commune", err)
	}
	return nil
}

func (s *Store) DeleteCommune(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM communes WHERE code=$1`, code)
	if err != nil {
		return fail("delete_commune", err)
	}
	return mustAffect("delete_commune", res)
}
