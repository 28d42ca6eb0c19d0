package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"dvhc-api/internal/division"
	"dvhc-api/internal/store"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore：测试用内存存储，按插入顺序返回单元
type memStore struct {
	mu        sync.Mutex
	units     []division.Unit
	provinces map[string]division.Province
	communes  map[string]division.Commune
	err       error
}

func newMem(units ...division.Unit) *memStore {
	return &memStore{units: units, provinces: map[string]division.Province{}, communes: map[string]division.Commune{}}
}

func (m *memStore) ListUnits(context.Context) ([]division.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]division.Unit{}, m.units...), nil
}

func (m *memStore) ListChildUnits(_ context.Context, parent string) ([]division.Unit, error) {
	out := []division.Unit{}
	for _, u := range m.units {
		if p, ok := u.Parent(); ok && p == parent {
			out = append(out, u)
		}
	}
	return out, m.err
}

func (m *memStore) GetUnit(_ context.Context, code string) (*division.Unit, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.units {
		if u.Code == code {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpsertUnit(_ context.Context, u division.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.units {
		if m.units[i].Code == u.Code {
			m.units[i] = u
			return nil
		}
	}
	m.units = append(m.units, u)
	return nil
}

func (m *memStore) DeleteUnit(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.units {
		if m.units[i].Code == code {
			m.units = append(m.units[:i], m.units[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListProvinces(context.Context) ([]division.Province, error) {
	out := []division.Province{}
	for _, p := range m.provinces {
		out = append(out, p)
	}
	return out, m.err
}

func (m *memStore) GetProvince(_ context.Context, code string) (*division.Province, error) {
	p, ok := m.provinces[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) UpsertProvince(_ context.Context, p division.Province) error {
	m.provinces[p.Code] = p
	return m.err
}

func (m *memStore) DeleteProvince(_ context.Context, code string) error {
	if _, ok := m.provinces[code]; !ok {
		return store.ErrNotFound
	}
	delete(m.provinces, code)
	return nil
}

func (m *memStore) ListCommunes(context.Context) ([]division.Commune, error) {
	out := []division.Commune{}
	for _, c := range m.communes {
		out = append(out, c)
	}
	return out, m.err
}

func (m *memStore) ListCommunesByProvince(_ context.Context, p string) ([]division.Commune, error) {
	out := []division.Commune{}
	for _, c := range m.communes {
		if c.ProvinceCode == p {
			out = append(out, c)
		}
	}
	return out, m.err
}

func (m *memStore) GetCommune(_ context.Context, code string) (*division.Commune, error) {
	c, ok := m.communes[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) UpsertCommune(_ context.Context, c division.Commune) error {
	m.communes[c.Code] = c
	return m.err
}

func (m *memStore) DeleteCommune(_ context.Context, code string) error {
	if _, ok := m.communes[code]; !ok {
		return store.ErrNotFound
	}
	delete(m.communes, code)
	return nil
}

func (m *memStore) Ping(context.Context) error { return m.err }

func (m *memStore) Counts(context.Context) (*store.Counts, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &store.Counts{Provinces: int64(len(m.provinces)), Communes: int64(len(m.communes)), Units: int64(len(m.units))}, nil
}

type memCache struct {
	gen         int64
	data        map[string][]byte
	invalidated int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) key(gen int64, root string) string { return fmt.Sprintf("%d:%s", gen, root) }

func (c *memCache) Generation(context.Context) (int64, bool) { return c.gen, true }

func (c *memCache) Get(_ context.Context, gen int64, root string) ([]byte, bool) {
	b, ok := c.data[c.key(gen, root)]
	return b, ok
}

func (c *memCache) Set(_ context.Context, gen int64, root string, b []byte) {
	c.data[c.key(gen, root)] = b
}

func (c *memCache) Invalidate(context.Context) {
	c.invalidated++
	c.gen++
	c.data = map[string][]byte{}
}

// writeDuringRead：返回快照之后立刻执行一次写入并使缓存失效，模拟并发写入
type writeDuringRead struct {
	*memStore
	cache *memCache
	once  sync.Once
}

func (s *writeDuringRead) ListUnits(ctx context.Context) ([]division.Unit, error) {
	units, err := s.memStore.ListUnits(ctx)
	s.once.Do(func() {
		_ = s.memStore.UpsertUnit(ctx, division.Unit{Code: "761", ParentCode: division.StrPtr("79"), Level: division.LevelCommune, Name: "Quận 3"})
		s.cache.Invalidate(ctx)
	})
	return units, err
}

func newServer(m *memStore, c TreeCache) http.Handler {
	return BuildRoutes(Deps{Units: m, Provinces: m, Communes: m, Stats: m, Cache: c})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func hcm() []division.Unit {
	return []division.Unit{
		{Code: "79", Level: division.LevelProvince, Name: "TP.HCM"},
		{Code: "760", ParentCode: division.StrPtr("79"), Level: division.LevelCommune, Name: "Quận 1"},
	}
}

func TestTree_ProvinceWithCommune(t *testing.T) {
	h := newServer(newMem(hcm()...), nil)
	rec := do(t, h, http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("content-type"), "application/json")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "79", got[0]["code"])
	kids := got[0]["children"].([]any)
	require.Len(t, kids, 1)
	kid := kids[0].(map[string]any)
	assert.Equal(t, "Quận 1", kid["name"])
	assert.Equal(t, "79", kid["parentCode"])
	assert.Equal(t, []any{}, kid["children"])
}

func TestTree_Empty(t *testing.T) {
	rec := do(t, newServer(newMem(), nil), http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestTree_CycleOnlyDatasetIsEmptyForest(t *testing.T) {
	m := newMem(
		division.Unit{Code: "A", ParentCode: division.StrPtr("B"), Level: division.LevelCommune},
		division.Unit{Code: "B", ParentCode: division.StrPtr("A"), Level: division.LevelCommune},
	)
	rec := do(t, newServer(m, nil), http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestTree_StoreUnavailable(t *testing.T) {
	m := newMem()
	m.err = errors.Wrap(sql.ErrConnDone, "list_units")
	rec := do(t, newServer(m, nil), http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "store_unavailable", decodeErr(t, rec).Error)
}

func TestTree_DuplicateCodeIsInvalidDataset(t *testing.T) {
	m := newMem(
		division.Unit{Code: "79", Level: division.LevelProvince},
		division.Unit{Code: "79", Level: division.LevelProvince},
	)
	rec := do(t, newServer(m, nil), http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "invalid_dataset", decodeErr(t, rec).Error)
}

func TestTree_RootQueryParameter(t *testing.T) {
	units := append(hcm(), division.Unit{Code: "X", Level: division.LevelCommune, Name: "orphan"})
	rec := do(t, newServer(newMem(units...), nil), http.MethodGet, "/units/tree?root=commune", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	// 79 不是 commune 层级，因此连同其下级一起不出现
	require.Len(t, got, 1)
	assert.Equal(t, "X", got[0]["code"])
}

func TestTree_CacheHitAndInvalidation(t *testing.T) {
	m := newMem(hcm()...)
	c := newMemCache()
	h := newServer(m, c)

	first := do(t, h, http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))
	require.Contains(t, c.data, "0:province")

	second := do(t, h, http.MethodGet, "/units/tree", "")
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	rec := do(t, h, http.MethodPut, "/units/761", `{"parentCode":"79","level":"commune","name":"Quận 3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, c.invalidated)

	third := do(t, h, http.MethodGet, "/units/tree", "")
	assert.Equal(t, "miss", third.Header().Get("X-Cache"))
	assert.Contains(t, third.Body.String(), "Quận 3")
}

func TestUnits_CRUD(t *testing.T) {
	m := newMem(hcm()...)
	h := newServer(m, nil)

	rec := do(t, h, http.MethodPost, "/units", `{"code":"26734","parentCode":"79","level":"commune","name":"Sài Gòn","attrs":{"kind":"phường"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/units/26734", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u division.Unit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "Sài Gòn", u.Name)
	assert.Equal(t, "phường", u.Attrs["kind"])

	rec = do(t, h, http.MethodGet, "/units/79/children", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var kids []division.Unit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kids))
	assert.Len(t, kids, 2)

	rec = do(t, h, http.MethodGet, "/units?level=province", "")
	var provinces []division.Unit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &provinces))
	require.Len(t, provinces, 1)

	rec = do(t, h, http.MethodDelete, "/units/26734", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/units/26734", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeErr(t, rec).Error)

	rec = do(t, h, http.MethodDelete, "/units/26734", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnits_Validation(t *testing.T) {
	h := newServer(newMem(), nil)

	rec := do(t, h, http.MethodPost, "/units", `{"name":"no code"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeErr(t, rec)
	assert.Equal(t, "invalid_request", e.Error)
	assert.Equal(t, "required", e.Fields["code"])
	assert.Equal(t, "required", e.Fields["level"])

	rec = do(t, h, http.MethodPost, "/units", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/units/79", `{"code":"80","level":"province"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Message, "does not match")
}

func TestUnits_BlankParentIsTopLevel(t *testing.T) {
	m := newMem()
	rec := do(t, newServer(m, nil), http.MethodPut, "/units/79", `{"parentCode":"  ","level":"province"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, m.units, 1)
	assert.Nil(t, m.units[0].ParentCode)
}

func TestProvincesAndCommunes(t *testing.T) {
	m := newMem()
	h := newServer(m, nil)

	rec := do(t, h, http.MethodPost, "/provinces", `{"code":"01","name":"Hà Nội"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/provinces", `{"code":"X1","name":"bad"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "numeric", decodeErr(t, rec).Fields["code"])

	rec = do(t, h, http.MethodPut, "/communes/00004", `{"provinceCode":"01","name":"Ba Đình","kind":"phường"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/provinces/01/communes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cs []division.Commune
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
	require.Len(t, cs, 1)
	assert.Equal(t, "phường", cs[0].Kind)

	rec = do(t, h, http.MethodGet, "/communes?province=02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, http.MethodGet, "/provinces/99/communes", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/communes/00004", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/provinces/01", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthAndStats(t *testing.T) {
	m := newMem(hcm()...)
	h := newServer(m, nil)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c store.Counts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.EqualValues(t, 2, c.Units)

	m.err = sql.ErrConnDone
	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newServer(newMem(), nil)
	rec := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeErr(t, rec).Error)

	rec = do(t, h, http.MethodPatch, "/units", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTree_WriteDuringBuildIsNotServedFromCache(t *testing.T) {
	m := newMem(hcm()...)
	c := newMemCache()
	units := &writeDuringRead{memStore: m, cache: c}
	h := BuildRoutes(Deps{Units: units, Provinces: m, Communes: m, Stats: m, Cache: c})

	first := do(t, h, http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.NotContains(t, first.Body.String(), "Quận 3")

	second := do(t, h, http.MethodGet, "/units/tree", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "miss", second.Header().Get("X-Cache"))
	assert.Contains(t, second.Body.String(), "Quận 3")

	third := do(t, h, http.MethodGet, "/units/tree", "")
	assert.Equal(t, "hit", third.Header().Get("X-Cache"))
	assert.Equal(t, second.Body.String(), third.Body.String())
}

func TestTree_RootParameterBounds(t *testing.T) {
	m := newMem(hcm()...)
	c := newMemCache()
	h := newServer(m, c)

	for _, q := range []string{"a-b", "dvhc:tree", strings.Repeat("x", 33)} {
		rec := do(t, h, http.MethodGet, "/units/tree?root="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, "invalid_request", decodeErr(t, rec).Error)
	}

	rec := do(t, h, http.MethodGet, "/units/tree?root=district", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bypass", rec.Header().Get("X-Cache"))
	assert.Empty(t, c.data)

	rec = do(t, h, http.MethodGet, "/units/tree?root=commune", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.Contains(t, c.data, "0:commune")
}
