package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"dvhc-api/internal/division"
	"dvhc-api/internal/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUnits() []division.Unit {
	return []division.Unit{
		{Code: "79", Level: division.LevelProvince, Name: "TP.HCM", FullName: "Thành phố Hồ Chí Minh"},
		{Code: "760", ParentCode: division.StrPtr("79"), Level: division.LevelCommune, Name: "Quận 1", Attrs: map[string]string{"kind": "quận", "area": "7.73"}},
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"import"}, {"tree"}, {"unit", "list"}, {"unit", "get"}, {"unit", "set"}, {"unit", "del"},
		{"province", "list"}, {"commune", "list"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("env"))
}

func TestImportCmd_RequiresSource(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"import"})
	assert.Error(t, root.Execute())
}

func TestRenderUnits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderUnits(&buf, "table", sampleUnits()))
	s := buf.String()
	assert.Contains(t, s, "Quận 1")
	assert.Contains(t, s, "area=7.73 kind=quận")
	assert.Contains(t, s, "(2 rows)")

	buf.Reset()
	require.NoError(t, renderUnits(&buf, "json", sampleUnits()))
	var got []division.Unit
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got, 2)

	buf.Reset()
	require.NoError(t, renderUnits(&buf, "table", nil))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderOutline(t *testing.T) {
	var buf bytes.Buffer
	renderOutline(&buf, division.BuildTree(sampleUnits(), division.LevelProvince))
	assert.Equal(t, "79 Thành phố Hồ Chí Minh\n  760 Quận 1\n", buf.String())
}

func TestRenderReport(t *testing.T) {
	units := []division.Unit{
		{Code: "A", ParentCode: division.StrPtr("B"), Level: division.LevelCommune},
		{Code: "B", ParentCode: division.StrPtr("A"), Level: division.LevelCommune},
		{Code: "", Level: division.LevelCommune},
		{Code: "C", ParentCode: division.StrPtr("Z"), Level: division.LevelCommune},
	}
	_, rep, err := division.Builder{}.Build(units)
	require.NoError(t, err)
	var buf bytes.Buffer
	renderReport(&buf, rep)
	s := buf.String()
	assert.Contains(t, s, "skipped record #2: missing code")
	assert.Contains(t, s, "omitted 1 unit(s) with unresolved parent: C")
	assert.Contains(t, s, "cycle: ")

	buf.Reset()
	renderReport(&buf, division.Report{})
	assert.Empty(t, buf.String())
}

func TestRenderImport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderImport(&buf, "json", ingest.Result{Provinces: 34, Communes: 3321, Units: 3355}, 1500*time.Millisecond))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.EqualValues(t, 3355, got["units"])
	assert.EqualValues(t, 1500, got["duration_ms"])
}

func TestParseAttrs(t *testing.T) {
	m, err := parseAttrs([]string{"kind=phường", "area=1.2=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"kind": "phường", "area": "1.2=3"}, m)

	m, err = parseAttrs(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = parseAttrs([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseAttrs([]string{"=x"})
	assert.Error(t, err)
}

func TestFilterLevel(t *testing.T) {
	assert.Len(t, filterLevel(sampleUnits(), ""), 2)
	got := filterLevel(sampleUnits(), "province")
	require.Len(t, got, 1)
	assert.Equal(t, "79", got[0].Code)
}
