package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"dvhc-api/internal/division"
	"dvhc-api/internal/ingest"

	"github.com/jedib0t/go-pretty/v6/table"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func renderUnits(w io.Writer, format string, units []division.Unit) error {
	if format == "json" {
		return writeJSON(w, units)
	}
	if len(units) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	t := newTable(w, "code", "parent", "level", "name", "full name", "attrs")
	for _, u := range units {
		p, _ := u.Parent()
		t.AppendRow(table.Row{u.Code, p, u.Level, u.Name, u.FullName, formatAttrs(u.Attrs)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(units))
	return nil
}

func renderProvinces(w io.Writer, format string, ps []division.Province) error {
	if format == "json" {
		return writeJSON(w, ps)
	}
	if len(ps) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	t := newTable(w, "code", "name", "english name", "decree")
	for _, p := range ps {
		t.AppendRow(table.Row{p.Code, p.Name, p.EnglishName, p.Decree})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(ps))
	return nil
}

func renderCommunes(w io.Writer, format string, cs []division.Commune) error {
	if format == "json" {
		return writeJSON(w, cs)
	}
	if len(cs) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	t := newTable(w, "code", "province", "kind", "name", "full name")
	for _, c := range cs {
		t.AppendRow(table.Row{c.Code, c.ProvinceCode, c.Kind, c.Name, c.FullName})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(cs))
	return nil
}

func renderImport(w io.Writer, format string, res ingest.Result, took time.Duration) error {
	if format == "json" {
		return writeJSON(w, struct {
			ingest.Result
			DurationMS int64 `json:"duration_ms"`
		}{res, took.Milliseconds()})
	}
	t := newTable(w, "provinces", "communes", "units", "skipped", "duration")
	t.AppendRow(table.Row{res.Provinces, res.Communes, res.Units, res.Skipped, took.Round(time.Millisecond)})
	t.Render()
	return nil
}

// renderReport：构建诊断输出到 stderr，干净时不输出
func renderReport(w io.Writer, rep division.Report) {
	for _, s := range rep.Skipped {
		_, _ = fmt.Fprintf(w, "skipped record #%d: %s\n", s.Index, s.Reason)
	}
	if len(rep.Omitted) > 0 {
		_, _ = fmt.Fprintf(w, "omitted %d unit(s) with unresolved parent: %s\n", len(rep.Omitted), strings.Join(rep.Omitted, ", "))
	}
	if len(rep.SelfParented) > 0 {
		_, _ = fmt.Fprintf(w, "self-parented: %s\n", strings.Join(rep.SelfParented, ", "))
	}
	for _, c := range rep.Cycles {
		_, _ = fmt.Fprintf(w, "cycle: %s\n", strings.Join(c, " -> "))
	}
}

// renderOutline：按深度缩进输出森林，根节点深度为 1
func renderOutline(w io.Writer, forest []*division.TreeNode) {
	division.Walk(forest, func(n *division.TreeNode, depth int) {
		name := n.Name
		if n.FullName != "" {
			name = n.FullName
		}
		_, _ = fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth-1), n.Code, name)
	})
}

func formatAttrs(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, " ")
}
