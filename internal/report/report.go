// Package report renders retrieved run results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/signalnine/ubench/internal/result"
)

// Formats accepted by Write.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatKV       = "kv"
)

// Write renders results in format. An unknown format is an error.
func Write(results []*result.Result, format string, w io.Writer) error {
	sorted := append([]*result.Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Dir < sorted[j].Dir })

	switch format {
	case FormatTable, "":
		return writeTable(sorted, w, false)
	case FormatMarkdown:
		return writeTable(sorted, w, true)
	case FormatJSON:
		return writeJSON(sorted, w)
	case FormatKV:
		return writeKV(sorted, w)
	default:
		return fmt.Errorf("unknown format %q (want table, markdown, json or kv)", format)
	}
}

func writeTable(results []*result.Result, w io.Writer, markdown bool) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Run ID", "Tests", "Copies", "Score", "Multicore Score", "Provider", "Instance", "Stopped"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Tests", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Copies", Align: text.AlignRight},
		{Name: "Score", Align: text.AlignRight},
		{Name: "Multicore Score", Align: text.AlignRight},
	})
	for _, r := range results {
		f := r.Fields
		t.AppendRow(table.Row{
			r.RunID(),
			f["test"],
			f["multicore_copies"],
			orDash(f["score"]),
			orDash(f["multicore_score"]),
			f["meta_provider"],
			f["meta_instance_id"],
			f["test_stopped"],
		})
	}
	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

func writeJSON(results []*result.Result, w io.Writer) error {
	out := make([]map[string]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Fields)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeKV prints one key=value line per field, sorted by key, with a blank
// line between runs.
func writeKV(results []*result.Result, w io.Writer) error {
	for i, r := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s\n", k, r.Fields[k])
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
