// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/effectflow/internal/graph"
	"github.com/phobologic/effectflow/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// tokenSep joins the tokens of one sequence inside a single cell.
const tokenSep = "|"

// Report is the data one TOON document carries.
type Report struct {
	Project     string
	Summary     model.Summary
	Mappings    []model.EffectMapping
	Unhandled   []graph.Dispatch
	Suggestions []model.Suggestion
	Ranks       map[string]float64
}

// Encode converts a Report into TOON format. Empty unhandled and suggestion
// tables are omitted.
func Encode(r *Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(r.Project)))
	parts = append(parts, formatObject("summary", [][2]string{
		{"files", fmt.Sprintf("%d", r.Summary.Files)},
		{"effects", fmt.Sprintf("%d", r.Summary.Effects)},
		{"actions", fmt.Sprintf("%d", r.Summary.Roots)},
		{"suppressed", fmt.Sprintf("%d", r.Summary.Suppressed)},
		{"unresolved", fmt.Sprintf("%d", r.Summary.Unknown)},
	}))

	var effectRows [][]string
	for i := range r.Mappings {
		m := &r.Mappings[i]
		effectRows = append(effectRows, []string{
			m.Name,
			joinTokens(m.InputTypes),
			joinTokens(m.ReturnTypes),
			m.Location.Path,
			fmt.Sprintf("%d", m.Location.Line),
		})
	}
	parts = append(parts, formatTabular("effects", []string{"name", "inputs", "outputs", "file", "line"}, effectRows))

	var actionRows [][]string
	for _, a := range rankedActions(r.Ranks) {
		actionRows = append(actionRows, []string{a, fmt.Sprintf("%.4f", r.Ranks[a])})
	}
	parts = append(parts, formatTabular("actions", []string{"action", "rank"}, actionRows))

	if len(r.Unhandled) > 0 {
		var rows [][]string
		for _, d := range r.Unhandled {
			rows = append(rows, []string{d.Action, d.Origin, d.Location})
		}
		parts = append(parts, formatTabular("unhandled", []string{"action", "origin", "location"}, rows))
	}

	if len(r.Suggestions) > 0 {
		var rows [][]string
		for _, s := range r.Suggestions {
			rows = append(rows, []string{s.Action, s.Nearest, fmt.Sprintf("%d", s.Distance), s.Origin})
		}
		parts = append(parts, formatTabular("suggestions", []string{"action", "nearest", "distance", "origin"}, rows))
	}

	return strings.Join(parts, "\n")
}

// rankedActions orders actions by descending rank, then by name.
func rankedActions(ranks map[string]float64) []string {
	out := make([]string, 0, len(ranks))
	for a := range ranks {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if ranks[out[i]] != ranks[out[j]] {
			return ranks[out[i]] > ranks[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func joinTokens(ts []model.Token) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = t.String()
	}
	return strings.Join(s, tokenSep)
}

func formatObject(name string, fields [][2]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", name)
	for _, f := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", f[0], encodeValue(f[1]))
	}
	return b.String()
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
