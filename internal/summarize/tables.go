package summarize

import "strings"

// Markers the table prompt instructs the model to emit. ExtractTable slices
// on these rather than parsing markdown structure.
const (
	tableOneMarker = "Table #1"
	tableTwoMarker = "Table #2"
)

// ExtractTable returns table 1 or 2 from the combined tables text, or ""
// when the requested marker is absent.
func ExtractTable(tables string, n int) string {
	switch n {
	case 1:
		start := strings.Index(tables, tableOneMarker)
		if start < 0 {
			return ""
		}
		end := strings.Index(tables, tableTwoMarker)
		if end < 0 || end < start {
			return strings.TrimSpace(tables[start:])
		}
		return strings.TrimSpace(tables[start:end])
	case 2:
		start := strings.Index(tables, tableTwoMarker)
		if start < 0 {
			return ""
		}
		return strings.TrimSpace(tables[start:])
	default:
		return ""
	}
}

// MarkdownTableToTSV converts a markdown table to tab-separated text so it
// can be pasted straight into a spreadsheet. Separator rows (|---|) and
// blank lines are dropped.
func MarkdownTableToTSV(table string) string {
	lines := strings.Split(table, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "|---") || strings.HasPrefix(trimmed, "| ---") {
			continue
		}
		cells := make([]string, 0, 4)
		for _, c := range strings.Split(trimmed, "|") {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		out = append(out, strings.Join(cells, "\t"))
	}
	return strings.Join(out, "\n")
}
