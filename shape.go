package mysqlmcp

import "sort"

const (
	// textDisplayLimit is the rune threshold beyond which text values
	// are cut short for display.
	textDisplayLimit = 200

	// ellipsisMarker terminates every cut value.
	ellipsisMarker = "..."
)

// shapeRows truncates long text values for display, in place. Strings
// longer than textDisplayLimit runes become their first 200 runes plus
// the ellipsis marker; numbers, booleans, nulls, and binary values pass
// through unchanged. Returns the affected column names, deduplicated
// across rows and sorted.
func shapeRows(rows []map[string]interface{}) []string {
	truncated := make(map[string]struct{})
	for _, row := range rows {
		for col, v := range row {
			s, ok := v.(string)
			if !ok {
				continue
			}
			short, cut := truncateText(s)
			if cut {
				row[col] = short
				truncated[col] = struct{}{}
			}
		}
	}
	if len(truncated) == 0 {
		return nil
	}
	names := make([]string, 0, len(truncated))
	for name := range truncated {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// truncateText cuts s at the display threshold. A cut result is always
// exactly 203 runes: 200 of content plus the marker.
func truncateText(s string) (string, bool) {
	runes := []rune(s)
	if len(runes) <= textDisplayLimit {
		return s, false
	}
	return string(runes[:textDisplayLimit]) + ellipsisMarker, true
}
