package models

import "unicode/utf8"

// SearchResult is the display shape for one similarity hit. Content holds a
// preview truncated to the configured character budget.
type SearchResult struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
}

// Preview returns s truncated to max characters, with "..." appended if
// truncated. Truncation happens on rune boundaries so previews stay valid
// UTF-8. If max is 0 or negative, returns s unchanged.
func Preview(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
