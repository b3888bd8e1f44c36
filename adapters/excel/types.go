package excel

import "strings"

// HeaderIndex resolves a trimmed header name to its column position. Built
// once per sheet; lookups afterwards are positional.
type HeaderIndex struct {
	headers []string
	pos     map[string]int
}

// NewHeaderIndex indexes a header row. Headers are trimmed; when a name
// repeats, the first column wins.
func NewHeaderIndex(headerRow []string) *HeaderIndex {
	idx := &HeaderIndex{
		headers: make([]string, len(headerRow)),
		pos:     make(map[string]int, len(headerRow)),
	}
	for i, h := range headerRow {
		h = strings.TrimSpace(h)
		idx.headers[i] = h
		if h == "" {
			continue
		}
		if _, seen := idx.pos[h]; !seen {
			idx.pos[h] = i
		}
	}
	return idx
}

// Headers returns the trimmed header names in column order.
func (h *HeaderIndex) Headers() []string {
	return h.headers
}

// Lookup returns the column index for name.
func (h *HeaderIndex) Lookup(name string) (int, bool) {
	i, ok := h.pos[name]
	return i, ok
}

// Has reports whether the header row carries name.
func (h *HeaderIndex) Has(name string) bool {
	_, ok := h.pos[name]
	return ok
}

// FirstOf returns the first name in candidates present in the header row.
func (h *HeaderIndex) FirstOf(candidates []string) (string, int, bool) {
	for _, c := range candidates {
		if i, ok := h.pos[c]; ok {
			return c, i, true
		}
	}
	return "", -1, false
}

// Cell returns the cell at column i of row, or "" when the row is short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// IsBlankRow reports whether every cell of row is empty after trimming.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Sheet is one worksheet of a workbook. Err is set when the sheet's rows
// could not be read; such a sheet carries no header or rows.
type Sheet struct {
	Name   string
	Header *HeaderIndex
	Rows   [][]string // data rows, row 2 onward
	Err    error
}

// Workbook is the parsed content of one spreadsheet file.
type Workbook struct {
	Path   string
	Sheets []Sheet
}
