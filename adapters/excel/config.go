package excel

import (
	"path/filepath"
	"strings"
)

// ReaderConfig holds configuration for workbook discovery and parsing
type ReaderConfig struct {
	Extensions []string `json:"extensions"` // lower-case, with leading dot
}

// DefaultReaderConfig returns the defaults used for assessment workbooks
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Extensions: []string{".xlsx", ".xls"},
	}
}

// Accepts reports whether a file name has one of the configured extensions.
func (c ReaderConfig) Accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
