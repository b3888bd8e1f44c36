package ingest

import (
	"strings"

	"nyassess/domain/assessment"
)

// Classify maps a sheet name to its payload label. The suffixes are tried in
// assessment.SheetSuffixes order and the first case-insensitive substring hit
// wins, so a name containing both "All" and "ELL" resolves to "All".
func Classify(sheetName string, subject assessment.Subject) (assessment.Label, bool) {
	name := strings.ToLower(sheetName)
	for _, suffix := range assessment.SheetSuffixes {
		if strings.Contains(name, strings.ToLower(suffix)) {
			return assessment.NewLabel(subject, suffix), true
		}
	}
	return "", false
}
