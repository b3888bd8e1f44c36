package assessment

import (
	"sort"
	"strings"
	"unicode"
)

// SortRows orders rows by year ascending, then grade using CompareNatural.
// Null years sort as 0 and null grades as "". The sort is stable, so rows
// with equal keys keep their ingestion order.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return lessRow(rows[i], rows[j])
	})
}

// Sort orders every bucket of the payload in place.
func (p Payload) Sort() {
	for _, rows := range p {
		SortRows(rows)
	}
}

// IsSorted reports whether every bucket satisfies the row ordering.
func (p Payload) IsSorted() bool {
	for _, rows := range p {
		if !sort.SliceIsSorted(rows, func(i, j int) bool { return lessRow(rows[i], rows[j]) }) {
			return false
		}
	}
	return true
}

func lessRow(a, b Row) bool {
	ya, yb := yearOf(a), yearOf(b)
	if ya != yb {
		return ya < yb
	}
	return CompareNatural(stringOf(a.Grade), stringOf(b.Grade)) < 0
}

func yearOf(r Row) int {
	if r.Year == nil {
		return 0
	}
	return *r.Year
}

func stringOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CompareNatural compares two strings treating runs of digits as numbers and
// letters case-insensitively, so "Grade 9" < "Grade 10" and "grade 3" == "Grade 3".
// Accented letters are not folded to their base letter.
func CompareNatural(a, b string) int {
	ar, br := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			if c := compareDigits(string(ar[si:i]), string(br[sj:j])); c != 0 {
				return c
			}
			continue
		}
		ca, cb := unicode.ToLower(ar[i]), unicode.ToLower(br[j])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(ar)-i < len(br)-j:
		return -1
	case len(ar)-i > len(br)-j:
		return 1
	}
	return 0
}

// compareDigits compares two digit runs by numeric value without overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
