package assessment

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// WeightedMean averages field f over rows weighted by Number Tested. A row
// whose value or weight is null is excluded from both numerator and
// denominator; it never counts as zero. ok is false when no row contributes.
func WeightedMean(rows []Row, f Field) (mean float64, ok bool) {
	values := make([]float64, 0, len(rows))
	weights := make([]float64, 0, len(rows))
	for _, r := range rows {
		v := r.Value(f)
		w := r.NumberTested
		if v == nil || w == nil || *w <= 0 {
			continue
		}
		values = append(values, *v)
		weights = append(weights, *w)
	}
	if len(values) == 0 {
		return 0, false
	}
	mean = stat.Mean(values, weights)
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, false
	}
	return mean, true
}

// TotalTested sums Number Tested over rows, skipping nulls.
func TotalTested(rows []Row) float64 {
	data := make(stats.Float64Data, 0, len(rows))
	for _, r := range rows {
		if r.NumberTested != nil {
			data = append(data, *r.NumberTested)
		}
	}
	total, err := stats.Sum(data)
	if err != nil {
		return 0
	}
	return total
}

// YearSummary is the weighted roll-up of one year of a bucket. Pointer
// fields are nil when no row carried a usable value.
type YearSummary struct {
	Year           int      `json:"year"`
	NumberTested   float64  `json:"numberTested"`
	PctLevel1      *float64 `json:"pctLevel1"`
	PctLevel2      *float64 `json:"pctLevel2"`
	PctLevel3      *float64 `json:"pctLevel3"`
	PctLevel4      *float64 `json:"pctLevel4"`
	PctLevel3Plus4 *float64 `json:"pctLevel3Plus4"`
	MeanScaleScore *float64 `json:"meanScaleScore"`
}

// SummaryFilter narrows the rows a summary covers. Empty fields match all.
type SummaryFilter struct {
	Category string
	Grade    string
}

func (f SummaryFilter) match(r Row) bool {
	if f.Category != "" && stringOf(r.Category) != f.Category {
		return false
	}
	if f.Grade != "" && stringOf(r.Grade) != f.Grade {
		return false
	}
	return true
}

// SummarizeByYear groups rows by year and computes weighted means per year,
// ordered by year ascending.
func SummarizeByYear(rows []Row, filter SummaryFilter) []YearSummary {
	byYear := make(map[int][]Row)
	for _, r := range rows {
		if r.Year == nil || !filter.match(r) {
			continue
		}
		byYear[*r.Year] = append(byYear[*r.Year], r)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearSummary, 0, len(years))
	for _, y := range years {
		group := byYear[y]
		out = append(out, YearSummary{
			Year:           y,
			NumberTested:   TotalTested(group),
			PctLevel1:      weightedPtr(group, FieldPctLevel1),
			PctLevel2:      weightedPtr(group, FieldPctLevel2),
			PctLevel3:      weightedPtr(group, FieldPctLevel3),
			PctLevel4:      weightedPtr(group, FieldPctLevel4),
			PctLevel3Plus4: weightedPtr(group, FieldPctLevel3Plus4),
			MeanScaleScore: weightedPtr(group, FieldMeanScaleScore),
		})
	}
	return out
}

func weightedPtr(rows []Row, f Field) *float64 {
	m, ok := WeightedMean(rows, f)
	if !ok {
		return nil
	}
	return &m
}
