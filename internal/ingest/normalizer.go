package ingest

import (
	"nyassess/adapters/datareadiness/coercer"
	"nyassess/adapters/excel"
	"nyassess/domain/assessment"
)

// columnMap is the resolved position of every canonical and identity column
// on one sheet; -1 marks a column the sheet does not carry.
type columnMap struct {
	year     int
	grade    int
	category int
	numeric  map[assessment.Field]int
	identity []identityColumn
}

type identityColumn struct {
	name string
	pos  int
}

func resolveColumns(h *excel.HeaderIndex) *columnMap {
	pos := func(name string) int {
		if i, ok := h.Lookup(name); ok {
			return i
		}
		return -1
	}

	cm := &columnMap{
		year:     pos(assessment.ColYear),
		grade:    pos(assessment.ColGrade),
		category: pos(assessment.ColCategory),
		numeric:  make(map[assessment.Field]int, len(assessment.NumericColumns)),
	}
	for f, col := range assessment.NumericColumns {
		cm.numeric[f] = pos(col)
	}
	for _, col := range assessment.IdentityColumns {
		if i, ok := h.Lookup(col); ok {
			cm.identity = append(cm.identity, identityColumn{name: col, pos: i})
		}
	}
	return cm
}

// Normalizer turns raw sheet rows into canonical rows.
type Normalizer struct {
	coercer *coercer.TypeCoercer
}

// NewNormalizer creates a normalizer using the default coercion rules.
func NewNormalizer() *Normalizer {
	return &Normalizer{coercer: coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())}
}

// Normalize converts one data row using the sheet's header index. It returns
// false for an all-blank row or a row without a usable year.
func (n *Normalizer) Normalize(h *excel.HeaderIndex, cells []string) (assessment.Row, bool) {
	return n.normalize(resolveColumns(h), cells)
}

func (n *Normalizer) normalize(cm *columnMap, cells []string) (assessment.Row, bool) {
	if excel.IsBlankRow(cells) {
		return assessment.Row{}, false
	}

	row := assessment.Row{
		Year: n.coercer.Integer(excel.Cell(cells, cm.year)),
	}
	if row.Year == nil {
		return assessment.Row{}, false
	}

	row.Grade = n.coercer.Text(excel.Cell(cells, cm.grade))
	row.Category = n.coercer.Text(excel.Cell(cells, cm.category))
	for f, i := range cm.numeric {
		row.SetValue(f, n.coercer.Number(excel.Cell(cells, i)))
	}
	if len(cm.identity) > 0 {
		row.Identity = make([]assessment.IdentityValue, len(cm.identity))
		for k, ic := range cm.identity {
			row.Identity[k] = assessment.IdentityValue{
				Column: ic.name,
				Value:  n.coercer.Text(excel.Cell(cells, ic.pos)),
			}
		}
	}
	return row, true
}
