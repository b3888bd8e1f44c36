package assessment

import (
	"strings"

	"nyassess/domain/core"
)

// Subject is the tested discipline.
type Subject string

const (
	SubjectELA  Subject = "ELA"
	SubjectMath Subject = "Math"
)

// Subjects lists the accepted subjects in canonical form.
var Subjects = []Subject{SubjectELA, SubjectMath}

// Level is the aggregation granularity.
type Level string

const (
	LevelCity     Level = "city"
	LevelBorough  Level = "borough"
	LevelDistrict Level = "district"
	LevelSchool   Level = "school"
)

// Levels lists every recognized level.
var Levels = []Level{LevelCity, LevelBorough, LevelDistrict, LevelSchool}

// AggregateLevels are the levels served by the aggregate loader.
var AggregateLevels = []Level{LevelCity, LevelBorough, LevelDistrict}

// ParseSubject normalizes a subject string. Accepted aliases are "ela",
// "math", "mathematics" and "m", case-insensitive.
func ParseSubject(s string) (Subject, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ela":
		return SubjectELA, nil
	case "math", "mathematics", "m":
		return SubjectMath, nil
	}
	return "", core.NewInvalidArgumentError(core.ErrInvalidSubject, s, subjectNames())
}

// ParseLevel normalizes a level string.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Levels {
		if l == known {
			return l, nil
		}
	}
	return "", core.NewInvalidArgumentError(core.ErrInvalidLevel, s, levelNames(Levels))
}

// ParseAggregateLevel is ParseLevel restricted to city, borough and district.
func ParseAggregateLevel(s string) (Level, error) {
	l, err := ParseLevel(s)
	if err != nil {
		return "", err
	}
	if l == LevelSchool {
		return "", core.NewInvalidArgumentError(core.ErrInvalidLevel, s, levelNames(AggregateLevels))
	}
	return l, nil
}

func subjectNames() []string {
	out := make([]string, len(Subjects))
	for i, s := range Subjects {
		out[i] = string(s)
	}
	return out
}

func levelNames(levels []Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

// Label is a payload bucket key of the form "<Subject> - <Suffix>".
type Label string

// SheetSuffixes is the fixed suffix set, in match priority order.
var SheetSuffixes = []string{"All", "SWD", "Ethnicity", "Gender", "Econ Status", "ELL"}

// NewLabel builds the label for a subject and suffix.
func NewLabel(subject Subject, suffix string) Label {
	return Label(string(subject) + " - " + suffix)
}

// Source column headers of the canonical fields.
const (
	ColYear           = "Year"
	ColGrade          = "Grade"
	ColCategory       = "Category"
	ColNumberTested   = "Number Tested"
	ColMeanScaleScore = "Mean Scale Score"
	ColPctLevel1      = "% Level 1"
	ColPctLevel2      = "% Level 2"
	ColPctLevel3      = "% Level 3"
	ColPctLevel4      = "% Level 4"
	ColPctLevel3Plus4 = "% Level 3+4"
)

// Identity columns copied verbatim when a sheet carries them.
const (
	ColBorough        = "Borough"
	ColDistrict       = "District"
	ColSchoolName     = "School Name"
	ColSchool         = "School"
	ColSchoolNameBare = "SchoolName"
)

// IdentityColumns is the output order of identity fields.
var IdentityColumns = []string{ColBorough, ColDistrict, ColSchoolName, ColSchool, ColSchoolNameBare}

// SchoolKeyColumns is the priority list used to find a sheet's school identifier.
var SchoolKeyColumns = []string{ColSchoolName, ColSchool, ColSchoolNameBare}

// Field identifies a numeric field of a Row.
type Field int

const (
	FieldNumberTested Field = iota
	FieldMeanScaleScore
	FieldPctLevel1
	FieldPctLevel2
	FieldPctLevel3
	FieldPctLevel4
	FieldPctLevel3Plus4
)

// NumericColumns maps each numeric field to its source header.
var NumericColumns = map[Field]string{
	FieldNumberTested:   ColNumberTested,
	FieldMeanScaleScore: ColMeanScaleScore,
	FieldPctLevel1:      ColPctLevel1,
	FieldPctLevel2:      ColPctLevel2,
	FieldPctLevel3:      ColPctLevel3,
	FieldPctLevel4:      ColPctLevel4,
	FieldPctLevel3Plus4: ColPctLevel3Plus4,
}

// IdentityValue is one identity column carried by the source sheet. A nil
// Value means the column was present but the cell was blank.
type IdentityValue struct {
	Column string
	Value  *string
}

// Row is one normalized observation. Nil pointers are nulls.
type Row struct {
	Year           *int
	Grade          *string
	Category       *string
	NumberTested   *float64
	MeanScaleScore *float64
	PctLevel1      *float64
	PctLevel2      *float64
	PctLevel3      *float64
	PctLevel4      *float64
	PctLevel3Plus4 *float64
	Identity       []IdentityValue
}

// Value returns the numeric field f, or nil when it is null.
func (r Row) Value(f Field) *float64 {
	switch f {
	case FieldNumberTested:
		return r.NumberTested
	case FieldMeanScaleScore:
		return r.MeanScaleScore
	case FieldPctLevel1:
		return r.PctLevel1
	case FieldPctLevel2:
		return r.PctLevel2
	case FieldPctLevel3:
		return r.PctLevel3
	case FieldPctLevel4:
		return r.PctLevel4
	case FieldPctLevel3Plus4:
		return r.PctLevel3Plus4
	}
	return nil
}

// SetValue assigns the numeric field f.
func (r *Row) SetValue(f Field, v *float64) {
	switch f {
	case FieldNumberTested:
		r.NumberTested = v
	case FieldMeanScaleScore:
		r.MeanScaleScore = v
	case FieldPctLevel1:
		r.PctLevel1 = v
	case FieldPctLevel2:
		r.PctLevel2 = v
	case FieldPctLevel3:
		r.PctLevel3 = v
	case FieldPctLevel4:
		r.PctLevel4 = v
	case FieldPctLevel3Plus4:
		r.PctLevel3Plus4 = v
	}
}

// IdentityOf returns the identity value for column and whether the sheet carried it.
func (r Row) IdentityOf(column string) (*string, bool) {
	for _, iv := range r.Identity {
		if iv.Column == column {
			return iv.Value, true
		}
	}
	return nil, false
}

// Payload maps a sheet label to its ordered rows.
type Payload map[Label][]Row

// Append adds rows to the bucket for label.
func (p Payload) Append(label Label, rows ...Row) {
	if len(rows) == 0 {
		return
	}
	p[label] = append(p[label], rows...)
}

// Merge appends every bucket of other into p, preserving order.
func (p Payload) Merge(other Payload) {
	for label, rows := range other {
		p.Append(label, rows...)
	}
}

// RowCount is the total number of rows across buckets.
func (p Payload) RowCount() int {
	n := 0
	for _, rows := range p {
		n += len(rows)
	}
	return n
}
