package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nyassess/adapters/excel"
	"nyassess/domain/assessment"
	"nyassess/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cityRow(year, grade, tested, pct string) []string {
	return []string{year, grade, "All Students", tested, "", "", "", "", "", pct}
}

func TestAggregateMergesAndSortsAcrossWorkbooks(t *testing.T) {
	root := t.TempDir()
	dir := levelDir(root, assessment.SubjectELA, assessment.LevelCity)
	writeWorkbook(t, filepath.Join(dir, "a.xlsx"), sheetFixture{
		Name: "ELA - All",
		Rows: [][]string{
			aggregateHeader,
			cityRow("2023", "4", "100", "45%"),
			cityRow("2023", "3", "90", "50%"),
		},
	})
	writeWorkbook(t, filepath.Join(dir, "b.xlsx"), sheetFixture{
		Name: "Ignored Tab",
		Rows: [][]string{aggregateHeader, cityRow("2023", "5", "1", "1")},
	})

	payload, err := quietLoader(root).Aggregate(context.Background(), assessment.SubjectELA, assessment.LevelCity)
	require.NoError(t, err)

	require.Len(t, payload, 1)
	rows := payload["ELA - All"]
	require.Len(t, rows, 2)
	assert.Equal(t, "3", *rows[0].Grade)
	assert.Equal(t, "4", *rows[1].Grade)
	assert.InDelta(t, 100.0, *rows[1].NumberTested, 1e-9)
	assert.InDelta(t, 45.0, *rows[1].PctLevel3Plus4, 1e-9)
	assert.True(t, payload.IsSorted())
}

func TestAggregateConcatenatesInFileOrder(t *testing.T) {
	root := t.TempDir()
	dir := levelDir(root, assessment.SubjectMath, assessment.LevelBorough)
	header := append([]string{"Borough"}, aggregateHeader...)
	for i, borough := range []string{"Bronx", "Brooklyn", "Manhattan"} {
		writeWorkbook(t, filepath.Join(dir, fmt.Sprintf("%d.xlsx", i)),
			sheetFixture{
				Name: "Math - Gender",
				Rows: [][]string{header, append([]string{borough}, cityRow("2019", "3", "10", "1")...)},
			},
			sheetFixture{
				Name: "Math - All",
				Rows: [][]string{header, append([]string{borough}, cityRow("2019", "3", "10", "1")...)},
			},
		)
	}

	payload, err := quietLoader(root, WithConcurrency(2)).Aggregate(context.Background(), assessment.SubjectMath, assessment.LevelBorough)
	require.NoError(t, err)
	assert.Equal(t, []assessment.Label{"Math - All", "Math - Gender"}, payload.Labels())

	rows := payload["Math - Gender"]
	require.Len(t, rows, 3)
	for i, want := range []string{"Bronx", "Brooklyn", "Manhattan"} {
		got, ok := rows[i].IdentityOf("Borough")
		require.True(t, ok)
		assert.Equal(t, want, *got)
	}
}

func TestAggregateSkipsCorruptFiles(t *testing.T) {
	root := t.TempDir()
	dir := levelDir(root, assessment.SubjectELA, assessment.LevelDistrict)
	writeWorkbook(t, filepath.Join(dir, "good.xlsx"), sheetFixture{
		Name: "ELA - SWD",
		Rows: [][]string{aggregateHeader, cityRow("2018", "3", "5", "20")},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.xlsx"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o644))

	loader := quietLoader(root)
	payload, err := loader.Aggregate(context.Background(), assessment.SubjectELA, assessment.LevelDistrict)
	require.NoError(t, err)
	assert.Len(t, payload["ELA - SWD"], 1)

	report, err := loader.Scan(context.Background(), assessment.SubjectELA, assessment.LevelDistrict)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 1, report.Sheets)
	assert.Equal(t, 1, report.Rows)
	require.Len(t, report.Skips, 1)
	assert.Equal(t, filepath.Join(dir, "bad.xlsx"), report.Skips[0].Path)
	assert.Contains(t, report.Skips[0].Reason, "corrupt source")
}

func TestAggregateMissingDirectory(t *testing.T) {
	payload, err := quietLoader(t.TempDir()).Aggregate(context.Background(), assessment.SubjectMath, assessment.LevelCity)
	require.NoError(t, err)
	assert.NotNil(t, payload)
	assert.Empty(t, payload)
}

func TestAggregateRejectsInvalidArguments(t *testing.T) {
	loader := quietLoader(t.TempDir())

	_, err := loader.Aggregate(context.Background(), assessment.Subject("Science"), assessment.LevelCity)
	assert.ErrorIs(t, err, core.ErrInvalidSubject)

	_, err = loader.Aggregate(context.Background(), assessment.SubjectELA, assessment.LevelSchool)
	assert.ErrorIs(t, err, core.ErrInvalidLevel)
}

// Built-in excelize number formats.
const (
	fmtThousands = 3 // #,##0
	fmtPercent   = 9 // 0%
)

func TestAggregateReadsFormattedNumericCells(t *testing.T) {
	root := t.TempDir()
	dir := levelDir(root, assessment.SubjectMath, assessment.LevelCity)
	row := func(grade string, tested, p1, p34 float64) []interface{} {
		return []interface{}{2023, grade, "All Students", tested, 601.5, p1, 0.2, 0.3, 0.4, p34}
	}
	writeTypedWorkbook(t, filepath.Join(dir, "typed.xlsx"), "Math - All", aggregateHeader,
		[][]interface{}{
			row("Grade 10", 1234, 0.1, 0.7),
			row("Grade 9", 56, 0.25, 0.5),
		},
		map[int]int{3: fmtThousands, 5: fmtPercent, 6: fmtPercent, 7: fmtPercent, 8: fmtPercent, 9: fmtPercent})

	payload, err := quietLoader(root).Aggregate(context.Background(), assessment.SubjectMath, assessment.LevelCity)
	require.NoError(t, err)

	rows := payload["Math - All"]
	require.Len(t, rows, 2)
	assert.Equal(t, "Grade 9", *rows[0].Grade)
	assert.Equal(t, "Grade 10", *rows[1].Grade)

	r := rows[1]
	assert.Equal(t, 2023, *r.Year)
	assert.InDelta(t, 1234.0, *r.NumberTested, 1e-9)
	assert.InDelta(t, 601.5, *r.MeanScaleScore, 1e-9)
	assert.InDelta(t, 10.0, *r.PctLevel1, 1e-9)
	assert.InDelta(t, 20.0, *r.PctLevel2, 1e-9)
	assert.InDelta(t, 70.0, *r.PctLevel3Plus4, 1e-9)
	assert.InDelta(t, 25.0, *rows[0].PctLevel1, 1e-9)
}

type failingOpener struct{ err error }

func (o failingOpener) Open(string) (*excel.Workbook, error) { return nil, o.err }

func TestOpenFailuresAreReportedAsCorruptSources(t *testing.T) {
	root := t.TempDir()
	dir := levelDir(root, assessment.SubjectELA, assessment.LevelCity)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.xlsx"), nil, 0o644))
	path := filepath.Join(dir, "x.xlsx")

	for name, openErr := range map[string]error{
		"plain":  fmt.Errorf("permission denied"),
		"marked": core.NewCorruptSourceError(path, fmt.Errorf("zip: not a valid zip file")),
	} {
		t.Run(name, func(t *testing.T) {
			report, err := quietLoader(root, WithOpener(failingOpener{err: openErr})).Scan(context.Background(), assessment.SubjectELA, assessment.LevelCity)
			require.NoError(t, err)
			require.Len(t, report.Skips, 1)
			reason := report.Skips[0].Reason
			assert.Equal(t, 1, strings.Count(reason, "corrupt source"))
			assert.Equal(t, 1, strings.Count(reason, path))
		})
	}
}

type panickingOpener struct{}

func (panickingOpener) Open(string) (*excel.Workbook, error) { panic("boom") }

func TestAggregateRecoversParserPanic(t *testing.T) {
	root := t.TempDir()
	dir := levelDir(root, assessment.SubjectELA, assessment.LevelCity)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.xlsx"), nil, 0o644))

	report, err := quietLoader(root, WithOpener(panickingOpener{})).Scan(context.Background(), assessment.SubjectELA, assessment.LevelCity)
	require.NoError(t, err)
	require.Len(t, report.Skips, 1)
	assert.Contains(t, report.Skips[0].Reason, "boom")
}

func schoolFixture(t *testing.T, root string) {
	t.Helper()
	dir := levelDir(root, assessment.SubjectELA, assessment.LevelSchool)
	row := func(school, year, grade string) []string {
		return append([]string{school}, cityRow(year, grade, "10", "50")...)
	}
	writeWorkbook(t, filepath.Join(dir, "2018.xlsx"),
		sheetFixture{Name: "ELA - All", Rows: [][]string{
			schoolHeader,
			row("P.S. 10 Brooklyn", "2018", "3"),
			row(" P.S. 9 Annex ", "2018", "3"),
			row("", "2018", "3"),
		}},
		sheetFixture{Name: "ELA - ELL", Rows: [][]string{
			schoolHeader,
			row("P.S. 10 Brooklyn", "2018", "4"),
		}},
	)
	writeWorkbook(t, filepath.Join(dir, "2019.xlsx"),
		sheetFixture{Name: "ELA - All", Rows: [][]string{
			{"School", "Year", "Grade"},
			{"P.S. 10 Brooklyn", "2019", "3"},
			{"P.S. 10 Brooklyn", "2017", "3"},
		}},
		sheetFixture{Name: "Directory", Rows: [][]string{
			{"SchoolName"},
			{"Unlisted Academy"},
		}},
	)
}

func TestSchool(t *testing.T) {
	root := t.TempDir()
	schoolFixture(t, root)
	loader := quietLoader(root)

	payload, err := loader.School(context.Background(), assessment.SubjectELA, "P.S. 10 Brooklyn")
	require.NoError(t, err)
	assert.Equal(t, []assessment.Label{"ELA - All", "ELA - ELL"}, payload.Labels())

	all := payload["ELA - All"]
	require.Len(t, all, 3)
	assert.Equal(t, 2017, *all[0].Year)
	assert.Equal(t, 2018, *all[1].Year)
	assert.Equal(t, 2019, *all[2].Year)
	id, ok := all[2].IdentityOf("School")
	require.True(t, ok)
	assert.Equal(t, "P.S. 10 Brooklyn", *id)

	trimmed, err := loader.School(context.Background(), assessment.SubjectELA, "P.S. 9 Annex")
	require.NoError(t, err)
	assert.Len(t, trimmed["ELA - All"], 1)
}

func TestSchoolUnknownIsEmpty(t *testing.T) {
	root := t.TempDir()
	schoolFixture(t, root)

	payload, err := quietLoader(root).School(context.Background(), assessment.SubjectELA, "P.S. 9")
	require.NoError(t, err)
	assert.NotNil(t, payload)
	assert.Empty(t, payload)
}

func TestSchoolNames(t *testing.T) {
	root := t.TempDir()
	schoolFixture(t, root)

	names, err := quietLoader(root).SchoolNames(context.Background(), assessment.SubjectELA)
	require.NoError(t, err)
	assert.Equal(t, []string{"P.S. 10 Brooklyn", "P.S. 9 Annex", "Unlisted Academy"}, names)

	empty, err := quietLoader(root).SchoolNames(context.Background(), assessment.SubjectMath)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSchoolPayloads(t *testing.T) {
	root := t.TempDir()
	schoolFixture(t, root)

	bySchool, err := quietLoader(root).SchoolPayloads(context.Background(), assessment.SubjectELA)
	require.NoError(t, err)
	require.Len(t, bySchool, 2)
	assert.Equal(t, 4, bySchool["P.S. 10 Brooklyn"].RowCount())
	assert.Equal(t, 1, bySchool["P.S. 9 Annex"].RowCount())
	assert.True(t, bySchool["P.S. 10 Brooklyn"].IsSorted())
}

func TestScanReportsSheetsWithoutSchoolColumn(t *testing.T) {
	root := t.TempDir()
	dir := levelDir(root, assessment.SubjectMath, assessment.LevelSchool)
	writeWorkbook(t, filepath.Join(dir, "x.xlsx"), sheetFixture{
		Name: "Math - All",
		Rows: [][]string{aggregateHeader, cityRow("2019", "3", "1", "1")},
	})

	report, err := quietLoader(root).Scan(context.Background(), assessment.SubjectMath, assessment.LevelSchool)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Rows)
	require.Len(t, report.Skips, 1)
	assert.Equal(t, "Math - All", report.Skips[0].Sheet)
	assert.Equal(t, "no school identifier column", report.Skips[0].Reason)
}

func TestDir(t *testing.T) {
	l := NewLoader("/data")
	assert.Equal(t, filepath.Join("/data", "ELA", "district"), l.Dir(assessment.SubjectELA, assessment.LevelDistrict))
}
