package ingest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"nyassess/domain/assessment"
	"nyassess/internal"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// sheetFixture is one worksheet of a generated workbook; Rows[0] is the header.
type sheetFixture struct {
	Name string
	Rows [][]string
}

var aggregateHeader = []string{
	"Year", "Grade", "Category", "Number Tested", "Mean Scale Score",
	"% Level 1", "% Level 2", "% Level 3", "% Level 4", "% Level 3+4",
}

var schoolHeader = append([]string{"School Name"}, aggregateHeader...)

func writeWorkbook(t *testing.T, path string, sheets ...sheetFixture) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		for r, row := range s.Rows {
			cells := make([]interface{}, len(row))
			for c, v := range row {
				cells[c] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.Name, cell, &cells))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

// writeTypedWorkbook writes one sheet of typed cells below a text header.
// numFmt maps a zero-based column to a built-in number format applied to
// its data cells, the way published workbooks store percents and counts.
func writeTypedWorkbook(t *testing.T, path, sheet string, header []string, rows [][]interface{}, numFmt map[int]int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))

	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &head))
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	for col, id := range numFmt {
		style, err := f.NewStyle(&excelize.Style{NumFmt: id})
		require.NoError(t, err)
		top, err := excelize.CoordinatesToCellName(col+1, 2)
		require.NoError(t, err)
		bottom, err := excelize.CoordinatesToCellName(col+1, len(rows)+1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(sheet, top, bottom, style))
	}
	require.NoError(t, f.SaveAs(path))
}

// quietLoader returns a loader over root whose logs are discarded.
func quietLoader(root string, opts ...LoaderOption) *Loader {
	opts = append([]LoaderOption{WithLogger(internal.NewLoggerTo(io.Discard, internal.LogLevelError))}, opts...)
	return NewLoader(root, opts...)
}

func levelDir(root string, subject assessment.Subject, level assessment.Level) string {
	return filepath.Join(root, string(subject), string(level))
}
