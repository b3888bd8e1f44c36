package excel

import (
	"fmt"
	"time"

	"nyassess/domain/core"
	"nyassess/internal"

	"github.com/xuri/excelize/v2"
)

// WorkbookOpener opens a spreadsheet file and returns all of its sheets.
type WorkbookOpener interface {
	Open(path string) (*Workbook, error)
}

// Reader reads xlsx workbooks with excelize.
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a workbook reader. A nil logger uses internal.DefaultLogger.
func NewReader(logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{logger: logger}
}

// Open parses every sheet of the workbook at path. A file that cannot be
// opened returns a core.ErrCorruptSource error; a sheet that cannot be read is returned with Err
// set so the remaining sheets stay usable.
func (r *Reader) Open(path string) (*Workbook, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, core.NewCorruptSourceError(path, err)
	}
	defer f.Close()

	wb := &Workbook{Path: path}
	for _, name := range f.GetSheetList() {
		wb.Sheets = append(wb.Sheets, r.readSheet(f, name))
	}

	r.logger.Debug("[Reader] %s opened in %.2fms (%d sheets)",
		path, float64(time.Since(startTime).Nanoseconds())/1e6, len(wb.Sheets))
	return wb, nil
}

func (r *Reader) readSheet(f *excelize.File, name string) Sheet {
	rows, err := f.GetRows(name)
	if err != nil {
		return Sheet{Name: name, Err: fmt.Errorf("failed to read sheet %q: %w", name, err)}
	}

	sheet := Sheet{Name: name}
	if len(rows) == 0 {
		sheet.Header = NewHeaderIndex(nil)
		return sheet
	}
	sheet.Header = NewHeaderIndex(rows[0])
	sheet.Rows = rows[1:]
	return sheet
}

var _ WorkbookOpener = (*Reader)(nil)
