package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"nyassess/adapters/excel"
	"nyassess/domain/assessment"
	"nyassess/domain/core"
	"nyassess/internal"

	"golang.org/x/sync/errgroup"
)

// Skip records a workbook or sheet left out of a load. Sheet is empty when
// the whole file was skipped.
type Skip struct {
	Path   string `json:"path"`
	Sheet  string `json:"sheet,omitempty"`
	Reason string `json:"reason"`
}

// Report summarizes one directory scan.
type Report struct {
	Dir    string `json:"dir"`
	Files  int    `json:"files"`
	Sheets int    `json:"sheets"`
	Rows   int    `json:"rows"`
	Skips  []Skip `json:"skips"`
}

// fileResult is the outcome of one workbook: rows per group key, school
// identifiers found, and whatever was skipped.
type fileResult struct {
	path   string
	groups map[string]assessment.Payload
	names  []string
	sheets int
	skips  []Skip
}

func (r *fileResult) skip(sheet, reason string) {
	r.skips = append(r.skips, Skip{Path: r.path, Sheet: sheet, Reason: reason})
}

// keyFunc assigns a raw data row to an output group; false drops the row.
type keyFunc func(cells []string) (string, bool)

// grouper prepares a keyFunc for a sheet, or returns a skip reason when the
// sheet cannot be grouped.
type grouper func(h *excel.HeaderIndex) (keyFunc, string)

const aggregateGroup = ""

// Loader reads assessment workbooks from <root>/<Subject>/<level>.
type Loader struct {
	root        string
	opener      excel.WorkbookOpener
	normalizer  *Normalizer
	config      excel.ReaderConfig
	concurrency int
	logger      *internal.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOpener replaces the workbook reader.
func WithOpener(o excel.WorkbookOpener) LoaderOption {
	return func(l *Loader) { l.opener = o }
}

// WithConcurrency bounds how many workbooks are parsed at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *internal.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithReaderConfig sets which files count as workbooks.
func WithReaderConfig(cfg excel.ReaderConfig) LoaderOption {
	return func(l *Loader) { l.config = cfg }
}

// NewLoader creates a loader rooted at root.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:        root,
		normalizer:  NewNormalizer(),
		config:      excel.DefaultReaderConfig(),
		concurrency: 4,
		logger:      internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.opener == nil {
		l.opener = excel.NewReader(l.logger)
	}
	return l
}

// Dir returns the backing directory for a subject and level.
func (l *Loader) Dir(subject assessment.Subject, level assessment.Level) string {
	return filepath.Join(l.root, string(subject), string(level))
}

// Aggregate loads the city, borough or district payload for subject. A
// missing directory yields an empty payload.
func (l *Loader) Aggregate(ctx context.Context, subject assessment.Subject, level assessment.Level) (assessment.Payload, error) {
	if err := checkSubject(subject); err != nil {
		return nil, err
	}
	if _, err := assessment.ParseAggregateLevel(string(level)); err != nil {
		return nil, err
	}

	groups, _, err := l.collect(ctx, subject, level, aggregateGrouper)
	if err != nil {
		return nil, err
	}
	payload := groups[aggregateGroup]
	if payload == nil {
		payload = assessment.Payload{}
	}
	return payload, nil
}

// School loads the rows of a single school, matched exactly on the trimmed
// identifier. An unknown school yields an empty payload.
func (l *Loader) School(ctx context.Context, subject assessment.Subject, schoolName string) (assessment.Payload, error) {
	if err := checkSubject(subject); err != nil {
		return nil, err
	}

	want := strings.TrimSpace(schoolName)
	groups, _, err := l.collect(ctx, subject, assessment.LevelSchool, schoolGrouper(func(id string) bool {
		return id == want
	}))
	if err != nil {
		return nil, err
	}
	payload := groups[want]
	if payload == nil {
		payload = assessment.Payload{}
	}
	return payload, nil
}

// SchoolPayloads loads every school's payload in a single pass, keyed by
// trimmed school identifier. Rows with a blank identifier are dropped.
func (l *Loader) SchoolPayloads(ctx context.Context, subject assessment.Subject) (map[string]assessment.Payload, error) {
	if err := checkSubject(subject); err != nil {
		return nil, err
	}
	groups, _, err := l.collect(ctx, subject, assessment.LevelSchool, schoolGrouper(func(id string) bool {
		return id != ""
	}))
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// SchoolNames returns the distinct school identifiers of the school-level
// workbooks, sorted lexically. Every sheet is scanned, classified or not.
func (l *Loader) SchoolNames(ctx context.Context, subject assessment.Subject) ([]string, error) {
	if err := checkSubject(subject); err != nil {
		return nil, err
	}

	dir := l.Dir(subject, assessment.LevelSchool)
	results, err := l.eachWorkbook(ctx, dir, func(wb *excel.Workbook, res *fileResult) {
		for _, sheet := range wb.Sheets {
			if sheet.Err != nil {
				res.skip(sheet.Name, sheet.Err.Error())
				continue
			}
			_, col, ok := sheet.Header.FirstOf(assessment.SchoolKeyColumns)
			if !ok {
				continue
			}
			res.sheets++
			for _, cells := range sheet.Rows {
				if v := strings.TrimSpace(excel.Cell(cells, col)); v != "" {
					res.names = append(res.names, v)
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, res := range results {
		l.logSkips(res.skips)
		for _, n := range res.names {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Scan walks the directory for subject and level like a load would and
// reports what was read and skipped.
func (l *Loader) Scan(ctx context.Context, subject assessment.Subject, level assessment.Level) (*Report, error) {
	if err := checkSubject(subject); err != nil {
		return nil, err
	}
	if _, err := assessment.ParseLevel(string(level)); err != nil {
		return nil, err
	}
	var g grouper = aggregateGrouper
	if level == assessment.LevelSchool {
		g = schoolGrouper(func(id string) bool { return id != "" })
	}
	_, report, err := l.collect(ctx, subject, level, g)
	return report, err
}

// collect normalizes every classified sheet under the level directory,
// merges rows per group in file order and sorts every bucket.
func (l *Loader) collect(ctx context.Context, subject assessment.Subject, level assessment.Level, group grouper) (map[string]assessment.Payload, *Report, error) {
	startTime := time.Now()
	dir := l.Dir(subject, level)

	results, err := l.eachWorkbook(ctx, dir, func(wb *excel.Workbook, res *fileResult) {
		l.visitSheets(wb, subject, group, res)
	})
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Dir: dir, Files: len(results), Skips: []Skip{}}
	groups := make(map[string]assessment.Payload)
	for _, res := range results {
		report.Sheets += res.sheets
		report.Skips = append(report.Skips, res.skips...)
		l.logSkips(res.skips)
		for key, payload := range res.groups {
			if groups[key] == nil {
				groups[key] = assessment.Payload{}
			}
			groups[key].Merge(payload)
		}
	}
	for _, payload := range groups {
		payload.Sort()
		report.Rows += payload.RowCount()
	}

	l.logger.Info("[Loader] %s: %d files, %d sheets, %d rows, %d skipped in %.2fms",
		dir, report.Files, report.Sheets, report.Rows, len(report.Skips),
		float64(time.Since(startTime).Nanoseconds())/1e6)
	return groups, report, nil
}

func (l *Loader) visitSheets(wb *excel.Workbook, subject assessment.Subject, group grouper, res *fileResult) {
	for _, sheet := range wb.Sheets {
		label, ok := Classify(sheet.Name, subject)
		if !ok {
			continue
		}
		if sheet.Err != nil {
			res.skip(sheet.Name, sheet.Err.Error())
			continue
		}
		keyOf, reason := group(sheet.Header)
		if keyOf == nil {
			res.skip(sheet.Name, reason)
			continue
		}

		res.sheets++
		cm := resolveColumns(sheet.Header)
		for _, cells := range sheet.Rows {
			key, ok := keyOf(cells)
			if !ok {
				continue
			}
			row, ok := l.normalizer.normalize(cm, cells)
			if !ok {
				continue
			}
			if res.groups[key] == nil {
				res.groups[key] = assessment.Payload{}
			}
			res.groups[key].Append(label, row)
		}
	}
}

// eachWorkbook opens every workbook in dir with bounded parallelism and
// calls visit for each. Results come back in file-name order regardless of
// completion order. A missing directory yields no results and no error.
func (l *Loader) eachWorkbook(ctx context.Context, dir string, visit func(*excel.Workbook, *fileResult)) ([]*fileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("[Loader] %s does not exist, returning empty result", dir)
			return nil, nil
		}
		return nil, core.NewComputationError(dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !l.config.Accepts(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	results := make([]*fileResult, len(paths))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, path := range paths {
		path := path
		res := &fileResult{path: path, groups: make(map[string]assessment.Payload)}
		results[i] = res
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					res.groups = make(map[string]assessment.Payload)
					res.names = nil
					res.skip("", fmt.Sprintf("panic while parsing: %v", r))
				}
			}()
			wb, err := l.opener.Open(path)
			if err != nil {
				if !core.IsCorruptSource(err) {
					err = core.NewCorruptSourceError(path, err)
				}
				res.skip("", err.Error())
				return nil
			}
			visit(wb, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.NewComputationError(dir, err)
	}
	return results, nil
}

func (l *Loader) logSkips(skips []Skip) {
	for _, s := range skips {
		if s.Sheet == "" {
			l.logger.Warn("[Loader] skipped %s: %s", s.Path, s.Reason)
		} else {
			l.logger.Warn("[Loader] skipped %s sheet %q: %s", s.Path, s.Sheet, s.Reason)
		}
	}
}

func aggregateGrouper(*excel.HeaderIndex) (keyFunc, string) {
	return func([]string) (string, bool) { return aggregateGroup, true }, ""
}

// schoolGrouper keys rows by the sheet's school identifier column, keeping
// only identifiers accepted by match.
func schoolGrouper(match func(id string) bool) grouper {
	return func(h *excel.HeaderIndex) (keyFunc, string) {
		_, col, ok := h.FirstOf(assessment.SchoolKeyColumns)
		if !ok {
			return nil, "no school identifier column"
		}
		return func(cells []string) (string, bool) {
			id := strings.TrimSpace(excel.Cell(cells, col))
			if !match(id) {
				return "", false
			}
			return id, true
		}, ""
	}
}

func checkSubject(subject assessment.Subject) error {
	for _, s := range assessment.Subjects {
		if subject == s {
			return nil
		}
	}
	return core.NewInvalidArgumentError(core.ErrInvalidSubject, string(subject), []string{"ELA", "Math"})
}
