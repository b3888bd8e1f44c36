// Package export pre-materializes school payloads and the school-name list
// so they can be served as static files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"nyassess/domain/assessment"
	"nyassess/internal"
	"nyassess/ports"
)

// SchoolSource is the part of the loader the exporter needs.
type SchoolSource interface {
	SchoolPayloads(ctx context.Context, subject assessment.Subject) (map[string]assessment.Payload, error)
	SchoolNames(ctx context.Context, subject assessment.Subject) ([]string, error)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLen = 120

// Slug turns a school name into a readable file name stem.
func Slug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "&", " and ")
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

// Exporter writes school payloads and names to a sink.
type Exporter struct {
	source SchoolSource
	sink   ports.PayloadSink
	logger *internal.Logger
}

// NewExporter creates an exporter. A nil logger uses internal.DefaultLogger.
func NewExporter(source SchoolSource, sink ports.PayloadSink, logger *internal.Logger) *Exporter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Exporter{source: source, sink: sink, logger: logger}
}

// BuildSchools writes one payload per school for subject and returns how
// many were written.
func (e *Exporter) BuildSchools(ctx context.Context, subject assessment.Subject) (int, error) {
	bySchool, err := e.source.SchoolPayloads(ctx, subject)
	if err != nil {
		return 0, err
	}

	schools := make([]string, 0, len(bySchool))
	for name := range bySchool {
		schools = append(schools, name)
	}
	sort.Strings(schools)

	for i, name := range schools {
		if err := e.sink.WriteSchool(ctx, subject, name, Slug(name), bySchool[name]); err != nil {
			return i, fmt.Errorf("failed to write %s payload for %q: %w", subject, name, err)
		}
		if (i+1)%100 == 0 {
			e.logger.Info("[Export] wrote %d %s schools...", i+1, subject)
		}
	}
	e.logger.Info("[Export] %s: wrote %d school payloads", subject, len(schools))
	return len(schools), nil
}

// BuildNames writes the union of school names across subjects, ordered with
// numeric-aware comparison.
func (e *Exporter) BuildNames(ctx context.Context, subjects []assessment.Subject) ([]string, error) {
	seen := make(map[string]struct{})
	var all []string
	for _, subject := range subjects {
		names, err := e.source.SchoolNames(ctx, subject)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			all = append(all, n)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return assessment.CompareNatural(all[i], all[j]) < 0
	})

	if err := e.sink.WriteNames(ctx, all); err != nil {
		return nil, fmt.Errorf("failed to write school names: %w", err)
	}
	e.logger.Info("[Export] wrote %d school names", len(all))
	return all, nil
}

// DirSink writes payloads as JSON files under a root directory:
// <root>/schools/<Subject>/<slug>.json and <root>/school-names.json.
type DirSink struct {
	root string
}

// NewDirSink creates a sink rooted at dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{root: dir}
}

// SchoolPath is the file a school's payload is written to.
func (d *DirSink) SchoolPath(subject assessment.Subject, slug string) string {
	return filepath.Join(d.root, "schools", string(subject), slug+".json")
}

// NamesPath is the file the name list is written to.
func (d *DirSink) NamesPath() string {
	return filepath.Join(d.root, "school-names.json")
}

func (d *DirSink) WriteSchool(_ context.Context, subject assessment.Subject, _ string, slug string, payload assessment.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writeFile(d.SchoolPath(subject, slug), data)
}

func (d *DirSink) WriteNames(_ context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.MarshalIndent(struct {
		Names []string `json:"names"`
	}{names}, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(d.NamesPath(), data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// MultiSink writes to every sink in order and stops at the first error.
type MultiSink []ports.PayloadSink

func (m MultiSink) WriteSchool(ctx context.Context, subject assessment.Subject, school, slug string, payload assessment.Payload) error {
	for _, s := range m {
		if err := s.WriteSchool(ctx, subject, school, slug, payload); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) WriteNames(ctx context.Context, names []string) error {
	for _, s := range m {
		if err := s.WriteNames(ctx, names); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ ports.PayloadSink = (*DirSink)(nil)
	_ ports.PayloadSink = MultiSink(nil)
)
