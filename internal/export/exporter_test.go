package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"nyassess/domain/assessment"
	"nyassess/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	schools map[assessment.Subject]map[string]assessment.Payload
	names   map[assessment.Subject][]string
}

func (f *fakeSource) SchoolPayloads(_ context.Context, s assessment.Subject) (map[string]assessment.Payload, error) {
	return f.schools[s], nil
}

func (f *fakeSource) SchoolNames(_ context.Context, s assessment.Subject) ([]string, error) {
	return f.names[s], nil
}

type memorySink struct {
	schools []string
	names   []string
	failOn  string
}

func (m *memorySink) WriteSchool(_ context.Context, subject assessment.Subject, school, slug string, _ assessment.Payload) error {
	if school == m.failOn {
		return errors.New("sink full")
	}
	m.schools = append(m.schools, string(subject)+"/"+slug)
	return nil
}

func (m *memorySink) WriteNames(_ context.Context, names []string) error {
	m.names = names
	return nil
}

var quiet = internal.NewLoggerTo(io.Discard, internal.LogLevelError)

func TestSlug(t *testing.T) {
	assert.Equal(t, "p-s-015-roberto-clemente", Slug("P.S. 015 Roberto Clemente"))
	assert.Equal(t, "arts-and-letters", Slug("  Arts & Letters  "))
	assert.Equal(t, "", Slug("***"))
	assert.Len(t, Slug(strings.Repeat("ab ", 100)), maxSlugLen)
}

func TestBuildSchools(t *testing.T) {
	year := 2019
	src := &fakeSource{schools: map[assessment.Subject]map[string]assessment.Payload{
		assessment.SubjectELA: {
			"Zeta High":  {"ELA - All": {{Year: &year}}},
			"Alpha & Co": {"ELA - All": {{Year: &year}}},
		},
	}}
	sink := &memorySink{}

	n, err := NewExporter(src, sink, quiet).BuildSchools(context.Background(), assessment.SubjectELA)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"ELA/alpha-and-co", "ELA/zeta-high"}, sink.schools)

	sink = &memorySink{failOn: "Zeta High"}
	n, err = NewExporter(src, sink, quiet).BuildSchools(context.Background(), assessment.SubjectELA)
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildNamesUnionsAndSortsNaturally(t *testing.T) {
	src := &fakeSource{names: map[assessment.Subject][]string{
		assessment.SubjectELA:  {"P.S. 10", "P.S. 9"},
		assessment.SubjectMath: {"P.S. 9", "P.S. 100", "Academy"},
	}}
	sink := &memorySink{}

	names, err := NewExporter(src, sink, quiet).BuildNames(context.Background(), assessment.Subjects)
	require.NoError(t, err)
	want := []string{"Academy", "P.S. 9", "P.S. 10", "P.S. 100"}
	assert.Equal(t, want, names)
	assert.Equal(t, want, sink.names)
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir)
	year := 2020

	require.NoError(t, sink.WriteSchool(context.Background(), assessment.SubjectMath, "P.S. 1", "p-s-1",
		assessment.Payload{"Math - All": {{Year: &year}}}))
	data, err := os.ReadFile(sink.SchoolPath(assessment.SubjectMath, "p-s-1"))
	require.NoError(t, err)
	var payload map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, 2020.0, payload["Math - All"][0]["Year"])

	require.NoError(t, sink.WriteNames(context.Background(), nil))
	data, err = os.ReadFile(sink.NamesPath())
	require.NoError(t, err)
	assert.JSONEq(t, `{"names": []}`, string(data))
}

func TestMultiSinkWritesAll(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	multi := MultiSink{a, b}

	require.NoError(t, multi.WriteNames(context.Background(), []string{"x"}))
	require.NoError(t, multi.WriteSchool(context.Background(), assessment.SubjectELA, "X", "x", nil))
	assert.Equal(t, []string{"x"}, b.names)
	assert.Equal(t, []string{"ELA/x"}, a.schools)

	failing := MultiSink{&memorySink{failOn: "X"}, b}
	assert.Error(t, failing.WriteSchool(context.Background(), assessment.SubjectELA, "X", "x", nil))
	assert.Len(t, b.schools, 1)
}
