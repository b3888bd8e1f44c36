package app

import (
	"context"
	"fmt"

	"nyassess/domain/assessment"
	"nyassess/internal"
	"nyassess/internal/cache"
	"nyassess/internal/errors"
	"nyassess/ports"
)

// AssessmentService is the boundary the HTTP layer and tools call. It parses
// user input, routes aggregate and school-name loads through freshness
// caches, and wraps failures in AppErrors.
type AssessmentService struct {
	loader     ports.AssessmentLoader
	aggregates *cache.Freshness[assessment.Payload]
	names      *cache.Freshness[[]string]
	logger     *internal.Logger
}

// NewAssessmentService creates the service. Both caches share opts.
func NewAssessmentService(loader ports.AssessmentLoader, opts cache.Options) *AssessmentService {
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AssessmentService{
		loader:     loader,
		aggregates: cache.New[assessment.Payload](opts),
		names:      cache.New[[]string](opts),
		logger:     logger,
	}
}

// AggregateKey is the cache key of a city, borough or district payload.
func AggregateKey(subject assessment.Subject, level assessment.Level) string {
	return fmt.Sprintf("%s:%s", subject, level)
}

// NamesKey is the cache key of a subject's school-name index.
func NamesKey(subject assessment.Subject) string {
	return fmt.Sprintf("%s:%s:names", subject, assessment.LevelSchool)
}

// LoadAggregate returns the payload for subject at a city, borough or
// district level.
func (s *AssessmentService) LoadAggregate(ctx context.Context, subjectIn, levelIn string) (assessment.Payload, error) {
	subject, err := assessment.ParseSubject(subjectIn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid request")
	}
	level, err := assessment.ParseLevel(levelIn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid request")
	}
	if level == assessment.LevelSchool {
		return nil, errors.InvalidInput("use LoadSchool for level=school")
	}

	payload, err := s.aggregate(ctx, subject, level)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s %s assessments", subject, level)
	}
	return payload, nil
}

func (s *AssessmentService) aggregate(ctx context.Context, subject assessment.Subject, level assessment.Level) (assessment.Payload, error) {
	return s.aggregates.Get(ctx, AggregateKey(subject, level), s.loader.Dir(subject, level),
		func(ctx context.Context) (assessment.Payload, error) {
			return s.loader.Aggregate(ctx, subject, level)
		})
}

// SchoolNames returns the sorted school identifiers for subject.
func (s *AssessmentService) SchoolNames(ctx context.Context, subjectIn string) ([]string, error) {
	subject, err := assessment.ParseSubject(subjectIn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid request")
	}

	names, err := s.schoolNames(ctx, subject)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s school names", subject)
	}
	return names, nil
}

func (s *AssessmentService) schoolNames(ctx context.Context, subject assessment.Subject) ([]string, error) {
	return s.names.Get(ctx, NamesKey(subject), s.loader.Dir(subject, assessment.LevelSchool),
		func(ctx context.Context) ([]string, error) {
			return s.loader.SchoolNames(ctx, subject)
		})
}

// LoadSchool returns one school's payload. It is not cached.
func (s *AssessmentService) LoadSchool(ctx context.Context, subjectIn, schoolName string) (assessment.Payload, error) {
	subject, err := assessment.ParseSubject(subjectIn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid request")
	}

	payload, err := s.loader.School(ctx, subject, schoolName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s assessments for %q", subject, schoolName)
	}
	return payload, nil
}

// SummaryRequest selects one bucket to roll up by year. School is required
// when Level is school.
type SummaryRequest struct {
	Subject  string
	Level    string
	School   string
	Label    string
	Category string
	Grade    string
}

// Summary computes per-year weighted figures for one bucket.
func (s *AssessmentService) Summary(ctx context.Context, req SummaryRequest) ([]assessment.YearSummary, error) {
	level, err := assessment.ParseLevel(req.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid request")
	}

	var payload assessment.Payload
	if level == assessment.LevelSchool {
		if req.School == "" {
			return nil, errors.InvalidInput("school is required for level=school")
		}
		payload, err = s.LoadSchool(ctx, req.Subject, req.School)
	} else {
		payload, err = s.LoadAggregate(ctx, req.Subject, req.Level)
	}
	if err != nil {
		return nil, err
	}

	label := assessment.Label(req.Label)
	if label == "" {
		subject, _ := assessment.ParseSubject(req.Subject)
		label = assessment.NewLabel(subject, assessment.SheetSuffixes[0])
	}
	return assessment.SummarizeByYear(payload[label], assessment.SummaryFilter{
		Category: req.Category,
		Grade:    req.Grade,
	}), nil
}

// Warm drops and reloads the cache entry backed by the subject and level
// directory. For level=school it refreshes the school-name index.
func (s *AssessmentService) Warm(ctx context.Context, subject assessment.Subject, level assessment.Level) error {
	if level == assessment.LevelSchool {
		s.names.Invalidate(NamesKey(subject))
		_, err := s.schoolNames(ctx, subject)
		return err
	}
	s.aggregates.Invalidate(AggregateKey(subject, level))
	_, err := s.aggregate(ctx, subject, level)
	return err
}

// CachedEntries reports how many payloads and name lists are resident.
func (s *AssessmentService) CachedEntries() int {
	return s.aggregates.Len() + s.names.Len()
}
