package ports

import (
	"context"

	"nyassess/domain/assessment"
)

// AssessmentLoader reads assessment payloads from their backing directories.
// Arguments are canonical; callers parse user input first.
type AssessmentLoader interface {
	// Dir is the directory whose modification time stamps a load.
	Dir(subject assessment.Subject, level assessment.Level) string

	Aggregate(ctx context.Context, subject assessment.Subject, level assessment.Level) (assessment.Payload, error)
	SchoolNames(ctx context.Context, subject assessment.Subject) ([]string, error)
	School(ctx context.Context, subject assessment.Subject, schoolName string) (assessment.Payload, error)
}

// PayloadSink receives pre-materialized school payloads and name lists.
type PayloadSink interface {
	WriteSchool(ctx context.Context, subject assessment.Subject, school, slug string, payload assessment.Payload) error
	WriteNames(ctx context.Context, names []string) error
}
