package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"gradesync/models"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FileFailure is one file that did not make it through the pipeline.
type FileFailure struct {
	File  string    `json:"file"`
	Stage FileState `json:"stage"`
	Err   error     `json:"-"`
}

// Kind names the error class for reports.
func (f FileFailure) Kind() string {
	var (
		unreadable *UnreadableFileError
		bad        *MalformedGradebookError
		persist    *PersistenceError
	)
	switch {
	case errors.As(f.Err, &unreadable):
		return "unreadable"
	case errors.As(f.Err, &bad):
		return "malformed"
	case errors.As(f.Err, &persist):
		return "persistence"
	default:
		return "other"
	}
}

func (f FileFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		File  string    `json:"file"`
		Stage FileState `json:"stage"`
		Kind  string    `json:"kind"`
		Error string    `json:"error"`
	}{f.File, f.Stage, f.Kind(), msg})
}

// Summary is the outcome of one orchestrator run.
type Summary struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Discovered []string
	Ingested   []string
	Skipped    []string
	Failures   []FileFailure
}

func (s *Summary) HasFailures() bool { return len(s.Failures) > 0 }

// Report renders the end-of-run listing of skipped and failed files.
func (s *Summary) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d discovered, %d ingested, %d skipped, %d failed\n",
		s.RunID, len(s.Discovered), len(s.Ingested), len(s.Skipped), len(s.Failures))
	for _, name := range s.Skipped {
		fmt.Fprintf(&b, "  skipped  %s (already processed)\n", name)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "  failed   %s [%s, %s]: %v\n", f.File, f.Kind(), f.Stage, f.Err)
	}
	return b.String()
}

// RecordRun stores the summary as an ImportRun row.
func RecordRun(ctx context.Context, db *gorm.DB, s *Summary) (*models.ImportRun, error) {
	failures, err := json.Marshal(s.Failures)
	if err != nil {
		return nil, errors.Wrap(err, "encoding failures")
	}
	if s.Failures == nil {
		failures = []byte("[]")
	}
	run := &models.ImportRun{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Discovered: len(s.Discovered),
		Ingested:   len(s.Ingested),
		Skipped:    len(s.Skipped),
		Failed:     len(s.Failures),
		Failures:   datatypes.JSON(failures),
	}
	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, errors.Wrap(err, "recording import run")
	}
	return run, nil
}
