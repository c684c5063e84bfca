package ingest

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Tracker answers "was this file ingested already" and records success.
type Tracker interface {
	IsAlreadyProcessed(ctx context.Context, path string) (bool, error)
	MarkProcessed(ctx context.Context, path string) error
}

// Extractor turns one gradebook file into a GradeRecord.
type Extractor interface {
	Extract(path string) (*GradeRecord, error)
}

// Writer persists a GradeRecord atomically.
type Writer interface {
	Persist(ctx context.Context, rec *GradeRecord) error
}

// FileState is where a candidate file ended up (or currently is) in a run.
type FileState string

const (
	StateDiscovered FileState = "DISCOVERED"
	StateSkipped    FileState = "SKIPPED"
	StateExtracting FileState = "EXTRACTING"
	StatePersisting FileState = "PERSISTING"
	StateMarking    FileState = "MARKING"
	StateMarkedDone FileState = "MARKED_DONE"
	StateFailed     FileState = "FAILED"
)

// Options configures a run. There is no package-level state; everything a run
// touches comes from here or from the injected collaborators.
type Options struct {
	SourceDir      string
	MtimeTolerance time.Duration
	Template       Template
}

type Orchestrator struct {
	opts      Options
	tracker   Tracker
	extractor Extractor
	writer    Writer
	now       func() time.Time
}

// New wires the default tracker, extractor and writer against db.
func New(db *gorm.DB, opts Options) *Orchestrator {
	return NewOrchestrator(opts,
		NewChangeTracker(db, opts.MtimeTolerance),
		NewGradebookExtractor(opts.Template),
		NewStoreWriter(db),
	)
}

func NewOrchestrator(opts Options, tracker Tracker, extractor Extractor, writer Writer) *Orchestrator {
	return &Orchestrator{
		opts:      opts,
		tracker:   tracker,
		extractor: extractor,
		writer:    writer,
		now:       time.Now,
	}
}

// Run ingests every candidate file in the source directory. A failing file is
// logged, recorded in the summary and left unmarked; the batch carries on.
// Only an unreadable source directory or a cancelled ctx stops the run early.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.New(), StartedAt: o.now().UTC()}
	defer func() { summary.FinishedAt = o.now().UTC() }()

	files, err := CandidateFiles(o.opts.SourceDir)
	if err != nil {
		return summary, err
	}
	logIngest("run %s: %d candidate file(s) in %s", summary.RunID, len(files), o.opts.SourceDir)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, errors.Wrap(err, "ingestion cancelled")
		}
		summary.Discovered = append(summary.Discovered, filepath.Base(path))

		state, err := o.ingestFile(ctx, path)
		name := filepath.Base(path)
		switch {
		case err != nil:
			logIngest("FAILED %s during %s: %v", name, state, err)
			summary.Failures = append(summary.Failures, FileFailure{File: name, Stage: state, Err: err})
		case state == StateSkipped:
			logIngest("Skipping already processed file: %s", name)
			summary.Skipped = append(summary.Skipped, name)
		default:
			summary.Ingested = append(summary.Ingested, name)
		}
	}
	return summary, nil
}

// ingestFile drives one file through the pipeline. On failure the returned
// state is the stage that failed.
func (o *Orchestrator) ingestFile(ctx context.Context, path string) (FileState, error) {
	done, err := o.tracker.IsAlreadyProcessed(ctx, path)
	if err != nil {
		return StateDiscovered, err
	}
	if done {
		return StateSkipped, nil
	}

	rec, err := o.extractor.Extract(path)
	if err != nil {
		return StateExtracting, err
	}
	if err := o.writer.Persist(ctx, rec); err != nil {
		return StatePersisting, err
	}
	if err := o.tracker.MarkProcessed(ctx, path); err != nil {
		return StateMarking, err
	}
	logIngest("Saved course '%s' (%d students) from %s", rec.CourseName, len(rec.Roster), filepath.Base(path))
	return StateMarkedDone, nil
}

// CandidateFiles lists the spreadsheets directly inside dir in lexical order.
func CandidateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading gradebook directory %s", dir)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsSpreadsheet(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func logIngest(format string, args ...interface{}) {
	log.Printf("[INGEST] "+format, args...)
}
