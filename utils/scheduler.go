package utils

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// logScheduler logs scheduler events with timestamp
func logScheduler(message string) {
	log.Printf("[SCHEDULER %s] %s", time.Now().Format(time.RFC3339), message)
}

// NewIngestScheduler registers job on the cron schedule. A tick that fires while the
// previous run is still going is skipped, so runs never overlap.
func NewIngestScheduler(ctx context.Context, schedule string, job func(ctx context.Context)) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(schedule, func() {
		if ctx.Err() != nil {
			return
		}
		logScheduler("Starting scheduled ingestion run")
		job(ctx)
		logScheduler("Scheduled ingestion run finished")
	}); err != nil {
		return nil, errors.Wrapf(err, "invalid INGEST_SCHEDULE %q", schedule)
	}
	return c, nil
}

// RunScheduler runs job once immediately and then on schedule until ctx is done.
func RunScheduler(ctx context.Context, schedule string, job func(ctx context.Context)) error {
	c, err := NewIngestScheduler(ctx, schedule, job)
	if err != nil {
		return err
	}

	job(ctx)
	c.Start()
	logScheduler("Ingestion scheduler started - " + schedule)

	<-ctx.Done()
	logScheduler("Stopping scheduler, waiting for a running job")
	<-c.Stop().Done()
	return nil
}
