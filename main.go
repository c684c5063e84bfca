package main

import (
	"context"
	"fmt"
	"gradesync/config"
	"gradesync/database"
	"gradesync/ingest"
	"gradesync/mail"
	"gradesync/routers"
	"gradesync/utils"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const usage = `usage: gradesync [command]

commands:
  run     fetch unread gradebooks and ingest them once (default)
  watch   run on INGEST_SCHEDULE until interrupted
  serve   serve the read-only report API on PORT`

func main() {
	cfg := config.LoadConfig()

	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if cmd != "run" && cmd != "watch" && cmd != "serve" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	db, err := database.ConnectDb(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		summary, err := runOnce(ctx, cfg, db)
		if err != nil {
			log.Printf("Run failed: %v", err)
			database.Close(db)
			os.Exit(1)
		}
		if summary.HasFailures() {
			database.Close(db)
			os.Exit(1)
		}
	case "watch":
		err = utils.RunScheduler(ctx, cfg.IngestSchedule, func(ctx context.Context) {
			if _, err := runOnce(ctx, cfg, db); err != nil {
				log.Printf("Run failed: %v", err)
			}
		})
		if err != nil {
			log.Fatal(err)
		}
	case "serve":
		serve(ctx, cfg, db)
	}
}

// runOnce builds the collaborators from cfg and runs one batch.
func runOnce(ctx context.Context, cfg *config.Config, db *gorm.DB) (*ingest.Summary, error) {
	tpl, err := ingest.LoadTemplate(cfg.TemplateFile)
	if err != nil {
		return nil, err
	}
	box, err := mail.NewGmailMailbox(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile, cfg.GmailQuery)
	if err != nil {
		return nil, err
	}
	opts := ingest.Options{
		SourceDir:      cfg.GradebookDir,
		MtimeTolerance: cfg.MtimeTolerance,
		Template:       tpl,
	}
	return runBatch(ctx, db, box, opts, utils.NewReportMailer(cfg))
}

// runBatch fetches new attachments into opts.SourceDir and ingests the
// directory. A retrieval error aborts before any file is ingested. Recording
// the run and mailing the summary are best effort.
func runBatch(ctx context.Context, db *gorm.DB, box mail.Mailbox, opts ingest.Options, mailer *utils.ReportMailer) (*ingest.Summary, error) {
	if box != nil {
		if _, err := mail.FetchAttachments(ctx, box, opts.SourceDir); err != nil {
			return nil, errors.Wrap(err, "retrieving attachments")
		}
	}

	summary, err := ingest.New(db, opts).Run(ctx)
	if err != nil {
		return summary, err
	}
	log.Print(summary.Report())

	// the run row must survive a cancelled ctx
	recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := ingest.RecordRun(recordCtx, db, summary); err != nil {
		log.Printf("Failed to record run %s: %v", summary.RunID, err)
	}
	if err := mailer.SendRunSummary(summary); err != nil {
		log.Printf("Failed to email run summary: %v", err)
	}
	return summary, nil
}

func serve(ctx context.Context, cfg *config.Config, db *gorm.DB) {
	app := routers.NewApp(db)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
