package main

import (
	"context"
	"flag"
	"gradesync/config"
	"gradesync/database"
	"gradesync/ingest"
	"log"
	"os"
)

// Ingests a local directory of gradebooks without touching the mailbox.
//
//	go run ./scripts -dir ./gradebooks
func main() {
	// Load config and connect to database
	cfg := config.LoadConfig()
	dir := flag.String("dir", cfg.GradebookDir, "directory of .xls/.xlsx/.xlsm gradebooks")
	flag.Parse()

	db, err := database.ConnectDb(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer database.Close(db)

	tpl, err := ingest.LoadTemplate(cfg.TemplateFile)
	if err != nil {
		log.Fatalf("Failed to load template: %v", err)
	}

	ctx := context.Background()
	summary, err := ingest.New(db, ingest.Options{
		SourceDir:      *dir,
		MtimeTolerance: cfg.MtimeTolerance,
		Template:       tpl,
	}).Run(ctx)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	if _, err := ingest.RecordRun(ctx, db, summary); err != nil {
		log.Printf("Error recording run: %v", err)
	}

	log.Printf("=== Import Complete ===")
	log.Printf("Ingested: %d", len(summary.Ingested))
	log.Printf("Skipped: %d", len(summary.Skipped))
	log.Printf("Failed: %d", len(summary.Failures))
	log.Printf("Total processed: %d", len(summary.Discovered))
	if summary.HasFailures() {
		log.Print(summary.Report())
		database.Close(db)
		os.Exit(1)
	}
}
