package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"gradesync/models"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const hashChunkSize = 8192

// ChangeTracker keeps the processed-files ledger.
type ChangeTracker struct {
	db        *gorm.DB
	tolerance time.Duration
	now       func() time.Time
}

func NewChangeTracker(db *gorm.DB, tolerance time.Duration) *ChangeTracker {
	if tolerance <= 0 {
		tolerance = time.Second
	}
	return &ChangeTracker{db: db, tolerance: tolerance, now: time.Now}
}

// IsAlreadyProcessed is true when the ledger has this filename and its stored
// modification time is within the tolerance of the file's current one. An
// edited file therefore counts as new.
func (t *ChangeTracker) IsAlreadyProcessed(ctx context.Context, path string) (bool, error) {
	mtime, err := modTime(path)
	if err != nil {
		return false, err
	}

	var rows []models.ProcessedFile
	if err := t.db.WithContext(ctx).
		Where("filename = ?", filepath.Base(path)).
		Limit(1).
		Find(&rows).Error; err != nil {
		return false, errors.Wrap(err, "looking up processed file")
	}
	if len(rows) == 0 {
		return false, nil
	}
	return math.Abs(rows[0].ModifiedAt-mtime) < t.tolerance.Seconds(), nil
}

// MarkProcessed records path in the ledger, overwriting an earlier entry for
// the same filename. Call it only once the file's data is committed.
func (t *ChangeTracker) MarkProcessed(ctx context.Context, path string) error {
	mtime, err := modTime(path)
	if err != nil {
		return err
	}
	sum, err := FileHash(path)
	if err != nil {
		return err
	}

	entry := models.ProcessedFile{
		Filename:    filepath.Base(path),
		ModifiedAt:  mtime,
		ContentHash: sum,
		ProcessedAt: t.now().UTC(),
	}
	err = t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{"modified_at", "content_hash", "processed_at"}),
	}).Create(&entry).Error
	return errors.Wrapf(err, "marking %s processed", entry.Filename)
}

// FileHash returns the hex SHA-256 of the file, read in fixed-size chunks.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file for hashing")
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "hashing file")
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// modTime is the file's modification time in seconds since the epoch.
func modTime(path string) (float64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "stat gradebook")
	}
	return float64(fi.ModTime().UnixNano()) / float64(time.Second), nil
}
