package mail

import (
	"bytes"
	"context"
	"gradesync/ingest"
	"gradesync/utils"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Attachment is one file attached to a message.
type Attachment struct {
	ID       string
	Filename string
}

// Message is an unread message carrying at least one attachment.
// InternalDate is the provider's receive time in epoch milliseconds.
type Message struct {
	ID           string
	InternalDate int64
	Attachments  []Attachment
}

// Mailbox is everything the retrieval step needs from a mail provider.
type Mailbox interface {
	ListUnreadWithAttachments(ctx context.Context) ([]Message, error)
	FetchAttachment(ctx context.Context, msg Message, att Attachment) ([]byte, error)
	MarkRead(ctx context.Context, msg Message) error
}

// FetchAttachments saves every spreadsheet attachment of every unread message
// into dir as <internalDate>_<filename> and marks each message read once all
// of its spreadsheets are on disk. The first error aborts the retrieval.
func FetchAttachments(ctx context.Context, box Mailbox, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating attachment directory %s", dir)
	}

	messages, err := box.ListUnreadWithAttachments(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing unread messages")
	}
	logMail("Found %d unread message(s) with attachments", len(messages))

	var saved []string
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return saved, errors.Wrap(err, "attachment retrieval cancelled")
		}
		for _, att := range msg.Attachments {
			if !ingest.IsSpreadsheet(att.Filename) {
				continue
			}
			data, err := box.FetchAttachment(ctx, msg, att)
			if err != nil {
				return saved, errors.Wrapf(err, "fetching %s from message %s", att.Filename, msg.ID)
			}
			path, err := utils.SaveFile(dir, AttachmentFileName(msg, att), bytes.NewReader(data))
			if err != nil {
				return saved, err
			}
			logMail("Saved %s -> %s", att.Filename, path)
			saved = append(saved, path)
		}
		if err := box.MarkRead(ctx, msg); err != nil {
			return saved, errors.Wrapf(err, "marking message %s read", msg.ID)
		}
	}
	return saved, nil
}

// AttachmentFileName is the on-disk name for att. Only the base name of the
// attachment is used.
func AttachmentFileName(msg Message, att Attachment) string {
	name := filepath.Base(strings.ReplaceAll(att.Filename, "\\", "/"))
	return strconv.FormatInt(msg.InternalDate, 10) + "_" + name
}

func logMail(format string, args ...interface{}) {
	log.Printf("[MAIL] "+format, args...)
}
