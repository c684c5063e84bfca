package mail

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryMailbox is an in-process Mailbox. Attachment bytes are keyed by
// message id and attachment id.
type MemoryMailbox struct {
	mu       sync.Mutex
	messages []Message
	data     map[string][]byte
	read     map[string]bool
	fetched  []string
}

func NewMemoryMailbox() *MemoryMailbox {
	return &MemoryMailbox{data: make(map[string][]byte), read: make(map[string]bool)}
}

// Deliver adds an unread message whose attachments hold the given bytes.
func (m *MemoryMailbox) Deliver(msg Message, contents ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, att := range msg.Attachments {
		if i < len(contents) {
			m.data[msg.ID+"/"+att.ID] = contents[i]
		}
	}
	m.messages = append(m.messages, msg)
}

func (m *MemoryMailbox) ListUnreadWithAttachments(context.Context) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var unread []Message
	for _, msg := range m.messages {
		if !m.read[msg.ID] && len(msg.Attachments) > 0 {
			unread = append(unread, msg)
		}
	}
	return unread, nil
}

func (m *MemoryMailbox) FetchAttachment(_ context.Context, msg Message, att Attachment) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[msg.ID+"/"+att.ID]
	if !ok {
		return nil, errors.Errorf("attachment %s not found in message %s", att.ID, msg.ID)
	}
	m.fetched = append(m.fetched, att.Filename)
	return data, nil
}

func (m *MemoryMailbox) MarkRead(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.read[msg.ID] = true
	return nil
}

// IsRead reports whether MarkRead was called for id.
func (m *MemoryMailbox) IsRead(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read[id]
}

// Fetched lists attachment filenames in the order they were downloaded.
func (m *MemoryMailbox) Fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}
