package domain

import "time"

// AppealMessage captures one entry of an appeal's conversation thread.
type AppealMessage struct {
	ID        int64
	AppealID  int64
	SenderID  int64
	FromAdmin bool
	Body      string
	SentAt    time.Time
	Read      bool
	ReadAt    *time.Time
}

// MarkRead flags the message as read. Idempotent.
func (m *AppealMessage) MarkRead(now time.Time) {
	if m.Read {
		return
	}
	ts := now
	m.Read = true
	m.ReadAt = &ts
}
