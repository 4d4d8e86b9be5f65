package models

import "time"

// Message is one transcript entry. Sequence is assigned atomically on
// append and is dense per session; the transcript is append-only apart
// from best-effort rollback of a failed turn's tail.
type Message struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:64;not null;index:idx_session_sequence"`
	Sequence  int    `gorm:"not null;index:idx_session_sequence"`
	Role      string `gorm:"size:16;not null"` // "user", "assistant", "system"
	Content   string `gorm:"type:mediumtext;not null"`
	CreatedAt time.Time

	Session Session `gorm:"foreignKey:SessionID"`
}
