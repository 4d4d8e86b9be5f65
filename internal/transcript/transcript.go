// Package transcript persists the per-session conversation history. The
// transcript is the source of truth for turn sequencing: appends assign
// dense sequence numbers inside a transaction, and a failed turn's tail
// can be rolled back best-effort so the session does not wedge.
package transcript

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chainlabs/questline/internal/models"
)

// Entry is one message to append.
type Entry struct {
	Role    string
	Content string
}

// Store reads and writes transcript rows.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a Store.
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("transcript: db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}, nil
}

// Append writes entries to the session transcript in order. All entries
// land in one transaction with consecutive sequence numbers, so a
// multi-message turn is visible either whole or not at all. The int is
// the number of rows actually committed: len(entries) on success, 0 on
// failure. Callers compensate for exactly that many rows, never more.
func (s *Store) Append(sessionID string, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, sessionID)
		if err != nil {
			return err
		}
		for i, entry := range entries {
			msg := models.Message{
				SessionID: sessionID,
				Sequence:  seq + i,
				Role:      entry.Role,
				Content:   entry.Content,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("transcript: append message: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Messages returns the full transcript for a session, ordered by sequence.
func (s *Store) Messages(sessionID string) ([]models.Message, error) {
	var msgs []models.Message
	result := s.db.Where("session_id = ?", sessionID).
		Order("sequence").Find(&msgs)
	if result.Error != nil {
		return nil, fmt.Errorf("transcript: load messages: %w", result.Error)
	}
	return msgs, nil
}

// Count returns the number of transcript entries for a session.
func (s *Store) Count(sessionID string) (int, error) {
	var count int64
	result := s.db.Model(&models.Message{}).
		Where("session_id = ?", sessionID).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("transcript: count: %w", result.Error)
	}
	return int(count), nil
}

// RollbackLast removes the n highest-sequence entries for a session. It is
// best-effort: a rollback failure is logged and swallowed because the
// caller is already propagating the original turn failure.
func (s *Store) RollbackLast(sessionID string, n int) {
	if n <= 0 {
		return
	}
	result := s.db.Where(
		"session_id = ? AND sequence > (SELECT COALESCE(MAX(sequence), 0) - ? FROM messages WHERE session_id = ?)",
		sessionID, n, sessionID,
	).Delete(&models.Message{})
	if result.Error != nil {
		s.logger.Error("transcript rollback failed",
			zap.String("session_id", sessionID),
			zap.Int("entries", n),
			zap.Error(result.Error))
		return
	}
	s.logger.Info("rolled back transcript tail",
		zap.String("session_id", sessionID),
		zap.Int("entries", n),
		zap.Int64("deleted", result.RowsAffected))
}

// nextSequence returns the next sequence number for a session.
func nextSequence(tx *gorm.DB, sessionID string) (int, error) {
	var maxSeq int
	result := tx.Model(&models.Message{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&maxSeq)
	if result.Error != nil {
		return 0, fmt.Errorf("transcript: next sequence: %w", result.Error)
	}
	return maxSeq + 1, nil
}
