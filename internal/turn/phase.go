package turn

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/chainlabs/questline/internal/models"
)

// ErrPhaseConflict reports a lost optimistic phase transition: another
// request moved the session first.
var ErrPhaseConflict = errors.New("turn: phase transition conflict")

// PhaseStore reads and advances the session phase column. Transitions are
// guarded by a compare-and-swap on the current phase so concurrent turns
// cannot both cross the same boundary.
type PhaseStore struct {
	db *gorm.DB
}

// NewPhaseStore creates a PhaseStore.
func NewPhaseStore(db *gorm.DB) (*PhaseStore, error) {
	if db == nil {
		return nil, fmt.Errorf("turn: phase store: db is required")
	}
	return &PhaseStore{db: db}, nil
}

// Phase returns the session's current phase.
func (s *PhaseStore) Phase(sessionID string) (string, error) {
	var session models.Session
	err := s.db.Select("phase").First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("turn: session %s not found", sessionID)
	}
	if err != nil {
		return "", fmt.Errorf("turn: load phase: %w", err)
	}
	return session.Phase, nil
}

// Advance moves the session from one phase to the next. It fails with
// ErrPhaseConflict when the session is no longer in the expected phase.
func (s *PhaseStore) Advance(sessionID, from, to string) error {
	result := s.db.Model(&models.Session{}).
		Where("id = ? AND phase = ?", sessionID, from).
		Update("phase", to)
	if result.Error != nil {
		return fmt.Errorf("turn: advance phase: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPhaseConflict
	}
	return nil
}
