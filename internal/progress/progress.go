// Package progress owns the gamification state derived from a validated
// personalized pitch: missions, points, and the call unlock. All writes go
// through the reconciler so points stay consistent with mission status.
package progress

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainlabs/questline/internal/cms"
	"github.com/chainlabs/questline/internal/models"
)

// UnlockThreshold is how many completed missions unlock the intro call.
const UnlockThreshold = 2

// Sentinel errors mapped to HTTP statuses by the API layer.
var (
	ErrNoProgress       = errors.New("progress: no progress for session")
	ErrMissionNotFound  = errors.New("progress: mission not found")
	ErrAlreadyCompleted = errors.New("progress: mission already completed")
	ErrConflict         = errors.New("progress: concurrent update conflict")
)

// versionRetries bounds the optimistic-lock retry loop on completion.
const versionRetries = 3

// Reconciler applies pitch and mission updates to session progress.
type Reconciler struct {
	db     *gorm.DB
	cms    *cms.Library
	logger *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(db *gorm.DB, library *cms.Library, logger *zap.Logger) (*Reconciler, error) {
	if db == nil {
		return nil, fmt.Errorf("progress: db is required")
	}
	if library == nil {
		library = cms.NewLibrary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, cms: library, logger: logger}, nil
}

// ReconcilePitch upserts the session's progress row from a validated
// pitch document. Re-running with the same pitch is idempotent; mission
// completion state from a previous run is preserved for missions whose
// IDs survive.
func (r *Reconciler) ReconcilePitch(sessionID, goal string, pitch map[string]any) (*models.SessionProgress, error) {
	row := pitchToProgress(sessionID, goal, pitch, r.cms)

	var existing models.SessionProgress
	err := r.db.First(&existing, "session_id = ?", sessionID).Error
	switch {
	case err == nil:
		carryCompletion(row.Missions, existing.Missions)
		row.CallRecords = existing.CallRecords
		row.Version = existing.Version
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First pitch for this session.
	default:
		return nil, fmt.Errorf("progress: load existing progress: %w", err)
	}

	row.PointsTotal = row.CompletedPoints()
	row.CallUnlocked = row.CompletedCount() >= UnlockThreshold

	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"goal", "hero", "process", "missions", "case_studies",
			"why", "why_case_studies", "points_total", "call_unlocked", "updated_at",
		}),
	}).Create(row)
	if result.Error != nil {
		return nil, fmt.Errorf("progress: upsert pitch: %w", result.Error)
	}

	r.logger.Info("reconciled pitch",
		zap.String("session_id", sessionID),
		zap.Int("missions", len(row.Missions)),
		zap.Int("case_studies", len(row.CaseStudies)))
	return row, nil
}

// CompleteResult is returned by CompleteMission.
type CompleteResult struct {
	PointsAwarded int
	PointsTotal   int
	CallUnlocked  bool
	NextMission   *models.Mission
}

// CompleteMission marks a mission completed exactly once, stores the
// submitted artifact answer on the mission, and recomputes points.
// Concurrent completions are serialized through an optimistic version
// check on the progress row.
func (r *Reconciler) CompleteMission(sessionID, missionID, artifactAnswer string) (*CompleteResult, error) {
	for attempt := 0; attempt < versionRetries; attempt++ {
		row, err := r.load(sessionID)
		if err != nil {
			return nil, err
		}

		idx := -1
		for i := range row.Missions {
			if row.Missions[i].ID == missionID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, ErrMissionNotFound
		}
		if row.Missions[idx].Status == models.MissionCompleted {
			return nil, ErrAlreadyCompleted
		}

		now := time.Now().UTC()
		row.Missions[idx].Status = models.MissionCompleted
		row.Missions[idx].Artifact = artifactAnswer
		row.Missions[idx].CompletedAt = &now
		awarded := row.Missions[idx].Points
		row.PointsTotal = row.CompletedPoints()
		row.CallUnlocked = row.CompletedCount() >= UnlockThreshold

		result := r.db.Model(&models.SessionProgress{}).
			Where("session_id = ? AND version = ?", sessionID, row.Version).
			Select("missions", "points_total", "call_unlocked", "version").
			Updates(&models.SessionProgress{
				Missions:     row.Missions,
				PointsTotal:  row.PointsTotal,
				CallUnlocked: row.CallUnlocked,
				Version:      row.Version + 1,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("progress: complete mission: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Lost the race; reload and re-check completion state.
			continue
		}

		r.logger.Info("mission completed",
			zap.String("session_id", sessionID),
			zap.String("mission_id", missionID),
			zap.Int("points_awarded", awarded),
			zap.Int("points_total", row.PointsTotal),
			zap.Bool("call_unlocked", row.CallUnlocked))

		return &CompleteResult{
			PointsAwarded: awarded,
			PointsTotal:   row.PointsTotal,
			CallUnlocked:  row.CallUnlocked,
			NextMission:   nextPending(row.Missions),
		}, nil
	}
	return nil, ErrConflict
}

// StoreCallRecord appends a booked call reference. The list is
// append-only; repeated bookings with the same IDs are kept as-is.
func (r *Reconciler) StoreCallRecord(sessionID, bookingID, uid string) (*models.SessionProgress, error) {
	row, err := r.load(sessionID)
	if err != nil {
		return nil, err
	}

	row.CallRecords = append(row.CallRecords, models.CallRecord{
		ID:        bookingID,
		UID:       uid,
		CreatedAt: time.Now().UTC(),
	})
	result := r.db.Model(&models.SessionProgress{}).
		Where("session_id = ?", sessionID).
		Select("call_records").
		Updates(&models.SessionProgress{CallRecords: row.CallRecords})
	if result.Error != nil {
		return nil, fmt.Errorf("progress: store call record: %w", result.Error)
	}
	return row, nil
}

// Snapshot returns the full progress row for a session.
func (r *Reconciler) Snapshot(sessionID string) (*models.SessionProgress, error) {
	return r.load(sessionID)
}

func (r *Reconciler) load(sessionID string) (*models.SessionProgress, error) {
	var row models.SessionProgress
	err := r.db.First(&row, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoProgress
	}
	if err != nil {
		return nil, fmt.Errorf("progress: load progress: %w", err)
	}
	return &row, nil
}

// nextPending returns the first pending mission, or nil.
func nextPending(missions []models.Mission) *models.Mission {
	for i := range missions {
		if missions[i].Status == models.MissionPending {
			m := missions[i]
			return &m
		}
	}
	return nil
}

// carryCompletion preserves completion state across a re-reconcile for
// missions that keep their IDs.
func carryCompletion(fresh, previous []models.Mission) {
	done := make(map[string]models.Mission, len(previous))
	for _, m := range previous {
		if m.Status == models.MissionCompleted {
			done[m.ID] = m
		}
	}
	for i := range fresh {
		if prev, ok := done[fresh[i].ID]; ok {
			fresh[i].Status = models.MissionCompleted
			fresh[i].Artifact = prev.Artifact
			fresh[i].CompletedAt = prev.CompletedAt
		}
	}
}
