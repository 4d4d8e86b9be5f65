package models

import "time"

// Conversation phases. Transitions only move forward: a session never
// returns to NO_GOAL, and clarification happens at most once.
const (
	PhaseNoGoal    = "NO_GOAL"
	PhaseGoalSet   = "GOAL_SET"
	PhaseClarified = "CLARIFIED"
	PhaseFreeChat  = "FREE_CHAT"
)

// Session is one anonymous browser session. The ID doubles as the JWT
// subject; LastActivity feeds the idle-session sweeper.
type Session struct {
	ID           string    `gorm:"primaryKey;size:64"`
	UserAgent    string    `gorm:"size:256"`
	IPAddress    string    `gorm:"size:64"`
	Phase        string    `gorm:"size:16;default:NO_GOAL;index"`
	IsActive     bool      `gorm:"default:true;index"`
	LastActivity time.Time `gorm:"index"`
	CreatedAt    time.Time

	Messages []Message        `gorm:"foreignKey:SessionID"`
	Progress *SessionProgress `gorm:"foreignKey:SessionID"`
}
