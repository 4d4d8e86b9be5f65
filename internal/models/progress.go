package models

import "time"

// Mission statuses.
const (
	MissionPending   = "pending"
	MissionCompleted = "completed"
)

// Mission is one gamified step from the personalized pitch. Artifact
// holds the answer submitted when the mission was completed.
type Mission struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	MissionType string         `json:"missionType,omitempty"`
	InputSpec   map[string]any `json:"input,omitempty"`
	Options     []string       `json:"options,omitempty"`
	Points      int            `json:"points"`
	Status      string         `json:"status"`
	Artifact    string         `json:"artifact,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Hero is the headline section of the personalized pitch.
type Hero struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProcessStep is one step of the pitched delivery process.
type ProcessStep struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CaseStudy is a CMS case study referenced by the pitch.
type CaseStudy struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription,omitempty"`
	Description      string `json:"description,omitempty"`
	Thumbnail        string `json:"thumbnail,omitempty"`
	FallbackImage    string `json:"fallbackImage,omitempty"`
}

// CallRecord links a booked intro call. The list is append-only and never
// deduplicated.
type CallRecord struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionProgress holds the validated pitch and gamification state for a
// session. One row per session, upserted when clarification lands.
// Version guards concurrent mission completions.
type SessionProgress struct {
	SessionID       string        `gorm:"primaryKey;size:64"`
	Goal            string        `gorm:"type:text"`
	Hero            Hero          `gorm:"serializer:json;type:json"`
	Process         []ProcessStep `gorm:"serializer:json;type:json"`
	Missions        []Mission     `gorm:"serializer:json;type:json"`
	CaseStudies     []CaseStudy   `gorm:"serializer:json;type:json"`
	CallRecords     []CallRecord  `gorm:"serializer:json;type:json"`
	Why             string        `gorm:"type:text"`
	WhyCaseStudies  string        `gorm:"type:text"`
	PointsTotal     int           `gorm:"default:0"`
	CallUnlocked    bool          `gorm:"default:false"`
	Version         int           `gorm:"default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Session Session `gorm:"foreignKey:SessionID"`
}

// CompletedCount returns how many missions are completed.
func (p *SessionProgress) CompletedCount() int {
	n := 0
	for _, m := range p.Missions {
		if m.Status == MissionCompleted {
			n++
		}
	}
	return n
}

// CompletedPoints sums points over completed missions.
func (p *SessionProgress) CompletedPoints() int {
	total := 0
	for _, m := range p.Missions {
		if m.Status == MissionCompleted {
			total += m.Points
		}
	}
	return total
}
