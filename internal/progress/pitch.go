package progress

import (
	"strings"

	"github.com/chainlabs/questline/internal/cms"
	"github.com/chainlabs/questline/internal/models"
)

// pitchToProgress normalizes a validated pitch document into a progress
// row. The contract layer has already guaranteed the required shape, so
// parsing here is permissive: unknown fields are ignored and optional
// ones default to zero values.
func pitchToProgress(sessionID, goal string, pitch map[string]any, library *cms.Library) *models.SessionProgress {
	row := &models.SessionProgress{
		SessionID:      sessionID,
		Goal:           goal,
		Why:            asString(pitch["why"]),
		WhyCaseStudies: asString(pitch["whyThisCaseStudiesWereSelected"]),
	}
	if g := asString(pitch["goal"]); g != "" {
		row.Goal = g
	}

	if hero, ok := pitch["hero"].(map[string]any); ok {
		row.Hero = models.Hero{
			Title:       asString(hero["title"]),
			Description: asString(hero["description"]),
		}
	}

	if steps, ok := pitch["process"].([]any); ok {
		for _, raw := range steps {
			step, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			row.Process = append(row.Process, models.ProcessStep{
				Name:        asString(step["name"]),
				Description: asString(step["description"]),
			})
		}
	}

	if missions, ok := pitch["missions"].([]any); ok {
		for _, raw := range missions {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			mission := models.Mission{
				ID:          asString(m["id"]),
				Title:       asString(m["title"]),
				Description: asString(m["description"]),
				Category:    asString(m["category"]),
				Icon:        asString(m["icon"]),
				MissionType: asString(m["missionType"]),
				Points:      asInt(m["points"]),
				Status:      models.MissionPending,
			}
			if input, ok := m["input"].(map[string]any); ok {
				mission.InputSpec = input
			}
			if options, ok := m["options"].([]any); ok {
				for _, opt := range options {
					if s := asString(opt); s != "" {
						mission.Options = append(mission.Options, s)
					}
				}
			}
			row.Missions = append(row.Missions, mission)
		}
	}

	row.CaseStudies = resolveCaseStudies(pitch["caseStudies"], library)
	return row
}

// resolveCaseStudies maps the pitch's case-study references to full CMS
// content. References may be bare ID strings or objects carrying an "id".
func resolveCaseStudies(raw any, library *cms.Library) []models.CaseStudy {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	var ids []string
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			ids = append(ids, strings.TrimSpace(v))
		case map[string]any:
			if id := asString(v["id"]); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return library.ByIDs(ids)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
