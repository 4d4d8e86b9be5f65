// Package cms serves marketing case studies. The current backing store is
// an in-process fixture set shaped like the headless-CMS payloads it will
// eventually be replaced by, so the lookup semantics (order preservation,
// dedup, fallback imagery) already match the real integration.
package cms

import (
	"fmt"

	"github.com/chainlabs/questline/internal/models"
)

// DefaultFallbackImage is attached to every case study so the frontend
// always has something to render when the thumbnail is missing or broken.
const DefaultFallbackImage = "https://images.unsplash.com/photo-1752578753798-ff3a23e16498?q=80&w=2070&auto=format&fit=crop"

// Library resolves case-study IDs to their content.
type Library struct {
	studies map[string]models.CaseStudy
	order   []string
}

// NewLibrary returns a Library backed by the built-in fixture set.
func NewLibrary() *Library {
	lib := &Library{studies: make(map[string]models.CaseStudy)}
	for _, cs := range fixtures {
		lib.studies[cs.ID] = cs
		lib.order = append(lib.order, cs.ID)
	}
	return lib
}

// All returns every case study in insertion order.
func (l *Library) All() []models.CaseStudy {
	out := make([]models.CaseStudy, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.withFallback(l.studies[id]))
	}
	return out
}

// ByID returns a single case study.
func (l *Library) ByID(id string) (models.CaseStudy, error) {
	cs, ok := l.studies[id]
	if !ok {
		return models.CaseStudy{}, fmt.Errorf("cms: case study %q not found", id)
	}
	return l.withFallback(cs), nil
}

// ByIDs returns the case studies for the given IDs, preserving request
// order. Duplicate IDs resolve once and unknown IDs are skipped.
func (l *Library) ByIDs(ids []string) []models.CaseStudy {
	seen := make(map[string]bool, len(ids))
	var out []models.CaseStudy
	for _, id := range ids {
		if seen[id] {
			continue
		}
		cs, ok := l.studies[id]
		if !ok {
			continue
		}
		out = append(out, l.withFallback(cs))
		seen[id] = true
	}
	return out
}

func (l *Library) withFallback(cs models.CaseStudy) models.CaseStudy {
	cs.FallbackImage = DefaultFallbackImage
	return cs
}
