// Package model defines the persisted record types shared by the cache
// layers and the store.
package model

import (
	"time"

	"github.com/brightpath-abroad/counsel-engine/internal/scoring"
)

// EnrichmentRecord holds enriched facts about one university in one
// country. Identity is the normalized (name, country) pair; Name and
// Country keep the display form they were first stored with.
type EnrichmentRecord struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Country        string         `json:"country"`
	Payload        map[string]any `json:"payload"`
	Confidence     float64        `json:"confidence"`
	Source         scoring.Source `json:"source"`
	Verified       bool           `json:"verified"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	AccessCount    int            `json:"access_count"`
}

// AnalysisRecord holds one user's AI-computed fit assessment of one
// university. IsPlaceholder marks analyses generated while the user had
// no profile; those are bypassed on lookup once a profile exists.
type AnalysisRecord struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	UniversityID  string         `json:"university_id"`
	Payload       map[string]any `json:"payload"`
	IsPlaceholder bool           `json:"is_placeholder"`
	CreatedAt     time.Time      `json:"created_at"`
}
