package models

import "time"

// VerdictCache maps a content fingerprint to a previously produced verdict.
// An identical upload never pays for inference twice.
//
// Entries have no TTL and are never evicted: the label on a given byte-exact
// photo does not go stale, and a re-analysis of the same bytes would simply
// overwrite the row with an equivalent record.
type VerdictCache struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Fingerprint string    `gorm:"uniqueIndex;not null;size:64" json:"fingerprint"` // SHA-256 hex
	Verdict     string    `gorm:"not null" json:"verdict"`                         // verdict JSON
	Source      string    `gorm:"size:20" json:"source"`                           // "primary" or "fallback"
	CreatedAt   time.Time `json:"created_at"`
	HitCount    int       `gorm:"default:0" json:"hit_count"`
}

func (VerdictCache) TableName() string {
	return "verdict_caches"
}
