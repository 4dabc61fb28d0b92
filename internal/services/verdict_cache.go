package services

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tescaelements/mashgiach/backend/internal/metrics"
	"github.com/tescaelements/mashgiach/backend/internal/models"
)

// VerdictCacheService persists verdicts keyed by content fingerprint.
// A present entry is always preferred over a fresh inference call for the
// same fingerprint; there is no TTL and no automatic eviction.
type VerdictCacheService struct {
	db *gorm.DB
}

func NewVerdictCacheService(db *gorm.DB) *VerdictCacheService {
	return &VerdictCacheService{db: db}
}

// shortFP abbreviates a fingerprint for log lines. Keys are normally 64 hex
// chars but the API accepts any string.
func shortFP(fingerprint string) string {
	if len(fingerprint) > 16 {
		return fingerprint[:16]
	}
	return fingerprint
}

// Get retrieves the cached verdict for a fingerprint. Absence is not an
// error; it just means the analysis has to pay for inference.
func (s *VerdictCacheService) Get(fingerprint string) (*models.Verdict, bool) {
	if s.db == nil {
		return nil, false
	}

	var cached models.VerdictCache
	err := s.db.Where("fingerprint = ?", fingerprint).First(&cached).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			infoLog("Cache lookup failed for %s: %v", shortFP(fingerprint), err)
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}

	var verdict models.Verdict
	if err := json.Unmarshal([]byte(cached.Verdict), &verdict); err != nil {
		// Unreadable row: treat as a miss, the overwrite on store repairs it.
		infoLog("Cache entry %s is unreadable: %v", shortFP(fingerprint), err)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	// Increment hit count inline (avoid goroutine-per-hit)
	_ = s.db.Model(&models.VerdictCache{}).Where("id = ?", cached.ID).UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error

	metrics.CacheHits.Inc()
	debugLog("Cache hit for fingerprint=%s", shortFP(fingerprint))
	verdict.Source = "cache"
	return &verdict, true
}

// Put stores a verdict under its fingerprint, silently overwriting any
// existing entry. Writes are idempotent: two racing analyses of the same
// bytes simply write equivalent rows.
func (s *VerdictCacheService) Put(fingerprint string, verdict *models.Verdict) error {
	if s.db == nil || verdict == nil {
		return nil
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		return err
	}

	entry := models.VerdictCache{
		Fingerprint: fingerprint,
		Verdict:     string(payload),
		Source:      verdict.Source,
		CreatedAt:   time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{"verdict", "source", "created_at"}),
	}).Create(&entry).Error
}

// Count reports the number of cached verdicts, for stats and metrics.
func (s *VerdictCacheService) Count() int64 {
	if s.db == nil {
		return 0
	}
	var n int64
	s.db.Model(&models.VerdictCache{}).Count(&n)
	return n
}
