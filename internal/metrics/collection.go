package metrics

import (
	"log"

	"gorm.io/gorm"

	"github.com/tescaelements/mashgiach/backend/internal/models"
)

// UpdateScanMetrics queries the database and updates scan-related Prometheus
// gauges. Call this after history changes or periodically from the stats worker.
func UpdateScanMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	var scanCount int64
	if err := db.Model(&models.Scan{}).Count(&scanCount).Error; err != nil {
		log.Printf("Metrics: failed to count scans: %v", err)
	} else {
		ScansTotal.Set(float64(scanCount))
	}

	type statusCount struct {
		Status models.KashrutStatus
		Count  int64
	}
	var statusCounts []statusCount
	if err := db.Model(&models.Scan{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		log.Printf("Metrics: failed to count scans by status: %v", err)
	} else {
		for _, sc := range statusCounts {
			ScansByStatus.WithLabelValues(string(sc.Status)).Set(float64(sc.Count))
		}
	}

	var cacheCount int64
	if err := db.Model(&models.VerdictCache{}).Count(&cacheCount).Error; err != nil {
		log.Printf("Metrics: failed to count cache entries: %v", err)
	} else {
		CacheSize.Set(float64(cacheCount))
	}
}
