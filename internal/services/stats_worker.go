package services

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tescaelements/mashgiach/backend/internal/metrics"
)

const statsUpdateInterval = 5 * time.Minute

// StatsWorker periodically refreshes the scan/cache gauges so /metrics
// stays accurate even when nothing mutates the database.
type StatsWorker struct {
	db       *gorm.DB
	interval time.Duration
}

func NewStatsWorker(db *gorm.DB) *StatsWorker {
	return &StatsWorker{db: db, interval: statsUpdateInterval}
}

// Start runs the worker until ctx is cancelled.
func (w *StatsWorker) Start(ctx context.Context) {
	log.Printf("Stats worker started: refreshing gauges every %v", w.interval)

	// Run immediately on startup
	metrics.UpdateScanMetrics(w.db)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stats worker stopping...")
			return
		case <-ticker.C:
			metrics.UpdateScanMetrics(w.db)
		}
	}
}
