package services

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tescaelements/mashgiach/backend/internal/models"
)

// testDB opens a throwaway sqlite database with the full schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Scan{}, &models.VerdictCache{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestVerdictCacheRoundTrip(t *testing.T) {
	cache := NewVerdictCacheService(testDB(t))

	verdict := &models.Verdict{
		Status:        models.StatusKosherParve,
		StatusText:    "Kosher Parve",
		Product:       "Avena integral",
		Symbols:       []string{"OU"},
		Justification: "Sello OU visible en el frente.",
		Source:        "primary",
	}
	fingerprint := Fingerprint([]byte("avena"))

	if err := cache.Put(fingerprint, verdict); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found := cache.Get(fingerprint)
	if !found {
		t.Fatal("expected a cache hit")
	}
	if got.Status != models.StatusKosherParve || got.Product != "Avena integral" {
		t.Errorf("round-tripped verdict mismatch: %+v", got)
	}
	if got.Source != "cache" {
		t.Errorf("expected source cache on a hit, got %q", got.Source)
	}
	if cache.Count() != 1 {
		t.Errorf("expected 1 cached entry, got %d", cache.Count())
	}
}

func TestVerdictCacheMiss(t *testing.T) {
	cache := NewVerdictCacheService(testDB(t))

	if _, found := cache.Get(Fingerprint([]byte("never stored"))); found {
		t.Error("expected a miss for an unknown fingerprint")
	}
}

func TestVerdictCacheOverwrite(t *testing.T) {
	cache := NewVerdictCacheService(testDB(t))
	fingerprint := Fingerprint([]byte("same bytes"))

	first := &models.Verdict{Status: models.StatusUncertain, StatusText: "Dudoso", Source: "primary"}
	second := &models.Verdict{Status: models.StatusKosherParve, StatusText: "Kosher Parve", Source: "fallback"}

	if err := cache.Put(fingerprint, first); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := cache.Put(fingerprint, second); err != nil {
		t.Fatalf("overwriting Put failed: %v", err)
	}

	got, found := cache.Get(fingerprint)
	if !found {
		t.Fatal("expected a cache hit")
	}
	if got.Status != models.StatusKosherParve {
		t.Errorf("expected the overwrite to win, got %+v", got)
	}
	if cache.Count() != 1 {
		t.Errorf("overwrite must not add a row, got %d", cache.Count())
	}
}

func TestVerdictCacheHitCount(t *testing.T) {
	db := testDB(t)
	cache := NewVerdictCacheService(db)
	fingerprint := Fingerprint([]byte("popular product"))

	if err := cache.Put(fingerprint, &models.Verdict{Status: models.StatusKosherDairy}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, found := cache.Get(fingerprint); !found {
			t.Fatal("expected a cache hit")
		}
	}

	var entry models.VerdictCache
	if err := db.Where("fingerprint = ?", fingerprint).First(&entry).Error; err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	if entry.HitCount != 3 {
		t.Errorf("expected hit count 3, got %d", entry.HitCount)
	}
}

func TestVerdictCacheShortFingerprint(t *testing.T) {
	db := testDB(t)
	cache := NewVerdictCacheService(db)

	// Rows keyed by short strings must go through the same paths as the
	// usual 64-char digests, including the abbreviated log formatting.
	if err := cache.Put("abc", &models.Verdict{Status: models.StatusKosherParve}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, found := cache.Get("abc"); !found {
		t.Error("expected a hit for a short fingerprint")
	}

	// An unreadable row under a short key is a miss, not a panic.
	if err := db.Create(&models.VerdictCache{Fingerprint: "xy", Verdict: "not json"}).Error; err != nil {
		t.Fatalf("failed to seed unreadable row: %v", err)
	}
	if _, found := cache.Get("xy"); found {
		t.Error("expected an unreadable row to miss")
	}
}

func TestVerdictCacheNilDB(t *testing.T) {
	cache := NewVerdictCacheService(nil)

	if err := cache.Put("abc", &models.Verdict{}); err != nil {
		t.Errorf("Put on nil db should be a no-op, got %v", err)
	}
	if _, found := cache.Get("abc"); found {
		t.Error("Get on nil db should miss")
	}
}
