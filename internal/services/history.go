package services

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/tescaelements/mashgiach/backend/internal/models"
)

// DefaultHistoryLimit caps a history listing when the caller does not ask
// for a specific page size.
const DefaultHistoryLimit = 50

// HistoryService keeps the append-only scan ledger.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Add appends one verdict to the history and returns the stored row.
func (s *HistoryService) Add(verdict *models.Verdict, imageFile string) (*models.Scan, error) {
	details, err := json.Marshal(verdict)
	if err != nil {
		return nil, err
	}

	name := verdict.Product
	if name == "" {
		name = "Desconocido"
	}

	scan := models.Scan{
		CreatedAt:   time.Now(),
		ProductName: name,
		Status:      verdict.Status,
		Category:    verdict.Category,
		Details:     string(details),
		ImageFile:   imageFile,
	}
	if err := s.db.Create(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// List returns up to limit scans, most recent first.
func (s *HistoryService) List(limit int) ([]models.Scan, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var scans []models.Scan
	err := s.db.Order("id DESC").Limit(limit).Find(&scans).Error
	return scans, err
}

// Get returns one scan by id.
func (s *HistoryService) Get(id uint) (*models.Scan, error) {
	var scan models.Scan
	if err := s.db.First(&scan, id).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// SetFavorite flips the favorite flag on one scan.
func (s *HistoryService) SetFavorite(id uint, favorite bool) error {
	res := s.db.Model(&models.Scan{}).Where("id = ?", id).Update("is_favorite", favorite)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Remove deletes one scan. Returns the removed row so the caller can clean
// up its stored image.
func (s *HistoryService) Remove(id uint) (*models.Scan, error) {
	var scan models.Scan
	if err := s.db.First(&scan, id).Error; err != nil {
		return nil, err
	}
	if err := s.db.Delete(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// ClearAll wipes the history. The verdict cache is left alone: cached
// verdicts stay valid even when the user empties the ledger.
func (s *HistoryService) ClearAll() error {
	return s.db.Where("1 = 1").Delete(&models.Scan{}).Error
}

// Count reports the history size, for stats.
func (s *HistoryService) Count() int64 {
	var n int64
	s.db.Model(&models.Scan{}).Count(&n)
	return n
}
