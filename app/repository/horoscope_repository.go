package repository

import (
	"github.com/astromitra/astromitra/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// horoscopeRepository implements the HoroscopeRepository interface
type horoscopeRepository struct {
	db *gorm.DB
}

// NewHoroscopeRepository creates a new horoscope repository instance
func NewHoroscopeRepository(db *gorm.DB) HoroscopeRepository {
	return &horoscopeRepository{db: db}
}

// Upsert creates or replaces the horoscope for (sign, for_date)
func (r *horoscopeRepository) Upsert(h *models.Horoscope) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "sign"},
			{Name: "for_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"content",
			"lucky_time",
			"mood",
			"updated_at",
		}),
	}).Create(h).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("sign = ? AND for_date = ?", h.Sign, h.ForDate).First(h).Error
}

// GetBySignAndDate retrieves one day of content for a sign
func (r *horoscopeRepository) GetBySignAndDate(sign, forDate string) (*models.Horoscope, error) {
	var h models.Horoscope
	err := r.db.Where("sign = ? AND for_date = ?", sign, forDate).First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}
