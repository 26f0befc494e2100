package repository

import (
	"github.com/astromitra/astromitra/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment transaction in the database
func (r *paymentRepository) Create(txn *models.PaymentTransaction) error {
	return r.db.Create(txn).Error
}

// Update persists changes to an existing payment transaction
func (r *paymentRepository) Update(txn *models.PaymentTransaction) error {
	return r.db.Save(txn).Error
}

// GetByID retrieves a payment transaction by its ID
func (r *paymentRepository) GetByID(id uint) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.First(&txn, id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetByProviderRef retrieves a transaction by its provider-side payment reference
func (r *paymentRepository) GetByProviderRef(provider, providerRef string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("provider = ? AND provider_ref = ?", provider, providerRef).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetByUserID retrieves a user's transactions, newest first
func (r *paymentRepository) GetByUserID(userID uint, offset, limit int) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&txns).Error
	return txns, err
}

// CountByUserID returns the number of transactions for a user
func (r *paymentRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PaymentTransaction{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
