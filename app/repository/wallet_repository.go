package repository

import (
	"github.com/astromitra/astromitra/app/models"
	"github.com/astromitra/astromitra/internal/pkg/payments"
	"gorm.io/gorm"
)

// walletRepository implements the WalletRepository interface
type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository instance
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

// GetOrCreate returns the user's wallet, creating an empty one if needed
func (r *walletRepository) GetOrCreate(userID uint) (*models.Wallet, error) {
	wallet := models.Wallet{UserID: userID}
	if err := r.db.Where("user_id = ?", userID).FirstOrCreate(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetByUserID retrieves a wallet by user ID
func (r *walletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Credit atomically increases the wallet balance and records a ledger entry
func (r *walletRepository) Credit(userID uint, amount int64, currency, reason string, transactionID *uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return payments.CreditWallet(tx, userID, amount, currency, reason, transactionID)
	})
}

// Debit atomically decreases the wallet balance and records a ledger entry.
// Returns payments.ErrInsufficientBalance when the wallet cannot cover it.
func (r *walletRepository) Debit(userID uint, amount int64, currency, reason string, transactionID *uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return payments.DebitWallet(tx, userID, amount, currency, reason, transactionID)
	})
}

// ListEntries retrieves wallet ledger entries, newest first
func (r *walletRepository) ListEntries(userID uint, offset, limit int) ([]models.WalletEntry, error) {
	var entries []models.WalletEntry
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

// CountEntries returns the number of ledger entries for a user
func (r *walletRepository) CountEntries(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.WalletEntry{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
