package repository

import (
	"github.com/astromitra/astromitra/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// PaymentRepository defines the interface for payment-transaction database operations
type PaymentRepository interface {
	Create(txn *models.PaymentTransaction) error
	Update(txn *models.PaymentTransaction) error
	GetByID(id uint) (*models.PaymentTransaction, error)
	GetByProviderRef(provider, providerRef string) (*models.PaymentTransaction, error)
	GetByUserID(userID uint, offset, limit int) ([]models.PaymentTransaction, error)
	CountByUserID(userID uint) (int64, error)
}

// WalletRepository defines the interface for wallet database operations
type WalletRepository interface {
	GetOrCreate(userID uint) (*models.Wallet, error)
	GetByUserID(userID uint) (*models.Wallet, error)
	Credit(userID uint, amount int64, currency, reason string, transactionID *uint) error
	Debit(userID uint, amount int64, currency, reason string, transactionID *uint) error
	ListEntries(userID uint, offset, limit int) ([]models.WalletEntry, error)
	CountEntries(userID uint) (int64, error)
}

// HoroscopeRepository defines the interface for zodiac content database operations
type HoroscopeRepository interface {
	Upsert(h *models.Horoscope) error
	GetBySignAndDate(sign, forDate string) (*models.Horoscope, error)
}

// Repositories bundles all repository implementations
type Repositories struct {
	User      UserRepository
	Payment   PaymentRepository
	Wallet    WalletRepository
	Horoscope HoroscopeRepository
}
