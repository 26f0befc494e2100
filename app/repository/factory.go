package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// NewRepositories creates all repository implementations for the given handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Payment:   NewPaymentRepository(db),
		Wallet:    NewWalletRepository(db),
		Horoscope: NewHoroscopeRepository(db),
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetPaymentRepository returns the payment repository instance
func (f *Factory) GetPaymentRepository() PaymentRepository {
	return f.GetRepositories().Payment
}

// GetWalletRepository returns the wallet repository instance
func (f *Factory) GetWalletRepository() WalletRepository {
	return f.GetRepositories().Wallet
}

// GetHoroscopeRepository returns the horoscope repository instance
func (f *Factory) GetHoroscopeRepository() HoroscopeRepository {
	return f.GetRepositories().Horoscope
}

// Global factory instance
var globalFactory *Factory
var factoryMu sync.Mutex

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	globalFactory = NewFactory(db)
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
