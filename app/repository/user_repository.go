package repository

import (
	"strings"

	"github.com/astromitra/astromitra/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByAPIKeyHash resolves an active API key hash to its user.
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("api_key_hash = ? AND api_key_hash <> '' AND api_key_revoked_at IS NULL", trimmed).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update persists changes to an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// List retrieves users with pagination
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
