package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ASTROLOGER = "astrologer"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

const apiKeyPrefix = "am_"

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email            string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Phone            string         `gorm:"type:varchar(20);index" json:"-" validate:"max=20"`
	Password         string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role             string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user astrologer admin"`
	Status           string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	ZodiacSign       string         `gorm:"type:varchar(20);default:null" json:"zodiac_sign"`
	APIKeyHash       string         `gorm:"type:varchar(64);default:'';index" json:"-"`
	APIKeyPrefix     string         `gorm:"type:varchar(16);default:''" json:"-"`
	APIKeyCreatedAt  *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	APIKeyRevokedAt  *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	APIKeyLastUsedAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt      *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(name string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_ACTIVE,
	}

	return u, u.Validate()
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// HasActiveAPIKey reports whether the user has an active API key configured
func (u *User) HasActiveAPIKey() bool {
	return u != nil && u.APIKeyHash != "" && u.APIKeyRevokedAt == nil
}

// IssueAPIKey generates a new API key, persists metadata on the struct, and returns the raw secret.
// Callers must persist the struct via the database after invoking this method.
func (u *User) IssueAPIKey() (string, error) {
	rawKey, prefix, hash, err := generateAPIKeyMaterial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	u.APIKeyHash = hash
	u.APIKeyPrefix = prefix
	u.APIKeyCreatedAt = &now
	u.APIKeyRevokedAt = nil
	u.APIKeyLastUsedAt = nil
	return rawKey, nil
}

// RevokeAPIKey clears the stored API key metadata without deleting the record.
func (u *User) RevokeAPIKey() {
	u.APIKeyHash = ""
	u.APIKeyPrefix = ""
	now := time.Now()
	u.APIKeyRevokedAt = &now
	u.APIKeyLastUsedAt = nil
}

// TouchAPIKeyUsage updates the last-used timestamp metadata.
func (u *User) TouchAPIKeyUsage() {
	now := time.Now()
	u.APIKeyLastUsedAt = &now
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func generateAPIKeyMaterial() (string, string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	encoded := strings.ToLower(apiKeyEncoding.EncodeToString(b))
	rawKey := apiKeyPrefix + encoded
	if len(rawKey) < 12 {
		return "", "", "", fmt.Errorf("api key generation failed: key too short")
	}
	prefix := rawKey[:min(len(rawKey), 16)]
	hash := HashAPIKey(rawKey)
	return rawKey, prefix, hash, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
