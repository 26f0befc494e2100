package database

import (
	"fmt"
	"log"
	"time"

	"github.com/astromitra/astromitra/app/models"
	"github.com/astromitra/astromitra/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var db *gorm.DB

func SetupDatabase() {
	var err error
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		}), &gorm.Config{})
		if err == nil {
			db.AutoMigrate(
				&models.User{},
				&models.Wallet{},
				&models.WalletEntry{},
				&models.PaymentTransaction{},
				&models.ProcessedEvent{},
				&models.Horoscope{},
			)

			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// GetDB returns the shared database handle.
func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the shared database handle. Used by tests to inject an
// in-memory database.
func SetDB(handle *gorm.DB) {
	db = handle
}
