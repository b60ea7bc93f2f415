package dbhelper

import (
	"fmt"
	"os"
	"time"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// wardrobeModels are migrated in order, accounts first since the others reference them.
var wardrobeModels = []interface{}{
	&models.UserAccount{},
	&models.UserPushToken{},
	&models.ClothingItem{},
}

func databaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		services.GetEnv("DB_USERNAME", ""),
		services.GetEnv("DB_PASSWORD", ""),
		services.GetEnv("DB_HOST", "localhost"),
		services.GetEnv("DB_PORT", "5432"),
		services.GetEnv("DB_NAME", ""),
		services.GetEnv("DB_SSLMODE", "disable"),
	)
}

func logLevel() logger.LogLevel {
	switch services.GetEnv("DB_LOG_LEVEL", "info") {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	}
	return logger.Info
}

// SetupDB connects to the wardrobe database and brings the schema up to date.
func SetupDB() *gorm.DB {
	db, err := gorm.Open(postgres.Open(databaseURL()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel()),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	for _, model := range wardrobeModels {
		Migrate(db, model)
	}
	return db
}

func SetupTestDB() *gorm.DB {
	testEnv := map[string]string{
		"DB_USERNAME":    "wardrobe",
		"DB_PASSWORD":    "wardrobe",
		"DB_HOST":        "localhost",
		"DB_PORT":        "5432",
		"DB_NAME":        "wardrobe_test",
		"DB_LOG_LEVEL":   "warn",
		"JWT_SECRET":     "test-secret",
		"R2_BUCKET_NAME": "wardrobe-test",
	}
	for key, value := range testEnv {
		os.Setenv(key, value)
	}
	return SetupDB()
}
