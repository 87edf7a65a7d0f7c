package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mamatcyber90/crypti/src/core/config"
	"github.com/mamatcyber90/crypti/src/core/models"
)

// Connect opens the postgres database described by the DB_* environment
// variables. The handle is returned rather than stored in a package global so
// the registry receives it as an explicit dependency.
func Connect() (*gorm.DB, error) {
	host := config.Config("DB_HOST")
	port := config.Config("DB_PORT")
	user := config.Config("DB_USER")
	password := config.Config("DB_PASSWORD")
	dbname := config.Config("DB_NAME")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Disable automatic statement caching in GORM
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate creates the registry tables when they do not exist: dapps, tags and
// the tags_refs association table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Dapp{}, &models.Tag{}, &models.TagRef{})
}
