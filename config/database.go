package config

import (
	"log"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the identity datastore handle. It stays nil when the identity source is
// a users JSON file rather than a MySQL DSN.
var DB *gorm.DB

// IsDSN reports whether the identity source looks like a MySQL DSN rather than
// a filesystem path.
func IsDSN(source string) bool {
	return strings.Contains(source, "@tcp(") || strings.Contains(source, "@unix(")
}

// InitIdentityDB connects to the identity datastore when source is a DSN.
func InitIdentityDB(source string) {
	if !IsDSN(source) {
		log.Println("Identity provider source is a file path, skipping database connection")
		return
	}

	gormConfig := &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			logger.Config{LogLevel: logger.Warn},
		),
	}

	db, err := gorm.Open(mysql.Open(source), gormConfig)
	if err != nil {
		log.Fatal("Failed to connect to identity database:", err)
	}
	DB = db

	log.Println("Identity database connected successfully")
}
