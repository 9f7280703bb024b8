package main

import (
	"flag"

	"go-stocknote/internal/model"
	"go-stocknote/pkg/config"
	"go-stocknote/pkg/database"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Operational escape hatch: reset a user's password straight in the DB.
func main() {
	email := flag.String("email", "admin@example.com", "account to reset")
	password := flag.String("password", "admin123", "new password")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on system env")
	}
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	var user model.User
	if err := db.Where("email = ?", *email).First(&user).Error; err != nil {
		log.Fatal().Err(err).Str("email", *email).Msg("user not found")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}

	if err := db.Model(&user).Update("password", string(hashed)).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to update password")
	}

	log.Info().Str("email", *email).Msg("password reset")
}
