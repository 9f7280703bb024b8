package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	AppName string
	Port    string

	// PostgreSQL configuration. DATABASE_URL wins when set.
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	TokenTTLHours int
}

// Load reads configuration from the environment with sane defaults.
// main loads a .env file first (godotenv), so both sources end up here.
func Load() Config {
	viper.AutomaticEnv()

	viper.SetDefault("APP_NAME", "stocknote-api")
	viper.SetDefault("PORT", "3000")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "stocknote")
	viper.SetDefault("DB_PASSWORD", "stocknote")
	viper.SetDefault("DB_NAME", "stocknote_db")
	viper.SetDefault("DB_SSL_MODE", "disable")

	viper.SetDefault("TOKEN_TTL_HOURS", 24)

	return Config{
		AppName:       viper.GetString("APP_NAME"),
		Port:          viper.GetString("PORT"),
		DatabaseURL:   viper.GetString("DATABASE_URL"),
		DBHost:        viper.GetString("DB_HOST"),
		DBPort:        viper.GetString("DB_PORT"),
		DBUser:        viper.GetString("DB_USER"),
		DBPassword:    viper.GetString("DB_PASSWORD"),
		DBName:        viper.GetString("DB_NAME"),
		DBSSLMode:     viper.GetString("DB_SSL_MODE"),
		TokenTTLHours: viper.GetInt("TOKEN_TTL_HOURS"),
	}
}
