package common

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	FabricConfig string
	Channel      string
	Chaincode    string
	MSP          string
	CertPath     string
	KeyPath      string
	JWTSecret    string
	AuthRequired bool
	DB           DBConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func LoadConfig() *Config {
	// A local .env overrides nothing already set in the environment.
	godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8080"),
		FabricConfig: getEnv("FABRIC_CONFIG", "connection-profile.yaml"),
		Channel:      getEnv("CHANNEL_NAME", "channel"),
		Chaincode:    getEnv("CHAINCODE_NAME", "asset-core"),
		MSP:          getEnv("MSP_ID", "Org1MSP"),
		CertPath:     getEnv("CERT_PATH", ""),
		KeyPath:      getEnv("KEY_PATH", ""),
		JWTSecret:    getEnv("JWT_SECRET", "super-secret-key-change-me"),
		AuthRequired: getEnvBool("AUTH_REQUIRED", false),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "assetledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
