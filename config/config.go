package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Addr       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	MongoURI   string
	MongoDB    string
	JWTSecret  string
	LogFile    string

	// Wager policy. Amounts are in minor currency units.
	MinEntryFee        int64
	MaxEntryFee        int64
	PlatformFeePercent int
}

func LoadConfig() *Config {
	return &Config{
		Addr:       getEnv("ADDR", ":8000"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "blockclash"),
		MongoURI:   getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGODB_NAME", "blockclash"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		LogFile:    getEnv("LOG_FILE", "app.log"),

		MinEntryFee:        getEnvInt64("MIN_ENTRY_FEE", 100),
		MaxEntryFee:        getEnvInt64("MAX_ENTRY_FEE", 100000),
		PlatformFeePercent: int(getEnvInt64("PLATFORM_FEE_PERCENT", 15)),
	}
}

// getEnv reads an environment variable and returns its value or a default value
func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = defaultValue
		log.Printf("Environment variable %s not set, using default value: %s", key, defaultValue)
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Environment variable %s is not a number, using default value: %d", key, defaultValue)
		return defaultValue
	}
	return n
}
