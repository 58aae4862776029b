package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort     int
	MaxUploadMB int

	// Storage
	StorageDriver string // "local" or "ftp"
	StorageRoot   string
	FTPHost       string
	FTPPort       int
	FTPUser       string
	FTPPassword   string
	FTPPath       string

	// Default per-user storage quota in bytes
	DefaultStorageLimit int64
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a hostname-based approach if crypto/rand fails
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// JWT Secret - generate random if not provided
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateSecureSecret(32) // 64 character hex string
		log.Println("WARNING: JWT_SECRET not set - generated random secret. Sessions will not persist across restarts.")
	}

	// Database password - warn if using default
	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	// Redis password - warn if using default
	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	storageDriver := getEnv("STORAGE_DRIVER", "local")
	if storageDriver == "ftp" && getEnv("FTP_HOST", "") == "" {
		log.Println("WARNING: STORAGE_DRIVER=ftp but FTP_HOST not set - falling back to local storage")
		storageDriver = "local"
	}

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "driveon"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "driveon"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,

		// JWT
		JWTSecret:      jwtSecret,
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168), // 7 days default

		// API
		APIPort:     getEnvInt("API_PORT", 8080),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 100),

		// Storage
		StorageDriver: storageDriver,
		StorageRoot:   getEnv("STORAGE_ROOT", "/app/uploads"),
		FTPHost:       getEnv("FTP_HOST", ""),
		FTPPort:       getEnvInt("FTP_PORT", 21),
		FTPUser:       getEnv("FTP_USER", "anonymous"),
		FTPPassword:   getEnv("FTP_PASSWORD", ""),
		FTPPath:       getEnv("FTP_PATH", "/driveon"),

		// 10 GiB default quota
		DefaultStorageLimit: getEnvInt64("DEFAULT_STORAGE_LIMIT", 10*1024*1024*1024),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
