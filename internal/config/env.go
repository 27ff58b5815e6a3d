package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	ClientURL string

	DatabaseURL string
	JWTSecret   string

	AIAPIKey   string
	EmbedModel string
	GenModel   string

	DriveFolderID string
	// DriveCredentials holds the service account key as a JSON string.
	DriveCredentials string

	ChunkTargetWords  int
	ChunkOverlapWords int
	EmbedBatchSize    int
	EmbedBatchDelay   time.Duration
	RetrieveTopK      int
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:5173"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "default-secret-change-me"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		GenModel:   getEnv("GEN_MODEL", "gemini-2.0-flash"),

		DriveFolderID:    getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		DriveCredentials: getEnv("GOOGLE_SERVICE_ACCOUNT_CREDENTIALS", ""),

		ChunkTargetWords:  getEnvInt("CHUNK_TARGET_WORDS", 500),
		ChunkOverlapWords: getEnvInt("CHUNK_OVERLAP_WORDS", 100),
		EmbedBatchSize:    getEnvInt("EMBED_BATCH_SIZE", 5),
		EmbedBatchDelay:   time.Duration(getEnvInt("EMBED_BATCH_DELAY_MS", 500)) * time.Millisecond,
		RetrieveTopK:      getEnvInt("RETRIEVE_TOP_K", 5),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
