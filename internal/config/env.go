package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Mode        string
	JWTSecret   string

	AwsAccessKey  string
	AwsSecretKey  string
	AwsRegion     string
	AwsEndpoint   string
	BucketName    string
	PresignTTLSec int

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int

	TokenizerEncoding string
	ChunkMaxTokens    int
	ChunkMinTokens    int
	ChunkOverlap      int

	CoreBaseURL      string
	CoreBridgeToken  string
	SyncPollInterval int
	SyncMaxRetries   int
}

// LoadConfig reads environment variables (optionally from a .env file) and
// returns the service configuration. Missing required values are fatal.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Mode:        getEnv("APP_MODE", "dev"),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		AwsAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:  getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:     getEnv("AWS_REGION", "us-east-1"),
		AwsEndpoint:   getEnv("AWS_S3_ENDPOINT_URL", ""), // set for MinIO
		BucketName:    getEnv("BUCKET_NAME", "qanun-files"),
		PresignTTLSec: getEnvInt("PRESIGN_TTL_SEC", 3600),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),

		TokenizerEncoding: getEnv("TOKENIZER_ENCODING", "cl100k_base"),
		ChunkMaxTokens:    getEnvInt("CHUNK_MAX_TOKENS", 900),
		ChunkMinTokens:    getEnvInt("CHUNK_MIN_TOKENS", 700),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 100),

		CoreBaseURL:      getEnv("CORE_BASE_URL", ""),
		CoreBridgeToken:  getEnv("CORE_BRIDGE_TOKEN", ""),
		SyncPollInterval: getEnvInt("SYNC_POLL_INTERVAL_SEC", 30),
		SyncMaxRetries:   getEnvInt("SYNC_MAX_RETRIES", 3),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
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
