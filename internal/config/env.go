package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	SslCertPath  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	OpenAIKey    string
	OpenAIURL    string
	GenModel     string
	SerperKey    string
	SerperURL    string
	JWTSecret    string
	LogMode      string
	Workers      int
	Port         string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "patient-files"),
		OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIURL:    getEnv("OPENAI_API_URL", "https://api.openai.com/v1"),
		GenModel:     getEnv("GEN_MODEL", "gpt-4-1106-preview"),
		SerperKey:    getEnv("SERPER_API_KEY", ""),
		SerperURL:    getEnv("SERPER_API_URL", "https://google.serper.dev/search"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		LogMode:      getEnv("LOG_MODE", "dev"),
		Workers:      getEnvInt("INGEST_WORKERS", 2),
		Port:         getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	// OPENAI_API_KEY is checked at request time (the chatbot answers 500 without it)
	// and SERPER_API_KEY degrades to an empty web context.

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
