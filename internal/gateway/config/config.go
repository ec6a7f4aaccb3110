// Package config resolves gateway settings from the environment, an optional
// .env file, and flags. Every knob has a production default; mock backends
// (fake LLM, mock parser, memory warehouse) are opt-in and never substituted
// silently.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	Env       string
	Gemini    GeminiConfig
	DocAI     DocAIConfig
	Warehouse WarehouseConfig
	Staging   StagingConfig
	LLM       LLMConfig
}

// GeminiConfig selects the language model. Fake swaps in the deterministic
// offline client.
type GeminiConfig struct {
	APIKey string
	Model  string
	Fake   bool
}

// DocAIConfig selects the document parser. Mock swaps in canned statements
// keyed by filename.
type DocAIConfig struct {
	APIKey string
	Mock   bool
}

// WarehouseConfig selects the metric warehouse backend and the namespace
// deployments report.
type WarehouseConfig struct {
	Backend  string
	DSN      string
	Path     string
	Database string
	Schema   string
}

// StagingConfig selects where uploads and parsed markdown are staged: a
// local directory by default, an S3-compatible bucket when an endpoint is
// configured.
type StagingConfig struct {
	Dir       string
	S3        bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LLMConfig tunes the resilient chain. Zero values keep the chain's own
// defaults (2s spacing, 3 attempts, 3s backoff base).
type LLMConfig struct {
	MinInterval time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:      *port,
		Env:       env,
		Gemini:    loadGeminiConfig(),
		DocAI:     loadDocAIConfig(),
		Warehouse: loadWarehouseConfig(),
		Staging:   loadStagingConfig(env),
		LLM:       loadLLMConfig(),
	}
	if !cfg.Gemini.Fake && cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required unless LLM_FAKE is set")
	}
	if !cfg.DocAI.Mock && cfg.DocAI.APIKey == "" {
		return nil, fmt.Errorf("LANDINGAI_API_KEY is required unless DOCAI_MOCK is set")
	}
	return cfg, nil
}

func loadGeminiConfig() GeminiConfig {
	return GeminiConfig{
		APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:  firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.0-flash"),
		Fake:   boolEnv("LLM_FAKE"),
	}
}

func loadDocAIConfig() DocAIConfig {
	return DocAIConfig{
		APIKey: strings.TrimSpace(os.Getenv("LANDINGAI_API_KEY")),
		Mock:   boolEnv("DOCAI_MOCK"),
	}
}

func loadWarehouseConfig() WarehouseConfig {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("WAREHOUSE_BACKEND")))
	dsn := strings.TrimSpace(os.Getenv("WAREHOUSE_DSN"))
	if backend == "" {
		if dsn != "" {
			backend = "postgres"
		} else {
			backend = "sqlite"
		}
	}
	return WarehouseConfig{
		Backend:  backend,
		DSN:      dsn,
		Path:     firstNonEmpty(strings.TrimSpace(os.Getenv("WAREHOUSE_SQLITE_PATH")), filepath.Join("tmp", "financeflow.db")),
		Database: firstNonEmpty(strings.TrimSpace(os.Getenv("WAREHOUSE_DATABASE")), "FINANCIAL_DATA"),
		Schema:   firstNonEmpty(strings.TrimSpace(os.Getenv("WAREHOUSE_SCHEMA")), "PUBLIC"),
	}
}

func loadStagingConfig(env string) StagingConfig {
	endpoint := resolveStagingEndpoint(env)
	return StagingConfig{
		Dir:       firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_DIR")), "uploads"),
		S3:        endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("STAGING_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("STAGING_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("STAGING_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("STAGING_S3_BUCKET")), "financeflow-staging"),
		UseSSL:    resolveStagingUseSSL(env),
	}
}

func resolveStagingEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("STAGING_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("STAGING_S3_ENDPOINT"))
}

func resolveStagingUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("STAGING_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func loadLLMConfig() LLMConfig {
	return LLMConfig{
		MinInterval: msEnv("LLM_MIN_INTERVAL_MS"),
		MaxAttempts: intEnv("LLM_MAX_ATTEMPTS"),
		BackoffBase: msEnv("LLM_BACKOFF_MS"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func boolEnv(key string) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}

func intEnv(key string) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func msEnv(key string) time.Duration {
	n := intEnv(key)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}
