package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	GeoIPDBPath        string
	CORSAllowedOrigins []string
	MaxUploadBytes     int64

	PromptProvider   string
	PromptFallback   bool
	ImageProvider    string
	GeminiAPIKey     string
	GeminiImageModel string
	GeminiTextModel  string
	GeminiBaseURL    string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAIOrg        string

	SynthMaxAttempts int
	SynthBackoff     time.Duration
	SynthMinInterval time.Duration

	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageBackend    string
	StoragePath       string
	S3Bucket          string
	S3Prefix          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	WorkerConcurrency int
	WorkerJobsPerMin  int
	JobMaxAttempts    int
	JobRetryBase      time.Duration
	JobLease          time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

const (
	PromptProviderOpenAI = "openai"
	PromptProviderGemini = "gemini"
	PromptProviderStatic = "static"

	ImageProviderGemini    = "gemini"
	ImageProviderSynthetic = "synthetic"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"

	StorageBackendFS = "fs"
	StorageBackendS3 = "s3"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,

		PromptProvider:   strings.ToLower(getEnv("PROMPT_PROVIDER", PromptProviderOpenAI)),
		PromptFallback:   getEnvBool("PROMPT_FALLBACK", false),
		ImageProvider:    strings.ToLower(getEnv("IMAGE_PROVIDER", ImageProviderGemini)),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:    os.Getenv("GEMINI_BASE_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:        os.Getenv("OPENAI_ORG"),

		SynthMaxAttempts: getEnvInt("SYNTH_MAX_ATTEMPTS", 3),
		SynthBackoff:     time.Millisecond * time.Duration(getEnvInt("SYNTH_BACKOFF_MS", 2000)),
		SynthMinInterval: time.Millisecond * time.Duration(getEnvInt("SYNTH_MIN_INTERVAL_MS", 1000)),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		CacheTTL:      time.Minute * time.Duration(getEnvInt("CACHE_TTL_MINUTES", 30)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageBackend:    strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendFS)),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Prefix:          os.Getenv("S3_PREFIX"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerJobsPerMin:  getEnvInt("WORKER_JOBS_PER_MINUTE", 6),
		JobMaxAttempts:    getEnvInt("JOB_MAX_ATTEMPTS", 3),
		JobRetryBase:      time.Second * time.Duration(getEnvInt("JOB_RETRY_BASE_SECONDS", 30)),
		JobLease:          time.Second * time.Duration(getEnvInt("JOB_LEASE_SECONDS", 600)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.PromptProvider {
	case PromptProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.DatabaseURL == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for PROMPT_PROVIDER=%s", c.PromptProvider)
		}
	case PromptProviderGemini:
		if c.GeminiAPIKey == "" && c.DatabaseURL == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for PROMPT_PROVIDER=%s", c.PromptProvider)
		}
	case PromptProviderStatic:
	default:
		return fmt.Errorf("unsupported PROMPT_PROVIDER %q", c.PromptProvider)
	}

	switch c.ImageProvider {
	case ImageProviderGemini:
		if c.GeminiAPIKey == "" && c.DatabaseURL == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for IMAGE_PROVIDER=%s", c.ImageProvider)
		}
	case ImageProviderSynthetic:
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.ImageProvider)
	}

	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.StorageBackend {
	case StorageBackendFS:
	case StorageBackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.SynthMaxAttempts < 1 {
		c.SynthMaxAttempts = 1
	}
	if c.WorkerConcurrency < 1 {
		c.WorkerConcurrency = 1
	}
	if c.JobMaxAttempts < 1 {
		c.JobMaxAttempts = 1
	}
	return nil
}

// RequireDatabase is used by binaries that cannot run without PostgreSQL.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
