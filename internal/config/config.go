package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	API        APIConfig
	Generation GenerationConfig
	Queue      QueueConfig
	Worker     WorkerConfig
	RateLimit  RateLimitConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	Webhook    WebhookConfig
	Tracing    TracingConfig
	Log        LogConfig
}

// APIConfig.RateLimit bounds job create and start calls per caller. Zero
// disables it.
type APIConfig struct {
	Addr       string
	PresignTTL time.Duration
	RateLimit  int
	RateWindow time.Duration
}

type GenerationConfig struct {
	Addr              string
	APIKey            string
	Insecure          bool
	EngineID          string
	MaxFilenameLength int
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

// WorkerConfig.Sink selects where frames go: "object" writes to the
// storage bucket, "local" writes under LocalOutputDir.
type WorkerConfig struct {
	Concurrency    int
	Sink           string
	LocalOutputDir string
	MetricsAddr    string
}

// RateLimitConfig bounds outbound Generate calls per engine. A zero Limit
// disables the limiter.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DatabaseConfig struct {
	DSN string
}

type WebhookConfig struct {
	SigningSecret string
	Timeout       time.Duration
	MaxAttempts   int
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type LogConfig struct {
	Level       string
	Development bool
	File        string
}

// Load reads configuration from the environment, seeded from a .env file
// in the working directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return Config{
		API: APIConfig{
			Addr:       v.GetString("PIXELGEN_API_ADDR"),
			PresignTTL: v.GetDuration("PRESIGN_TTL"),
			RateLimit:  v.GetInt("API_RATE_LIMIT"),
			RateWindow: v.GetDuration("API_RATE_WINDOW"),
		},
		Generation: GenerationConfig{
			Addr:              v.GetString("GENERATION_ADDR"),
			APIKey:            v.GetString("GENERATION_API_KEY"),
			Insecure:          v.GetBool("GENERATION_INSECURE"),
			EngineID:          v.GetString("TRANSFORM_ENGINE_ID"),
			MaxFilenameLength: v.GetInt("MAX_FILENAME_SZ"),
		},
		Queue: QueueConfig{
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			Name:          v.GetString("ASYNC_QUEUE"),
		},
		Worker: WorkerConfig{
			Concurrency:    v.GetInt("WORKER_CONCURRENCY"),
			Sink:           strings.ToLower(v.GetString("WORKER_SINK")),
			LocalOutputDir: v.GetString("WORKER_LOCAL_OUTPUT_DIR"),
			MetricsAddr:    v.GetString("WORKER_METRICS_ADDR"),
		},
		RateLimit: RateLimitConfig{
			Limit:  v.GetInt("GENERATE_RATE_LIMIT"),
			Window: v.GetDuration("GENERATE_RATE_WINDOW"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("POSTGRES_DSN"),
		},
		Webhook: WebhookConfig{
			SigningSecret: v.GetString("WEBHOOK_SIGNING_SECRET"),
			Timeout:       v.GetDuration("WEBHOOK_TIMEOUT"),
			MaxAttempts:   v.GetInt("WEBHOOK_MAX_ATTEMPTS"),
		},
		Tracing: TracingConfig{
			Exporter:     v.GetString("TRACE_EXPORTER"),
			OTLPEndpoint: v.GetString("OTLP_ENDPOINT"),
			OTLPInsecure: v.GetBool("OTLP_INSECURE"),
		},
		Log: LogConfig{
			Level:       v.GetString("LOG_LEVEL"),
			Development: v.GetBool("LOG_DEVELOPMENT"),
			File:        v.GetString("LOG_FILE"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PIXELGEN_API_ADDR", ":8080")
	v.SetDefault("PRESIGN_TTL", 15*time.Minute)
	v.SetDefault("API_RATE_LIMIT", 0)
	v.SetDefault("API_RATE_WINDOW", time.Minute)

	v.SetDefault("GENERATION_ADDR", "grpc.stability.ai:443")
	v.SetDefault("GENERATION_API_KEY", "")
	v.SetDefault("GENERATION_INSECURE", false)
	v.SetDefault("TRANSFORM_ENGINE_ID", "transform-server-v1")
	v.SetDefault("MAX_FILENAME_SZ", 200)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ASYNC_QUEUE", "default")

	v.SetDefault("WORKER_CONCURRENCY", max(2, runtime.NumCPU()))
	v.SetDefault("WORKER_SINK", "object")
	v.SetDefault("WORKER_LOCAL_OUTPUT_DIR", "./.pixelgen-output")
	v.SetDefault("WORKER_METRICS_ADDR", ":9091")

	v.SetDefault("GENERATE_RATE_LIMIT", 0)
	v.SetDefault("GENERATE_RATE_WINDOW", time.Minute)

	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "pixelgen-animations")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("POSTGRES_DSN", "")

	v.SetDefault("WEBHOOK_SIGNING_SECRET", "")
	v.SetDefault("WEBHOOK_TIMEOUT", 10*time.Second)
	v.SetDefault("WEBHOOK_MAX_ATTEMPTS", 3)

	v.SetDefault("TRACE_EXPORTER", "none")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("LOG_FILE", "")
}
