package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Storage  StorageConfig
	Broker   BrokerConfig
	MQTT     MQTTConfig
	Log      LogConfig
	Training TrainingConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Port int
	// WriteTimeout must cover a full training run.
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// ReportTTL is how long an assembled report stays cached.
	ReportTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
}

// StorageConfig points at the S3-compatible bucket that archives uploads.
// An empty Endpoint disables archiving.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// BrokerConfig enables the RabbitMQ event publisher when URL is set.
type BrokerConfig struct {
	URL      string
	Exchange string
}

type MQTTConfig struct {
	BrokerURL   string
	Topic       string
	ClientID    string
	OwnerID     uint
	MetricsAddr string
}

type LogConfig struct {
	Path  string
	Level string
}

type TrainingConfig struct {
	Seed     uint64
	MinRows  int
	Trees    int
	MaxDepth int
}

type UploadConfig struct {
	MaxBytes      int64
	RatePerMinute int
	AllowedSuffix string
}

// LoadConfig reads the environment, after loading a .env file if one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	writeTimeout, err := getIntEnv("SERVER_WRITE_TIMEOUT_SEC", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SEC: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisEnabled, err := getBoolEnv("REDIS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ENABLED: %w", err)
	}
	reportTTL, err := getIntEnv("REPORT_CACHE_TTL_SEC", 600)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_CACHE_TTL_SEC: %w", err)
	}

	storageSSL, err := getBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("invalid S3_USE_SSL: %w", err)
	}

	mqttOwner, err := getIntEnv("MQTT_OWNER_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT_OWNER_ID: %w", err)
	}

	seed, err := getInt64Env("TRAINING_SEED", 42)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAINING_SEED: %w", err)
	}
	minRows, err := getIntEnv("TRAINING_MIN_ROWS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAINING_MIN_ROWS: %w", err)
	}
	trees, err := getIntEnv("TRAINING_TREES", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAINING_TREES: %w", err)
	}
	maxDepth, err := getIntEnv("TRAINING_MAX_DEPTH", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAINING_MAX_DEPTH: %w", err)
	}

	maxBytes, err := getInt64Env("UPLOAD_MAX_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %w", err)
	}
	rate, err := getIntEnv("UPLOAD_RATE_PER_MINUTE", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_RATE_PER_MINUTE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         serverPort,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "equiviz"),
			Password: getEnv("DB_PASSWORD", "equiviz_dev_password"),
			Name:     getEnv("DB_NAME", "equiviz"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
			ExpiryHours: jwtExpiry,
		},
		Redis: RedisConfig{
			Enabled:   redisEnabled,
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      redisPort,
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        redisDB,
			ReportTTL: time.Duration(reportTTL) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "equiviz-uploads"),
			UseSSL:    storageSSL,
		},
		Broker: BrokerConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "equiviz.analyses"),
		},
		MQTT: MQTTConfig{
			BrokerURL:   getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
			Topic:       getEnv("MQTT_TOPIC", "equiviz/uploads/+"),
			ClientID:    getEnv("MQTT_CLIENT_ID", ""),
			OwnerID:     uint(mqttOwner),
			MetricsAddr: getEnv("METRICS_ADDR", ":8081"),
		},
		Log: LogConfig{
			Path:  getEnv("LOG_PATH", "logs/app.log"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Training: TrainingConfig{
			Seed:     uint64(seed),
			MinRows:  minRows,
			Trees:    trees,
			MaxDepth: maxDepth,
		},
		Upload: UploadConfig{
			MaxBytes:      maxBytes,
			RatePerMinute: rate,
			AllowedSuffix: getEnv("UPLOAD_ALLOWED_SUFFIX", ".csv"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getInt64Env(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseInt(value, 10, 64)
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
