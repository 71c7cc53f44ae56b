package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Media   MediaConfig   `mapstructure:"media"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig describes the S3-compatible object store.
// Type is one of "s3", "r2", "s3compatible" or "minio"; empty means auto-detect from Endpoint.
type StorageConfig struct {
	Type            string `mapstructure:"type"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	PathStyle       bool   `mapstructure:"path_style"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
	EnsureBucket    bool   `mapstructure:"ensure_bucket"`
}

type MediaConfig struct {
	UploadURLExpiry   time.Duration `mapstructure:"upload_url_expiry"`
	DownloadURLExpiry time.Duration `mapstructure:"download_url_expiry"`
	ListDefaultLimit  int           `mapstructure:"list_default_limit"`
	ListMaxLimit      int           `mapstructure:"list_max_limit"`
	DeleteBatchMax    int           `mapstructure:"delete_batch_max"`
}

// AuthConfig enables bearer token verification when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Missing returns the names of required storage settings that are empty.
// An incomplete configuration is not fatal at startup; store calls fail instead.
func (c *StorageConfig) Missing() []string {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "storage.endpoint")
	}
	if c.Bucket == "" {
		missing = append(missing, "storage.bucket")
	}
	if c.AccessKeyID == "" {
		missing = append(missing, "storage.access_key_id")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "storage.secret_access_key")
	}
	return missing
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	v.BindEnv("storage.region", "STORAGE_REGION")
	v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	v.BindEnv("server.port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("storage.type", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.path_style", true)
	v.SetDefault("storage.max_attempts", 3)
	v.SetDefault("storage.ensure_bucket", false)
	v.SetDefault("media.upload_url_expiry", 5*time.Minute)
	v.SetDefault("media.download_url_expiry", 24*time.Hour)
	v.SetDefault("media.list_default_limit", 100)
	v.SetDefault("media.list_max_limit", 1000)
	v.SetDefault("media.delete_batch_max", 1000)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
