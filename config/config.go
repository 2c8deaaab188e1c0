package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values. It is built once
// at boot; there is no other ambient mutable state. Sensitive values must
// come from the environment or config file, never from code defaults.
type AppConfig struct {
	AppPort     string
	AdminSecret string
	BaseURL     string

	AllowedOrigins     []string
	RateLimitPerMinute int
	ChartPageSizeMax   int
	UploadMaxSizeMB    int

	// Gin framework configuration
	GinMode string
	GinPath string

	// MySQL
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis for chart caching
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// MinIO object storage for audio and artwork blobs
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	// SMTP for upload token delivery
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. Precedence:
// config/config.json -> defaults -> environment variable overrides.
// It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Optional .env for local development; real deployments use the
	// process environment.
	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.AdminSecret == "" {
		log.Fatal("ADMIN_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTesting overrides the cached configuration. Test helper only.
func SetForTesting(c AppConfig) {
	cfg = c
	loaded = true
}

// loadJSONConfig reads a grouped JSON file into out if present. A missing
// file is not an error; invalid JSON is.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(section, key string) string {
		if m, ok := raw[section]; ok {
			if s, ok := m[key].(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(section, key string) int {
		if m, ok := raw[section]; ok {
			if f, ok := m[key].(float64); ok {
				return int(f)
			}
		}
		return 0
	}
	getBool := func(section, key string) bool {
		if m, ok := raw[section]; ok {
			if b, ok := m[key].(bool); ok {
				return b
			}
		}
		return false
	}

	out.AppPort = getString("app", "AppPort")
	out.AdminSecret = getString("app", "AdminSecret")
	out.BaseURL = getString("app", "BaseURL")
	if v := getInt("app", "RateLimitPerMinute"); v != 0 {
		out.RateLimitPerMinute = v
	}
	if v := getInt("app", "ChartPageSizeMax"); v != 0 {
		out.ChartPageSizeMax = v
	}
	if v := getInt("app", "UploadMaxSizeMB"); v != 0 {
		out.UploadMaxSizeMB = v
	}
	if m, ok := raw["app"]; ok {
		if arr, ok := m["AllowedOrigins"].([]any); ok {
			for _, it := range arr {
				if s, ok := it.(string); ok {
					out.AllowedOrigins = append(out.AllowedOrigins, s)
				}
			}
		}
	}

	if v := getString("gin", "Mode"); v != "" {
		out.GinMode = v
	}
	if v := getString("gin", "LogPath"); v != "" {
		out.GinPath = v
	}

	out.DatabaseURI = getString("database", "DatabaseURI")
	out.DBHost = getString("database", "DBHost")
	out.DBPort = getString("database", "DBPort")
	out.DBUser = getString("database", "DBUser")
	out.DBPassword = getString("database", "DBPassword")
	out.DBName = getString("database", "DBName")

	out.RedisHost = getString("redis", "RedisHost")
	if v := getInt("redis", "RedisPort"); v != 0 {
		out.RedisPort = v
	}
	if v := getInt("redis", "RedisDB"); v != 0 {
		out.RedisDB = v
	}
	out.RedisPassword = getString("redis", "RedisPassword")

	out.MinioEndpoint = getString("minio", "Endpoint")
	out.MinioAccessKey = getString("minio", "AccessKey")
	out.MinioSecretKey = getString("minio", "SecretKey")
	out.MinioBucket = getString("minio", "Bucket")
	out.MinioUseSSL = getBool("minio", "UseSSL")
	out.MinioPublicURL = getString("minio", "PublicURL")

	out.SMTPHost = getString("smtp", "SMTPHost")
	if v := getInt("smtp", "SMTPPort"); v != 0 {
		out.SMTPPort = v
	}
	out.SMTPUsername = getString("smtp", "SMTPUsername")
	out.SMTPPassword = getString("smtp", "SMTPPassword")
	out.SMTPFrom = getString("smtp", "SMTPFrom")
	out.SMTPFromName = getString("smtp", "SMTPFromName")

	if v := getString("log", "Level"); v != "" {
		out.LogLevel = v
	}
	if v := getString("log", "Path"); v != "" {
		out.LogPath = v
	}
	if v := getInt("log", "MaxSizeMB"); v != 0 {
		out.LogMaxSizeMB = v
	}
	if v := getInt("log", "MaxBackups"); v != 0 {
		out.LogMaxBackups = v
	}
	if v := getInt("log", "MaxAgeDays"); v != 0 {
		out.LogMaxAgeDays = v
	}
	out.LogCompress = getBool("log", "Compress")

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.ChartPageSizeMax == 0 {
		c.ChartPageSizeMax = 50
	}
	if c.UploadMaxSizeMB == 0 {
		c.UploadMaxSizeMB = 50
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.AppPort
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "beatchart"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.MinioEndpoint == "" {
		c.MinioEndpoint = "127.0.0.1:9000"
	}
	if c.MinioBucket == "" {
		c.MinioBucket = "beatchart"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values
// when present.
func applyEnvOverrides(c *AppConfig) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = mustParseInt(key, v)
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true"
		}
	}

	setString(&c.AppPort, "APP_PORT")
	setString(&c.AdminSecret, "ADMIN_SECRET")
	setString(&c.BaseURL, "BASE_URL")
	setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setInt(&c.ChartPageSizeMax, "CHART_PAGE_SIZE_MAX")
	setInt(&c.UploadMaxSizeMB, "UPLOAD_MAX_SIZE_MB")
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	setString(&c.GinMode, "GIN_MODE")
	setString(&c.GinPath, "GIN_PATH")

	setString(&c.DatabaseURI, "DATABASE_URI")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")

	setString(&c.RedisHost, "REDIS_HOST")
	setInt(&c.RedisPort, "REDIS_PORT")
	setInt(&c.RedisDB, "REDIS_DB")
	setString(&c.RedisPassword, "REDIS_PASSWORD")

	setString(&c.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&c.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&c.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&c.MinioBucket, "MINIO_BUCKET")
	setBool(&c.MinioUseSSL, "MINIO_USE_SSL")
	setString(&c.MinioPublicURL, "MINIO_PUBLIC_URL")

	setString(&c.SMTPHost, "SMTP_HOST")
	setInt(&c.SMTPPort, "SMTP_PORT")
	setString(&c.SMTPUsername, "SMTP_USERNAME")
	setString(&c.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.SMTPFrom, "SMTP_FROM")
	setString(&c.SMTPFromName, "SMTP_FROM_NAME")

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogPath, "LOG_PATH")
	setInt(&c.LogMaxSizeMB, "LOG_MAX_SIZE_MB")
	setInt(&c.LogMaxBackups, "LOG_MAX_BACKUPS")
	setInt(&c.LogMaxAgeDays, "LOG_MAX_AGE_DAYS")
	setBool(&c.LogCompress, "LOG_COMPRESS")
}

func mustParseInt(key, val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s for %s: %v", val, key, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
