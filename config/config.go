package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	SiteURL            string
	PageSize           int
	IndexCacheSeconds  int
	SessionCookieName  string
	SessionTTLHours    int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// Redis for caching and token stores; empty host keeps everything in memory
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// SMTP for password reset mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	// OAuth sign-in
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	// Registration security
	RegisterCaptchaEnabled        bool
	RegisterMaxPerIPPerDay        int
	RegisterAttemptCooldownSec    int
	RegisterFailedMaxPerIPPerHour int
	RegisterTempBanMinutes        int
	// Kafka delivery of outbox events; no brokers means log-only delivery
	KafkaBrokers []string
	KafkaTopic   string
	// Uploaded media
	MediaRoot               string
	MediaMaxUploadMB        int
	MediaCleanupMinutes     int
	MediaOrphanGraceMinutes int
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: config/config.json (or config.yaml) -> defaults -> .env -> environment variables
	var c AppConfig
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &c); err != nil {
		log.Printf("invalid config/config.json: %v", err)
	}
	if err := loadYAMLConfig(filepath.Join("config", "config.yaml"), &c); err != nil {
		log.Printf("invalid config/config.yaml: %v", err)
	}

	applyDefaults(&c)

	// godotenv never overrides variables already present in the process environment
	_ = godotenv.Load()
	applyEnvOverrides(&c)
	clampLimits(&c)

	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		c := cfg
		mu.RUnlock()
		return c
	}
	mu.RUnlock()
	return Load()
}

// Set installs c as the active configuration without reading files or the environment.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Default returns a configuration populated only with defaults.
func Default() AppConfig {
	var c AppConfig
	applyDefaults(&c)
	return c
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	applyRaw(raw, out)
	return nil
}

// loadYAMLConfig reads the same grouped layout from YAML.
func loadYAMLConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return err
	}
	applyRaw(raw, out)
	return nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case int64:
			return int(t)
		case json.Number:
			i, _ := t.Int64()
			return int(i)
		case string:
			i, _ := strconv.Atoi(t)
			return i
		}
	}
	return 0
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getStringSlice(m map[string]any, key string) []string {
	if v, ok := m[key]; ok {
		if arr, ok := v.([]any); ok {
			res := make([]string, 0, len(arr))
			for _, it := range arr {
				if s, ok := it.(string); ok {
					res = append(res, s)
				}
			}
			return res
		}
	}
	return nil
}

func section(raw map[string]any, name string) (map[string]any, bool) {
	m, ok := raw[name].(map[string]any)
	return m, ok
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyRaw maps grouped sections first and falls back to flat keys for anything still unset.
func applyRaw(raw map[string]any, out *AppConfig) {
	if app, ok := section(raw, "app"); ok {
		setString(&out.AppPort, getString(app, "AppPort"))
		setString(&out.JWTSecret, getString(app, "JWTSecret"))
		setInt(&out.RateLimitPerMinute, getInt(app, "RateLimitPerMinute"))
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if site, ok := section(raw, "site"); ok {
		setString(&out.SiteURL, getString(site, "SiteURL"))
		setInt(&out.PageSize, getInt(site, "PageSize"))
		setInt(&out.IndexCacheSeconds, getInt(site, "IndexCacheSeconds"))
		setString(&out.SessionCookieName, getString(site, "SessionCookieName"))
		setInt(&out.SessionTTLHours, getInt(site, "SessionTTLHours"))
	}

	if g, ok := section(raw, "gin"); ok {
		setString(&out.GinMode, getString(g, "Mode"))
		setString(&out.GinPath, getString(g, "LogPath"))
	}

	if dbs, ok := section(raw, "database"); ok {
		setString(&out.DBDriver, getString(dbs, "DBDriver"))
		setString(&out.DatabaseURI, getString(dbs, "DatabaseURI"))
		setString(&out.DBHost, getString(dbs, "DBHost"))
		setString(&out.DBPort, getString(dbs, "DBPort"))
		setString(&out.DBUser, getString(dbs, "DBUser"))
		setString(&out.DBPassword, getString(dbs, "DBPassword"))
		setString(&out.DBName, getString(dbs, "DBName"))
		setString(&out.DBSSLMode, getString(dbs, "DBSSLMode"))
	}

	if rds, ok := section(raw, "redis"); ok {
		setString(&out.RedisHost, getString(rds, "RedisHost"))
		setInt(&out.RedisPort, getInt(rds, "RedisPort"))
		setInt(&out.RedisDB, getInt(rds, "RedisDB"))
		setString(&out.RedisPassword, getString(rds, "RedisPassword"))
	}

	if lg, ok := section(raw, "log"); ok {
		setString(&out.LogLevel, getString(lg, "Level"))
		setString(&out.LogPath, getString(lg, "Path"))
		setString(&out.GinMode, getString(lg, "GinMode"))
		setString(&out.GinPath, getString(lg, "GinPath"))
		setInt(&out.LogMaxSizeMB, getInt(lg, "MaxSizeMB"))
		setInt(&out.LogMaxBackups, getInt(lg, "MaxBackups"))
		setInt(&out.LogMaxAgeDays, getInt(lg, "MaxAgeDays"))
		out.LogCompress = getBool(lg, "Compress")
	}

	if sm, ok := section(raw, "smtp"); ok {
		setString(&out.SMTPHost, getString(sm, "SMTPHost"))
		setInt(&out.SMTPPort, getInt(sm, "SMTPPort"))
		setString(&out.SMTPUsername, getString(sm, "SMTPUsername"))
		setString(&out.SMTPPassword, getString(sm, "SMTPPassword"))
		setString(&out.SMTPFrom, getString(sm, "SMTPFrom"))
		setString(&out.SMTPFromName, getString(sm, "SMTPFromName"))
	}

	if oa, ok := section(raw, "oauth"); ok {
		setString(&out.GitHubClientID, getString(oa, "GitHubClientID"))
		setString(&out.GitHubClientSecret, getString(oa, "GitHubClientSecret"))
		setString(&out.GoogleClientID, getString(oa, "GoogleClientID"))
		setString(&out.GoogleClientSecret, getString(oa, "GoogleClientSecret"))
		setString(&out.OAuthRedirectBase, getString(oa, "OAuthRedirectBase"))
	}

	if rg, ok := section(raw, "register"); ok {
		out.RegisterCaptchaEnabled = getBool(rg, "CaptchaEnabled")
		setInt(&out.RegisterMaxPerIPPerDay, getInt(rg, "MaxPerIPPerDay"))
		setInt(&out.RegisterAttemptCooldownSec, getInt(rg, "AttemptCooldownSec"))
		setInt(&out.RegisterFailedMaxPerIPPerHour, getInt(rg, "FailedMaxPerIPPerHour"))
		setInt(&out.RegisterTempBanMinutes, getInt(rg, "TempBanMinutes"))
	}

	if kf, ok := section(raw, "kafka"); ok {
		if list := getStringSlice(kf, "Brokers"); len(list) > 0 {
			out.KafkaBrokers = list
		}
		setString(&out.KafkaTopic, getString(kf, "Topic"))
	}

	if md, ok := section(raw, "media"); ok {
		setString(&out.MediaRoot, getString(md, "Root"))
		setInt(&out.MediaMaxUploadMB, getInt(md, "MaxUploadMB"))
		setInt(&out.MediaCleanupMinutes, getInt(md, "CleanupMinutes"))
		setInt(&out.MediaOrphanGraceMinutes, getInt(md, "OrphanGraceMinutes"))
	}

	// Flat keys for backward compatibility
	if out.AppPort == "" {
		out.AppPort = getString(raw, "AppPort")
	}
	if out.JWTSecret == "" {
		out.JWTSecret = getString(raw, "JWTSecret")
	}
	if out.GinMode == "" {
		out.GinMode = getString(raw, "GinMode")
	}
	if out.GinPath == "" {
		out.GinPath = getString(raw, "GinPath")
	}
	if out.PageSize == 0 {
		out.PageSize = getInt(raw, "PageSize")
	}
	if out.IndexCacheSeconds == 0 {
		out.IndexCacheSeconds = getInt(raw, "IndexCacheSeconds")
	}
	if out.DBDriver == "" {
		out.DBDriver = getString(raw, "DBDriver")
	}
	if out.DatabaseURI == "" {
		out.DatabaseURI = getString(raw, "DatabaseURI")
	}
	if out.RedisHost == "" {
		out.RedisHost = getString(raw, "RedisHost")
	}
	if out.LogLevel == "" {
		out.LogLevel = getString(raw, "LogLevel")
	}
	if out.LogPath == "" {
		out.LogPath = getString(raw, "LogPath")
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = getStringSlice(raw, "AllowedOrigins")
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:" + c.AppPort
	}
	if c.PageSize == 0 {
		c.PageSize = 10
	}
	if c.IndexCacheSeconds == 0 {
		c.IndexCacheSeconds = 20
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "sessionid"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 14 * 24
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
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = c.SiteURL
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "postgres" {
			c.DBPort = "5432"
		} else {
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "yatube"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.SMTPFromName == "" {
		c.SMTPFromName = "Yatube"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
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
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 5
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
	if c.RegisterFailedMaxPerIPPerHour == 0 {
		c.RegisterFailedMaxPerIPPerHour = 20
	}
	if c.RegisterTempBanMinutes == 0 {
		c.RegisterTempBanMinutes = 60
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = "yatube.social"
	}
	if c.MediaRoot == "" {
		c.MediaRoot = "media"
	}
	if c.MediaMaxUploadMB == 0 {
		c.MediaMaxUploadMB = 10
	}
	if c.MediaCleanupMinutes == 0 {
		c.MediaCleanupMinutes = 30
	}
	if c.MediaOrphanGraceMinutes == 0 {
		c.MediaOrphanGraceMinutes = 60
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
// clampLimits resets values that would break paging or sessions when set to
// zero or below in a file or the environment.
func clampLimits(c *AppConfig) {
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.IndexCacheSeconds < 0 {
		c.IndexCacheSeconds = 20
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = 14 * 24
	}
}

func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("SITE_URL", ""); v != "" {
		c.SiteURL = v
	}
	if v := getEnv("PAGE_SIZE", ""); v != "" {
		c.PageSize = mustParseInt(v)
	}
	if v := getEnv("INDEX_CACHE_SECONDS", ""); v != "" {
		c.IndexCacheSeconds = mustParseInt(v)
	}
	if v := getEnv("SESSION_COOKIE_NAME", ""); v != "" {
		c.SessionCookieName = v
	}
	if v := getEnv("SESSION_TTL_HOURS", ""); v != "" {
		c.SessionTTLHours = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("DB_SSLMODE", ""); v != "" {
		c.DBSSLMode = v
	}
	if v, ok := os.LookupEnv("REDIS_HOST"); ok {
		// an explicitly empty REDIS_HOST disables Redis
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("SMTP_HOST", ""); v != "" {
		c.SMTPHost = v
	}
	if v := getEnv("SMTP_PORT", ""); v != "" {
		c.SMTPPort = mustParseInt(v)
	}
	if v := getEnv("SMTP_USERNAME", ""); v != "" {
		c.SMTPUsername = v
	}
	if v := getEnv("SMTP_PASSWORD", ""); v != "" {
		c.SMTPPassword = v
	}
	if v := getEnv("SMTP_FROM", ""); v != "" {
		c.SMTPFrom = v
	}
	if v := getEnv("SMTP_FROM_NAME", ""); v != "" {
		c.SMTPFromName = v
	}
	if v := getEnv("GITHUB_CLIENT_ID", ""); v != "" {
		c.GitHubClientID = v
	}
	if v := getEnv("GITHUB_CLIENT_SECRET", ""); v != "" {
		c.GitHubClientSecret = v
	}
	if v := getEnv("GOOGLE_CLIENT_ID", ""); v != "" {
		c.GoogleClientID = v
	}
	if v := getEnv("GOOGLE_CLIENT_SECRET", ""); v != "" {
		c.GoogleClientSecret = v
	}
	if v := getEnv("OAUTH_REDIRECT_BASE_URL", ""); v != "" {
		c.OAuthRedirectBase = v
	}
	if v := getEnv("REGISTER_CAPTCHA_ENABLED", ""); v != "" {
		c.RegisterCaptchaEnabled = v == "true"
	}
	if v := getEnv("REGISTER_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.RegisterMaxPerIPPerDay = mustParseInt(v)
	}
	if v := getEnv("REGISTER_ATTEMPT_COOLDOWN_SEC", ""); v != "" {
		c.RegisterAttemptCooldownSec = mustParseInt(v)
	}
	if v := getEnv("REGISTER_FAILED_MAX_PER_IP_PER_HOUR", ""); v != "" {
		c.RegisterFailedMaxPerIPPerHour = mustParseInt(v)
	}
	if v := getEnv("REGISTER_TEMP_BAN_MINUTES", ""); v != "" {
		c.RegisterTempBanMinutes = mustParseInt(v)
	}
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.KafkaBrokers = readListEnv("KAFKA_BROKERS", c.KafkaBrokers)
	}
	if v := getEnv("KAFKA_TOPIC", ""); v != "" {
		c.KafkaTopic = v
	}
	if v := getEnv("MEDIA_ROOT", ""); v != "" {
		c.MediaRoot = v
	}
	if v := getEnv("MEDIA_MAX_UPLOAD_MB", ""); v != "" {
		c.MediaMaxUploadMB = mustParseInt(v)
	}
	if v := getEnv("MEDIA_CLEANUP_MINUTES", ""); v != "" {
		c.MediaCleanupMinutes = mustParseInt(v)
	}
	if v := getEnv("MEDIA_ORPHAN_GRACE_MINUTES", ""); v != "" {
		c.MediaOrphanGraceMinutes = mustParseInt(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
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
