package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB        DBConfig
	MinIO     MinIOConfig
	JWT       JWTConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Forms     FormsConfig
}

type DBConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

type MinIOConfig struct {
	Endpoint      string
	PublicBaseURL string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port        string
	FrontendURL string
	BodyLimitMB int
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// LockPolicy names who may toggle a form's lock.
type LockPolicy string

const (
	// LockPolicyAnyCollaborator lets any caller with access (owner, editor or
	// viewer) lock and unlock a form.
	LockPolicyAnyCollaborator LockPolicy = "any_collaborator"
	// LockPolicyOwnerOnly restricts lock toggling to the form owner.
	LockPolicyOwnerOnly LockPolicy = "owner_only"
)

type FormsConfig struct {
	LockPolicy     LockPolicy
	ExportTimeZone string
}

func Load() *Config {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	return &Config{
		DB: DBConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "formdesk"),
			Password:   getEnv("DB_PASSWORD", "formdesk_secret"),
			Name:       getEnv("DB_NAME", "formdesk"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "formdesk.sqlite"),
		},
		MinIO: MinIOConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicBaseURL: getEnv("MINIO_PUBLIC_BASE_URL", "http://localhost:9000"),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", "formdesk"),
			SecretKey:     getEnv("MINIO_SECRET_KEY", "formdesk_secret"),
			Bucket:        getEnv("MINIO_BUCKET", "formdesk"),
			UseSSL:        getEnvAsBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "3001"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
			BodyLimitMB: getEnvAsInt("SERVER_BODY_LIMIT_MB", 10),
		},
		RateLimit: RateLimitConfig{
			Max:    getEnvAsInt("RATE_LIMIT_MAX", 100),
			Window: getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		},
		Forms: FormsConfig{
			LockPolicy:     parseLockPolicy(getEnv("FORMS_LOCK_POLICY", string(LockPolicyAnyCollaborator))),
			ExportTimeZone: getEnv("FORMS_EXPORT_TIMEZONE", "Local"),
		},
	}
}

// ExportLocation resolves the configured export time zone, falling back to
// the process local zone when the name is unknown.
func (f FormsConfig) ExportLocation() *time.Location {
	if f.ExportTimeZone == "" || f.ExportTimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(f.ExportTimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func parseLockPolicy(value string) LockPolicy {
	switch LockPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case LockPolicyOwnerOnly:
		return LockPolicyOwnerOnly
	default:
		return LockPolicyAnyCollaborator
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
