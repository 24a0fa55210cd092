package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the service.
type Config struct {
	AppName string
	Port    string
	Debug   bool
	LogPath string

	Database DatabaseConfig
	RedisURL string

	JWTSecret    string
	JWTExpiry    time.Duration
	BcryptCost   int
	CookieSecure bool
	CookieDomain string
	CSRFEnabled  bool

	FrontendOrigins []string

	NearbyRadiusKm float64
	NearbyLimit    int
	AssignLockTTL  time.Duration

	UploadDir string
	BaseURL   string
	S3        S3Config

	FirebaseServiceAccountPath string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Enabled reports whether every S3 setting is present.
func (s S3Config) Enabled() bool {
	return s.Region != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// .env is optional in containers
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		AppName: v.GetString("APP_NAME"),
		Port:    v.GetString("PORT"),
		Debug:   v.GetBool("DEBUG"),
		LogPath: v.GetString("LOG_PATH"),
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		RedisURL:        v.GetString("REDIS_URL"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTExpiry:       time.Duration(v.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		CookieSecure:    v.GetBool("COOKIE_SECURE"),
		CookieDomain:    v.GetString("COOKIE_DOMAIN"),
		CSRFEnabled:     v.GetBool("CSRF_ENABLED"),
		FrontendOrigins: splitList(v.GetString("FRONTEND_ORIGINS")),
		NearbyRadiusKm:  v.GetFloat64("NEARBY_RADIUS_KM"),
		NearbyLimit:     v.GetInt("NEARBY_LIMIT"),
		AssignLockTTL:   time.Duration(v.GetInt("ASSIGN_LOCK_TTL_SECONDS")) * time.Second,
		UploadDir:       v.GetString("UPLOAD_DIR"),
		BaseURL:         strings.TrimRight(v.GetString("BASE_URL"), "/"),
		S3: S3Config{
			Region:    v.GetString("AWS_REGION"),
			AccessKey: v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Bucket:    v.GetString("AWS_S3_BUCKET"),
		},
		FirebaseServiceAccountPath: v.GetString("FIREBASE_SERVICE_ACCOUNT_PATH"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "foodbridge")
	v.SetDefault("PORT", "9500")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "foodbridge")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)

	v.SetDefault("REDIS_URL", "")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("FRONTEND_ORIGINS", "http://localhost:3000")

	v.SetDefault("NEARBY_RADIUS_KM", 25)
	v.SetDefault("NEARBY_LIMIT", 5)
	v.SetDefault("ASSIGN_LOCK_TTL_SECONDS", 10)

	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("BASE_URL", "http://localhost:9500")

	v.SetDefault("AWS_REGION", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("AWS_S3_BUCKET", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_PATH", "")
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.NearbyRadiusKm <= 0 {
		return fmt.Errorf("NEARBY_RADIUS_KM must be positive")
	}
	if c.NearbyLimit <= 0 {
		return fmt.Errorf("NEARBY_LIMIT must be positive")
	}
	if c.AssignLockTTL <= 0 {
		return fmt.Errorf("ASSIGN_LOCK_TTL_SECONDS must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
