package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	OTP       OTPConfig
	Storage   StorageConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Geo       GeoConfig
	Jobs      JobsConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Name         string
	Port         string
	Debug        bool
	LogPath      string
	CORSOrigins  []string
	MaxUploadMB  int64
	ShutdownWait time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

type EmailConfig struct {
	Driver           string // log | smtp | mailersend
	Host             string
	Port             int
	User             string
	Password         string
	From             string
	FromName         string
	MailerSendAPIKey string
}

type OTPConfig struct {
	ExpiryMinutes       int
	ResetExpiryMinutes  int
	Length              int
	ResendLimit         int
	ResendWindowMinutes int
}

func (c OTPConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

func (c OTPConfig) ResetExpiry() time.Duration {
	return time.Duration(c.ResetExpiryMinutes) * time.Minute
}

func (c OTPConfig) ResendWindow() time.Duration {
	return time.Duration(c.ResendWindowMinutes) * time.Minute
}

type StorageConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

type GeoConfig struct {
	DefaultRadiusKm float64
}

type JobsConfig struct {
	PurgeCodesSpec string
}

// BootstrapConfig describes the admin account created on startup when set.
type BootstrapConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "local-services")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	viper.SetDefault("MAX_UPLOAD_MB", 10)
	viper.SetDefault("SHUTDOWN_WAIT_SECONDS", 10)
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("JWT_EXPIRY_HOURS", 7*24)
	viper.SetDefault("OTP_EXPIRY_MINUTES", 15)
	viper.SetDefault("RESET_EXPIRY_MINUTES", 30)
	viper.SetDefault("OTP_LENGTH", 6)
	viper.SetDefault("OTP_RESEND_LIMIT", 5)
	viper.SetDefault("OTP_RESEND_WINDOW_MINUTES", 15)
	viper.SetDefault("MAIL_DRIVER", "log")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("EMAIL_FROM_NAME", "Local Services")
	viper.SetDefault("CLOUDINARY_FOLDER", "services")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GEO_DEFAULT_RADIUS_KM", 10.0)
	viper.SetDefault("PURGE_CODES_SPEC", "@every 1h")
	viper.SetDefault("ADMIN_NAME", "Administrator")

	// .env is optional; plain environment variables are enough in containers
	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:         viper.GetString("APP_NAME"),
			Port:         viper.GetString("PORT"),
			Debug:        viper.GetBool("DEBUG"),
			LogPath:      viper.GetString("LOG_PATH"),
			CORSOrigins:  splitList(viper.GetString("CORS_ORIGINS")),
			MaxUploadMB:  viper.GetInt64("MAX_UPLOAD_MB"),
			ShutdownWait: time.Duration(viper.GetInt("SHUTDOWN_WAIT_SECONDS")) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		Email: EmailConfig{
			Driver:           strings.ToLower(viper.GetString("MAIL_DRIVER")),
			Host:             viper.GetString("SMTP_HOST"),
			Port:             viper.GetInt("SMTP_PORT"),
			User:             viper.GetString("SMTP_USER"),
			Password:         viper.GetString("SMTP_PASS"),
			From:             viper.GetString("EMAIL_FROM"),
			FromName:         viper.GetString("EMAIL_FROM_NAME"),
			MailerSendAPIKey: viper.GetString("MAILERSEND_API_KEY"),
		},
		OTP: OTPConfig{
			ExpiryMinutes:       viper.GetInt("OTP_EXPIRY_MINUTES"),
			ResetExpiryMinutes:  viper.GetInt("RESET_EXPIRY_MINUTES"),
			Length:              viper.GetInt("OTP_LENGTH"),
			ResendLimit:         viper.GetInt("OTP_RESEND_LIMIT"),
			ResendWindowMinutes: viper.GetInt("OTP_RESEND_WINDOW_MINUTES"),
		},
		Storage: StorageConfig{
			CloudName: viper.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    viper.GetString("CLOUDINARY_API_KEY"),
			APISecret: viper.GetString("CLOUDINARY_API_SECRET"),
			Folder:    viper.GetString("CLOUDINARY_FOLDER"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			URL: viper.GetString("NATS_URL"),
		},
		Geo: GeoConfig{
			DefaultRadiusKm: viper.GetFloat64("GEO_DEFAULT_RADIUS_KM"),
		},
		Jobs: JobsConfig{
			PurgeCodesSpec: viper.GetString("PURGE_CODES_SPEC"),
		},
		Bootstrap: BootstrapConfig{
			AdminName:     viper.GetString("ADMIN_NAME"),
			AdminEmail:    viper.GetString("ADMIN_EMAIL"),
			AdminPassword: viper.GetString("ADMIN_PASSWORD"),
		},
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
