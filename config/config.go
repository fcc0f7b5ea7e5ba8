package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	CORSOrigins       string `mapstructure:"CORS_ORIGINS"`

	// MongoDB.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisOTPDB     int    `mapstructure:"REDIS_OTP_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Booking rules.
	BookingSessionTTLMin int    `mapstructure:"BOOKING_SESSION_TTL_MIN"`
	BookingMaxDaysAhead  int    `mapstructure:"BOOKING_MAX_DAYS_AHEAD"`
	SlotStepMin          int    `mapstructure:"SLOT_STEP_MIN"`
	DefaultTimezone      string `mapstructure:"DEFAULT_TIMEZONE"`

	// OTP.
	OTPLength      int    `mapstructure:"OTP_LENGTH"`
	OTPExpiryMin   int    `mapstructure:"OTP_EXPIRY_MIN"`
	OTPMaxAttempts int    `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPProvider    string `mapstructure:"OTP_PROVIDER"`
	OTPDebugEcho   bool   `mapstructure:"OTP_DEBUG_ECHO"`

	// Meta WhatsApp Cloud API.
	MetaWhatsAppToken   string `mapstructure:"META_WHATSAPP_TOKEN"`
	MetaWhatsAppPhoneID string `mapstructure:"META_WHATSAPP_PHONE_ID"`

	// National registry (RENIEC) lookup.
	ReniecAPIURL string `mapstructure:"RENIEC_API_URL"`

	// SMTP for confirmation e-mails.
	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	CloudinaryURL           string `mapstructure:"CLOUDINARY_URL"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real deployments pass plain environment variables.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "stylo")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 0)
	v.SetDefault("REDIS_OTP_DB", 1)
	v.SetDefault("REDIS_QUEUE_DB", 2)
	v.SetDefault("BOOKING_SESSION_TTL_MIN", 15)
	v.SetDefault("BOOKING_MAX_DAYS_AHEAD", 60)
	v.SetDefault("SLOT_STEP_MIN", 30)
	v.SetDefault("DEFAULT_TIMEZONE", "America/Lima")
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_EXPIRY_MIN", 5)
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_PROVIDER", "mock")
	v.SetDefault("OTP_DEBUG_ECHO", false)
	v.SetDefault("META_WHATSAPP_TOKEN", "")
	v.SetDefault("META_WHATSAPP_PHONE_ID", "")
	v.SetDefault("RENIEC_API_URL", "https://casaaustin.pe/datos/api.php")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("CLOUDINARY_URL", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// DebugOTPEnabled reports whether OTP codes may be echoed in API responses.
// Production never echoes, whatever OTP_DEBUG_ECHO says.
func DebugOTPEnabled() bool {
	return AppConfig.OTPDebugEcho && !IsProduction()
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.BookingSessionTTLMin) * time.Minute
}

func (c Config) OTPExpiry() time.Duration {
	return time.Duration(c.OTPExpiryMin) * time.Minute
}

// Location resolves DEFAULT_TIMEZONE, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
