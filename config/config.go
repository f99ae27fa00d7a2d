package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port           string
	APIBaseURL     string
	ClientURL      string
	AllowedOrigins []string

	PaystackSecretKey string
	PaystackPublicKey string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr   string
	KafkaBroker string

	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	MailFrom      string
	BusinessEmail string

	// MinOrderAmount is in major currency units (NGN); MinorUnitFactor
	// converts to what Paystack accepts (kobo).
	MinOrderAmount  int64
	MinorUnitFactor int64
}

func Load() *Config {
	smtpPort := int(getEnvInt64("SMTP_PORT", 587))
	minAmount := getEnvInt64("MIN_ORDER_AMOUNT", 100)
	factor := getEnvInt64("MINOR_UNIT_FACTOR", 100)

	return &Config{
		Port:           getEnv("PORT", "5000"),
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:5000/api"),
		ClientURL:      getEnv("CLIENT_URL", "http://localhost:5173"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),

		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackPublicKey: os.Getenv("PAYSTACK_PUBLIC_KEY"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: getEnv("DB_PASS", "postgres"),
		DBName: getEnv("DB_NAME", "lumisdb"),

		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      smtpPort,
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		MailFrom:      getEnv("MAIL_FROM", "orders@lumisjewelry.com"),
		BusinessEmail: os.Getenv("BUSINESS_NOTIFICATION_EMAIL"),

		MinOrderAmount:  minAmount,
		MinorUnitFactor: factor,
	}
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// getEnvInt64 keeps the default when the variable is malformed or not
// positive; a zero minimum or conversion factor would silently pass every
// cart through the amount checks.
func getEnvInt64(k string, d int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q — using default %d", k, v, d)
		return d
	}
	return n
}
