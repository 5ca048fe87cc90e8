package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	JWTSecret   string
	JWTTTL      time.Duration
	AppURL      string

	KafkaBrokers []string
	KafkaTopic   string

	// TicketAllowReopen lets an admin move a closed ticket back to open.
	TicketAllowReopen bool

	Mail MailConfig
}

type MailConfig struct {
	Provider string // smtp | mailgun | log
	From     string
	ReplyTo  string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	MailgunDomain string
	MailgunAPIKey string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	return Config{
		Port:              getenv("PORT", "8080"),
		DatabaseURL:       databaseURL(),
		RedisAddr:         redisAddr(),
		JWTSecret:         getenv("JWT_SECRET", ""),
		JWTTTL:            time.Duration(getint("JWT_TTL_HOURS", 72)) * time.Hour,
		AppURL:            strings.TrimRight(getenv("APP_URL", "http://localhost:3000"), "/"),
		KafkaBrokers:      splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:        getenv("KAFKA_TOPIC", "linkhub.events"),
		TicketAllowReopen: getbool("TICKET_ALLOW_REOPEN", false),
		Mail: MailConfig{
			Provider:      getenv("MAIL_PROVIDER", "smtp"),
			From:          getenv("MAIL_FROM", "no-reply@linkhub.local"),
			ReplyTo:       getenv("MAIL_REPLY_TO", ""),
			SMTPHost:      getenv("SMTP_HOST", ""),
			SMTPPort:      getenv("SMTP_PORT", "465"),
			SMTPUsername:  getenv("SMTP_USERNAME", ""),
			SMTPPassword:  getenv("SMTP_PASSWORD", ""),
			MailgunDomain: getenv("MAILGUN_DOMAIN", ""),
			MailgunAPIKey: getenv("MAILGUN_API_KEY", ""),
		},
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST/DB_NAME is required")
	}
	return nil
}

func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	host, name := os.Getenv("DB_HOST"), os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		host,
		getenv("DB_PORT", "5432"),
		name,
		getenv("DB_SSLMODE", "disable"),
	)
}

func redisAddr() string {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		return v
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		return host + ":" + getenv("REDIS_PORT", "6379")
	}
	return "127.0.0.1:6379"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
