package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type EmailConfig struct {
	MailerSendKey string
	// OperatorTo receives the reservation notice; the submitter gets the
	// acknowledgment.
	OperatorTo string
	FromAdmin  FromAddress
	FromUser   FromAddress
	RetryDelay time.Duration
}

type FromAddress struct {
	Name  string
	Email string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type AppConfig struct {
	Environment string
	CORSOrigins []string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Email: EmailConfig{
			MailerSendKey: getEnv("MAILERSEND_API_KEY", ""),
			OperatorTo:    getEnv("RESERVATION_TO", "hallo@hbot-berlin.de"),
			FromAdmin: FromAddress{
				Name:  getEnv("RESERVATION_FROM_ADMIN_NAME", "HBOT Berlin Website"),
				Email: getEnv("RESERVATION_FROM_ADMIN", "website@hbot-berlin.de"),
			},
			FromUser: FromAddress{
				Name:  getEnv("RESERVATION_FROM_USER_NAME", "HBOT Berlin"),
				Email: getEnv("RESERVATION_FROM_USER", "hallo@hbot-berlin.de"),
			},
			RetryDelay: getDuration("DISPATCH_RETRY_DELAY", 2*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests: getInt("RATE_LIMIT_REQUESTS", 5),
			Window:   getDuration("RATE_LIMIT_WINDOW", 10*time.Minute),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			CORSOrigins: getList("CORS_ORIGINS", []string{"https://hbot-berlin.de", "https://www.hbot-berlin.de"}),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
