package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	CMSBaseURL string
	CMSToken   string
	CMSTimeout time.Duration

	GatewayServerKey     string
	GatewaySkipSignature bool

	RedisAddr    string
	MongoURI     string
	RabbitURL    string
	OrderLockTTL time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailFromName string

	OTLPEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cmsTimeout, _ := time.ParseDuration(os.Getenv("CMS_TIMEOUT"))
	if cmsTimeout == 0 {
		cmsTimeout = 10 * time.Second
	}
	// Sized above the worst-case reconciliation: a handful of record
	// store round trips, each with its own timeout and retries.
	lockTTL, _ := time.ParseDuration(os.Getenv("ORDER_LOCK_TTL"))
	if lockTTL == 0 {
		lockTTL = 2 * time.Minute
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	cfg := &Config{
		HTTPAddr:             addr,
		CMSBaseURL:           os.Getenv("CMS_BASE_URL"),
		CMSToken:             os.Getenv("CMS_API_TOKEN"),
		CMSTimeout:           cmsTimeout,
		GatewayServerKey:     os.Getenv("GATEWAY_SERVER_KEY"),
		GatewaySkipSignature: os.Getenv("GATEWAY_SKIP_SIGNATURE") == "true",
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		MongoURI:             os.Getenv("MONGO_URI"),
		RabbitURL:            os.Getenv("RABBIT_URL"),
		OrderLockTTL:         lockTTL,
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             os.Getenv("SMTP_PORT"),
		SMTPUsername:         os.Getenv("SMTP_USERNAME"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		MailFrom:             os.Getenv("MAIL_FROM"),
		MailFromName:         os.Getenv("MAIL_FROM_NAME"),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.GatewayServerKey == "" && !cfg.GatewaySkipSignature {
		return nil, errors.New("GATEWAY_SERVER_KEY is required unless GATEWAY_SKIP_SIGNATURE=true")
	}

	return cfg, nil
}
