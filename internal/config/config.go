package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Delivery providers.
const (
	ProviderFake   = "fake"
	ProviderTwilio = "twilio"
	ProviderSNS    = "sns"
)

type Config struct {
	ServiceName       string
	DatabaseURL       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string

	JWTSecret string
	JWTIssuer string

	DeliveryProvider       string
	DeliveryMaxAttempts    int
	DeliveryInitialBackoff time.Duration
	DeliveryMaxBackoff     time.Duration
	DeliveryAttemptTimeout time.Duration
	// DispatchConcurrency caps concurrent responder notifications per case.
	// Zero means unbounded.
	DispatchConcurrency int

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	ArchiveS3Bucket    string
	ArchiveS3Endpoint  string

	RedisURL       string
	IdempotencyTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:       getEnv("SERVICE_NAME", "ern-api"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "ern-api"),

		DeliveryProvider: strings.ToLower(getEnv("DELIVERY_PROVIDER", ProviderFake)),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		ArchiveS3Bucket:    getEnv("ARCHIVE_S3_BUCKET", ""),
		ArchiveS3Endpoint:  getEnv("ARCHIVE_S3_ENDPOINT", ""),

		RedisURL: getEnv("REDIS_URL", ""),
	}

	var err error
	if cfg.DeliveryMaxAttempts, err = getEnvInt("DELIVERY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.DispatchConcurrency, err = getEnvInt("DISPATCH_CONCURRENCY", 0); err != nil {
		return nil, err
	}
	if cfg.DeliveryInitialBackoff, err = getEnvDuration("DELIVERY_INITIAL_BACKOFF", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.DeliveryMaxBackoff, err = getEnvDuration("DELIVERY_MAX_BACKOFF", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DeliveryAttemptTimeout, err = getEnvDuration("DELIVERY_ATTEMPT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration the API server needs. Missing required
// keys are reported together.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.HTTPListenAddr == "" {
		missing = append(missing, "HTTP_LISTEN_ADDR")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	switch c.DeliveryProvider {
	case ProviderFake:
	case ProviderTwilio:
		if c.TwilioAccountSID == "" {
			missing = append(missing, "TWILIO_ACCOUNT_SID")
		}
		if c.TwilioAuthToken == "" {
			missing = append(missing, "TWILIO_AUTH_TOKEN")
		}
		if c.TwilioFromNumber == "" {
			missing = append(missing, "TWILIO_FROM_NUMBER")
		}
	case ProviderSNS:
		missing = append(missing, c.missingAWSCredentials()...)
	default:
		return fmt.Errorf("DELIVERY_PROVIDER must be one of %s, %s, %s; got %q",
			ProviderFake, ProviderTwilio, ProviderSNS, c.DeliveryProvider)
	}

	if c.ArchiveS3Bucket != "" && c.DeliveryProvider != ProviderSNS {
		missing = append(missing, c.missingAWSCredentials()...)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.DeliveryMaxAttempts < 1 {
		return fmt.Errorf("DELIVERY_MAX_ATTEMPTS must be at least 1")
	}
	if c.DispatchConcurrency < 0 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must not be negative")
	}
	return nil
}

func (c *Config) missingAWSCredentials() []string {
	var missing []string
	if c.AWSAccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if c.AWSSecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	return missing
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
