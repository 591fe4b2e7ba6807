package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "FiuuPay"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultTokenTTL        = 24 * time.Hour
	defaultLoginRatePerMin = 5
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	tokenSecretEnvVar      = "JWT_SECRET_KEY"
	tokenTTLEnvVar         = "TOKEN_TTL"
	bcryptCostEnvVar       = "BCRYPT_COST"
	loginRateEnvVar        = "LOGIN_RATE_PER_MIN"
	configFileEnvVar       = "CONFIG_FILE"
	gatewayTimeoutEnvVar   = "FIUU_TIMEOUT"

	// DevTokenSecret signs tokens only when APP_ENV is a development
	// environment and JWT_SECRET_KEY is unset.
	DevTokenSecret = "dev-insecure-jwt-secret"
)

// Gateway describes the Fiuu OPA merchant profile and endpoint.
type Gateway struct {
	ApplicationCode string        `yaml:"application_code"`
	SecretKey       string        `yaml:"-"`
	PrecreateURL    string        `yaml:"precreate_url"`
	Timeout         time.Duration `yaml:"timeout"`
	StoreID         string        `yaml:"store_id"`
	TerminalID      string        `yaml:"terminal_id"`
	ChannelID       string        `yaml:"channel_id"`
	Currency        string        `yaml:"currency"`
	Version         string        `yaml:"version"`
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	LogFile         string
	DatabaseURL     string
	RedisURL        string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	TokenSecret     string
	TokenTTL        time.Duration
	BcryptCost      int
	LoginRatePerMin int
	CORSOrigins     string
	EventsChannel   string
	Gateway         Gateway
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFile:         os.Getenv("LOG_FILE"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		TokenSecret:     os.Getenv(tokenSecretEnvVar),
		TokenTTL:        defaultTokenTTL,
		LoginRatePerMin: defaultLoginRatePerMin,
		CORSOrigins:     getEnv("CORS_ALLOW_ORIGINS", "*"),
		EventsChannel:   getEnv("EVENTS_CHANNEL", ""),
		Gateway:         defaultGateway(),
	}

	if path := os.Getenv(configFileEnvVar); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyGatewayEnv(&cfg.Gateway); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if v := os.Getenv(tokenTTLEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", tokenTTLEnvVar, err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("invalid %s: must not be negative", tokenTTLEnvVar)
		}
		cfg.TokenTTL = d
	}

	if v := os.Getenv(bcryptCostEnvVar); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", bcryptCostEnvVar, err)
		}
		cfg.BcryptCost = cost
	}

	if v := os.Getenv(loginRateEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", loginRateEnvVar, err)
		}
		cfg.LoginRatePerMin = n
	}

	if cfg.TokenSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("%s must be set when APP_ENV=%s", tokenSecretEnvVar, cfg.AppEnv)
		}
		cfg.TokenSecret = DevTokenSecret
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// UsesDevTokenSecret reports whether tokens are signed with the fallback literal.
func (c Config) UsesDevTokenSecret() bool {
	return c.TokenSecret == DevTokenSecret
}

func defaultGateway() Gateway {
	return Gateway{
		PrecreateURL: "https://opa.fiuu.com/RMS/API/MOLOPA/precreate.php",
		Timeout:      10 * time.Second,
		StoreID:      "nextmachines01",
		TerminalID:   "1",
		ChannelID:    "24",
		Currency:     "MYR",
		Version:      "V3",
	}
}

func applyGatewayEnv(g *Gateway) error {
	g.ApplicationCode = getEnv("OPA_APP_CODE", g.ApplicationCode)
	g.SecretKey = getEnv("OPA_SECRET_KEY", g.SecretKey)
	g.PrecreateURL = getEnv("FIUU_PRECREATE_URL", g.PrecreateURL)
	g.StoreID = getEnv("FIUU_STORE_ID", g.StoreID)
	g.TerminalID = getEnv("FIUU_TERMINAL_ID", g.TerminalID)
	g.ChannelID = getEnv("FIUU_CHANNEL_ID", g.ChannelID)
	g.Currency = getEnv("FIUU_CURRENCY", g.Currency)
	g.Version = getEnv("FIUU_VERSION", g.Version)
	if v := strings.TrimSpace(os.Getenv(gatewayTimeoutEnvVar)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", gatewayTimeoutEnvVar, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", gatewayTimeoutEnvVar)
		}
		g.Timeout = d
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
