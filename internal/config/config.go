package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at startup
// and passed explicitly to the components that need it; nothing reads viper
// after Load returns.
type Config struct {
	App       App       `mapstructure:"app"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	News      News      `mapstructure:"news"`
	AI        AI        `mapstructure:"ai"`
	Email     Email     `mapstructure:"email"`
	Auth      Auth      `mapstructure:"auth"`
	Billing   Billing   `mapstructure:"billing"`
	Scheduler Scheduler `mapstructure:"scheduler"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	CORS         CORS   `mapstructure:"cors"`
}

// CORS holds cross-origin configuration for the browser frontend
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds Postgres configuration
type Database struct {
	URL string `mapstructure:"url"`
}

// News holds news provider configuration
type News struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Country      string `mapstructure:"country"`
	MaxArticles  int    `mapstructure:"max_articles"`
	FetchTimeout string `mapstructure:"fetch_timeout"`
}

// AI holds LLM provider configuration
type AI struct {
	Provider   string           `mapstructure:"provider"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
}

// OpenRouterConfig holds OpenAI-compatible chat completion configuration
type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Email holds outgoing email configuration
type Email struct {
	SMTP        SMTPConfig `mapstructure:"smtp"`
	FromAddress string     `mapstructure:"from_address"`
	FromName    string     `mapstructure:"from_name"`
}

// SMTPConfig holds SMTP relay configuration
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// Auth holds token issuance configuration
type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  string `mapstructure:"token_ttl"`
}

// Billing holds Stripe configuration
type Billing struct {
	Stripe StripeConfig `mapstructure:"stripe"`
}

// StripeConfig holds the Stripe keys and checkout parameters
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	PriceID       string `mapstructure:"price_id"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
}

// Scheduler holds recurring pipeline configuration
type Scheduler struct {
	Cron string `mapstructure:"cron"`
}

// Load loads the configuration from .env, an optional YAML config file, and
// the environment. The returned Config is complete and validated.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".gazette")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("news.base_url", "https://api.webz.io/newsApiLite")
	viper.SetDefault("news.country", "US")
	viper.SetDefault("news.max_articles", 3)
	viper.SetDefault("news.fetch_timeout", "10s")

	viper.SetDefault("ai.provider", "openrouter")
	viper.SetDefault("ai.openrouter.model", "qwen/qwen3-235b-a22b:free")
	viper.SetDefault("ai.openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("ai.openrouter.timeout", "120s")
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")

	viper.SetDefault("email.smtp.port", 587)
	viper.SetDefault("email.smtp.tls_enabled", true)
	viper.SetDefault("email.from_name", "Gazette")

	viper.SetDefault("auth.token_ttl", "30m")

	viper.SetDefault("scheduler.cron", "0 7 * * *")
}

// bindEnvironmentVariables maps flat environment variable names onto viper
// keys so the service can run from a plain .env file without a YAML config.
func bindEnvironmentVariables() {
	bindEnvKeys("database.url", []string{"DATABASE_URL", "POSTGRES_URL"})
	bindEnvKeys("news.api_key", []string{"NEWS_API_KEY", "WEBZ_API_KEY"})
	bindEnvKeys("ai.openrouter.api_key", []string{"OPENROUTER_API_KEY"})
	bindEnvKeys("ai.openrouter.model", []string{"OPENROUTER_MODEL"})
	bindEnvKeys("ai.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"})
	bindEnvKeys("auth.jwt_secret", []string{"JWT_SECRET_KEY", "JWT_SECRET"})
	bindEnvKeys("billing.stripe.secret_key", []string{"STRIPE_SECRET_KEY"})
	bindEnvKeys("billing.stripe.webhook_secret", []string{"STRIPE_WEBHOOK_SECRET"})
	bindEnvKeys("billing.stripe.price_id", []string{"STRIPE_PRICE_ID"})
	bindEnvKeys("email.smtp.host", []string{"SMTP_HOST"})
	bindEnvKeys("email.smtp.username", []string{"SMTP_USERNAME"})
	bindEnvKeys("email.smtp.password", []string{"SMTP_PASSWORD"})
	bindEnvKeys("email.from_address", []string{"EMAIL_FROM_ADDRESS"})
}

// bindEnvKeys binds the first set environment variable from the list to the
// given configuration key.
func bindEnvKeys(configKey string, envNames []string) {
	for _, envName := range envNames {
		if value := os.Getenv(envName); value != "" {
			viper.Set(configKey, value)
			return
		}
	}
}

// validateConfig checks settings that would otherwise fail deep inside a
// pipeline run or the first authenticated request.
func validateConfig(config *Config) error {
	if config.News.MaxArticles < 3 || config.News.MaxArticles > 5 {
		return fmt.Errorf("news.max_articles must be between 3 and 5, got %d", config.News.MaxArticles)
	}

	switch config.AI.Provider {
	case "openrouter", "gemini":
	default:
		return fmt.Errorf("ai.provider must be openrouter or gemini, got %q", config.AI.Provider)
	}

	for _, key := range []string{
		config.Server.ReadTimeout,
		config.Server.WriteTimeout,
		config.News.FetchTimeout,
		config.AI.OpenRouter.Timeout,
		config.Auth.TokenTTL,
	} {
		if _, err := time.ParseDuration(key); err != nil {
			return fmt.Errorf("invalid duration %q: %w", key, err)
		}
	}

	return nil
}

// Duration parses a duration string that validateConfig has already checked,
// falling back to the given default for the zero value.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
