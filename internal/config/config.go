package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string   `mapstructure:"PORT"`
	Env                     string   `mapstructure:"ENV"`
	ProjectName             string   `mapstructure:"PROJECT_NAME"`
	DatabaseURL             string   `mapstructure:"DATABASE_URL"`
	DBMaxConns              int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns              int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret               string   `mapstructure:"JWT_SECRET"`
	CORSOrigins             []string `mapstructure:"CORS_ORIGINS"`
	FrontendHost            string   `mapstructure:"FRONTEND_HOST"`
	SMTPHost                string   `mapstructure:"SMTP_HOST"`
	SMTPPort                int      `mapstructure:"SMTP_PORT"`
	SMTPUser                string   `mapstructure:"SMTP_USER"`
	SMTPPassword            string   `mapstructure:"SMTP_PASSWORD"`
	EmailsFromName          string   `mapstructure:"EMAILS_FROM_NAME"`
	EmailsFromEmail         string   `mapstructure:"EMAILS_FROM_EMAIL"`
	PrescriptionFee         float64  `mapstructure:"PRESCRIPTION_FEE"`
	EnableMockPrescriptions bool     `mapstructure:"ENABLE_MOCK_PRESCRIPTIONS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("PROJECT_NAME", "MeTIMat")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:4200")
	v.SetDefault("FRONTEND_HOST", "http://localhost:4200")
	v.SetDefault("EMAILS_FROM_NAME", "MeTIMat")
	v.SetDefault("PRESCRIPTION_FEE", 5.0)
	v.SetDefault("ENABLE_MOCK_PRESCRIPTIONS", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("PROJECT_NAME")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("FRONTEND_HOST")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_USER")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("EMAILS_FROM_NAME")
	v.BindEnv("EMAILS_FROM_EMAIL")
	v.BindEnv("PRESCRIPTION_FEE")
	v.BindEnv("ENABLE_MOCK_PRESCRIPTIONS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active: all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SMTPConfigured reports whether outbound email can actually be sent. When
// false the mailer degrades to logging the message instead of sending it.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPPort > 0 && c.EmailsFromEmail != ""
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be present so real authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV is %q; refusing to start without authentication configuration", c.Env)
	}
	if c.PrescriptionFee < 0 {
		return fmt.Errorf("PRESCRIPTION_FEE must not be negative, got %v", c.PrescriptionFee)
	}
	return nil
}
