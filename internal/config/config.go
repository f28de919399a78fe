package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port" env:"SERVER_PORT"`
		Mode            string        `yaml:"mode" env:"SERVER_MODE"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Host            string        `yaml:"host" env:"DB_HOST"`
		Port            string        `yaml:"port" env:"DB_PORT"`
		User            string        `yaml:"user" env:"DB_USER"`
		Password        string        `yaml:"password" env:"DB_PASSWORD"`
		DBName          string        `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE"`
		MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS"`
		MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string        `yaml:"secret" env:"JWT_SECRET"`
		SessionTokenExpiration time.Duration `yaml:"session_token_expiration" env:"JWT_SESSION_TOKEN_EXPIRATION"`
		Issuer                 string        `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Catalog struct {
		Path string `yaml:"path" env:"CATALOG_PATH"`
	} `yaml:"catalog"`

	Extraction struct {
		MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"EXTRACTION_MAX_UPLOAD_BYTES"`
		MaxFiles       int           `yaml:"max_files" env:"EXTRACTION_MAX_FILES"`
		Concurrency    int           `yaml:"concurrency" env:"EXTRACTION_CONCURRENCY"`
		Timeout        time.Duration `yaml:"timeout" env:"EXTRACTION_TIMEOUT"`
		PreviewChars   int           `yaml:"preview_chars" env:"EXTRACTION_PREVIEW_CHARS"`
	} `yaml:"extraction"`

	Ollama struct {
		URL             string        `yaml:"url" env:"OLLAMA_URL"`
		Model           string        `yaml:"model" env:"OLLAMA_MODEL"`
		Timeout         time.Duration `yaml:"timeout" env:"OLLAMA_TIMEOUT"`
		FallbackEnabled bool          `yaml:"fallback_enabled" env:"OLLAMA_FALLBACK_ENABLED"`
		ScorerEnabled   bool          `yaml:"scorer_enabled" env:"OLLAMA_SCORER_ENABLED"`
	} `yaml:"ollama"`

	OCR struct {
		Enabled   bool     `yaml:"enabled" env:"OCR_ENABLED"`
		Languages []string `yaml:"languages" env:"OCR_LANGUAGES"`
	} `yaml:"ocr"`

	Evaluation struct {
		WindowCredits float64 `yaml:"window_credits" env:"EVALUATION_WINDOW_CREDITS"`
		MinGPA        float64 `yaml:"min_gpa" env:"EVALUATION_MIN_GPA"`
	} `yaml:"evaluation"`
}

// LoadConfig reads configPath over the defaults, then applies environment
// overrides. A missing file is not an error; defaults plus environment are enough
// to boot.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(reflect.ValueOf(config)); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(c *Config) {
	c.Server.Port = "8080"
	c.Server.Mode = "development"
	c.Server.ShutdownTimeout = 10 * time.Second

	c.Database.Host = "localhost"
	c.Database.Port = "5432"
	c.Database.User = "postgres"
	c.Database.Password = "postgres"
	c.Database.DBName = "transcriptgpa"
	c.Database.SSLMode = "disable"
	c.Database.MinConns = 2
	c.Database.MaxConns = 20
	c.Database.ConnMaxLifetime = time.Hour

	c.JWT.SessionTokenExpiration = 24 * time.Hour
	c.JWT.Issuer = "transcriptgpa"

	c.Logging.Level = "info"
	c.Logging.Format = "json"

	c.Catalog.Path = "configs/prerequisites.yaml"

	c.Extraction.MaxUploadBytes = 20 << 20
	c.Extraction.MaxFiles = 10
	c.Extraction.Concurrency = 4
	c.Extraction.Timeout = time.Minute
	c.Extraction.PreviewChars = 2000

	c.Ollama.URL = "http://localhost:11434"
	c.Ollama.Model = "mistral"
	c.Ollama.Timeout = 90 * time.Second

	c.OCR.Enabled = true
	c.OCR.Languages = []string{"eng"}

	c.Evaluation.WindowCredits = 60
	c.Evaluation.MinGPA = 3.0
}

func validateConfig(c *Config) error {
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}

	for name, value := range map[string]time.Duration{
		"JWT session token expiration": c.JWT.SessionTokenExpiration,
		"server shutdown timeout":      c.Server.ShutdownTimeout,
		"database connection lifetime": c.Database.ConnMaxLifetime,
		"extraction timeout":           c.Extraction.Timeout,
		"ollama timeout":               c.Ollama.Timeout,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	switch {
	case c.Database.MaxConns < 1 || c.Database.MinConns > c.Database.MaxConns:
		return errors.New("database pool needs 1 <= min_conns <= max_conns")
	case c.Extraction.Concurrency < 1:
		return errors.New("extraction concurrency must be at least 1")
	case c.Extraction.MaxUploadBytes <= 0:
		return errors.New("extraction max upload bytes must be positive")
	case c.Evaluation.WindowCredits <= 0:
		return errors.New("evaluation window credits must be positive")
	case c.Evaluation.MinGPA < 0 || c.Evaluation.MinGPA > 4:
		return errors.New("evaluation minimum GPA must be within 0-4")
	case (c.Ollama.FallbackEnabled || c.Ollama.ScorerEnabled) && c.Ollama.URL == "":
		return errors.New("ollama url is required when fallback or scorer is enabled")
	}
	return nil
}

// PostgresURL returns the pgx connection string.
func (c *Config) PostgresURL() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
