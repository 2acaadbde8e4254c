package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "SHEETPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	Datasets  DatasetsConfig  `yaml:"datasets" envconfig:"DATASETS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"2m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/sheetpulse.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths. Relative paths are resolved
// against the executable directory.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	WebDir  string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// UploadConfig bounds multipart spreadsheet uploads
type UploadConfig struct {
	MaxFileSize int64 `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"20971520"`
	MaxFiles    int   `yaml:"max_files" envconfig:"MAX_FILES" default:"20"`
}

// Source registry backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

// SourcesConfig selects the named-source registry backend and configures
// the fetcher that loads remote spreadsheets
type SourcesConfig struct {
	Backend              string        `yaml:"backend" envconfig:"BACKEND" default:"file"`
	FilePath             string        `yaml:"file_path" envconfig:"FILE_PATH" default:"sources.json"`
	SQLitePath           string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH" default:"sources.db"`
	APIURL               string        `yaml:"api_url" envconfig:"API_URL"`
	APIKey               string        `yaml:"api_key" envconfig:"API_KEY"`
	GoogleAPIKey         string        `yaml:"google_api_key" envconfig:"GOOGLE_API_KEY"`
	CredentialsFile      string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"30s"`
	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches" envconfig:"MAX_CONCURRENT_FETCHES" default:"4"`
	MaxDownloadSize      int64         `yaml:"max_download_size" envconfig:"MAX_DOWNLOAD_SIZE" default:"52428800"`
}

// DatasetsConfig bounds the in-memory dataset store
type DatasetsConfig struct {
	MaxRetained int `yaml:"max_retained" envconfig:"MAX_RETAINED" default:"50"`
}

// Load reads configuration from the environment and an optional YAML file.
// Keys present in the file override the environment and defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays a YAML document on cfg. Keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max file size must be positive")
	}
	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("upload max files must be positive")
	}

	switch c.Sources.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Sources.FilePath == "" {
			return fmt.Errorf("sources file path is required for the file backend")
		}
	case BackendSQLite:
		if c.Sources.SQLitePath == "" {
			return fmt.Errorf("sources sqlite path is required for the sqlite backend")
		}
	case BackendHTTP:
		if c.Sources.APIURL == "" {
			return fmt.Errorf("sources api url is required for the http backend")
		}
	default:
		return fmt.Errorf("invalid sources backend: %q", c.Sources.Backend)
	}

	if c.Sources.MaxConcurrentFetches <= 0 {
		c.Sources.MaxConcurrentFetches = 1
	}

	if c.Datasets.MaxRetained <= 0 {
		return fmt.Errorf("datasets max retained must be positive")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/sheetpulse.log"
	}

	return nil
}

// getConfigFilePath returns the config file named by SHEETPULSE_CONFIG_FILE
// or the first config.yaml found in the usual locations
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns a configuration with built-in defaults and an
// in-memory source registry, used by tests and the command line tool
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  2 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/sheetpulse.log",
		},
		Paths: PathsConfig{
			DataDir: "data",
			WebDir:  "web",
			LogsDir: "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Upload: UploadConfig{
			MaxFileSize: 20 << 20,
			MaxFiles:    20,
		},
		Sources: SourcesConfig{
			Backend:              BackendMemory,
			FilePath:             "sources.json",
			SQLitePath:           "sources.db",
			FetchTimeout:         30 * time.Second,
			MaxConcurrentFetches: 4,
			MaxDownloadSize:      50 << 20,
		},
		Datasets: DatasetsConfig{
			MaxRetained: 50,
		},
	}
}
