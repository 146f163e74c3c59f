// Package config loads server and console settings from an optional .env
// file, an optional YAML file and CHESS_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chesstrack/internal/obslog"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Engine modes
const (
	EngineNone  = "none"  // no suggestions; computer players cannot move
	EngineLocal = "local" // greedy in-process suggester
	EngineAPI   = "api"   // remote HTTP engine
	EngineUCI   = "uci"   // local UCI binary such as stockfish
)

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Engine  Engine  `yaml:"engine"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Dev     bool   `yaml:"dev"` // relaxed rate limits, WAL journal
	PIDFile string `yaml:"pid_file"`
	PIDLock bool   `yaml:"pid_lock"`

	RateLimit int `yaml:"rate_limit"` // API requests per second per client, 0 disables
}

type Storage struct {
	DSN      string        `yaml:"dsn"`       // sqlite path or postgres:// URL, empty disables
	RedisURL string        `yaml:"redis_url"` // empty disables the snapshot cache
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Engine struct {
	Mode       string        `yaml:"mode"`
	APIURL     string        `yaml:"api_url"`
	UCIPath    string        `yaml:"uci_path"`
	SearchTime int           `yaml:"search_time"` // milliseconds per suggestion
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	Workers    int           `yaml:"workers"` // background computer-move workers
}

type Log struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:      "localhost",
			Port:      8080,
			RateLimit: 10,
		},
		Storage: Storage{
			CacheTTL: 24 * time.Hour,
		},
		Engine: Engine{
			Mode:       EngineLocal,
			APIURL:     "https://chess-api.com/v1",
			UCIPath:    "stockfish",
			SearchTime: 1000,
			Timeout:    10 * time.Second,
			Retries:    2,
			Workers:    2,
		},
		Log: Log{
			Level:   "info",
			Format:  "console",
			Console: true,
		},
	}
}

// Load reads .env from the working directory when present, then the YAML
// file at path when path is not empty, then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("CHESS_HOST", &c.Server.Host)
	str("CHESS_PID_FILE", &c.Server.PIDFile)
	str("CHESS_DB_DSN", &c.Storage.DSN)
	str("CHESS_REDIS_URL", &c.Storage.RedisURL)
	str("CHESS_ENGINE", &c.Engine.Mode)
	str("CHESS_ENGINE_URL", &c.Engine.APIURL)
	str("CHESS_UCI_PATH", &c.Engine.UCIPath)
	str("CHESS_LOG_LEVEL", &c.Log.Level)
	str("CHESS_LOG_FORMAT", &c.Log.Format)
	str("CHESS_LOG_FILE", &c.Log.File)

	return errors.Join(
		num("CHESS_PORT", &c.Server.Port),
		num("CHESS_RATE_LIMIT", &c.Server.RateLimit),
		flag("CHESS_DEV", &c.Server.Dev),
		flag("CHESS_PID_LOCK", &c.Server.PIDLock),
		dur("CHESS_CACHE_TTL", &c.Storage.CacheTTL),
		num("CHESS_SEARCH_TIME", &c.Engine.SearchTime),
		dur("CHESS_ENGINE_TIMEOUT", &c.Engine.Timeout),
		num("CHESS_ENGINE_RETRIES", &c.Engine.Retries),
		num("CHESS_ENGINE_WORKERS", &c.Engine.Workers),
		flag("CHESS_LOG_CONSOLE", &c.Log.Console),
	)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Server.PIDLock && c.Server.PIDFile == "" {
		errs = append(errs, errors.New("server.pid_lock requires server.pid_file"))
	}
	switch c.Engine.Mode {
	case EngineNone, EngineLocal:
	case EngineAPI:
		if c.Engine.APIURL == "" {
			errs = append(errs, errors.New("engine.api_url required for api mode"))
		}
	case EngineUCI:
		if c.Engine.UCIPath == "" {
			errs = append(errs, errors.New("engine.uci_path required for uci mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("engine.mode must be one of none, local, api, uci: %q", c.Engine.Mode))
	}
	if c.Engine.SearchTime < 100 || c.Engine.SearchTime > 10000 {
		errs = append(errs, fmt.Errorf("engine.search_time must be 100..10000 ms: %d", c.Engine.SearchTime))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, errors.New("engine.timeout must be positive"))
	}
	if c.Engine.Retries < 0 {
		errs = append(errs, errors.New("engine.retries must not be negative"))
	}
	if c.Engine.Workers < 1 {
		errs = append(errs, errors.New("engine.workers must be at least 1"))
	}
	if c.Storage.CacheTTL < 0 {
		errs = append(errs, errors.New("storage.cache_ttl must not be negative"))
	}
	if !obslog.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level unknown: %q", c.Log.Level))
	}
	if f := c.Log.Format; f != "" && f != "console" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be console or json: %q", f))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (s Server) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// LogOptions converts the log section for obslog.Init.
func (l Log) LogOptions() obslog.Options {
	return obslog.Options{
		Level:   l.Level,
		Format:  l.Format,
		File:    l.File,
		Console: l.Console,
		Caller:  l.Level == "debug",
	}
}
