// Package config loads the server configuration.
//
// Values are applied in layers, later layers winning: defaults, an optional
// YAML file, DYNATABLE_* environment variables and finally command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tobsdb/dynatable/pkg"
)

const ENV_PREFIX = "DYNATABLE_"

type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	Backend Backend `yaml:"backend"`
	SQLite  struct {
		Path        string `yaml:"path"`
		ReadMaxOpen int    `yaml:"read_max_open"`
	} `yaml:"sqlite"`
	Memory struct {
		// empty path keeps everything in memory
		SnapshotPath    string `yaml:"snapshot_path"`
		WriteIntervalMs int    `yaml:"write_interval_ms"`
	} `yaml:"memory"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

func Default() *Config {
	c := &Config{
		ListenAddr:         ":7085",
		LogLevel:           "info",
		Backend:            BackendSQLite,
		CORSAllowedOrigins: []string{"*"},
	}
	c.SQLite.Path = "dynatable.sqlite"
	c.SQLite.ReadMaxOpen = 4
	c.Memory.WriteIntervalMs = 1000
	c.RateLimit.RPS = 100
	c.RateLimit.Burst = 200
	return c
}

// Load builds the configuration from path (skipped when empty) and the environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.loadEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	env := func(name string) (string, bool) {
		v, ok := os.LookupEnv(ENV_PREFIX + name)
		return v, ok && v != ""
	}

	if v, ok := env("LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := env("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := env("BACKEND"); ok {
		c.Backend = Backend(strings.ToLower(v))
	}
	if v, ok := env("SQLITE_PATH"); ok {
		c.SQLite.Path = v
	}
	if v, ok := env("SNAPSHOT_PATH"); ok {
		c.Memory.SnapshotPath = v
	}
	if v, ok := env("CORS_ALLOWED_ORIGINS"); ok {
		c.CORSAllowedOrigins = pkg.MapSlice(strings.Split(v, ","), strings.TrimSpace)
	}

	ints := map[string]*int{
		"SQLITE_READ_MAX_OPEN": &c.SQLite.ReadMaxOpen,
		"WRITE_INTERVAL_MS":    &c.Memory.WriteIntervalMs,
		"RATE_LIMIT_BURST":     &c.RateLimit.Burst,
	}
	for name, dst := range ints {
		if v, ok := env(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", ENV_PREFIX, name, err)
			}
			*dst = n
		}
	}

	if v, ok := env("RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT_RPS: %w", ENV_PREFIX, err)
		}
		c.RateLimit.RPS = f
	}
	return nil
}

// BindFlags registers the flags that override c. Flag defaults are the values
// already in c, so only flags set on the command line change anything.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "address to listen on")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "none, error, info or debug")
	fs.StringVar((*string)(&c.Backend), "backend", string(c.Backend), "storage backend: sqlite or memory")
	fs.StringVar(&c.SQLite.Path, "db", c.SQLite.Path, "path of the sqlite database")
	fs.IntVar(&c.SQLite.ReadMaxOpen, "read-conns", c.SQLite.ReadMaxOpen, "max open sqlite read connections")
	fs.StringVar(&c.Memory.SnapshotPath, "snapshot", c.Memory.SnapshotPath,
		"directory to snapshot the memory backend to, empty to not persist")
	fs.IntVar(&c.Memory.WriteIntervalMs, "write-interval", c.Memory.WriteIntervalMs,
		"ms between memory backend snapshots")
	fs.Float64Var(&c.RateLimit.RPS, "rate-limit", c.RateLimit.RPS, "requests per second per client, 0 to disable")
	fs.IntVar(&c.RateLimit.Burst, "rate-burst", c.RateLimit.Burst, "request burst per client")
	fs.StringSliceVar(&c.CORSAllowedOrigins, "cors-origins", c.CORSAllowedOrigins, "allowed CORS origins")
}

func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if _, err := pkg.ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite backend needs a database path"))
		}
	case BackendMemory:
		if c.Memory.SnapshotPath != "" && c.Memory.WriteIntervalMs <= 0 {
			errs = append(errs, errors.New("write interval must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend: %q", c.Backend))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

// ApplyChanged copies the flags explicitly set in flags onto c.
// flags is expected to have been bound with BindFlags on another Config.
func (c *Config) ApplyChanged(flags *pflag.FlagSet) error {
	target := pflag.NewFlagSet("config", pflag.ContinueOnError)
	c.BindFlags(target)

	var err error
	flags.Visit(func(f *pflag.Flag) {
		dst := target.Lookup(f.Name)
		if dst == nil {
			return
		}
		if src, ok := f.Value.(pflag.SliceValue); ok {
			if d, ok := dst.Value.(pflag.SliceValue); ok {
				err = errors.Join(err, d.Replace(src.GetSlice()))
				return
			}
		}
		err = errors.Join(err, dst.Value.Set(f.Value.String()))
	})
	return err
}
