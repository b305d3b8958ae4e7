package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	determ "github.com/allbin/go-determ"
	"github.com/spf13/viper"
)

// Config is the full application configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Scripts ScriptsConfig `mapstructure:"scripts"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
}

// SerialConfig applies to every device the terminal opens
type SerialConfig struct {
	BaudRate    int           `mapstructure:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	Driver      string        `mapstructure:"driver"` // native or bugst
}

type WorkerConfig struct {
	CommandWait time.Duration `mapstructure:"command_wait"`
	IdleSleep   time.Duration `mapstructure:"idle_sleep"`
}

// ScriptsConfig holds the DTR and RTS reset scripts
type ScriptsConfig struct {
	DTR string `mapstructure:"dtr"`
	RTS string `mapstructure:"rts"`
}

type UIConfig struct {
	Scrollback int           `mapstructure:"scrollback"`
	Tick       time.Duration `mapstructure:"tick"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"` // json or console
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig controls the rotating log file. An empty Path disables logging.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// New returns a viper instance with defaults, env binding and search paths set.
// Flags may be bound to it before Load reads it.
func New(configPath string) *viper.Viper {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("determ")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "determ"))
		}
	}

	v.SetEnvPrefix("DETERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// Load reads the config file, if any, and decodes v into a Config.
// A missing file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.read_timeout", "100ms")
	v.SetDefault("serial.driver", string(determ.DriverNative))

	v.SetDefault("worker.command_wait", determ.DefaultCommandWait)
	v.SetDefault("worker.idle_sleep", determ.DefaultIdleSleep)

	v.SetDefault("scripts.dtr", determ.DTRResetScript)
	v.SetDefault("scripts.rts", determ.RTSResetScript)

	v.SetDefault("ui.scrollback", 1000)
	v.SetDefault("ui.tick", "50ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size", 10)
	v.SetDefault("log.file.max_age", 7)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.compress", false)
}

// Validate checks values that would otherwise fail later at open time
func (c *Config) Validate() error {
	if _, err := c.SerialOptions(); err != nil {
		return err
	}
	if _, _, err := c.FlowScripts(); err != nil {
		return err
	}
	if c.Worker.CommandWait <= 0 || c.Worker.IdleSleep <= 0 {
		return fmt.Errorf("%w: worker intervals must be positive", determ.ErrInvalidConfig)
	}
	if c.UI.Scrollback <= 0 {
		return fmt.Errorf("%w: ui.scrollback must be positive", determ.ErrInvalidConfig)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", determ.ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// SerialOptions converts the serial section into open options
func (c *Config) SerialOptions() ([]determ.Option, error) {
	opts := []determ.Option{
		determ.WithBaudRate(c.Serial.BaudRate),
		determ.WithReadTimeout(c.Serial.ReadTimeout),
		determ.WithDriver(determ.Driver(c.Serial.Driver)),
	}

	probe := determ.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&probe); err != nil {
			return nil, fmt.Errorf("serial: %w", err)
		}
	}
	return opts, nil
}

// FlowScripts parses the configured DTR and RTS scripts
func (c *Config) FlowScripts() (dtr, rts determ.FlowScript, err error) {
	if dtr, err = determ.ParseFlowScript(c.Scripts.DTR); err != nil {
		return nil, nil, fmt.Errorf("scripts.dtr: %w", err)
	}
	if rts, err = determ.ParseFlowScript(c.Scripts.RTS); err != nil {
		return nil, nil, fmt.Errorf("scripts.rts: %w", err)
	}
	return dtr, rts, nil
}
