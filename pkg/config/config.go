// Package config loads promptcanvas settings from an optional YAML file,
// a .env file and PROMPTCANVAS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PROMPTCANVAS"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Canvas     CanvasConfig     `mapstructure:"canvas"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Background BackgroundConfig `mapstructure:"background"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

type CanvasConfig struct {
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	Background string `mapstructure:"background"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	MaxPixels    int64    `mapstructure:"max_pixels"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// EngineConfig selects the engine-backed filter provider: "native",
// "gocv" or "imagick". The last two need the matching build tag.
type EngineConfig struct {
	Provider     string        `mapstructure:"provider"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// BackgroundConfig configures background removal. Engine is "keying"
// (pure Go) or "grabcut" (gocv build tag).
type BackgroundConfig struct {
	Engine     string  `mapstructure:"engine"`
	Tolerance  float64 `mapstructure:"tolerance"`
	Feather    float64 `mapstructure:"feather"`
	MaxSide    int     `mapstructure:"max_side"`
	Iterations int     `mapstructure:"iterations"`
	BorderSize int     `mapstructure:"border_size"`
}

// RedisConfig configures the mask cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// Load reads configPath (may be empty) on top of the defaults. A missing
// file is not an error; a malformed one is.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New loads config.yaml from the working directory and falls back to the
// defaults if that fails.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("invalid upload.max_size: %d", c.Upload.MaxSize)
	}
	if c.Upload.MaxPixels < 0 {
		return fmt.Errorf("invalid upload.max_pixels: %d", c.Upload.MaxPixels)
	}
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("invalid engine.poll_interval: %s", c.Engine.PollInterval)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.session_ttl", 30*time.Minute)

	v.SetDefault("canvas.width", 800)
	v.SetDefault("canvas.height", 600)
	v.SetDefault("canvas.background", "#1f2937")

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.max_pixels", 40_000_000)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp"})

	v.SetDefault("engine.provider", "native")
	v.SetDefault("engine.poll_interval", 100*time.Millisecond)

	v.SetDefault("background.engine", "keying")
	v.SetDefault("background.tolerance", 12.0)
	v.SetDefault("background.feather", 1.0)
	v.SetDefault("background.max_side", 1024)
	v.SetDefault("background.iterations", 5)
	v.SetDefault("background.border_size", 10)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("log.mode", "debug")
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			SessionTTL:   30 * time.Minute,
		},
		Canvas: CanvasConfig{Width: 800, Height: 600, Background: "#1f2937"},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			MaxPixels:    40_000_000,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		},
		Engine: EngineConfig{Provider: "native", PollInterval: 100 * time.Millisecond},
		Background: BackgroundConfig{
			Engine:     "keying",
			Tolerance:  12,
			Feather:    1,
			MaxSide:    1024,
			Iterations: 5,
			BorderSize: 10,
		},
		Redis: RedisConfig{TTL: 24 * time.Hour},
		Log:   LogConfig{Mode: "debug"},
	}
}
