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

// Config holds all configuration for the application.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	MongoDB      MongoDBConfig      `mapstructure:"mongodb"`
	API          APIConfig          `mapstructure:"api"`
	Participants ParticipantsConfig `mapstructure:"participants"`
	Scene        SceneConfig        `mapstructure:"scene"`
	Locale       string             `mapstructure:"locale"`
	LogVerbose   bool               `mapstructure:"logverbose"`
	LogFile      string             `mapstructure:"logfile"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowedorigins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, file, mongo or memory
	Path   string `mapstructure:"path"` // sqlite file, or snapshot directory for the file driver
	Name   string `mapstructure:"name"`
}

// MongoDBConfig holds MongoDB-specific configuration.
type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// APIConfig describes the optional remote lottery backend.
type APIConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BaseURL       string        `mapstructure:"baseurl"`
	UsersEndpoint string        `mapstructure:"usersendpoint"`
	DrawEndpoint  string        `mapstructure:"drawendpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ParticipantsConfig points at participant data and photos.
type ParticipantsConfig struct {
	File         string `mapstructure:"file"`
	PhotoDir     string `mapstructure:"photodir"` // empty serves the bundled photos
	PhotoBaseURL string `mapstructure:"photobaseurl"`
}

// SceneConfig sizes the particle field.
type SceneConfig struct {
	ParticleCount int `mapstructure:"particlecount"`
	FPS           int `mapstructure:"fps"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
}

// Load reads an optional .env file, an optional config.yaml from dir (or
// ./config) and LUCKYDRAW_* environment variables, in increasing priority.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("LUCKYDRAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "file", "mongo", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.API.Enabled && c.API.BaseURL == "" {
		return errors.New("api.baseurl is required when the remote API is enabled")
	}
	if c.Scene.ParticleCount <= 0 {
		return fmt.Errorf("scene.particlecount must be positive, got %d", c.Scene.ParticleCount)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowedorigins", []string{"*"})
	v.SetDefault("server.shutdowntimeout", 5*time.Second)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "luckydraw.db")
	v.SetDefault("storage.name", "lottery-storage")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "luckydraw")
	v.SetDefault("mongodb.collection", "snapshots")
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.baseurl", "")
	v.SetDefault("api.usersendpoint", "/api/lottery/users")
	v.SetDefault("api.drawendpoint", "/api/lottery/draw")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("participants.file", "")
	v.SetDefault("participants.photodir", "")
	v.SetDefault("participants.photobaseurl", "")
	v.SetDefault("scene.particlecount", 7000)
	v.SetDefault("scene.fps", 30)
	v.SetDefault("scene.width", 1280)
	v.SetDefault("scene.height", 720)
	v.SetDefault("locale", "en")
	v.SetDefault("logverbose", true)
	v.SetDefault("logfile", "")
}
