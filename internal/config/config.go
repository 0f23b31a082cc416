package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:":memory:"`
	HTTPServer  `yaml:"http_server"`
	Remote      `yaml:"remote"`
	Timeline    `yaml:"timeline"`
	Mixer       `yaml:"mixer"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"60s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	BodyLimitMB int           `yaml:"body_limit_mb" env-default:"512"`
}

// Remote is the media processing service.
type Remote struct {
	BaseURL string        `yaml:"base_url" env:"MEDIA_API_URL"`
	APIKey  string        `yaml:"api_key" env:"MEDIA_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"MEDIA_API_TIMEOUT" env-default:"10m"`
}

type Timeline struct {
	MinSegment     float64 `yaml:"min_segment" env-default:"0.1"`
	MatchEpsilon   float64 `yaml:"match_epsilon" env-default:"0.01"`
	GapPadding     float64 `yaml:"gap_padding" env-default:"0.05"`
	MinGapDuration float64 `yaml:"min_gap_duration" env-default:"0.4"`
}

type Mixer struct {
	VocalsVolume float64 `yaml:"vocals_volume" env-default:"1.0"`
	MusicVolume  float64 `yaml:"music_volume" env-default:"1.0"`
	CustomVolume float64 `yaml:"custom_volume" env-default:"0.5"`
	MaxVolume    float64 `yaml:"max_volume" env-default:"2.0"`
}

func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := fetchConfigPath()
	if configPath == "" {
		return MustLoadEnv()
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// MustLoadEnv reads config from environment only.
func MustLoadEnv() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
