package config

import (
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"smartlife/client/internal/model"
)

const DefaultAPIBaseURL = "https://smartlife-backend-production.up.railway.app"

type Config struct {
	APIBaseURL    string
	DBPath        string
	HTTPTimeout   time.Duration
	PollInterval  time.Duration
	FocusDuration time.Duration
	ShortBreak    time.Duration
	LongBreak     time.Duration
}

// fileConfig mirrors the optional YAML file. Zero values mean "not set".
type fileConfig struct {
	APIURL             string `mapstructure:"api_url"`
	DBPath             string `mapstructure:"db_path"`
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
	PollIntervalMS     int    `mapstructure:"poll_interval_ms"`
	FocusMinutes       int    `mapstructure:"focus_minutes"`
	ShortBreakMinutes  int    `mapstructure:"short_break_minutes"`
	LongBreakMinutes   int    `mapstructure:"long_break_minutes"`
}

// Load resolves configuration from defaults, then the YAML file, then the
// environment.
func Load() Config {
	home, _ := os.UserHomeDir()
	file := fileConfig{}
	path := getEnv("SMARTLIFE_CONFIG", filepath.Join(home, ".smartlife", "config.yaml"))
	if err := loadFile(path, &file); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring %s: %v", path, err)
	}

	return Config{
		APIBaseURL:    NormalizeBaseURL(getEnv("SMARTLIFE_API_URL", orString(file.APIURL, DefaultAPIBaseURL))),
		DBPath:        getEnv("SMARTLIFE_DB_PATH", orString(file.DBPath, filepath.Join(home, ".smartlife", "storage.db"))),
		HTTPTimeout:   time.Duration(getEnvInt("SMARTLIFE_HTTP_TIMEOUT_SECONDS", orInt(file.HTTPTimeoutSeconds, 15))) * time.Second,
		PollInterval:  time.Duration(getEnvInt("SMARTLIFE_POLL_INTERVAL_MS", orInt(file.PollIntervalMS, 1000))) * time.Millisecond,
		FocusDuration: time.Duration(getEnvInt("SMARTLIFE_FOCUS_MINUTES", orInt(file.FocusMinutes, 25))) * time.Minute,
		ShortBreak:    time.Duration(getEnvInt("SMARTLIFE_SHORT_BREAK_MINUTES", orInt(file.ShortBreakMinutes, 5))) * time.Minute,
		LongBreak:     time.Duration(getEnvInt("SMARTLIFE_LONG_BREAK_MINUTES", orInt(file.LongBreakMinutes, 15))) * time.Minute,
	}
}

func loadFile(path string, cfg *fileConfig) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// NormalizeBaseURL trims trailing slashes and falls back to the default base
// when raw is not an absolute http(s) URL.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultAPIBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		log.Printf("config: invalid api base url %q, falling back to default", raw)
		return DefaultAPIBaseURL
	}
	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func orString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// PomodoroModes is the mode table with the configured durations.
func (c Config) PomodoroModes() model.Modes {
	modes := model.DefaultModes()
	set := func(mode string, d time.Duration) {
		if d <= 0 {
			return
		}
		cfg := modes[mode]
		cfg.Duration = int(d / time.Second)
		modes[mode] = cfg
	}
	set(model.ModeFocus, c.FocusDuration)
	set(model.ModeShortBreak, c.ShortBreak)
	set(model.ModeLongBreak, c.LongBreak)
	return modes
}
