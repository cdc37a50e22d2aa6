// Load envs from .env
// Load YAML config
// Validate config
// Provide default values

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go-bosszp-automation/internal/scraper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

var (
	ErrUnknownSite = errors.New("unknown site")
	ErrUnknownCity = errors.New("unknown city")
)

type Pacing struct {
	Settle scraper.Delay `yaml:"settle"` // after submitting a search
	Scroll scraper.Delay `yaml:"scroll"`
	Click  scraper.Delay `yaml:"click"`
	Poll   scraper.Delay `yaml:"poll"` // url-change polling
}

type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type AI struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type Config struct {
	Site     string `yaml:"site"`
	City     string `yaml:"city"`
	DataDir  string `yaml:"data_dir"`
	Headless bool   `yaml:"headless"`
	//Optional cookies exported from a regular browser, used when no auth file exists
	CookiesPath string `yaml:"cookies_path"`
	ArchivePath string `yaml:"archive_path"`

	//Filtering
	ExcludeKeywords []string            `yaml:"exclude_keywords"`
	Degrees         map[string][]string `yaml:"degrees"`
	SalaryChoices   []string            `yaml:"salary_choices"`
	GuestMaxSize    int                 `yaml:"guest_max_size"`

	//Timing
	Pacing             Pacing        `yaml:"pacing"`
	NavigationTimeout  time.Duration `yaml:"navigation_timeout"`
	URLChangeTimeout   time.Duration `yaml:"url_change_timeout"`
	NetworkIdleTimeout time.Duration `yaml:"network_idle_timeout"`
	MaxScrollRounds    int           `yaml:"max_scroll_rounds"`
	SessionTimeout     time.Duration `yaml:"session_timeout"`

	Telegram Telegram `yaml:"telegram"`
	AI       AI       `yaml:"ai"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Site:            "ZHIPIN",
		DataDir:         "data",
		ArchivePath:     "jobs.db",
		ExcludeKeywords: append([]string(nil), DefaultExcludeKeywords...),
		Degrees:         copyDegrees(DefaultDegrees),
		SalaryChoices:   append([]string(nil), DefaultSalaryChoices...),
		GuestMaxSize:    15,
		Pacing: Pacing{
			Settle: scraper.Delay{Min: 2 * time.Second, Max: 4 * time.Second},
			Scroll: scraper.Delay{Min: 1 * time.Second, Max: 2 * time.Second},
			Click:  scraper.Delay{Min: 1 * time.Second, Max: 3 * time.Second},
			Poll:   scraper.Delay{Min: 1 * time.Second, Max: 3 * time.Second},
		},
		NavigationTimeout:  30 * time.Second,
		URLChangeTimeout:   60 * time.Second,
		NetworkIdleTimeout: 30 * time.Second,
		MaxScrollRounds:    60,
		AI: AI{
			Model:   "llama-3.3-70b-versatile",
			BaseURL: "https://api.groq.com/openai/v1",
		},
	}
}

// Load reads .env, then the YAML file at path, then environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ Could not read %s: %v (using defaults)", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	//Override with env vars
	if dir := os.Getenv("BOSS_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if headless := os.Getenv("BOSS_HEADLESS"); headless != "" {
		v, err := strconv.ParseBool(headless)
		if err != nil {
			return nil, fmt.Errorf("invalid BOSS_HEADLESS: %w", err)
		}
		cfg.Headless = v
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}

	//Set default values if not set
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if len(cfg.Degrees) == 0 {
		cfg.Degrees = copyDegrees(DefaultDegrees)
	}
	if len(cfg.SalaryChoices) == 0 {
		cfg.SalaryChoices = append([]string(nil), DefaultSalaryChoices...)
	}
	if cfg.URLChangeTimeout <= 0 {
		cfg.URLChangeTimeout = 60 * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := LookupSite(c.Site); err != nil {
		return err
	}
	if c.City != "" {
		if _, err := CityCode(c.City); err != nil {
			return err
		}
	}
	delays := map[string]scraper.Delay{
		"settle": c.Pacing.Settle,
		"scroll": c.Pacing.Scroll,
		"click":  c.Pacing.Click,
		"poll":   c.Pacing.Poll,
	}
	for name, d := range delays {
		if d.Min < 0 || (d.Max != 0 && d.Max < d.Min) {
			return fmt.Errorf("pacing.%s: max (%v) must not be below min (%v)", name, d.Max, d.Min)
		}
	}
	if c.MaxScrollRounds < 0 {
		return fmt.Errorf("max_scroll_rounds must not be negative")
	}
	return nil
}

// SiteConfig resolves the configured site.
func (c *Config) SiteConfig() (Site, error) {
	return LookupSite(c.Site)
}

// Path joins name onto the data directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

// ArchiveFile is the SQLite archive location; relative paths live in the data directory.
func (c *Config) ArchiveFile() string {
	if c.ArchivePath == "" || filepath.IsAbs(c.ArchivePath) {
		return c.ArchivePath
	}
	return c.Path(c.ArchivePath)
}

func copyDegrees(src map[string][]string) map[string][]string {
	dst := make(map[string][]string, len(src))
	for k, v := range src {
		dst[k] = append([]string(nil), v...)
	}
	return dst
}
