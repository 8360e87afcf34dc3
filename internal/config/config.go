package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"pandafinder/internal/scoring"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 pandafinder/1.0"

const defaultSearchURL = "https://www.bilbasen.dk/brugt/bil/fiat/panda?includeengroscvr=true&includeleasing=false"

type Config struct {
	DatabaseURL string
	RedisURL    string
	OpenAIKey   string

	ServerHost  string
	ServerPort  string
	MetricsPort string

	SearchTerm      string
	BaseURL         string
	SearchURL       string
	UserAgent       string
	MaxPages        int
	RequestDelayMin time.Duration
	RequestDelayMax time.Duration
	RetryAttempts   int
	RetryDelayBase  time.Duration

	ScrapeOnStart bool
	CleanupDays   int
	CacheTTL      time.Duration
	LogLevel      string
	LogFormat     string

	Scoring scoring.Config
}

func Load() *Config {
	// .env from the repo root when running under cmd/, else the cwd.
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),

		ServerHost:  getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:  getEnv("SERVER_PORT", "8000"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),

		SearchTerm:      getEnv("SEARCH_TERM", "Fiat Panda"),
		BaseURL:         getEnv("BASE_URL", "https://www.bilbasen.dk"),
		SearchURL:       getEnv("SEARCH_URL", defaultSearchURL),
		UserAgent:       getEnv("USER_AGENT", defaultUserAgent),
		MaxPages:        getEnvInt("MAX_PAGES", 3),
		RequestDelayMin: getEnvDuration("REQUEST_DELAY_MIN", time.Second),
		RequestDelayMax: getEnvDuration("REQUEST_DELAY_MAX", 3*time.Second),
		RetryAttempts:   getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelayBase:  getEnvDuration("RETRY_DELAY_BASE", 2*time.Second),

		ScrapeOnStart: getEnvBool("SCRAPE_ON_START", false),
		CleanupDays:   getEnvInt("CLEANUP_DAYS", 7),
		CacheTTL:      getEnvDuration("CACHE_TTL", time.Minute),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),

		Scoring: scoring.DefaultConfig(),
	}

	// Scoring profile: defaults, then the YAML file, then env overrides.
	// Validation happens at engine construction, not here.
	if path := os.Getenv("SCORING_CONFIG"); path != "" {
		if err := loadScoringProfile(path, &cfg.Scoring); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("scoring profile not loaded")
		}
	}
	cfg.Scoring.Weights.Price = getEnvFloat("SCORE_WEIGHT_PRICE", cfg.Scoring.Weights.Price)
	cfg.Scoring.Weights.Year = getEnvFloat("SCORE_WEIGHT_YEAR", cfg.Scoring.Weights.Year)
	cfg.Scoring.Weights.Kilometers = getEnvFloat("SCORE_WEIGHT_KILOMETERS", cfg.Scoring.Weights.Kilometers)
	cfg.Scoring.Weights.Condition = getEnvFloat("SCORE_WEIGHT_CONDITION", cfg.Scoring.Weights.Condition)
	cfg.Scoring.WinsorizeLowerPct = getEnvFloat("WINSORIZE_LOWER_PCT", cfg.Scoring.WinsorizeLowerPct)
	cfg.Scoring.WinsorizeUpperPct = getEnvFloat("WINSORIZE_UPPER_PCT", cfg.Scoring.WinsorizeUpperPct)

	return cfg
}

func loadScoringProfile(path string, dst *scoring.Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, dst)
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getEnvFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

func getEnvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func getEnvDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
