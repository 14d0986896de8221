// Package config loads the semantica configuration: YAML file over built-in
// defaults, then .env files, then SEMANTICA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/semantica/internal/logger"
	"github.com/cognicore/semantica/pkg/semantica/ingest"
	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/stoplist"
)

// Config is the immutable runtime configuration.
type Config struct {
	Store     Store         `yaml:"store"`
	Search    Search        `yaml:"search"`
	LLM       LLM           `yaml:"llm"`
	RateLimit RateLimit     `yaml:"rate_limit"`
	Harvest   Harvest       `yaml:"harvest"`
	Analysis  Analysis      `yaml:"analysis"`
	Scoring   Scoring       `yaml:"scoring"`
	Log       logger.Config `yaml:"log"`

	// StoplistPath names an optional YAML file of extra stopwords.
	StoplistPath string `yaml:"stoplist_path"`
}

type Store struct {
	Path string `yaml:"path"`
}

type Search struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Language    string        `yaml:"language"`
	Country     string        `yaml:"country"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheWindow time.Duration `yaml:"cache_window"`
	PerKeyword  int           `yaml:"per_keyword"`
	Rate        float64       `yaml:"rate"` // searches per second, 0 means unlimited
	Burst       int           `yaml:"burst"`
}

type Provider struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
}

type LLM struct {
	// Analyzer is the provider tried first for reports; the other one is
	// the fallback. Generation uses OpenAI alone, or Anthropic when OpenAI
	// has no key.
	Analyzer    string   `yaml:"analyzer"`
	Temperature float64  `yaml:"temperature"`
	OpenAI      Provider `yaml:"openai"`
	Anthropic   Provider `yaml:"anthropic"`
}

type RateLimit struct {
	DailyLimit int           `yaml:"daily_limit"` // 0 disables limiting
	Window     time.Duration `yaml:"window"`
}

type Harvest struct {
	MaxURLs     int           `yaml:"max_urls"`
	MaxLength   int           `yaml:"max_length"`
	MinChars    int           `yaml:"min_chars"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	UserAgent   string        `yaml:"user_agent"`
}

type Analysis struct {
	CacheWindow     time.Duration `yaml:"cache_window"`
	PromptDocuments int           `yaml:"prompt_documents"`
	ExcerptChars    int           `yaml:"excerpt_chars"`
	PromptTerms     int           `yaml:"prompt_terms"`
}

type Scoring struct {
	MinWords         int     `yaml:"min_words"`
	ReadabilityLow   float64 `yaml:"readability_low"`
	ReadabilityHigh  float64 `yaml:"readability_high"`
	ReadabilityFloor float64 `yaml:"readability_floor"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: Store{Path: "semantica.db"},
		Search: Search{
			BaseURL:     "https://serpapi.com/search.json",
			Language:    "es",
			Country:     "es",
			Timeout:     30 * time.Second,
			CacheWindow: 7 * 24 * time.Hour,
			PerKeyword:  5,
			Burst:       1,
		},
		LLM: LLM{
			Analyzer:    "openai",
			Temperature: 0.2,
			OpenAI: Provider{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4.1",
				Timeout:   30 * time.Second,
				MaxTokens: 4096,
			},
			Anthropic: Provider{
				Model:     "claude-sonnet-4-20250514",
				Timeout:   30 * time.Second,
				MaxTokens: 4096,
			},
		},
		RateLimit: RateLimit{DailyLimit: 10, Window: 24 * time.Hour},
		Harvest: Harvest{
			MaxURLs:   30,
			MaxLength: 12000,
			MinChars:  400,
			Timeout:   15 * time.Second,
			UserAgent: "SemanticaBot/1.0",
		},
		Analysis: Analysis{
			CacheWindow:     30 * 24 * time.Hour,
			PromptDocuments: 12,
			ExcerptChars:    1200,
			PromptTerms:     30,
		},
		Scoring: Scoring{
			MinWords:         600,
			ReadabilityLow:   60,
			ReadabilityHigh:  85,
			ReadabilityFloor: 70,
		},
		Log: logger.Config{Level: "info"},
	}
}

// Load reads path (optional) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}

	dotenv, err := readEnvFiles()
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readEnvFiles returns the variables of ENV_FILE when set, otherwise of
// .env overlaid with .env.local. Missing files are ignored. The process
// environment is not modified.
func readEnvFiles() (map[string]string, error) {
	files := []string{".env", ".env.local"}
	if f := os.Getenv("ENV_FILE"); f != "" {
		files = []string{f}
	}
	out := make(map[string]string)
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
		for k, v := range vars {
			out[k] = v
		}
	}
	return out, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SEMANTICA_DB_PATH":         &c.Store.Path,
		"SEMANTICA_SERPAPI_KEY":     &c.Search.APIKey,
		"SEMANTICA_SERPAPI_URL":     &c.Search.BaseURL,
		"SEMANTICA_OPENAI_KEY":      &c.LLM.OpenAI.APIKey,
		"SEMANTICA_OPENAI_URL":      &c.LLM.OpenAI.BaseURL,
		"SEMANTICA_OPENAI_MODEL":    &c.LLM.OpenAI.Model,
		"SEMANTICA_ANTHROPIC_KEY":   &c.LLM.Anthropic.APIKey,
		"SEMANTICA_ANTHROPIC_URL":   &c.LLM.Anthropic.BaseURL,
		"SEMANTICA_ANTHROPIC_MODEL": &c.LLM.Anthropic.Model,
		"SEMANTICA_ANALYZER":        &c.LLM.Analyzer,
		"SEMANTICA_LOG_LEVEL":       &c.Log.Level,
		"SEMANTICA_STOPLIST":        &c.StoplistPath,
		"SEMANTICA_SEARCH_LANGUAGE": &c.Search.Language,
		"SEMANTICA_SEARCH_COUNTRY":  &c.Search.Country,
		"SEMANTICA_USER_AGENT":      &c.Harvest.UserAgent,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup("SEMANTICA_DAILY_LIMIT"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: SEMANTICA_DAILY_LIMIT: %v", internalerr.ErrInvalidConfig, err)
		}
		c.RateLimit.DailyLimit = n
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	check(strings.TrimSpace(c.Store.Path) != "", "store.path is required")
	check(c.Search.Language != "" && c.Search.Country != "", "search.language and search.country are required")
	check(c.Search.CacheWindow > 0, "search.cache_window must be positive")
	check(c.Search.PerKeyword > 0, "search.per_keyword must be positive")
	check(c.Search.Rate >= 0, "search.rate must not be negative")
	check(c.LLM.Analyzer == "openai" || c.LLM.Analyzer == "anthropic", "llm.analyzer must be openai or anthropic")
	check(c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2, "llm.temperature must be within [0,2]")
	check(c.RateLimit.DailyLimit >= 0, "rate_limit.daily_limit must not be negative")
	check(c.RateLimit.Window > 0, "rate_limit.window must be positive")
	check(c.Harvest.MaxURLs > 0, "harvest.max_urls must be positive")
	check(c.Harvest.MaxLength > 0, "harvest.max_length must be positive")
	check(c.Harvest.Timeout > 0, "harvest.timeout must be positive")
	check(c.Analysis.CacheWindow > 0, "analysis.cache_window must be positive")
	check(c.Scoring.MinWords > 0, "scoring.min_words must be positive")
	check(c.Scoring.ReadabilityFloor >= 0 && c.Scoring.ReadabilityFloor <= 100, "scoring.readability_floor must be within [0,100]")
	check(c.Scoring.ReadabilityLow <= c.Scoring.ReadabilityHigh, "scoring.readability_low must not exceed readability_high")
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Stoplist is the extra stopword file format.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file.
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}
	return &sl, nil
}

// Tokenizer builds the Spanish tokenizer plus any extra stopwords.
func (c Config) Tokenizer() (*ingest.Tokenizer, error) {
	terms := stoplist.Spanish()
	if c.StoplistPath != "" {
		sl, err := LoadStoplist(c.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		terms = append(terms, sl.Terms...)
	}
	return ingest.NewTokenizer(terms), nil
}
