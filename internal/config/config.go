package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the routedex API configuration. Read once at startup and
// treated as immutable for the process lifetime.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Routing    RoutingConfig    `yaml:"routing"`
	Complexity ComplexityConfig `yaml:"complexity"`
	Comparison ComparisonConfig `yaml:"comparison"`
	Costs      CostsConfig      `yaml:"costs"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the embedding-cache store connection. Optional:
// with no addrs the cache layer is skipped entirely.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CompletionConfig holds the completion provider settings for the
// real-call variant of the complexity path. Disabled by default: routing
// then records simulated per-tier costs instead of measured ones.
type CompletionConfig struct {
	Enabled     bool          `yaml:"enabled"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	StrongModel string        `yaml:"strong_model"`
	WeakModel   string        `yaml:"weak_model"`
	MaxTokens   int           `yaml:"max_tokens"`
	TimeoutSec  int           `yaml:"timeout_sec"`
	Pricing     PricingConfig `yaml:"pricing"`
}

// PricingConfig holds per-1K-token prices for both tiers.
type PricingConfig struct {
	Strong TierPricing `yaml:"strong"`
	Weak   TierPricing `yaml:"weak"`
}

// TierPricing holds input/output prices per 1K tokens in USD.
type TierPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// RoutingConfig holds the semantic router's category definitions.
type RoutingConfig struct {
	// Categories are matched in declaration order; ties within Epsilon of
	// the top score resolve to the earliest declared category.
	Categories []CategoryConfig `yaml:"categories"`
	Epsilon    float64          `yaml:"epsilon"`
}

// CategoryConfig is one intent category with its reference utterances.
type CategoryConfig struct {
	Name       string   `yaml:"name"`
	Utterances []string `yaml:"utterances"`
}

// ComplexityConfig holds the complexity classifier's scoring rules.
// All weights and thresholds come from configuration, never derived from
// data at runtime.
type ComplexityConfig struct {
	Threshold float64        `yaml:"threshold"`
	Keywords  KeywordsConfig `yaml:"keywords"`
	Weights   WeightsConfig  `yaml:"weights"`
	Length    SignalConfig   `yaml:"length"`
	Technical TermsConfig    `yaml:"technical"`
	Question  SignalConfig   `yaml:"question"`
}

// KeywordsConfig holds the three disjoint keyword sets.
type KeywordsConfig struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
	Low    []string `yaml:"low"`
}

// WeightsConfig holds per-band base weights (high > medium > low).
type WeightsConfig struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
	Low    float64 `yaml:"low"`
}

// SignalConfig is a proportional signal with a contribution cap.
type SignalConfig struct {
	// PerUnit is the contribution per unit (per character for length,
	// per question mark for question).
	PerUnit float64 `yaml:"per_unit"`
	Max     float64 `yaml:"max"`
}

// TermsConfig is the technical-term signal: term list, weight per match, cap.
type TermsConfig struct {
	Terms   []string `yaml:"terms"`
	PerTerm float64  `yaml:"per_term"`
	Max     float64  `yaml:"max"`
}

// ComparisonConfig holds the comparison harness settings. Ratio thresholds
// drive the recommendation and are configuration, not data-derived.
type ComparisonConfig struct {
	Workers      int     `yaml:"workers"`
	LatencyRatio float64 `yaml:"latency_ratio"`
	CostRatio    float64 `yaml:"cost_ratio"`
}

// CostsConfig holds the per-query cost constants used in simulated mode.
type CostsConfig struct {
	SemanticPerQueryUSD float64 `yaml:"semantic_per_query_usd"`
	SimulatedStrongUSD  float64 `yaml:"simulated_strong_usd"`
	SimulatedWeakUSD    float64 `yaml:"simulated_weak_usd"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values. The complexity
// signal defaults match the reference scoring model: base bands
// 0.8/0.5/0.3, length 1/300 capped at 0.2, technical terms 0.1 capped at
// 0.2, question marks 0.05 capped at 0.1, decision threshold 0.7.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Completion.StrongModel == "" {
		c.Completion.StrongModel = "gpt-4o-mini"
	}
	if c.Completion.WeakModel == "" {
		c.Completion.WeakModel = "gpt-4o-nano"
	}
	if c.Completion.MaxTokens <= 0 {
		c.Completion.MaxTokens = 150
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 60
	}
	if c.Completion.Pricing.Strong.InputPer1K <= 0 {
		c.Completion.Pricing.Strong.InputPer1K = 0.00015
	}
	if c.Completion.Pricing.Strong.OutputPer1K <= 0 {
		c.Completion.Pricing.Strong.OutputPer1K = 0.0006
	}
	if c.Completion.Pricing.Weak.InputPer1K <= 0 {
		c.Completion.Pricing.Weak.InputPer1K = 0.000015
	}
	if c.Completion.Pricing.Weak.OutputPer1K <= 0 {
		c.Completion.Pricing.Weak.OutputPer1K = 0.00006
	}
	if c.Routing.Epsilon <= 0 {
		c.Routing.Epsilon = 1e-6
	}
	if c.Complexity.Threshold <= 0 {
		c.Complexity.Threshold = 0.7
	}
	if c.Complexity.Weights == (WeightsConfig{}) {
		c.Complexity.Weights = WeightsConfig{High: 0.8, Medium: 0.5, Low: 0.3}
	}
	if len(c.Complexity.Keywords.High) == 0 &&
		len(c.Complexity.Keywords.Medium) == 0 &&
		len(c.Complexity.Keywords.Low) == 0 {
		c.Complexity.Keywords = defaultKeywords()
	}
	if c.Complexity.Length.PerUnit <= 0 {
		c.Complexity.Length.PerUnit = 1.0 / 300
	}
	if c.Complexity.Length.Max <= 0 {
		c.Complexity.Length.Max = 0.2
	}
	if len(c.Complexity.Technical.Terms) == 0 {
		c.Complexity.Technical.Terms = defaultTechnicalTerms()
	}
	if c.Complexity.Technical.PerTerm <= 0 {
		c.Complexity.Technical.PerTerm = 0.1
	}
	if c.Complexity.Technical.Max <= 0 {
		c.Complexity.Technical.Max = 0.2
	}
	if c.Complexity.Question.PerUnit <= 0 {
		c.Complexity.Question.PerUnit = 0.05
	}
	if c.Complexity.Question.Max <= 0 {
		c.Complexity.Question.Max = 0.1
	}
	if c.Comparison.Workers <= 0 {
		c.Comparison.Workers = 1
	}
	if c.Comparison.LatencyRatio <= 0 {
		c.Comparison.LatencyRatio = 1.5
	}
	if c.Comparison.CostRatio <= 0 {
		c.Comparison.CostRatio = 2.0
	}
	if c.Costs.SemanticPerQueryUSD <= 0 {
		c.Costs.SemanticPerQueryUSD = 0.00001
	}
	if c.Costs.SimulatedStrongUSD <= 0 {
		c.Costs.SimulatedStrongUSD = 0.002
	}
	if c.Costs.SimulatedWeakUSD <= 0 {
		c.Costs.SimulatedWeakUSD = 0.0001
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Routing.Categories) == 0 {
		return fmt.Errorf("routing.categories is required")
	}
	seen := make(map[string]struct{}, len(c.Routing.Categories))
	for i, cat := range c.Routing.Categories {
		if cat.Name == "" {
			return fmt.Errorf("routing.categories[%d].name is required", i)
		}
		if _, dup := seen[cat.Name]; dup {
			return fmt.Errorf("routing.categories has duplicate name %q", cat.Name)
		}
		seen[cat.Name] = struct{}{}
		if len(cat.Utterances) == 0 {
			return fmt.Errorf("routing.categories[%d] (%s) has no utterances", i, cat.Name)
		}
	}
	w := c.Complexity.Weights
	if !(w.High > w.Medium && w.Medium > w.Low) {
		return fmt.Errorf(
			"complexity.weights must be strictly descending (high > medium > low), got %.3f/%.3f/%.3f",
			w.High, w.Medium, w.Low,
		)
	}
	if w.Low < 0 && w.Low < -w.Medium {
		return fmt.Errorf("complexity.weights.low is too negative: %.3f", w.Low)
	}
	if c.Complexity.Threshold > 1 {
		return fmt.Errorf("complexity.threshold must be in (0, 1], got %.3f", c.Complexity.Threshold)
	}
	if c.Completion.Enabled && c.Completion.APIKey == "" {
		return fmt.Errorf("completion.api_key is required when completion.enabled is true")
	}
	return nil
}

// defaultKeywords are the built-in complexity indicator sets. The three
// bands must stay disjoint: each keyword signals exactly one band.
func defaultKeywords() KeywordsConfig {
	return KeywordsConfig{
		High: []string{
			"explain", "analyze", "compare", "evaluate", "design",
			"architect", "optimize", "debug", "refactor", "implement",
			"develop", "build", "create complex", "algorithm", "system",
		},
		Medium: []string{
			"how", "why", "describe", "list", "summarize", "create",
			"generate", "write", "plan", "outline", "process",
		},
		Low: []string{
			"what", "when", "where", "who", "define", "name",
			"count", "find", "show", "get", "is", "are",
		},
	}
}

func defaultTechnicalTerms() []string {
	return []string{
		"api", "database", "algorithm", "architecture", "framework",
		"optimization", "performance", "scalability", "microservices",
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
