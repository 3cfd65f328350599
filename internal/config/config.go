package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"storyloop/internal/errs"
	"storyloop/internal/observability"
)

// Config is the process configuration. Environment variables are read first;
// a settings file named by STORYLOOP_CONFIG then overrides any key it sets.
type Config struct {
	OpenAIKey   string `env:"OPENAI_API_KEY" yaml:"openai_api_key"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini" yaml:"openai_model"`

	Debug    bool   `env:"STORYLOOP_DEBUG" yaml:"debug"`
	DebugLog string `env:"STORYLOOP_DEBUG_LOG" envDefault:"debug.log" yaml:"debug_log"`

	CompletionDB string `env:"STORYLOOP_DB" envDefault:"./completions.db" yaml:"completion_db"`
	WorldFile    string `env:"STORYLOOP_WORLD" yaml:"world_file"`
	LoreFile     string `env:"STORYLOOP_LORE" yaml:"lore_file"`

	BaseRisk            float64 `env:"STORYLOOP_BASE_RISK" envDefault:"0.1" yaml:"base_risk"`
	EscalationThreshold float64 `env:"STORYLOOP_ESCALATION_THRESHOLD" envDefault:"0.7" yaml:"escalation_threshold"`
	TriggerPolicy       string  `env:"STORYLOOP_TRIGGER_POLICY" envDefault:"rerun" yaml:"trigger_policy"`

	GenerationTimeout   time.Duration `env:"STORYLOOP_GENERATION_TIMEOUT" envDefault:"8s" yaml:"generation_timeout"`
	GenerationMaxTokens int           `env:"STORYLOOP_GENERATION_MAX_TOKENS" envDefault:"120" yaml:"generation_max_tokens"`

	ListenAddr string `env:"STORYLOOP_ADDR" envDefault:":8080" yaml:"listen_addr"`

	Tracing Tracing `yaml:"tracing"`
}

type Tracing struct {
	Enabled      bool   `env:"OTEL_TRACES_ENABLED" yaml:"enabled"`
	LangfuseHost string `env:"LANGFUSE_HOST" envDefault:"https://cloud.langfuse.com" yaml:"langfuse_host"`
	PublicKey    string `env:"LANGFUSE_PUBLIC_KEY" yaml:"public_key"`
	SecretKey    string `env:"LANGFUSE_SECRET_KEY" yaml:"secret_key"`
	Environment  string `env:"ENVIRONMENT" envDefault:"development" yaml:"environment"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment, applies the optional settings file and
// validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if path := os.Getenv("STORYLOOP_CONFIG"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyFile overlays the YAML settings file at path. Keys absent from the
// file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode settings file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.BaseRisk < 0 || c.BaseRisk > 1 {
		return errs.Configuration("config", "base risk %.2f outside [0,1]", c.BaseRisk)
	}
	if c.EscalationThreshold < 0 || c.EscalationThreshold > 1 {
		return errs.Configuration("config", "escalation threshold %.2f outside [0,1]", c.EscalationThreshold)
	}
	switch c.TriggerPolicy {
	case "rerun", "once":
	default:
		return errs.Configuration("config", "unknown trigger policy %q", c.TriggerPolicy)
	}
	if c.GenerationTimeout <= 0 {
		return errs.Configuration("config", "generation timeout must be positive")
	}
	if c.GenerationMaxTokens <= 0 {
		return errs.Configuration("config", "generation max tokens must be positive")
	}
	if c.Tracing.Enabled && (c.Tracing.PublicKey == "" || c.Tracing.SecretKey == "") {
		return errs.Configuration("config", "tracing enabled without LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY")
	}
	return nil
}

// ObservabilityConfig maps the tracing block onto the tracer settings.
func (c Config) ObservabilityConfig(version string) observability.Config {
	return observability.Config{
		ServiceName:    observability.ServiceName,
		ServiceVersion: version,
		Environment:    c.Tracing.Environment,
		Enabled:        c.Tracing.Enabled,
		LangfuseHost:   c.Tracing.LangfuseHost,
		PublicKey:      c.Tracing.PublicKey,
		SecretKey:      c.Tracing.SecretKey,
	}
}
