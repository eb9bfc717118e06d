package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	generatordomain "github.com/whoneedsawriter/platform/internal/generator/domain"
)

// GenerationConfig carries the tunable knobs of the generation pipeline.
type GenerationConfig struct {
	// DefaultPromptTemplate is substituted per keyword; it must contain
	// the {KEYWORD} placeholder.
	DefaultPromptTemplate string        `mapstructure:"defaultPromptTemplate"`
	PollInterval          time.Duration `mapstructure:"pollInterval"`
	PollTimeout           time.Duration `mapstructure:"pollTimeout"`
	FreeCreditAllotment   float64       `mapstructure:"freeCreditAllotment"`
	FreeCreditResetEvery  time.Duration `mapstructure:"freeCreditResetEvery"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		DefaultPromptTemplate: "Write a detailed and information-dense and seo optimized article in English for the keyword {KEYWORD} in html using clear language without unnecessary grandiose or exaggerations. Write the article with subheadings formatted in HTML without head or title.",
		PollInterval:          2 * time.Minute,
		PollTimeout:           15 * time.Minute,
		FreeCreditAllotment:   30,
		FreeCreditResetEvery:  24 * time.Hour,
	}
}

// GenerationConfigHolder keeps the current GenerationConfig and hot-reloads
// it when the backing file changes.
type GenerationConfigHolder struct {
	current atomic.Value // holds GenerationConfig
}

func NewGenerationConfigHolder() (*GenerationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("generation")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/whoneedsawriter")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WNW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGenerationConfig()
	v.SetDefault("generation.defaultPromptTemplate", defaults.DefaultPromptTemplate)
	v.SetDefault("generation.pollInterval", defaults.PollInterval)
	v.SetDefault("generation.pollTimeout", defaults.PollTimeout)
	v.SetDefault("generation.freeCreditAllotment", defaults.FreeCreditAllotment)
	v.SetDefault("generation.freeCreditResetEvery", defaults.FreeCreditResetEvery)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg GenerationConfig
	if err := v.UnmarshalKey("generation", &cfg); err != nil {
		return nil, err
	}
	if err := validateGenerationConfig(cfg); err != nil {
		return nil, err
	}

	holder := &GenerationConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated GenerationConfig
		if err := v.UnmarshalKey("generation", &updated); err != nil {
			log.Printf("[generation-config] reload failed: %v", err)
			return
		}
		if err := validateGenerationConfig(updated); err != nil {
			log.Printf("[generation-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[generation-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *GenerationConfigHolder) Get() GenerationConfig {
	return h.current.Load().(GenerationConfig)
}

// Set replaces the current config. Intended for tests.
func (h *GenerationConfigHolder) Set(cfg GenerationConfig) {
	h.current.Store(cfg)
}

func validateGenerationConfig(cfg GenerationConfig) error {
	if err := generatordomain.ValidateTemplate(cfg.DefaultPromptTemplate); err != nil {
		return errors.New("generation.defaultPromptTemplate must contain " + generatordomain.KeywordPlaceholder)
	}
	if cfg.PollInterval <= 0 {
		return errors.New("generation.pollInterval must be positive")
	}
	if cfg.PollTimeout < cfg.PollInterval {
		return errors.New("generation.pollTimeout must be at least pollInterval")
	}
	if cfg.FreeCreditAllotment < 0 {
		return errors.New("generation.freeCreditAllotment cannot be negative")
	}
	return nil
}
