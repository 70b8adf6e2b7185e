package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the structural validity of a Config: the version field,
// the storage path, and the summarizer provider selection. Tunables are
// range-checked; zero values fall back to built-in defaults at wiring time.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Storage.Path == "" {
		errs = append(errs, errors.New("config: storage.path is required"))
	}
	if cfg.Storage.BusyTimeout < 0 {
		errs = append(errs, errors.New("config: storage.busy_timeout must not be negative"))
	}

	errs = append(errs, validateSummarizer(&cfg.Summarizer)...)

	if cfg.Memory.MaxMessages < 0 {
		errs = append(errs, errors.New("config: memory.max_messages must not be negative"))
	}
	if cfg.Memory.MaxWeeks < 0 {
		errs = append(errs, errors.New("config: memory.max_weeks must not be negative"))
	}

	for i, phrase := range cfg.Safeguard.Phrases {
		if strings.TrimSpace(phrase) == "" {
			errs = append(errs, fmt.Errorf("config: safeguard.phrases[%d] is blank", i))
		}
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.CompressSchedule != "" &&
		len(strings.Fields(cfg.Scheduler.CompressSchedule)) != 5 {
		errs = append(errs, fmt.Errorf("config: scheduler.compress_schedule %q is not a five-field cron expression", cfg.Scheduler.CompressSchedule))
	}

	return errors.Join(errs...)
}

func validateSummarizer(s *SummarizerConfig) []error {
	var errs []error

	switch s.Type {
	case "openai":
		if s.OpenAI == nil {
			errs = append(errs, errors.New("config: summarizer.type is \"openai\" but summarizer.openai is missing"))
			break
		}
		if s.OpenAI.BaseURL == "" {
			errs = append(errs, errors.New("config: summarizer.openai.base_url is required"))
		}
		if s.OpenAI.Model == "" {
			errs = append(errs, errors.New("config: summarizer.openai.model is required"))
		}
	case "anthropic":
		if s.Anthropic == nil {
			errs = append(errs, errors.New("config: summarizer.type is \"anthropic\" but summarizer.anthropic is missing"))
			break
		}
		if s.Anthropic.APIKey == "" {
			errs = append(errs, errors.New("config: summarizer.anthropic.api_key is required"))
		}
		if s.Anthropic.Model == "" {
			errs = append(errs, errors.New("config: summarizer.anthropic.model is required"))
		}
	case "":
		errs = append(errs, errors.New("config: summarizer.type is required"))
	default:
		errs = append(errs, fmt.Errorf("config: unknown summarizer type %q (supported: openai, anthropic)", s.Type))
	}

	return errs
}
