package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/keepsake-ai/keepsake/internal/compress"
	"github.com/keepsake-ai/keepsake/internal/config"
	ctxbuild "github.com/keepsake-ai/keepsake/internal/context"
	"github.com/keepsake-ai/keepsake/internal/memory"
	"github.com/keepsake-ai/keepsake/internal/safeguard"
	"github.com/keepsake-ai/keepsake/modules/storage/sqlite"
	anthropicsum "github.com/keepsake-ai/keepsake/modules/summarizer/anthropic"
	openaisum "github.com/keepsake-ai/keepsake/modules/summarizer/openai"
)

// app bundles the wired subsystem for CLI commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *sqlite.Store
	tiers     *memory.TierManager
	pipeline  *compress.Pipeline
	assembler *ctxbuild.Assembler
	detector  *safeguard.Detector
}

// buildApp loads and validates configuration, opens the durable store, and
// wires the memory subsystem.
func buildApp(cmd *cobra.Command) (*app, error) {
	flagPath, _ := cmd.Flags().GetString("config")
	cfgPath, err := config.ResolvePath(flagPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	store, err := sqlite.Open(storageConfig(cfg.Storage))
	if err != nil {
		return nil, err
	}

	var tierOpts []memory.Option
	tierOpts = append(tierOpts, memory.WithLogger(logger))
	if cfg.Memory.MaxMessages > 0 {
		tierOpts = append(tierOpts, memory.WithMessageCap(cfg.Memory.MaxMessages))
	}
	if cfg.Memory.MaxWeeks > 0 {
		tierOpts = append(tierOpts, memory.WithWeekCap(cfg.Memory.MaxWeeks))
	}
	tiers := memory.NewTierManager(store, tierOpts...)

	summarizer, err := buildSummarizer(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	detector := safeguard.NewDetector(logger)
	for _, phrase := range cfg.Safeguard.Phrases {
		detector.AddPhrase(phrase)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		tiers:     tiers,
		pipeline:  compress.NewPipeline(tiers, summarizer, compress.WithLogger(logger)),
		assembler: ctxbuild.NewAssembler(tiers),
		detector:  detector,
	}, nil
}

// storageConfig maps the YAML storage block onto the sqlite driver config.
// BusyTimeout crosses a unit boundary here: the configuration carries a
// duration, the driver pragma wants whole milliseconds.
func storageConfig(sc config.StorageConfig) sqlite.Config {
	return sqlite.Config{
		Path:        sc.Path,
		WAL:         sc.WAL,
		BusyTimeout: int(sc.BusyTimeout.Milliseconds()),
	}
}

// buildSummarizer constructs the configured provider client.
func buildSummarizer(cfg *config.Config) (compress.Summarizer, error) {
	switch cfg.Summarizer.Type {
	case "openai":
		return openaisum.New(openaisum.Config{
			BaseURL: cfg.Summarizer.OpenAI.BaseURL,
			APIKey:  cfg.Summarizer.OpenAI.APIKey,
			Model:   cfg.Summarizer.OpenAI.Model,
		})
	case "anthropic":
		return anthropicsum.New(anthropicsum.Config{
			APIKey: cfg.Summarizer.Anthropic.APIKey,
			Model:  cfg.Summarizer.Anthropic.Model,
		})
	default:
		return nil, fmt.Errorf("unknown summarizer type %q", cfg.Summarizer.Type)
	}
}

// Close releases the durable store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing store failed", "error", err)
	}
}
