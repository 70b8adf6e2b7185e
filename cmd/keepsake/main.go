// Package main is the entry point for the keepsake CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keepsake-ai/keepsake/internal/config"
	"github.com/keepsake-ai/keepsake/internal/cron"
	"github.com/keepsake-ai/keepsake/internal/gateway"
	"github.com/keepsake-ai/keepsake/internal/memory"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "keepsake",
		Short:         "Tiered long-term memory for a conversational assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(
		versionCmd(),
		startCmd(),
		configCmd(),
		compressCmd(),
		contextCmd(),
		profileCmd(),
		exportCmd(),
		importCmd(),
		resetCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("keepsake %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the memory daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			gw, err := gateway.New(gateway.Config{
				Bind:         app.cfg.Gateway.Bind,
				Token:        app.cfg.Gateway.Token,
				ReadTimeout:  app.cfg.Gateway.ReadTimeout,
				WriteTimeout: app.cfg.Gateway.WriteTimeout,
			}, gateway.Deps{
				Tiers:     app.tiers,
				Assembler: app.assembler,
				Pipeline:  app.pipeline,
				Detector:  app.detector,
				Pinger:    app.store,
				Logger:    app.logger,
			})
			if err != nil {
				return err
			}
			if err := gw.Start(); err != nil {
				return err
			}

			var sched *cron.Scheduler
			if app.cfg.Scheduler.Enabled {
				sched = cron.NewScheduler(app.logger)
				if err := sched.RegisterJob(&cron.CompressJob{
					Pipeline:     app.pipeline,
					Logger:       app.logger,
					ScheduleExpr: app.cfg.Scheduler.CompressSchedule,
				}); err != nil {
					return err
				}
				if err := sched.Start(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			app.logger.Info("shutting down")
			shutdownCtx := context.Background()
			if sched != nil {
				if err := sched.Stop(shutdownCtx); err != nil {
					app.logger.Error("scheduler shutdown failed", "error", err)
				}
			}
			return gw.Stop(shutdownCtx)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			fmt.Println("Configuration OK")
			return nil
		},
	})
	return cmd
}

func compressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compress",
		Short: "Run one compression cycle on the pending queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.pipeline.Compress(cmd.Context())
			if err != nil {
				return err
			}
			if res.NoOp {
				fmt.Println("Nothing pending.")
				return nil
			}
			fmt.Printf("Compressed %d session(s) into %s\n", res.Sessions, res.WeekID)
			return nil
		},
	}
}

func contextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Print the assembled context block",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			block, err := app.assembler.Assemble(cmd.Context())
			if err != nil {
				return err
			}
			if block == "" {
				fmt.Println("(no memory yet)")
				return nil
			}
			fmt.Println(block)
			return nil
		},
	}
}

// profilePatchDoc is the JSON shape accepted by `keepsake profile merge`.
type profilePatchDoc struct {
	PreferredName    string                     `json:"preferredName,omitempty"`
	Style            *memory.CommunicationStyle `json:"style,omitempty"`
	Relationships    []memory.Relationship      `json:"relationships,omitempty"`
	LifeEvents       []string                   `json:"lifeEvents,omitempty"`
	Triggers         []string                   `json:"triggers,omitempty"`
	CalmingFactors   []string                   `json:"calmingFactors,omitempty"`
	PeakAnxietyTimes []string                   `json:"peakAnxietyTimes,omitempty"`
	GrowthAreas      []string                   `json:"growthAreas,omitempty"`
	Sensitivities    []string                   `json:"sensitivities,omitempty"`
	EmotionalJourney string                     `json:"emotionalJourney,omitempty"`
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Long-term profile management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "merge <file>",
		Short: "Merge explicit facts into the profile (things the user asked to be remembered)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var doc profilePatchDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("invalid profile patch: %w", err)
			}

			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			patch := memory.ProfilePatch{
				PreferredName:    doc.PreferredName,
				Style:            doc.Style,
				Relationships:    doc.Relationships,
				LifeEvents:       doc.LifeEvents,
				Triggers:         doc.Triggers,
				CalmingFactors:   doc.CalmingFactors,
				PeakAnxietyTimes: doc.PeakAnxietyTimes,
				GrowthAreas:      doc.GrowthAreas,
				Sensitivities:    doc.Sensitivities,
				EmotionalJourney: doc.EmotionalJourney,
			}
			if patch.IsZero() {
				return fmt.Errorf("profile patch carries no changes")
			}
			if err := app.tiers.MergeIntoProfile(cmd.Context(), patch); err != nil {
				return err
			}
			fmt.Println("Profile updated.")
			return nil
		},
	})
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write a full memory backup as JSON (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			doc, err := app.tiers.Export(cmd.Context())
			if err != nil {
				return err
			}

			out := os.Stdout
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore memory from a backup, replacing current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var doc memory.ExportDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("invalid backup document: %w", err)
			}

			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.tiers.Import(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Println("Memory restored.")
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all memory tiers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return fmt.Errorf("refusing to erase memory without --force")
			}

			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.tiers.FactoryReset(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("All memory erased.")
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Confirm erasing all memory")
	return cmd
}
