package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stakerank/stakerank/internal/api"
	"github.com/stakerank/stakerank/internal/cache"
	"github.com/stakerank/stakerank/internal/config"
	"github.com/stakerank/stakerank/internal/metrics"
)

// Build info, set with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = "unknown"
)

func InitRootCmd(rootCmd *cobra.Command, flags *rootFlags) {
	rootCmd.AddCommand(
		reportCmd(flags),
		identitiesCmd(flags),
		serveCmd(flags),
		configCmd(flags),
		versionCmd(),
	)
}

func reportCmd(flags *rootFlags) *cobra.Command {
	var (
		outputFormat string
		section      string
		limit        int
		noColor      bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the ranked active and waiting validator report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(outputFormat); err != nil {
				return err
			}
			sections, err := resolveSections(section)
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("limit must not be negative")
			}

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, metrics.NewNoopCollector())
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.generate(ctx)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rep, outputFormat, sections, limit, !noColor)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", OutputFormatText, "Output format (text|json|yaml)")
	cmd.Flags().StringVar(&section, "section", sectionAll, "Section to print (active|waiting|all)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most N validators per section (0 for all)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored text output")
	return cmd
}

func identitiesCmd(flags *rootFlags) *cobra.Command {
	var (
		outputFormat string
		noColor      bool
	)

	cmd := &cobra.Command{
		Use:   "identities",
		Short: "List every validator with its resolved display name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(outputFormat); err != nil {
				return err
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, metrics.NewNoopCollector())
			if err != nil {
				return err
			}
			defer a.close()

			names, err := a.identities(ctx)
			if err != nil {
				return err
			}
			return printIdentities(cmd.OutOrStdout(), names, outputFormat, !noColor)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", OutputFormatText, "Output format (text|json|yaml)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored text output")
	return cmd
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report over HTTP, refreshing it in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			collector := metrics.NewCollector()
			a, err := newApp(ctx, cfg, collector)
			if err != nil {
				return err
			}
			defer a.close()
			a.pool.StartMonitoring(ctx)

			reports := cache.New(a.generate, cfg.Server.CacheTTL(), collector, a.logger)
			go reports.Run(ctx)

			server := api.NewServer(a.logger, cfg.Server.Port, reports, a.pool, collector.Handler())
			if err := server.Start(); err != nil {
				return err
			}

			<-ctx.Done()
			a.logger.Info().Msg("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Stop(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	return cmd
}

func configCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the stakerank config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to <home>/config/stakerank.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(flags.home)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			if len(flags.nodes) > 0 {
				cfg.NodeURLs = flags.nodes
			}
			if err := config.Save(cfg, flags.home); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	cmd.AddCommand(initCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print stakerank version info",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:       %s\n", "stakerank")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Commit:     %s\n", Commit)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		},
	}
}
