package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/pdfbot/core/buildinfo"
	corecmd "github.com/m3rciful/pdfbot/core/cmd"
	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/app"
	"github.com/m3rciful/pdfbot/internal/config"
)

var cfgFile string

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "pdfbot",
		Short:        "Telegram bot for everyday PDF tasks",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve()
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $CONFIG_PATH or config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the bot until interrupted",
			RunE:  func(*cobra.Command, []string) error { return serve() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(*cobra.Command, []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				defer shutdownLogger()
				return app.Migrate(cfg)
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Remove staged files older than files.sweep_age",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
					return err
				}
				defer shutdownLogger()
				ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer cancel()
				n, err := app.Sweep(ctx, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d files\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Summary())
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        cfgFile,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(c.(*config.AppConfig))
		},
	})
}

func loadConfig() (*config.AppConfig, error) {
	path, err := corecmd.ResolveConfigPath(cfgFile, "CONFIG_PATH", "config.yaml")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func shutdownLogger() {
	if err := logger.Shutdown(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}
