package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/reel/internal/config"
	"github.com/aretw0/reel/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "Reel renders compositions frame by frame in headless browsers",
	Long: `Reel drives headless browser sessions through every frame of a composition,
captures them, and assembles the result into an image sequence or a video.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	addConfigFlags(rootCmd.PersistentFlags())
}

func addConfigFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Configuration file (YAML or JSON)")
	fs.StringArray("set", nil, "Override a configuration value (section.key=value)")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("log-format", "", "Log format (text, json)")
}

// loadConfig resolves the configuration and logger shared by every command.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	overrides, _ := cmd.Flags().GetStringArray("set")
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		overrides = append(overrides, "log.level="+level)
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		overrides = append(overrides, "log.format="+format)
	}

	cfg, err := config.Load(path, overrides)
	if err != nil {
		return cfg, nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.New(level, cfg.Log.Format), nil
}
