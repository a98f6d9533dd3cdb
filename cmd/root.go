package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/mailbridge/internal/config"
)

// rootCmd represents the base command for the mailbridge application
var rootCmd = &cobra.Command{
	Use:   "mailbridge",
	Short: "REST bridge to the Gmail API for browser clients",
	Long: `mailbridge exposes a small set of REST endpoints in front of the Gmail API.
Callers present their own Google OAuth access token; mailbridge calls Gmail
with it and returns reshaped JSON, including decoded message bodies and
attachment descriptors extracted from the MIME part tree.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// Flags shared by every command.
var (
	configPath string
	logFormat  string
	debugMode  bool
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailbridge version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and environment, then applies the
// global flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("debug") {
		cfg.Log.Debug = debugMode
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newVersionCmd())
}
