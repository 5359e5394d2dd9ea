package cli

import (
	"fmt"
	"os"

	"github.com/amine-amaach/uatypegen/internal/config"
	"github.com/amine-amaach/uatypegen/internal/log"
	"github.com/amine-amaach/uatypegen/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// shared by generate and check
	outDir       string
	pkgName      string
	noManifest   bool
	noIntrinsics bool
)

var rootCmd = &cobra.Command{
	Use:           "uatypegen",
	Short:         "Generate Go type contracts from OPC UA nodesets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, utils.Colorize("⛔ "+err.Error(), utils.Red, colorOutput()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json (default ./configs/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides the config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format TEXT or JSON, overrides the config")

	rootCmd.AddCommand(generateCmd, checkCmd, lookupCmd)
}

// loadConfig reads the config and applies the flags that override it.
func loadConfig(cmd *cobra.Command, args []string) (config.Cfg, *logrus.Logger, error) {
	boot := log.NewLogger("WARN", "TEXT", true)
	cfg, err := config.GetConfigs(configPath, boot)
	if err != nil {
		return cfg, nil, err
	}

	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logger.Format = logFormat
	}
	if len(args) > 0 {
		cfg.Input.Files = args
	}
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Output.Dir = outDir
	}
	if flags.Changed("package") {
		cfg.Output.Package = pkgName
	}
	if flags.Changed("no-manifest") {
		cfg.Output.Manifest = !noManifest
	}
	if flags.Changed("no-intrinsics") {
		cfg.Input.Intrinsics = !noIntrinsics
	}

	logger := log.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.DisableTimestamp)
	return cfg, logger, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	cmd.Flags().StringVarP(&pkgName, "package", "p", "", "Go package name of the generated files")
	cmd.Flags().BoolVar(&noManifest, "no-manifest", false, "Do not write the manifest")
	cmd.Flags().BoolVar(&noIntrinsics, "no-intrinsics", false, "Do not seed the builtin DataTypes; the sources must define them")
}

func colorOutput() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
