package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amine-amaach/uatypegen/internal/services"
	"github.com/amine-amaach/uatypegen/utils"
	"github.com/spf13/cobra"
)

var prune bool

var generateCmd = &cobra.Command{
	Use:   "generate [nodeset files...]",
	Short: "Generate Go type contracts into the output directory",
	Long: `Loads the nodeset files (NodeSet2 XML, or YAML/JSON tables), resolves the
type hierarchy and writes one Go file per type plus support.go and
registry.go. Nothing is written when any file cannot be generated.
Files given as arguments replace the files of the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("prune") {
			cfg.Output.Prune = prune
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		svc, err := services.NewGeneratorSvc(cfg.Input, cfg.Output, logger, services.NewMonitoringSvc(cfg.Metrics))
		if err != nil {
			return err
		}
		report, err := svc.Generate(ctx)
		if err != nil {
			return err
		}

		color := colorOutput()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d files in %s (%d written, %d unchanged)\n",
			utils.Colorize("generated", utils.Green, color), report.Files, report.Dir, len(report.Written), len(report.Unchanged))
		for _, name := range report.Pruned {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", utils.Colorize("removed", utils.Yellow, color), name)
		}
		for _, name := range report.Stale {
			if !contains(report.Pruned, name) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", utils.Colorize("stale", utils.Magenta, color), name)
			}
		}
		return nil
	},
}

func init() {
	addOutputFlags(generateCmd)
	generateCmd.Flags().BoolVar(&prune, "prune", false, "Remove files of the previous run that are no longer generated")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
