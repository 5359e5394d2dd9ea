package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amine-amaach/uatypegen/internal/services"
	"github.com/amine-amaach/uatypegen/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [nodeset files...]",
	Short: "Verify that the output directory matches what generate would write",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		svc, err := services.NewGeneratorSvc(cfg.Input, cfg.Output, logger, services.NewMonitoringSvc(cfg.Metrics))
		if err != nil {
			return err
		}
		report, err := svc.Check(ctx)
		if err != nil {
			return err
		}

		color := colorOutput()
		for _, name := range report.Written {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", utils.Colorize("changed", utils.Yellow, color), name)
		}
		for _, name := range report.Stale {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", utils.Colorize("stale", utils.Magenta, color), name)
		}
		if report.Drifted() {
			return errors.Errorf("%s is out of date, run uatypegen generate", report.Dir)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d files in %s\n", utils.Colorize("up to date", utils.Green, color), report.Files, report.Dir)
		return nil
	},
}

func init() {
	addOutputFlags(checkCmd)
}
