package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coursegen/internal/deps"
	"coursegen/internal/preflight"
)

type checkRow struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Detail  string `json:"detail"`
	Version string `json:"version,omitempty"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, encoder binaries and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			c := commandCtx(cmd)

			results := preflight.RunAll(c, cfg)
			results = append(results,
				preflight.CheckSpeechFromConfig(c, cfg),
				preflight.CheckNotificationsFromConfig(cfg),
			)

			binaries := preflight.CheckSystemDeps(cfg)
			deps.NewVersionProbe().Annotate(c, binaries)
			versions := make(map[string]string, len(binaries))
			for _, status := range binaries {
				versions[status.Name] = status.Version
			}

			rows := make([]checkRow, 0, len(results))
			for _, r := range results {
				rows = append(rows, checkRow{Name: r.Name, Passed: r.Passed, Detail: r.Detail, Version: versions[r.Name]})
			}
			failed := preflight.Failed(results)

			if jsonOutput {
				if err := writeJSON(cmd, rows); err != nil {
					return err
				}
			} else {
				printCheckRows(cmd, rows)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print check results as JSON")
	return cmd
}

func printCheckRows(cmd *cobra.Command, rows []checkRow) {
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		status := "ok"
		if !r.Passed {
			status = "FAIL"
		}
		detail := r.Detail
		if r.Version != "" {
			detail = r.Version
		}
		table = append(table, []string{r.Name, status, detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, table, nil))
}
