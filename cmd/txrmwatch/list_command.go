package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"txrmwatch/internal/ipc"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var states []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files the monitor is tracking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(states)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Files) == 0 {
					fmt.Fprintln(stdout, "No files tracked")
					return nil
				}

				rows := make([][]string, 0, len(resp.Files))
				for _, file := range resp.Files {
					rows = append(rows, []string{
						file.Path,
						file.State,
						humanize.IBytes(uint64(file.Size)),
						formatAge(file.LastChange),
						file.LastError,
					})
				}
				table := renderTable(
					[]string{"Path", "State", "Size", "Last Change", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by state (discovered, waiting, stable, processing, completed, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func formatAge(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts)
}
