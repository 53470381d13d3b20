package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"txrmwatch/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent status events from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Events(limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Events) == 0 {
					fmt.Fprintln(stdout, "No events recorded (journal may be disabled)")
					return nil
				}

				rows := make([][]string, 0, len(resp.Events))
				for _, event := range resp.Events {
					rows = append(rows, []string{
						event.Timestamp.Local().Format(time.RFC3339),
						event.Kind,
						event.Path,
						event.Detail,
					})
				}
				table := renderTable(
					[]string{"Time", "Event", "Path", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
