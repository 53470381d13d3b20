package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"txrmwatch/internal/ipc"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <path>",
		Short: "Force immediate processing of a file, bypassing the settle window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return fmt.Errorf("file path is required")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Process(path)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if !resp.Queued {
					if strings.TrimSpace(resp.Message) != "" {
						return fmt.Errorf("%s", resp.Message)
					}
					return fmt.Errorf("daemon declined to process %s", path)
				}
				fmt.Fprintf(stdout, "Processing queued for %s\n", path)
				return nil
			})
		},
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Request an immediate discovery scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Scan()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if !resp.Queued {
					if strings.TrimSpace(resp.Message) != "" {
						return fmt.Errorf("%s", resp.Message)
					}
					return fmt.Errorf("daemon declined the scan request")
				}
				fmt.Fprintln(stdout, "Scan requested")
				return nil
			})
		},
	}
}
