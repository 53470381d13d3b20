package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"txrmwatch/internal/daemonctl"
	"txrmwatch/internal/ipc"
	"txrmwatch/internal/preflight"
	"txrmwatch/internal/registry"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the txrmwatch daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the txrmwatch daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping monitor, waiting for in-flight extractions...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the txrmwatch daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and monitor status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			statusResp, reachable := fetchDaemonStatus(ctx)

			for _, line := range renderSectionHeader("Daemon Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !reachable {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, "not running", colorize))
			} else if statusResp.Running {
				detail := fmt.Sprintf("monitoring since %s", statusResp.StartedAt.Local().Format(time.RFC3339))
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, detail, colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "process running, monitor stopped", colorize))
			}
			if reachable {
				if statusResp.PID > 0 {
					fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(statusResp.PID), colorize))
				}
				if !statusResp.LastScan.IsZero() {
					fmt.Fprintln(stdout, renderStatusLine("Last scan", statusInfo, statusResp.LastScan.Local().Format(time.RFC3339), colorize))
				}
				if statusResp.Journal != "" {
					fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, statusResp.Journal, colorize))
				}
				if statusResp.LastError != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, statusResp.LastError, colorize))
				}
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, res := range preflight.RunAll(ctx.configValue()) {
				kind := statusOK
				if !res.Passed {
					kind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine(res.Name, kind, res.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Tracked Files", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !reachable || statusResp.Tracked == 0 {
				fmt.Fprintln(stdout, "No files tracked")
				return nil
			}
			rows := buildStateRows(statusResp.PerState)
			table := renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			for _, path := range statusResp.Processing {
				fmt.Fprintf(stdout, "  processing: %s\n", path)
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func fetchDaemonStatus(ctx *commandContext) (*ipc.StatusResponse, bool) {
	client, err := ipc.Dial(ctx.socketPath())
	if err != nil {
		return &ipc.StatusResponse{}, false
	}
	defer client.Close()
	resp, err := client.Status()
	if err != nil || resp == nil {
		return &ipc.StatusResponse{}, false
	}
	return resp, true
}

func buildStateRows(perState map[string]int) [][]string {
	order := []string{
		string(registry.StateDiscovered),
		string(registry.StateWaiting),
		string(registry.StateStable),
		string(registry.StateProcessing),
		string(registry.StateCompleted),
		string(registry.StateFailed),
	}
	rows := make([][]string, 0, len(perState))
	seen := make(map[string]struct{}, len(order))
	for _, state := range order {
		seen[state] = struct{}{}
		if count, ok := perState[state]; ok && count > 0 {
			rows = append(rows, []string{state, strconv.Itoa(count)})
		}
	}
	extras := make([]string, 0)
	for state := range perState {
		if _, ok := seen[state]; !ok {
			extras = append(extras, state)
		}
	}
	sort.Strings(extras)
	for _, state := range extras {
		rows = append(rows, []string{state, strconv.Itoa(perState[state])})
	}
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
