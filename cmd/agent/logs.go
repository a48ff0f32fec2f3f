package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kulfy/kulfy-agent/internal/jobs"
)

var (
	serverURL string
	follow    bool
	interval  time.Duration
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the job log of a running agent server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := printLogs(cmd.Context()); err != nil {
			return err
		}
		if !follow {
			return nil
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-ticker.C:
				if err := printLogs(cmd.Context()); err != nil {
					return err
				}
			}
		}
	},
}

func printLogs(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach agent server: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status endpoint returned HTTP %d", resp.StatusCode)
	}

	var st jobs.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("parsing status response: %w", err)
	}

	state := "idle"
	if st.IsRunning {
		state = "running"
	}
	fmt.Printf("state: %s  step: %s  logs: %d\n", state, st.CurrentStep, len(st.Logs))
	for _, entry := range st.Logs {
		fmt.Printf("[%s] %-7s %s\n", entry.Timestamp.Format(time.RFC3339), entry.Type, entry.Message)
	}
	if st.LastResult != nil {
		fmt.Printf("last result: success=%t completed=%s\n", st.LastResult.Success, st.LastResult.CompletedAt.Format(time.RFC3339))
	}
	return nil
}

func init() {
	logsCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8001", "agent server base URL")
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "poll continuously")
	logsCmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "poll interval with --follow")
}
