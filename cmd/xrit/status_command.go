package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type daemonStatus struct {
	Running     bool             `json:"running"`
	LockFile    string           `json:"lock_file"`
	JournalPath string           `json:"journal_path,omitempty"`
	Workflows   []workflowStatus `json:"workflows"`
}

type workflowStatus struct {
	Folder          string    `json:"folder"`
	Running         bool      `json:"running"`
	LastError       string    `json:"last_error,omitempty"`
	LastTick        time.Time `json:"last_tick"`
	Ticks           uint64    `json:"ticks"`
	GroupsTracked   int       `json:"groups_tracked"`
	ProductsWritten int       `json:"products_written"`
	GroupsRetired   int       `json:"groups_retired"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(addr)
			if target == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				target = strings.TrimSpace(cfg.Metrics.Bind)
			}
			if target == "" {
				return errors.New("metrics.bind is not configured; pass --addr")
			}

			status, err := fetchStatus(cmd, statusURL(target))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running: %s\n", yesNo(status.Running))
			if status.JournalPath != "" {
				fmt.Fprintf(out, "Journal: %s\n", status.JournalPath)
			}
			rows := make([][]string, 0, len(status.Workflows))
			for _, wf := range status.Workflows {
				lastTick := "-"
				if !wf.LastTick.IsZero() {
					lastTick = wf.LastTick.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					wf.Folder,
					yesNo(wf.Running),
					strconv.Itoa(wf.GroupsTracked),
					strconv.Itoa(wf.ProductsWritten),
					strconv.Itoa(wf.GroupsRetired),
					lastTick,
					wf.LastError,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Folder", "Running", "Groups", "Written", "Retired", "Last tick", "Last error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Daemon metrics address (defaults to metrics.bind)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func statusURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/") + "/status"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/status"
}

func fetchStatus(cmd *cobra.Command, url string) (daemonStatus, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return daemonStatus{}, fmt.Errorf("build status request: %w", err)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return daemonStatus{}, fmt.Errorf("connect to daemon: %w; verify the daemon is running", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return daemonStatus{}, fmt.Errorf("daemon status: unexpected response %s", resp.Status)
	}
	var status daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return daemonStatus{}, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}
