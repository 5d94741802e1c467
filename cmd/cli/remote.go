package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// apiClient talks to a running dsfetch-server
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ping checks that the server answers its health check
func (c *apiClient) ping() error {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("server not reachable at %s (is dsfetch-server running?)", c.baseURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server at %s is unhealthy: %s", c.baseURL, resp.Status)
	}
	return nil
}

// do sends a request and decodes a JSON response into out (if non-nil).
// Non-2xx responses are returned as errors carrying the server's message.
func (c *apiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage queued runs on a dsfetch-server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return newAPIClient(serverURL).ping()
	},
}

var runsAddCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Queue a fetch on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]interface{}{"url": args[0]}
		if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
			payload["root_dir"] = v
		}
		if v, _ := cmd.Flags().GetString("working-dir"); v != "" {
			payload["working_dir"] = v
		}
		if v, _ := cmd.Flags().GetBool("dataset"); v {
			payload["convention"] = string(domain.ConventionDataset)
		}
		if cmd.Flags().Changed("replace-download") {
			v, _ := cmd.Flags().GetBool("replace-download")
			payload["replace_download"] = v
		}
		if cmd.Flags().Changed("replace-unzip-content") {
			v, _ := cmd.Flags().GetBool("replace-unzip-content")
			payload["replace_extracted"] = v
		}

		var run domain.FetchRun
		if err := newAPIClient(serverURL).do(http.MethodPost, "/api/v1/runs", payload, &run); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run queued\n")
		fmt.Fprintf(out, "ID:     %s\n", run.ID)
		fmt.Fprintf(out, "Status: %s\n", run.Status)
		return nil
	},
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/runs"
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			path += "?status=" + url.QueryEscape(status)
		}

		var runs []domain.FetchRun
		if err := newAPIClient(serverURL).do(http.MethodGet, path, nil, &runs); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tSTATUS\tSIZE\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(r.ID, 8),
				truncate(r.URL, 50),
				r.Status,
				humanize.Bytes(uint64(r.BytesTransferred)),
				humanize.Time(r.CreatedAt))
		}
		return w.Flush()
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats domain.RunStats
		if err := newAPIClient(serverURL).do(http.MethodGet, "/api/v1/runs/stats", nil, &stats); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Run Statistics:")
		fmt.Fprintf(out, "  Total:      %d\n", stats.Total)
		fmt.Fprintf(out, "  Queued:     %d\n", stats.Queued)
		fmt.Fprintf(out, "  Processing: %d\n", stats.Processing)
		fmt.Fprintf(out, "  Completed:  %d\n", stats.Completed)
		fmt.Fprintf(out, "  Failed:     %d\n", stats.Failed)
		fmt.Fprintf(out, "  Cancelled:  %d\n", stats.Cancelled)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show run details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var run domain.FetchRun
		if err := newAPIClient(serverURL).do(http.MethodGet, "/api/v1/runs/"+url.PathEscape(args[0]), nil, &run); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run Details:\n")
		fmt.Fprintf(out, "  ID:         %s\n", run.ID)
		fmt.Fprintf(out, "  URL:        %s\n", run.URL)
		fmt.Fprintf(out, "  Root:       %s\n", run.RootDir)
		fmt.Fprintf(out, "  Convention: %s\n", run.Convention)
		fmt.Fprintf(out, "  Status:     %s\n", run.Status)
		fmt.Fprintf(out, "  Created:    %s\n", run.CreatedAt.Format(time.RFC3339))
		if run.ExtractionDir != "" {
			fmt.Fprintf(out, "  Extracted:  %s\n", run.ExtractionDir)
		}
		if run.PlacedPath != "" {
			fmt.Fprintf(out, "  File:       %s\n", run.PlacedPath)
		}
		if run.BytesTransferred > 0 {
			fmt.Fprintf(out, "  Size:       %s\n", humanize.Bytes(uint64(run.BytesTransferred)))
		}
		if run.ErrorMessage != "" {
			fmt.Fprintf(out, "  Error:      %s\n", run.ErrorMessage)
		}
		return nil
	},
}

// runActionCmd builds a command that posts to /api/v1/runs/:id/<action>
func runActionCmd(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/runs/" + url.PathEscape(args[0]) + "/" + action
			if err := newAPIClient(serverURL).do(http.MethodPost, path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a run record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(serverURL).do(http.MethodDelete, "/api/v1/runs/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Run deleted")
		return nil
	},
}

func init() {
	runsAddCmd.Flags().StringP("data-dir", "d", "", "Root target data directory (default from server config)")
	runsAddCmd.Flags().StringP("working-dir", "w", "", "Target directory for extraction")
	runsAddCmd.Flags().BoolP("dataset", "i", false, "Follow dataset naming conventions")
	runsAddCmd.Flags().Bool("replace-download", false, "Overwrite an existing download file")
	runsAddCmd.Flags().Bool("replace-unzip-content", false, "Replace existing extraction folder content")
	runsListCmd.Flags().StringP("status", "s", "", "Filter by status")

	runsCmd.AddCommand(runsAddCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runActionCmd("cancel", "Cancel a queued run", "Run cancelled"))
	runsCmd.AddCommand(runActionCmd("retry", "Requeue a failed or cancelled run", "Run queued for retry"))
	runsCmd.AddCommand(runsDeleteCmd)
}
