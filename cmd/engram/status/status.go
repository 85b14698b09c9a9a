// Package statuscmder provides the status command for displaying the state
// of a running engram server.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
)

var statusFlags = config.FlagSet{
	config.FlagAPITarget: {
		Name: "api-target", Shorthand: "a", ViperKey: "client.api_target",
		Description: "Engram API server URL",
	},
}

var statusFlagKeys = []string{
	config.FlagAPITarget,
}

type statusCommander struct {
	apiTarget string
}

// Output mirrors the GET /v1/status response body.
type Output struct {
	SessionID string `json:"session_id"`
	Messages  int64  `json:"messages"`
	LongTerm  int64  `json:"long_term"`
}

const statusLongDesc string = `Show the current memory store status.

Queries a running engram server for the active session id, the number of
short-term messages, and the number of long-term memory entries.

Examples:
  engram status
  engram status --api-target http://localhost:8081`

const statusShortDesc string = "Show memory store status"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, statusFlags, statusFlagKeys)

			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, statusFlags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *statusCommander) run() error {
	output, err := StatusAPI(c.apiTarget)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s  %s\n",
		cliui.KeyStyle.Render("Session:  "),
		cliui.NameStyle.Render(output.SessionID),
	)
	fmt.Printf("  %s  %s\n",
		cliui.KeyStyle.Render("Messages: "),
		cliui.ValueStyle.Render(strconv.FormatInt(output.Messages, 10)),
	)
	fmt.Printf("  %s  %s\n\n",
		cliui.KeyStyle.Render("Long-term:"),
		cliui.ValueStyle.Render(strconv.FormatInt(output.LongTerm, 10)),
	)

	return nil
}

// StatusAPI calls the engram status API and returns the parsed output.
func StatusAPI(apiTarget string) (*Output, error) {
	statusURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	statusURL.Path = "/v1/status"

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, statusURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating status request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to engram API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output Output
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}

	return &output, nil
}
