package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/broker/future"
	"github.com/tailored-agentic-units/broker/remote"
)

var (
	remoteURL string
	callMeta  string
)

var callCmd = &cobra.Command{
	Use:   "call <action> [params-json]",
	Short: "Call an action on a remote dispatcher",
	Example: `  dispatch call math.add '{"a": 1, "b": 2}'
  dispatch call echo '{"msg": "hi"}' --meta '{"parentUuid": "abc"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the actions offered by a remote dispatcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := dial(cmd)
		if err != nil {
			return err
		}
		for _, name := range client.ActionsList() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{callCmd, actionsCmd} {
		c.Flags().StringVar(&remoteURL, "url", "http://localhost:8080", "Base URL of the dispatch service")
	}
	callCmd.Flags().StringVar(&callMeta, "meta", "", "Call metadata as a JSON object")
}

func dial(cmd *cobra.Command) (*remote.Client, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return remote.NewClient(cmd.Context(), http.DefaultClient, remoteURL, remote.WithDispatcherOptions(opts...))
}

func runCall(cmd *cobra.Command, args []string) error {
	var params any
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			return fmt.Errorf("params: %w", err)
		}
	}

	var meta map[string]any
	if callMeta != "" {
		if err := json.Unmarshal([]byte(callMeta), &meta); err != nil {
			return fmt.Errorf("meta: %w", err)
		}
	}

	client, err := dial(cmd)
	if err != nil {
		return err
	}

	result, err := future.Await(client.Call(cmd.Context(), args[0], params, meta))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
