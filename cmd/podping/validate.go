package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/podping/podping-go/internal/config"
	"github.com/podping/podping-go/internal/hive"
	"github.com/spf13/cobra"
)

const defaultHTTPTimeout = 8 * time.Second

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config and ping every hive node",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Fprintf(out, "config OK (version %d)\n", cfg.Version)

		client := &http.Client{Timeout: defaultHTTPTimeout}
		failures := 0

		for _, node := range cfg.Hive.Nodes {
			// One pool per node so a failure is attributed, not failed over.
			pool, err := hive.NewPool([]string{node}, hive.WithHTTPClient(client))
			if err != nil {
				failures++
				fmt.Fprintf(out, "- node %s: ERROR %v\n", node, err)
				continue
			}
			head, err := hive.NewReadClient(pool).HeadBlockNumber(cmd.Context())
			if err != nil {
				failures++
				fmt.Fprintf(out, "- node %s: ERROR %v\n", node, err)
				continue
			}
			fmt.Fprintf(out, "- node %s: head block %d OK\n", node, head)
		}

		if failures > 0 {
			return fmt.Errorf("validate: %d node(s) failed connectivity", failures)
		}

		fmt.Fprintln(out, "validate: success")
		return nil
	},
}
