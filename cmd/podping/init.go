package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const sampleConfig = `version: 1

# Account that posts notifications. Watch mode does not need it.
account: ${PODPING_ACCOUNT}

# Remote signing service holding the posting key.
signer_url: ${PODPING_SIGNER_URL}

hive:
  # Leave empty to use the built-in public node list.
  nodes: []
  timeout: 30s
  backoff: 100ms

watch:
  poll_interval: 3s
  # Set to archive decoded notices locally.
  db_path: ""
  # Set to forward decoded notices.
  webhook_url: ""

post:
  medium: podcast
  reason: update
  dry_run: false
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("refusing to overwrite existing %s", cfgPath)
		}
		if err := os.WriteFile(cfgPath, []byte(sampleConfig), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
		return nil
	},
}
