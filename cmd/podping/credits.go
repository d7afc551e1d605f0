package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/podping/podping-go/internal/config"
	"github.com/podping/podping-go/internal/hive"
	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits [ACCOUNT]",
	Short: "Show remaining resource credits for an account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		account := cfg.Account
		if len(args) == 1 {
			account = args[0]
		}
		if account == "" {
			return errors.New("account is required, pass it as an argument or set it in the config")
		}

		pool, err := hive.NewPool(cfg.Hive.Nodes,
			hive.WithBackoff(cfg.Hive.BackoffValue()),
			hive.WithHTTPClient(&http.Client{Timeout: cfg.Hive.TimeoutValue()}),
		)
		if err != nil {
			return err
		}

		pct := hive.NewBroadcastClient(pool, nil).AccountRC(cmd.Context(), account)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %.2f%% resource credits\n", account, pct)
		return nil
	},
}
