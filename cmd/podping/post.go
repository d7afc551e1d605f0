package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/podping/podping-go/internal/config"
	"github.com/podping/podping-go/internal/hive"
	"github.com/podping/podping-go/internal/logging"
	"github.com/podping/podping-go/internal/writer"
	"github.com/spf13/cobra"
)

var (
	flagPostMedium string
	flagPostReason string
	flagPostDryRun bool
)

func init() {
	postCmd.Flags().StringVar(&flagPostMedium, "medium", "", "Content medium (default from config, then podcast)")
	postCmd.Flags().StringVar(&flagPostReason, "reason", "", "Update reason (default from config, then update)")
	postCmd.Flags().BoolVar(&flagPostDryRun, "dry-run", false, "Validate and log without contacting the network")
}

var postCmd = &cobra.Command{
	Use:   "post URL [URL...]",
	Short: "Post a content-update notification",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Account == "" {
			return errors.New("account is required for posting, set it in the config")
		}

		dryRun := cfg.Post.DryRun || flagPostDryRun

		w, err := newWriter(cfg, log, dryRun)
		if err != nil {
			return err
		}

		medium := flagPostMedium
		if medium == "" {
			medium = cfg.Post.Medium
		}
		reason := flagPostReason
		if reason == "" {
			reason = cfg.Post.Reason
		}

		res, err := w.Post(cmd.Context(), args, reason, medium)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.TrxID == writer.DryRunTrxID {
			fmt.Fprintf(out, "dry run: %d url(s) valid, nothing posted\n", len(args))
			return nil
		}
		fmt.Fprintf(out, "posted %d url(s): trx %s in block %d\n", len(args), res.TrxID, res.BlockNum)
		fmt.Fprintf(out, "resource credits remaining: %.2f%%\n", w.Credits(cmd.Context()))
		return nil
	},
}

// newWriter wires a writer from config. Dry runs skip the signer so
// validation works without a signing service configured.
func newWriter(cfg *config.Config, log *slog.Logger, dryRun bool) (*writer.Writer, error) {
	pool, err := hive.NewPool(cfg.Hive.Nodes,
		hive.WithBackoff(cfg.Hive.BackoffValue()),
		hive.WithHTTPClient(&http.Client{Timeout: cfg.Hive.TimeoutValue()}),
	)
	if err != nil {
		return nil, err
	}

	var signer hive.Signer
	if cfg.SignerURL != "" {
		signer, err = hive.NewHTTPSigner(cfg.SignerURL)
		if err != nil {
			return nil, err
		}
	} else if !dryRun {
		return nil, errors.New("signer_url is required for live posting, set it or use --dry-run")
	}

	broadcast := hive.NewBroadcastClient(pool, signer)
	return writer.New(cfg.Account, broadcast, writer.WithDryRun(dryRun), writer.WithLogger(log))
}
