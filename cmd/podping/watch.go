package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/podping/podping-go/internal/config"
	"github.com/podping/podping-go/internal/health"
	"github.com/podping/podping-go/internal/hive"
	"github.com/podping/podping-go/internal/logging"
	"github.com/podping/podping-go/internal/metrics"
	"github.com/podping/podping-go/internal/notice"
	"github.com/podping/podping-go/internal/sink"
	"github.com/podping/podping-go/internal/storage"
	"github.com/podping/podping-go/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	flagWatchDB      string
	flagHealthAddr   string
	flagMetricsAddr  string
	flagWatchWebhook string
)

func init() {
	watchCmd.Flags().StringVar(&flagWatchDB, "db", "", "Archive decoded notices to this SQLite file (overrides config)")
	watchCmd.Flags().StringVar(&flagHealthAddr, "health", "", "Health check HTTP address (e.g., :8080)")
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics", "", "Metrics HTTP address (e.g., :9090)")
	watchCmd.Flags().StringVar(&flagWatchWebhook, "webhook", "", "Forward notices to this webhook URL (overrides config)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the chain for podping notices",
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel := os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			logLevel = "info"
		}
		log := logging.NewWithLevel(logLevel)

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var mtr *metrics.Metrics
		if flagMetricsAddr != "" {
			mtr = metrics.Init()
			log.Info("metrics enabled", "addr", flagMetricsAddr)
		}

		pool, err := hive.NewPool(cfg.Hive.Nodes,
			hive.WithBackoff(cfg.Hive.BackoffValue()),
			hive.WithHTTPClient(&http.Client{Timeout: cfg.Hive.TimeoutValue()}),
			hive.WithLogger(log),
			hive.WithMetrics(mtr),
		)
		if err != nil {
			return err
		}
		client := hive.NewReadClient(pool)

		dbPath := cfg.Watch.DBPath
		if flagWatchDB != "" {
			dbPath = flagWatchDB
		}
		var store *storage.Store
		if dbPath != "" {
			store, err = storage.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()
			log.Info("archiving notices", "db", dbPath)
		}

		webhookURL := cfg.Watch.WebhookURL
		if flagWatchWebhook != "" {
			webhookURL = flagWatchWebhook
		}
		var sender sink.Sender
		if webhookURL != "" {
			sender, err = sink.NewWebhookSender(webhookURL, http.MethodPost, cfg.Watch.Template, nil)
			if err != nil {
				return err
			}
		}

		handler := func(ctx context.Context, n notice.Notification) error {
			log.Info("podping",
				"account", n.Account,
				"medium", n.Medium,
				"reason", n.Reason,
				"urls", len(n.URLs),
				"block", n.BlockNum,
				"trx", n.TrxID,
			)
			if store != nil {
				err := store.InsertNotice(ctx, storage.Notice{
					TrxID:    n.TrxID,
					BlockNum: n.BlockNum,
					Account:  n.Account,
					Medium:   n.Medium,
					Reason:   n.Reason,
					Version:  n.Version,
					URLs:     n.URLs,
					PostedAt: n.Timestamp,
				})
				if err != nil {
					return err
				}
			}
			if sender != nil {
				return sender.Send(ctx, sink.NoticePayload{
					Account:   n.Account,
					Medium:    n.Medium,
					Reason:    n.Reason,
					Version:   n.Version,
					URLs:      n.URLs,
					TrxID:     n.TrxID,
					BlockNum:  n.BlockNum,
					Timestamp: n.Timestamp,
				})
			}
			return nil
		}

		w := watcher.New(client, handler,
			watcher.WithPollInterval(cfg.Watch.PollIntervalValue()),
			watcher.WithLogger(log),
			watcher.WithMetrics(mtr),
		)

		if flagHealthAddr != "" {
			var storePing func(ctx context.Context) error
			if store != nil {
				storePing = store.Ping
			}
			healthSrv := health.Serve(flagHealthAddr, health.Checker{
				StorePing: storePing,
				RPCPing:   health.NewRPCChecker(client).Ping,
			})
			log.Info("health check enabled", "addr", flagHealthAddr)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = health.Shutdown(shutdownCtx, healthSrv)
			}()
		}

		if flagMetricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv := &http.Server{Addr: flagMetricsAddr, Handler: mux}
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server error", "error", err)
				}
			}()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := w.Start(ctx); err != nil {
			log.Error("watch error", "error", err)
			return err
		}
		log.Info("watcher stopped", "total_updates", w.TotalUpdates())
		return nil
	},
}
