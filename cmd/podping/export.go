package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/podping/podping-go/internal/config"
	"github.com/podping/podping-go/internal/storage"
	"github.com/spf13/cobra"
)

var (
	flagExportDB    string
	flagExportSince uint64
	flagExportLimit int
)

func init() {
	exportCmd.Flags().StringVar(&flagExportDB, "db", "", "SQLite archive to read (overrides config)")
	exportCmd.Flags().Uint64Var(&flagExportSince, "since", 0, "Only notices from this block number on")
	exportCmd.Flags().IntVar(&flagExportLimit, "limit", 1000, "Maximum notices to export")
}

type exportRecord struct {
	TrxID    string    `json:"trx_id"`
	BlockNum uint64    `json:"block_num"`
	Account  string    `json:"account"`
	Medium   string    `json:"medium"`
	Reason   string    `json:"reason"`
	Version  string    `json:"version"`
	URLs     []string  `json:"urls"`
	PostedAt time.Time `json:"posted_at"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived notices as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := flagExportDB
		if dbPath == "" {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dbPath = cfg.Watch.DBPath
		}
		if dbPath == "" {
			return errors.New("no archive configured, pass --db or set watch.db_path")
		}

		store, err := storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		notices, err := store.ListNotices(cmd.Context(), flagExportSince, flagExportLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, n := range notices {
			err := enc.Encode(exportRecord{
				TrxID:    n.TrxID,
				BlockNum: n.BlockNum,
				Account:  n.Account,
				Medium:   n.Medium,
				Reason:   n.Reason,
				Version:  n.Version,
				URLs:     n.URLs,
				PostedAt: n.PostedAt,
			})
			if err != nil {
				return err
			}
		}
		return nil
	},
}
