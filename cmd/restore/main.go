// Command restore downloads an encrypted database snapshot and writes it
// to a local SQLite file. Run it while the service is stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/selpix/selpix/internal/backup"
	"github.com/selpix/selpix/internal/config"
	"github.com/selpix/selpix/internal/logging"
)

func main() {
	list := flag.Bool("list", false, "list stored snapshots and exit")
	key := flag.String("key", "", "object key of the snapshot to restore (default: newest)")
	out := flag.String("out", "", "destination database file (default: SELPIX_DATABASE_URL)")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	mgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Passphrase: cfg.Backup.Passphrase,
		Prefix:     cfg.Backup.Prefix,
	}, nil, logger, nil)
	if !mgr.Configured() {
		slog.Error("backup storage is not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	objs, err := mgr.List(ctx)
	if err != nil {
		slog.Error("list backups", "error", err)
		os.Exit(1)
	}
	if *list {
		for _, o := range objs {
			fmt.Printf("%s\t%d\t%s\n", o.Key, o.Size, o.CreatedAt.Format(time.RFC3339))
		}
		return
	}

	if *key == "" {
		if len(objs) == 0 {
			slog.Error("no backups stored")
			os.Exit(1)
		}
		*key = objs[0].Key
	}
	if *out == "" {
		*out = cfg.DatabaseURL
	}
	if strings.Contains(*out, "://") {
		slog.Error("restore writes a sqlite file; pass -out", "database_url", *out)
		os.Exit(1)
	}

	if err := mgr.Restore(ctx, *key, *out); err != nil {
		slog.Error("restore failed", "key", *key, "error", err)
		os.Exit(1)
	}
	slog.Info("restore complete", "key", *key, "out", *out)
}
