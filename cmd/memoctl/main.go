package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memoflow/internal/cli"
	"memoflow/internal/memo/rollback"
	"memoflow/internal/memo/store"
	mongostore "memoflow/internal/memo/store/mongo"
	"memoflow/internal/memo/txn"
	"memoflow/internal/platform/config"
	"memoflow/internal/platform/logger"
	platformmongo "memoflow/internal/platform/mongo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(config.FromEnv(), openStore)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "memoctl:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

// openStore builds the same rollback executor the server runs, logging to stderr.
func openStore(ctx context.Context, cfg config.Server) (cli.Rollbacks, func(), error) {
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	var (
		backend store.Backend
		closeFn = func() {}
	)
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using an empty in-memory document store; set MEMOFLOW_STORAGE=mongo to reach the server's data")
		backend = store.NewMemoryStore(store.WithTxTimeout(cfg.TxTimeout))
	case config.StorageMongo:
		client, err := platformmongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		}
		backend = mongostore.New(client.Database(), mongostore.WithTxTimeout(cfg.TxTimeout))
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	coord := txn.New(backend, txn.WithLogger(log))
	return rollback.New(coord, rollback.WithLogger(log)), closeFn, nil
}
