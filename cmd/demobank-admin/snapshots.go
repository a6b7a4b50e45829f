package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/target/demobank-api/internal/adapters/redis"
	"github.com/target/demobank-api/internal/bootstrap"
)

const scanBatch = 500

type snapshotOptions struct {
	ClientID string
	Limit    int
	DryRun   bool
	Yes      bool
}

func parseSnapshotFlags(name string, args []string) (snapshotOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := snapshotOptions{}
	fs.StringVar(&opts.ClientID, "client", "", "Restrict to a single client id")
	switch name {
	case "list-snapshots":
		fs.IntVar(&opts.Limit, "limit", 100, "Maximum keys to print (0 = unlimited)")
	case "clear-snapshots":
		fs.BoolVar(&opts.DryRun, "dry-run", false, "Print matching keys without deleting")
		fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	}

	if err := fs.Parse(args); err != nil {
		return snapshotOptions{}, err
	}
	if opts.Limit < 0 {
		return snapshotOptions{}, errors.New("--limit cannot be negative")
	}
	return opts, nil
}

// snapshotPattern builds the SCAN match for snapshot keys. Client workspaces
// are stored under "clients:<id>:" inside the snapshot prefix.
func snapshotPattern(clientID string) string {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return redisadapter.DefaultSnapshotPrefix + "*"
	}
	return redisadapter.DefaultSnapshotPrefix + "clients:" + clientID + ":*"
}

func withRedis(cmdCtx *commandContext, f func(context.Context, redis.UniversalClient) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()

	client, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()
	return f(ctx, client)
}

func runListSnapshots(cmdCtx *commandContext, args []string) error {
	opts, err := parseSnapshotFlags("list-snapshots", args)
	if err != nil {
		return err
	}
	return withRedis(cmdCtx, func(ctx context.Context, client redis.UniversalClient) error {
		pattern := snapshotPattern(opts.ClientID)
		cmdCtx.Logger.Info("scanning redis", "pattern", pattern)
		return listSnapshots(ctx, client, pattern, opts.Limit, os.Stdout)
	})
}

func listSnapshots(ctx context.Context, client redis.UniversalClient, pattern string, limit int, w io.Writer) error {
	if err := writef(w, "\nSession snapshots in Redis\n"); err != nil {
		return err
	}

	total := 0
	iter := client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		total++
		if limit > 0 && total > limit {
			continue
		}
		ttl, ttlErr := client.TTL(ctx, key).Result()
		line := fmt.Sprintf("  %s (TTL: %s)", key, renderTTL(ttl))
		if ttlErr != nil {
			line = fmt.Sprintf("  %s (TTL: error: %v)", key, ttlErr)
		}
		if err := writeln(w, line); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if total == 0 {
		return writeln(w, "(no keys found)")
	}
	if limit > 0 && total > limit {
		if err := writef(w, "  ... %d more\n", total-limit); err != nil {
			return err
		}
	}
	return writef(w, "\nTotal keys: %d\n", total)
}

func runClearSnapshots(cmdCtx *commandContext, args []string) error {
	opts, err := parseSnapshotFlags("clear-snapshots", args)
	if err != nil {
		return err
	}
	pattern := snapshotPattern(opts.ClientID)
	if !opts.DryRun && !opts.Yes {
		if confirmErr := confirm(os.Stdin, os.Stdout,
			fmt.Sprintf("About to delete session snapshots matching %q.", pattern)); confirmErr != nil {
			return confirmErr
		}
	}

	return withRedis(cmdCtx, func(ctx context.Context, client redis.UniversalClient) error {
		deleted, clearErr := clearSnapshots(ctx, client, pattern, opts.DryRun)
		if clearErr != nil {
			return clearErr
		}
		cmdCtx.Logger.Info("clear snapshots complete", "pattern", pattern, "keys", deleted, "dry_run", opts.DryRun)
		return nil
	})
}

// clearSnapshots deletes matching keys in SCAN batches and returns how many
// matched. Keys are deleted one at a time so cluster slots never cross.
func clearSnapshots(ctx context.Context, client redis.UniversalClient, pattern string, dryRun bool) (int, error) {
	n := 0
	iter := client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
		if dryRun {
			continue
		}
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}
