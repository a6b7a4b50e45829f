package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/target/demobank-api/config"
	"github.com/target/demobank-api/internal/bootstrap"
	"github.com/target/demobank-api/internal/data"
	"github.com/target/demobank-api/internal/devseed"
	"github.com/target/demobank-api/internal/domain/model"
	"github.com/target/demobank-api/internal/migrate"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	if len(os.Args) < 2 {
		_ = printUsage(os.Stdout)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		_ = writef(os.Stderr, "unknown command %q\n\n", cmdName)
		_ = printUsage(os.Stderr)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.LogLevel)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"migrate-status": {
			name:        "migrate-status",
			description: "Show applied and pending migrations",
			run:         runMigrateStatus,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run database migrations and seed demo accounts",
			run:         runDBSeed,
		},
		"list-accounts": {
			name:        "list-accounts",
			description: "Print the newest accounts",
			run:         runListAccounts,
		},
		"list-snapshots": {
			name:        "list-snapshots",
			description: "Inspect persisted session snapshots in Redis",
			run:         runListSnapshots,
		},
		"clear-snapshots": {
			name:        "clear-snapshots",
			description: "Delete persisted session snapshots from Redis",
			run:         runClearSnapshots,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: demobank-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-18s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

type dbOptions struct {
	Timeout     time.Duration
	AllowRemote bool
}

type listAccountsOptions struct {
	Limit int
}

func parseDBFlags(name string, args []string) (dbOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dbOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for the command")
	if name == "db-seed" {
		fs.BoolVar(&opts.AllowRemote, "allow-remote", false,
			"Permit running against database hosts that do not look local")
	}

	if err := fs.Parse(args); err != nil {
		return dbOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseListAccountsFlags(args []string) (listAccountsOptions, error) {
	fs := flag.NewFlagSet("list-accounts", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listAccountsOptions{}
	fs.IntVar(&opts.Limit, "limit", model.DefaultAccountsLimit, "Number of accounts to print")
	if err := fs.Parse(args); err != nil {
		return listAccountsOptions{}, err
	}
	if opts.Limit <= 0 {
		return listAccountsOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBFlags("migrate", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func runMigrateStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBFlags("migrate-status", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		statuses, listErr := migrate.List(ctx, db)
		if listErr != nil {
			return fmt.Errorf("list migrations: %w", listErr)
		}
		return printMigrationStatus(os.Stdout, statuses)
	})
}

func printMigrationStatus(w io.Writer, statuses []migrate.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "VERSION\tSTATUS\tAPPLIED AT\n"); err != nil {
		return err
	}
	for _, st := range statuses {
		state, at := "pending", "-"
		if st.Applied {
			state = "applied"
			if st.AppliedAt != nil {
				at = st.AppliedAt.UTC().Format(time.RFC3339)
			}
		}
		if err := writef(tw, "%s\t%s\t%s\n", st.Version, state, at); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBFlags("db-seed", args)
	if err != nil {
		return err
	}
	if guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, "seed demo accounts on the configured database"); guardErr != nil {
		return guardErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("ensuring database migrations are current")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}

		svcs, svcErr := devseed.NewServices(db)
		if svcErr != nil {
			return svcErr
		}
		cmdCtx.Logger.Info("seeding demo accounts")
		if seedErr := devseed.Run(ctx, svcs, cmdCtx.Logger); seedErr != nil {
			return fmt.Errorf("seed data: %w", seedErr)
		}
		cmdCtx.Logger.Info("database seeding completed successfully")
		return nil
	})
}

func runListAccounts(cmdCtx *commandContext, args []string) error {
	opts, err := parseListAccountsFlags(args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, 30*time.Second, func(ctx context.Context, db *sql.DB) error {
		accounts, listErr := data.NewAccountRepo(db).List(ctx, model.AccountsListOptions{Limit: opts.Limit})
		if listErr != nil {
			return fmt.Errorf("list accounts: %w", listErr)
		}
		return printAccounts(os.Stdout, accounts)
	})
}

func printAccounts(w io.Writer, accounts []*model.Account) error {
	if len(accounts) == 0 {
		return writeln(w, "(no accounts)")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "ID\tNAME\tBALANCE\tCURRENCY\tCREATED\n"); err != nil {
		return err
	}
	for _, a := range accounts {
		if err := writef(tw, "%s\t%s\t%.2f\t%s\t%s\n",
			a.ID, a.Name, a.Balance, a.Currency, a.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

func guardRemoteHost(cmdCtx *commandContext, allow bool, action string) error {
	host := cmdCtx.Config.Postgres.Host
	if !isLikelyRemoteHost(host) {
		return nil
	}
	if !allow {
		return fmt.Errorf(
			"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
			host,
		)
	}
	return confirm(os.Stdin, os.Stderr,
		fmt.Sprintf("WARNING: database host %q does not look like a local address.\nThis operation will %s.", host, action))
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" || h == "localhost" || strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

// confirm prints warning and reads a y/yes answer from in.
func confirm(in io.Reader, out io.Writer, warning string) error {
	if err := writef(out, "%s\nContinue? [y/N]: ", warning); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

func renderTTL(d time.Duration) string {
	switch d {
	case -1, -1 * time.Second:
		return "no expiry"
	case -2, -2 * time.Second:
		return "key missing"
	default:
		return d.String()
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
