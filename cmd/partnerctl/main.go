// Command partnerctl inspects and exercises the partner sync pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"partnersync/internal/odoo"
	"partnersync/pkg/config"
	"partnersync/pkg/logging"
	"partnersync/pkg/postgres"

	flag "github.com/spf13/pflag"
)

const usage = `Usage: partnerctl [--no-color] [--log-level LEVEL] <command> [args]

Commands:
  auth                 log in to Odoo and print the uid
  find <user-id>       show the partner mirrored for a user
  smoke                create, update and delete a throwaway partner
  recent [--user ID]   show the newest sync log entries
  stats [--days N]     show daily sync totals
  sign <file>          print svix headers for a payload file
`

var errUsage = errors.New("usage")

type app struct {
	cfg *config.Config
	out printer
	log *slog.Logger

	// Lazily built; tests inject their own.
	session *odoo.Session
	client  *odoo.Client
	syncLog *postgres.SyncLog
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("partnerctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	noColor := fs.Bool("no-color", false, "disable ANSI colors")
	level := fs.String("log-level", "warn", "log level for library output")
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg := config.Load()
	a := &app{
		cfg: cfg,
		out: printer{w: stdout, color: !*noColor && os.Getenv("NO_COLOR") == ""},
		log: logging.NewWithWriter(stderr, "partnerctl", *level),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(stderr, usage)
		return 2
	default:
		a.out.fail("%v", err)
		return 1
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "auth":
		return a.auth(ctx)
	case "find":
		return a.find(ctx, args)
	case "smoke":
		return a.smoke(ctx)
	case "recent":
		return a.recent(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	case "sign":
		return a.sign(args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) odooClient() (*odoo.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if err := a.cfg.ValidateOdoo(); err != nil {
		return nil, err
	}
	caller := odoo.NewXMLRPCCaller(a.cfg.OdooURL, a.cfg.OdooTimeout)
	a.session = odoo.NewSession(caller, odoo.Credentials{
		Database: a.cfg.OdooDatabase,
		Username: a.cfg.OdooUsername,
		Password: a.cfg.OdooPassword,
	}, a.log)
	a.client = odoo.NewClient(a.session, odoo.Options{Model: a.cfg.OdooModel, ExternalIDField: a.cfg.OdooExternalIDField}, a.log)
	return a.client, nil
}

func (a *app) openSyncLog(ctx context.Context) (*postgres.SyncLog, error) {
	if a.syncLog != nil {
		return a.syncLog, nil
	}
	if a.cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := postgres.Connect(ctx, a.cfg.DatabaseURL, postgres.Retry{Attempts: 1}, a.log)
	if err != nil {
		return nil, err
	}
	a.syncLog = postgres.NewSyncLog(db)
	return a.syncLog, nil
}
