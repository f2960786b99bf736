package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"partnersync/internal/webhook"
	"partnersync/pkg/models"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
)

func (a *app) auth(ctx context.Context) error {
	if _, err := a.odooClient(); err != nil {
		return err
	}
	uid, err := a.session.Authenticate(ctx)
	if err != nil {
		return err
	}
	a.out.ok("authenticated as %s on %s (uid %d)", a.cfg.OdooUsername, a.cfg.OdooDatabase, uid)
	return nil
}

func (a *app) find(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: find takes one user id", errUsage)
	}
	client, err := a.odooClient()
	if err != nil {
		return err
	}
	rec, err := client.FindByExternalID(ctx, args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no partner for user %s", args[0])
	}
	return a.out.yaml(rec)
}

// smoke runs a create/find/update/delete round trip against the live
// directory with a throwaway user id.
func (a *app) smoke(ctx context.Context) error {
	client, err := a.odooClient()
	if err != nil {
		return err
	}

	userID := "smoke_" + uuid.NewString()
	a.out.title("Smoke test " + userID)

	fields := models.PartnerFields{
		ExternalUserID: userID,
		Name:           "Smoke Test",
		Email:          userID + "@example.invalid",
	}
	id, err := client.Create(ctx, fields)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	a.out.ok("created partner %d", id)

	rec, err := client.FindByExternalID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}
	if rec == nil || rec.RemoteID != id {
		return fmt.Errorf("find: expected partner %d, got %+v", id, rec)
	}
	a.out.ok("found partner %d", rec.RemoteID)

	fields.Name = "Smoke Test Updated"
	fields.City = "Testville"
	found, err := client.Update(ctx, userID, fields)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if !found {
		return errors.New("update: partner vanished")
	}
	rec, err = client.FindByExternalID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find after update: %w", err)
	}
	if rec == nil || rec.Name != fields.Name || rec.City != fields.City {
		return fmt.Errorf("update not visible: %+v", rec)
	}
	a.out.ok("updated partner %d", id)

	found, err = client.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !found {
		return errors.New("delete: partner vanished")
	}
	rec, err = client.FindByExternalID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find after delete: %w", err)
	}
	if rec != nil {
		return fmt.Errorf("partner %d still present after delete", rec.RemoteID)
	}
	a.out.ok("deleted partner %d", id)
	return nil
}

func (a *app) recent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recent", flag.ContinueOnError)
	user := fs.String("user", "", "only entries for this user id")
	limit := fs.IntP("limit", "n", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	log, err := a.openSyncLog(ctx)
	if err != nil {
		return err
	}
	entries, err := log.Recent(ctx, *user, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.out.warn("no sync log entries")
		return nil
	}
	return a.out.yaml(entries)
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	days := fs.Int("days", 7, "days of history")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	log, err := a.openSyncLog(ctx)
	if err != nil {
		return err
	}
	since := time.Now().UTC().AddDate(0, 0, -(*days - 1))
	totals, err := log.Totals(ctx, since)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		a.out.warn("no syncs since %s", since.Format("2006-01-02"))
		return nil
	}
	return a.out.yaml(totals)
}

type signedHeaders struct {
	ID        string `yaml:"svix-id"`
	Timestamp string `yaml:"svix-timestamp"`
	Signature string `yaml:"svix-signature"`
}

// sign prints the headers a provider would send for the payload in file,
// for replaying fixtures against a running service with curl.
func (a *app) sign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	id := fs.String("id", "", "delivery id (default: random msg_ id)")
	ts := fs.Int64("timestamp", 0, "unix seconds (default: now)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: sign takes one payload file", errUsage)
	}
	if a.cfg.WebhookSecret == "" {
		return errors.New("CLERK_WEBHOOK_SECRET is not set")
	}

	body, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if *id == "" {
		*id = "msg_" + uuid.NewString()
	}
	if *ts == 0 {
		*ts = time.Now().Unix()
	}

	v := webhook.NewVerifier(a.cfg.WebhookSecret, 0)
	stamp := strconv.FormatInt(*ts, 10)
	return a.out.yaml(signedHeaders{
		ID:        *id,
		Timestamp: stamp,
		Signature: v.Sign(*id, stamp, body),
	})
}
