// Package odoo mirrors partner records into Odoo over XML-RPC.
package odoo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"partnersync/pkg/models"
)

const (
	DefaultModel           = "res.partner"
	DefaultExternalIDField = "clerk_user_id"

	countryModel = "res.country"
)

// Options select the remote model and the field holding the external user id.
type Options struct {
	Model           string
	ExternalIDField string
}

// Client performs create/find/update/delete on the partner model. Every
// call re-authenticates and retries once if the session turns out stale.
type Client struct {
	session *Session
	model   string
	field   string
	log     *slog.Logger
}

func NewClient(session *Session, opts Options, log *slog.Logger) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.ExternalIDField == "" {
		opts.ExternalIDField = DefaultExternalIDField
	}
	return &Client{
		session: session,
		model:   opts.Model,
		field:   opts.ExternalIDField,
		log:     log.With("component", "odoo-client", "model", opts.Model),
	}
}

// Create always inserts a new record and returns its remote id.
func (c *Client) Create(ctx context.Context, fields models.PartnerFields) (int64, error) {
	values, err := c.values(ctx, fields)
	if err != nil {
		return 0, err
	}
	values[c.field] = fields.ExternalUserID
	values["is_company"] = false
	values["customer_rank"] = 1

	result, err := c.execute(ctx, c.model, "create", []any{values})
	if err != nil {
		return 0, err
	}
	id, ok := toInt64(result)
	if !ok || id <= 0 {
		return 0, c.decodeErr("create", result)
	}
	c.log.Info("partner created", "remote_id", id, "external_user_id", fields.ExternalUserID)
	return id, nil
}

// Update writes fields to every record matching externalUserID and reports
// whether any existed. Zero matches is not an error and writes nothing.
func (c *Client) Update(ctx context.Context, externalUserID string, fields models.PartnerFields) (bool, error) {
	ids, err := c.search(ctx, externalUserID)
	if err != nil || len(ids) == 0 {
		return false, err
	}
	if len(ids) > 1 {
		c.log.Warn("multiple partners share an external id", "external_user_id", externalUserID, "count", len(ids))
	}

	values, err := c.values(ctx, fields)
	if err != nil {
		return false, err
	}
	if _, err := c.execute(ctx, c.model, "write", []any{ids, values}); err != nil {
		return false, err
	}
	c.log.Info("partner updated", "remote_ids", ids, "external_user_id", externalUserID)
	return true, nil
}

// Delete unlinks every record matching externalUserID.
func (c *Client) Delete(ctx context.Context, externalUserID string) (bool, error) {
	ids, err := c.search(ctx, externalUserID)
	if err != nil || len(ids) == 0 {
		return false, err
	}
	if _, err := c.execute(ctx, c.model, "unlink", []any{ids}); err != nil {
		return false, err
	}
	c.log.Info("partner deleted", "remote_ids", ids, "external_user_id", externalUserID)
	return true, nil
}

// FindByExternalID returns the first matching record, or nil when none exists.
func (c *Client) FindByExternalID(ctx context.Context, externalUserID string) (*models.RemotePartnerRecord, error) {
	ids, err := c.search(ctx, externalUserID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	fields := []any{"name", "email", "phone", c.field, "street", "city", "country_id"}
	result, err := c.execute(ctx, c.model, "read", []any{ids, fields})
	if err != nil {
		return nil, err
	}
	rows, ok := result.([]any)
	if !ok || len(rows) == 0 {
		return nil, c.decodeErr("read", result)
	}
	row, ok := rows[0].(map[string]any)
	if !ok {
		return nil, c.decodeErr("read", rows[0])
	}
	return c.record(row), nil
}

// search is the only lookup path; the remote model has no index on the
// external id, so every mutation goes through a filter query.
func (c *Client) search(ctx context.Context, externalUserID string) ([]int64, error) {
	domain := []any{[]any{c.field, "=", externalUserID}}
	result, err := c.execute(ctx, c.model, "search", []any{domain})
	if err != nil {
		return nil, err
	}
	ids, ok := toInt64s(result)
	if !ok {
		return nil, c.decodeErr("search", result)
	}
	return ids, nil
}

// values builds the shared write payload. Odoo represents "no value" as false.
func (c *Client) values(ctx context.Context, fields models.PartnerFields) (map[string]any, error) {
	country, err := c.resolveCountry(ctx, fields.Country)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":       fields.Name,
		"email":      fields.Email,
		"phone":      fields.Phone,
		"street":     fields.Street,
		"city":       fields.City,
		"country_id": country,
	}, nil
}

// resolveCountry turns a metadata country into a res.country id. Numbers are
// taken as ids; two letter strings are matched on code, longer ones on name.
func (c *Client) resolveCountry(ctx context.Context, ref *models.CountryRef) (any, error) {
	if ref.IsZero() {
		return false, nil
	}
	if ref.ID != 0 {
		return ref.ID, nil
	}

	name := strings.TrimSpace(ref.Name)
	domain := []any{[]any{"name", "=ilike", name}}
	if len(name) == 2 {
		domain = []any{[]any{"code", "=", strings.ToUpper(name)}}
	}
	result, err := c.execute(ctx, countryModel, "search", []any{domain})
	if err != nil {
		return nil, err
	}
	ids, ok := toInt64s(result)
	if !ok {
		return nil, &CallError{Service: ServiceObject, Model: countryModel, Method: "search", Err: fmt.Errorf("unexpected result %T", result)}
	}
	if len(ids) == 0 {
		c.log.Warn("country not found, leaving unset", "country", name)
		return false, nil
	}
	return ids[0], nil
}

// execute runs execute_kw, re-authenticating and retrying exactly once when
// the remote side rejects the session.
func (c *Client) execute(ctx context.Context, model, method string, args []any) (any, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		uid, err := c.session.Ensure(ctx)
		if err != nil {
			return nil, err
		}

		result, err := c.session.caller.Call(ctx, ServiceObject, "execute_kw", []any{
			c.session.creds.Database,
			uid,
			c.session.creds.Password,
			model,
			method,
			args,
			map[string]any{},
		})
		if err == nil {
			return result, nil
		}
		if !isAuthFailure(err) {
			return nil, &CallError{Service: ServiceObject, Model: model, Method: method, Err: err}
		}

		c.log.Warn("remote rejected session, re-authenticating", "method", method, "uid", uid, "attempt", attempt+1)
		c.session.Invalidate(uid)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s.%s rejected after re-authentication: %v", ErrAuthFailed, model, method, lastErr)
}

func (c *Client) decodeErr(method string, result any) error {
	return &CallError{Service: ServiceObject, Model: c.model, Method: method, Err: fmt.Errorf("unexpected result %T", result)}
}

func (c *Client) record(row map[string]any) *models.RemotePartnerRecord {
	rec := &models.RemotePartnerRecord{
		ExternalUserID: asString(row[c.field]),
		Name:           asString(row["name"]),
		Email:          asString(row["email"]),
		Phone:          asString(row["phone"]),
		Street:         asString(row["street"]),
		City:           asString(row["city"]),
	}
	rec.RemoteID, _ = toInt64(row["id"])
	// many2one fields read back as [id, display_name] or false.
	if pair, ok := row["country_id"].([]any); ok && len(pair) == 2 {
		rec.CountryID, _ = toInt64(pair[0])
		rec.CountryName = asString(pair[1])
	}
	return rec
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}

func toInt64s(v any) ([]int64, bool) {
	switch list := v.(type) {
	case []int64:
		return list, true
	case []any:
		ids := make([]int64, 0, len(list))
		for _, item := range list {
			id, ok := toInt64(item)
			if !ok {
				return nil, false
			}
			ids = append(ids, id)
		}
		return ids, true
	default:
		return nil, false
	}
}

// asString reads char fields, which Odoo returns as false when empty.
func asString(v any) string {
	s, _ := v.(string)
	return s
}
