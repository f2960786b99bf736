// Package webhook verifies Svix-signed deliveries from the identity provider.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"partnersync/pkg/models"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix     = "whsec_"
	signatureVersion = "v1"

	DefaultTolerance = 5 * time.Minute
)

// Headers carries the three signing headers of a delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// HeadersFrom extracts the signing headers from an HTTP header set.
func HeadersFrom(h http.Header) Headers {
	return Headers{
		ID:        strings.TrimSpace(h.Get(HeaderID)),
		Timestamp: strings.TrimSpace(h.Get(HeaderTimestamp)),
		Signature: strings.TrimSpace(h.Get(HeaderSignature)),
	}
}

// Verifier checks deliveries against a shared secret and a replay window.
type Verifier struct {
	key       []byte
	Tolerance time.Duration
	Now       func() time.Time
}

// NewVerifier accepts the secret as shown in the provider dashboard
// ("whsec_" + base64). Secrets that are not base64 are used verbatim.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{
		key:       decodeSecret(secret),
		Tolerance: tolerance,
		Now:       time.Now,
	}
}

func decodeSecret(secret string) []byte {
	secret = strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix)
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil && len(key) > 0 {
		return key
	}
	return []byte(secret)
}

// Verify authenticates body under the given headers and parses it into a
// trusted event. It has no side effects.
func (v *Verifier) Verify(body []byte, h Headers) (models.IdentityEvent, error) {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return models.IdentityEvent{}, ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return models.IdentityEvent{}, fmt.Errorf("%w: invalid timestamp %q", ErrSignatureInvalid, h.Timestamp)
	}
	now := v.now()
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > v.Tolerance {
		return models.IdentityEvent{}, fmt.Errorf("%w: timestamp too old", ErrSignatureInvalid)
	}
	if sent.Sub(now) > v.Tolerance {
		return models.IdentityEvent{}, fmt.Errorf("%w: timestamp too new", ErrSignatureInvalid)
	}

	expected := v.sign(h.ID, h.Timestamp, body)
	if !matchesAny(h.Signature, expected) {
		return models.IdentityEvent{}, ErrSignatureInvalid
	}

	event, err := parseEnvelope(body)
	if err != nil {
		return models.IdentityEvent{}, err
	}
	event.ID = h.ID
	event.ReceivedAt = now.UTC()
	return event, nil
}

// Sign returns a signature header value for the payload, in the same
// format the provider sends.
func (v *Verifier) Sign(id, timestamp string, body []byte) string {
	return signatureVersion + "," + base64.StdEncoding.EncodeToString(v.sign(id, timestamp, body))
}

func (v *Verifier) sign(id, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	_, _ = mac.Write([]byte(id))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// matchesAny walks the space separated "version,signature" list.
func matchesAny(header string, expected []byte) bool {
	for _, entry := range strings.Fields(header) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != signatureVersion {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return true
		}
	}
	return false
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func parseEnvelope(body []byte) (models.IdentityEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.IdentityEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(env.Type) == "" {
		return models.IdentityEvent{}, fmt.Errorf("%w: type is required", ErrMalformedPayload)
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil || data == nil {
		return models.IdentityEvent{}, fmt.Errorf("%w: data must be an object", ErrMalformedPayload)
	}
	var id string
	if err := json.Unmarshal(data["id"], &id); err != nil || strings.TrimSpace(id) == "" {
		return models.IdentityEvent{}, fmt.Errorf("%w: data.id is required", ErrMalformedPayload)
	}

	event := models.IdentityEvent{
		Type: models.EventKind(env.Type),
		Data: models.UserSnapshot{ID: id},
	}
	switch event.Type {
	case models.EventUserCreated, models.EventUserUpdated, models.EventUserDeleted:
		// Mismatched field types decode as absent.
		if err := json.Unmarshal(env.Data, &event.Data); err != nil {
			return models.IdentityEvent{}, fmt.Errorf("%w: data: %v", ErrMalformedPayload, err)
		}
	}
	return event, nil
}
