package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UserSnapshot is the identity provider's view of a user.
// Nil optional fields mean "unknown", not "empty". Decoding never fails on
// a field of the wrong JSON type; such fields are left unset.
type UserSnapshot struct {
	ID             string         `json:"id"`
	FirstName      *string        `json:"first_name,omitempty"`
	LastName       *string        `json:"last_name,omitempty"`
	Username       *string        `json:"username,omitempty"`
	EmailAddresses []EmailAddress `json:"email_addresses,omitempty"`
	PhoneNumbers   []PhoneNumber  `json:"phone_numbers,omitempty"`
	PublicMetadata PublicMetadata `json:"public_metadata"`
}

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

type PhoneNumber struct {
	PhoneNumber string `json:"phone_number"`
}

func (u *UserSnapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	snap := UserSnapshot{
		FirstName: optString(raw["first_name"]),
		LastName:  optString(raw["last_name"]),
		Username:  optString(raw["username"]),
	}
	if id := optString(raw["id"]); id != nil {
		snap.ID = *id
	}
	if len(raw["email_addresses"]) > 0 && json.Unmarshal(raw["email_addresses"], &snap.EmailAddresses) != nil {
		snap.EmailAddresses = nil
	}
	if len(raw["phone_numbers"]) > 0 && json.Unmarshal(raw["phone_numbers"], &snap.PhoneNumbers) != nil {
		snap.PhoneNumbers = nil
	}
	if len(raw["public_metadata"]) > 0 {
		_ = json.Unmarshal(raw["public_metadata"], &snap.PublicMetadata)
	}
	*u = snap
	return nil
}

// PublicMetadata is the subset of the provider's free-form metadata we read.
type PublicMetadata struct {
	Address *Address `json:"address,omitempty"`
}

// UnmarshalJSON accepts any JSON value. Metadata that is not an object, or
// an address that is not one, decodes as absent.
func (m *PublicMetadata) UnmarshalJSON(data []byte) error {
	*m = PublicMetadata{}
	var raw map[string]json.RawMessage
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	m.Address = decodeAddress(raw["address"])
	return nil
}

type Address struct {
	Street  *string     `json:"street,omitempty"`
	City    *string     `json:"city,omitempty"`
	Country *CountryRef `json:"country,omitempty"`
}

func decodeAddress(data json.RawMessage) *Address {
	var raw map[string]json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &raw) != nil || raw == nil {
		return nil
	}
	addr := &Address{
		Street: optString(raw["street"]),
		City:   optString(raw["city"]),
	}
	if len(raw["country"]) > 0 {
		var c *CountryRef
		if json.Unmarshal(raw["country"], &c) == nil {
			addr.Country = c
		}
	}
	return addr
}

// optString decodes a JSON string; null, absent and non-string values are nil.
func optString(data json.RawMessage) *string {
	if len(data) == 0 {
		return nil
	}
	var s *string
	if json.Unmarshal(data, &s) != nil {
		return nil
	}
	return s
}

// CountryRef is a country as stored in metadata: either a remote country id
// (JSON number) or a code or name (JSON string).
type CountryRef struct {
	ID   int64
	Name string
}

// IsZero reports whether the reference carries no usable value.
func (c *CountryRef) IsZero() bool {
	return c == nil || (c.ID == 0 && strings.TrimSpace(c.Name) == "")
}

func (c CountryRef) String() string {
	if c.ID != 0 {
		return strconv.FormatInt(c.ID, 10)
	}
	return c.Name
}

func (c *CountryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CountryRef{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			*c = CountryRef{ID: id}
			return nil
		}
		*c = CountryRef{Name: strings.TrimSpace(s)}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("country: expected string or number, got %s", data)
	}
	id, err := n.Int64()
	if err != nil {
		return fmt.Errorf("country: %w", err)
	}
	*c = CountryRef{ID: id}
	return nil
}

func (c CountryRef) MarshalJSON() ([]byte, error) {
	if c.ID != 0 {
		return json.Marshal(c.ID)
	}
	return json.Marshal(c.Name)
}

// PartnerFields is a user snapshot normalized into the remote partner shape.
// A nil Country is the explicit "no country on file" marker.
type PartnerFields struct {
	ExternalUserID string      `json:"external_user_id" yaml:"external_user_id"`
	Name           string      `json:"name" yaml:"name"`
	Email          string      `json:"email" yaml:"email"`
	Phone          string      `json:"phone" yaml:"phone"`
	Street         string      `json:"street" yaml:"street"`
	City           string      `json:"city" yaml:"city"`
	Country        *CountryRef `json:"country" yaml:"country,omitempty"`
}

// RemotePartnerRecord is the mirrored entity as read back from the remote system.
type RemotePartnerRecord struct {
	RemoteID       int64  `json:"remote_id" yaml:"remote_id"`
	ExternalUserID string `json:"external_user_id" yaml:"external_user_id"`
	Name           string `json:"name" yaml:"name"`
	Email          string `json:"email" yaml:"email"`
	Phone          string `json:"phone" yaml:"phone"`
	Street         string `json:"street" yaml:"street"`
	City           string `json:"city" yaml:"city"`
	CountryID      int64  `json:"country_id,omitempty" yaml:"country_id,omitempty"`
	CountryName    string `json:"country_name,omitempty" yaml:"country_name,omitempty"`
}
