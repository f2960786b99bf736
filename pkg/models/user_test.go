package models

import (
	"encoding/json"
	"testing"
)

func TestUserSnapshotJSON(t *testing.T) {
	input := `{
		"id": "user_2abc",
		"first_name": "Ada",
		"last_name": null,
		"email_addresses": [{"email_address": "ada@x.io"}, {"email_address": "second@x.io"}],
		"phone_numbers": [{"phone_number": "+100"}],
		"public_metadata": {"address": {"street": "1 Analytical Way", "country": "GB"}}
	}`

	var snap UserSnapshot
	if err := json.Unmarshal([]byte(input), &snap); err != nil {
		t.Fatalf("failed to unmarshal UserSnapshot: %v", err)
	}

	if snap.ID != "user_2abc" {
		t.Errorf("ID: expected %q, got %q", "user_2abc", snap.ID)
	}
	if snap.FirstName == nil || *snap.FirstName != "Ada" {
		t.Errorf("FirstName: expected Ada, got %v", snap.FirstName)
	}
	if snap.LastName != nil {
		t.Errorf("LastName: expected nil for null, got %q", *snap.LastName)
	}
	if snap.Username != nil {
		t.Errorf("Username: expected nil when absent, got %q", *snap.Username)
	}
	if len(snap.EmailAddresses) != 2 || snap.EmailAddresses[0].EmailAddress != "ada@x.io" {
		t.Errorf("EmailAddresses: unexpected %+v", snap.EmailAddresses)
	}
	addr := snap.PublicMetadata.Address
	if addr == nil || addr.Street == nil || *addr.Street != "1 Analytical Way" {
		t.Fatalf("Address: unexpected %+v", addr)
	}
	if addr.City != nil {
		t.Errorf("City: expected nil, got %q", *addr.City)
	}
	if addr.Country == nil || addr.Country.Name != "GB" {
		t.Errorf("Country: expected GB, got %+v", addr.Country)
	}
}

func TestUserSnapshotJSON_MismatchedTypes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, snap UserSnapshot)
	}{
		{"metadata string", `{"id":"u1","public_metadata":"x"}`, func(t *testing.T, snap UserSnapshot) {
			if snap.PublicMetadata.Address != nil {
				t.Errorf("expected no address, got %+v", snap.PublicMetadata.Address)
			}
		}},
		{"address string", `{"id":"u1","public_metadata":{"address":"1 Main St"}}`, func(t *testing.T, snap UserSnapshot) {
			if snap.PublicMetadata.Address != nil {
				t.Errorf("expected no address, got %+v", snap.PublicMetadata.Address)
			}
		}},
		{"street number", `{"id":"u1","public_metadata":{"address":{"street":12,"city":"Paris"}}}`, func(t *testing.T, snap UserSnapshot) {
			addr := snap.PublicMetadata.Address
			if addr == nil || addr.Street != nil || addr.City == nil || *addr.City != "Paris" {
				t.Errorf("expected only city, got %+v", addr)
			}
		}},
		{"country false", `{"id":"u1","public_metadata":{"address":{"country":false}}}`, func(t *testing.T, snap UserSnapshot) {
			addr := snap.PublicMetadata.Address
			if addr == nil || addr.Country != nil {
				t.Errorf("expected absent country, got %+v", addr)
			}
		}},
		{"country object", `{"id":"u1","public_metadata":{"address":{"country":{"code":"FR"}}}}`, func(t *testing.T, snap UserSnapshot) {
			if addr := snap.PublicMetadata.Address; addr == nil || addr.Country != nil {
				t.Errorf("expected absent country, got %+v", addr)
			}
		}},
		{"name number", `{"id":"u1","first_name":7,"last_name":"Lovelace"}`, func(t *testing.T, snap UserSnapshot) {
			if snap.FirstName != nil || snap.LastName == nil || *snap.LastName != "Lovelace" {
				t.Errorf("unexpected names %v %v", snap.FirstName, snap.LastName)
			}
		}},
		{"emails object", `{"id":"u1","email_addresses":{"email_address":"a@x.io"}}`, func(t *testing.T, snap UserSnapshot) {
			if snap.EmailAddresses != nil {
				t.Errorf("expected no emails, got %+v", snap.EmailAddresses)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var snap UserSnapshot
			if err := json.Unmarshal([]byte(tt.input), &snap); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap.ID != "u1" {
				t.Errorf("ID: expected u1, got %q", snap.ID)
			}
			tt.check(t, snap)
		})
	}
}

func TestCountryRefUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantID   int64
		wantName string
		wantErr  bool
	}{
		{"number", `233`, 233, "", false},
		{"numeric string", `"75"`, 75, "", false},
		{"code", `"fr"`, 0, "fr", false},
		{"name padded", `" France "`, 0, "France", false},
		{"bool", `true`, 0, "", true},
		{"fraction", `1.5`, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref CountryRef
			err := json.Unmarshal([]byte(tt.input), &ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s, got %+v", tt.input, ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.ID != tt.wantID || ref.Name != tt.wantName {
				t.Errorf("expected {%d %q}, got {%d %q}", tt.wantID, tt.wantName, ref.ID, ref.Name)
			}
		})
	}
}

func TestCountryRefIsZero(t *testing.T) {
	var nilRef *CountryRef
	if !nilRef.IsZero() {
		t.Error("nil ref should be zero")
	}
	if !(&CountryRef{Name: "  "}).IsZero() {
		t.Error("blank name should be zero")
	}
	if (&CountryRef{ID: 1}).IsZero() {
		t.Error("id ref should not be zero")
	}
}
