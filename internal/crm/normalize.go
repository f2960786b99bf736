package crm

import (
	"strings"

	"partnersync/pkg/models"
)

// UnknownUserName is used when a snapshot carries neither a name nor a username.
const UnknownUserName = "Unknown User"

// Normalize maps a provider snapshot onto partner fields. It is a pure
// function of its input.
func Normalize(s models.UserSnapshot) models.PartnerFields {
	name := strings.TrimSpace(deref(s.FirstName) + " " + deref(s.LastName))
	if name == "" {
		name = deref(s.Username)
	}
	if name == "" {
		name = UnknownUserName
	}

	fields := models.PartnerFields{
		ExternalUserID: s.ID,
		Name:           name,
	}
	if len(s.EmailAddresses) > 0 {
		fields.Email = s.EmailAddresses[0].EmailAddress
	}
	if len(s.PhoneNumbers) > 0 {
		fields.Phone = s.PhoneNumbers[0].PhoneNumber
	}
	if addr := s.PublicMetadata.Address; addr != nil {
		fields.Street = deref(addr.Street)
		fields.City = deref(addr.City)
		if !addr.Country.IsZero() {
			country := *addr.Country
			fields.Country = &country
		}
	}
	return fields
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
