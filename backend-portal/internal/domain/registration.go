package domain

import (
	"strings"
	"time"
)

// RegistrationStatus of a stored registration. Cancelling deletes the row,
// so stored rows are REGISTERED in practice.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "REGISTERED"
	RegistrationCancelled  RegistrationStatus = "CANCELLED"
)

// TeamMember is one named participant on a TEAM registration
type TeamMember struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Registration links a user to an event
type Registration struct {
	ID                 string             `json:"id"`
	EventID            string             `json:"event_id"`
	UserID             string             `json:"user_id"`
	TeamMembers        []TeamMember       `json:"team_members"`
	AdditionalNotes    string             `json:"additional_notes,omitempty"`
	RegistrationStatus RegistrationStatus `json:"registration_status"`
	RegisteredAt       time.Time          `json:"registered_at"`
}

// HasNamedMember reports whether at least one member has a non-blank name
func HasNamedMember(members []TeamMember) bool {
	for _, m := range members {
		if strings.TrimSpace(m.Name) != "" {
			return true
		}
	}
	return false
}

// NormalizeTeam trims fields and drops members without a name
func NormalizeTeam(members []TeamMember) []TeamMember {
	out := make([]TeamMember, 0, len(members))
	for _, m := range members {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		m.Email = strings.TrimSpace(m.Email)
		m.Phone = strings.TrimSpace(m.Phone)
		out = append(out, m)
	}
	return out
}

// RegistrationView joins a registration with the registrant's profile for listing and export
type RegistrationView struct {
	Registration
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	UserPhone string `json:"user_phone"`
	Building  string `json:"building"`
	Flat      string `json:"flat"`
}
