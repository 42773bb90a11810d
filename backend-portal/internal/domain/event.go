package domain

import (
	"strings"
	"time"
)

// EventType categorizes community events
type EventType string

const (
	EventTypeSports    EventType = "SPORTS"
	EventTypeCultural  EventType = "CULTURAL"
	EventTypeFestival  EventType = "FESTIVAL"
	EventTypeMeeting   EventType = "MEETING"
	EventTypeWorkshop  EventType = "WORKSHOP"
	EventTypeCommunity EventType = "COMMUNITY"
	EventTypeOther     EventType = "OTHER"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventTypeSports, EventTypeCultural, EventTypeFestival, EventTypeMeeting,
		EventTypeWorkshop, EventTypeCommunity, EventTypeOther:
		return true
	}
	return false
}

// ParticipationType decides whether a registration carries team members
type ParticipationType string

const (
	ParticipationIndividual ParticipationType = "INDIVIDUAL"
	ParticipationTeam       ParticipationType = "TEAM"
)

func (p ParticipationType) IsValid() bool {
	return p == ParticipationIndividual || p == ParticipationTeam
}

// Event is a community event that may accept registrations
type Event struct {
	ID                    string             `json:"id"`
	Title                 string             `json:"title"`
	Description           string             `json:"description"`
	EventType             EventType          `json:"event_type"`
	StartDate             time.Time          `json:"start_date"`
	EndDate               time.Time          `json:"end_date"`
	Venue                 string             `json:"venue"`
	RegistrationRequired  bool               `json:"registration_required"`
	RegistrationStartDate *time.Time         `json:"registration_start_date,omitempty"`
	RegistrationEndDate   *time.Time         `json:"registration_end_date,omitempty"`
	ParticipationType     *ParticipationType `json:"participation_type,omitempty"`
	MaxParticipants       *int               `json:"max_participants,omitempty"`
	Published             bool               `json:"published"`
	CreatedBy             string             `json:"created_by"`
	PublishedAt           *time.Time         `json:"published_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// IsTeam reports whether registrations must name team members
func (e *Event) IsTeam() bool {
	return e.ParticipationType != nil && *e.ParticipationType == ParticipationTeam
}

// Status derives the registration status at now for the given active count
func (e *Event) Status(now time.Time, count int) RegistrationWindowStatus {
	return ComputeStatus(now, e.RegistrationRequired, e.RegistrationStartDate, e.RegistrationEndDate, e.MaxParticipants, count)
}

// Validate checks the field-level invariants of an event
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return Validation("title", "title is required")
	}
	if !e.EventType.IsValid() {
		return Validation("event_type", "unknown event type %q", e.EventType)
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return Validation("start_date", "start and end dates are required")
	}
	if e.EndDate.Before(e.StartDate) {
		return Validation("end_date", "end date must not precede start date")
	}
	if e.RegistrationStartDate != nil && e.RegistrationEndDate != nil &&
		e.RegistrationEndDate.Before(*e.RegistrationStartDate) {
		return Validation("registration_end_date", "registration end date must not precede registration start date")
	}
	if e.ParticipationType != nil && !e.ParticipationType.IsValid() {
		return Validation("participation_type", "unknown participation type %q", *e.ParticipationType)
	}
	if e.MaxParticipants != nil && *e.MaxParticipants <= 0 {
		return Validation("max_participants", "max participants must be positive")
	}
	return nil
}

// CancellationPrefix builds the marker prepended to a cancelled event's description
func CancellationPrefix(marker, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "[" + marker + "]"
	}
	return "[" + marker + ": " + reason + "]"
}

// EventFilter narrows event listings
type EventFilter struct {
	PublishedOnly bool
	From          *time.Time
	Limit         int
	Offset        int
}
