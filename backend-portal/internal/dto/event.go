package dto

import (
	"strings"
	"time"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
)

// CreateEventRequest represents request to create an event
type CreateEventRequest struct {
	Title                 string     `json:"title" binding:"required,max=255"`
	Description           string     `json:"description" binding:"omitempty,max=10000"`
	EventType             string     `json:"event_type" binding:"required"`
	StartDate             time.Time  `json:"start_date" binding:"required"`
	EndDate               time.Time  `json:"end_date" binding:"required"`
	Venue                 string     `json:"venue" binding:"omitempty,max=255"`
	RegistrationRequired  bool       `json:"registration_required"`
	RegistrationStartDate *time.Time `json:"registration_start_date"`
	RegistrationEndDate   *time.Time `json:"registration_end_date"`
	ParticipationType     *string    `json:"participation_type" binding:"omitempty,oneof=INDIVIDUAL TEAM"`
	MaxParticipants       *int       `json:"max_participants" binding:"omitempty,min=1"`
	Published             bool       `json:"published"`
}

// ToInput converts the request into service input
func (r *CreateEventRequest) ToInput() service.CreateEventInput {
	in := service.CreateEventInput{
		Title:                 r.Title,
		Description:           r.Description,
		EventType:             domain.EventType(strings.ToUpper(r.EventType)),
		StartDate:             r.StartDate,
		EndDate:               r.EndDate,
		Venue:                 r.Venue,
		RegistrationRequired:  r.RegistrationRequired,
		RegistrationStartDate: r.RegistrationStartDate,
		RegistrationEndDate:   r.RegistrationEndDate,
		MaxParticipants:       r.MaxParticipants,
		Published:             r.Published,
	}
	if r.ParticipationType != nil {
		p := domain.ParticipationType(*r.ParticipationType)
		in.ParticipationType = &p
	}
	return in
}

// UpdateEventRequest represents a partial event update. The clear_* flags null a field.
type UpdateEventRequest struct {
	Title                      *string    `json:"title" binding:"omitempty,max=255"`
	Description                *string    `json:"description" binding:"omitempty,max=10000"`
	EventType                  *string    `json:"event_type"`
	StartDate                  *time.Time `json:"start_date"`
	EndDate                    *time.Time `json:"end_date"`
	Venue                      *string    `json:"venue" binding:"omitempty,max=255"`
	RegistrationRequired       *bool      `json:"registration_required"`
	RegistrationStartDate      *time.Time `json:"registration_start_date"`
	ClearRegistrationStartDate bool       `json:"clear_registration_start_date"`
	RegistrationEndDate        *time.Time `json:"registration_end_date"`
	ClearRegistrationEndDate   bool       `json:"clear_registration_end_date"`
	ParticipationType          *string    `json:"participation_type" binding:"omitempty,oneof=INDIVIDUAL TEAM"`
	ClearParticipationType     bool       `json:"clear_participation_type"`
	MaxParticipants            *int       `json:"max_participants" binding:"omitempty,min=1"`
	ClearMaxParticipants       bool       `json:"clear_max_participants"`
	Published                  *bool      `json:"published"`
}

// Validate validates that at least one field is provided for update
func (r *UpdateEventRequest) Validate() (bool, string) {
	if r.Title == nil && r.Description == nil && r.EventType == nil && r.StartDate == nil &&
		r.EndDate == nil && r.Venue == nil && r.RegistrationRequired == nil &&
		r.RegistrationStartDate == nil && !r.ClearRegistrationStartDate &&
		r.RegistrationEndDate == nil && !r.ClearRegistrationEndDate &&
		r.ParticipationType == nil && !r.ClearParticipationType &&
		r.MaxParticipants == nil && !r.ClearMaxParticipants && r.Published == nil {
		return false, "At least one field must be provided for update"
	}
	if r.MaxParticipants != nil && r.ClearMaxParticipants {
		return false, "max_participants cannot be set and cleared together"
	}
	return true, ""
}

// ToInput converts the request into service input
func (r *UpdateEventRequest) ToInput() service.UpdateEventInput {
	in := service.UpdateEventInput{
		Title:                      r.Title,
		Description:                r.Description,
		StartDate:                  r.StartDate,
		EndDate:                    r.EndDate,
		Venue:                      r.Venue,
		RegistrationRequired:       r.RegistrationRequired,
		RegistrationStartDate:      r.RegistrationStartDate,
		ClearRegistrationStartDate: r.ClearRegistrationStartDate,
		RegistrationEndDate:        r.RegistrationEndDate,
		ClearRegistrationEndDate:   r.ClearRegistrationEndDate,
		ClearParticipationType:     r.ClearParticipationType,
		MaxParticipants:            r.MaxParticipants,
		ClearMaxParticipants:       r.ClearMaxParticipants,
		Published:                  r.Published,
	}
	if r.EventType != nil {
		t := domain.EventType(strings.ToUpper(*r.EventType))
		in.EventType = &t
	}
	if r.ParticipationType != nil {
		p := domain.ParticipationType(*r.ParticipationType)
		in.ParticipationType = &p
	}
	return in
}

// CancelEventRequest represents request to cancel an event
type CancelEventRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ListEventsQuery represents query parameters for listing events
type ListEventsQuery struct {
	Page     int  `form:"page" binding:"omitempty,min=1"`
	Limit    int  `form:"limit" binding:"omitempty,min=1,max=100"`
	Upcoming bool `form:"upcoming"`
}

// SetDefaults sets default values for query parameters
func (q *ListEventsQuery) SetDefaults() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
}

// ToFilter converts the query into a repository filter. Upcoming hides events that ended before now.
func (q *ListEventsQuery) ToFilter(now time.Time) domain.EventFilter {
	q.SetDefaults()
	filter := domain.EventFilter{Limit: q.Limit, Offset: (q.Page - 1) * q.Limit}
	if q.Upcoming {
		filter.From = &now
	}
	return filter
}
