package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction tags an audit entry and selects its details shape
type AuditAction string

const (
	ActionEventCreated            AuditAction = "EVENT_CREATED"
	ActionEventUpdated            AuditAction = "EVENT_UPDATED"
	ActionEventDeleted            AuditAction = "EVENT_DELETED"
	ActionEventRegistrationClosed AuditAction = "EVENT_REGISTRATION_CLOSED"
	ActionEventCancelled          AuditAction = "EVENT_CANCELLED"
	ActionUserStatusChanged       AuditAction = "USER_STATUS_CHANGED"
	ActionUserRoleChanged         AuditAction = "USER_ROLE_CHANGED"
	ActionUserPasswordReset       AuditAction = "USER_PASSWORD_RESET"
	ActionUserDeleted             AuditAction = "USER_DELETED"
)

// Audited entity types
const (
	EntityEvent = "EVENT"
	EntityUser  = "USER"
)

// AuditDetails is implemented only by the detail shapes in this file
type AuditDetails interface {
	Action() AuditAction
	auditDetails()
}

// FieldChange records one updated event field
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

type EventCreatedDetails struct {
	Title     string `json:"title"`
	Published bool   `json:"published"`
}

type EventUpdatedDetails struct {
	Changes []FieldChange `json:"changes"`
}

type EventDeletedDetails struct {
	Title string `json:"title"`
}

type EventRegistrationClosedDetails struct {
	PreviousEnd *time.Time `json:"previous_end,omitempty"`
	NewEnd      time.Time  `json:"new_end"`
}

type EventCancelledDetails struct {
	Reason        string `json:"reason,omitempty"`
	AffectedCount int    `json:"affected_count"`
}

type UserStatusChangedDetails struct {
	From   UserStatus `json:"from"`
	To     UserStatus `json:"to"`
	Forced bool       `json:"forced"`
}

type UserRoleChangedDetails struct {
	From Role `json:"from"`
	To   Role `json:"to"`
}

type UserPasswordResetDetails struct {
	Email string `json:"email"`
}

type UserDeletedDetails struct {
	Email  string     `json:"email"`
	Role   Role       `json:"role"`
	Status UserStatus `json:"status"`
}

func (EventCreatedDetails) Action() AuditAction            { return ActionEventCreated }
func (EventUpdatedDetails) Action() AuditAction            { return ActionEventUpdated }
func (EventDeletedDetails) Action() AuditAction            { return ActionEventDeleted }
func (EventRegistrationClosedDetails) Action() AuditAction { return ActionEventRegistrationClosed }
func (EventCancelledDetails) Action() AuditAction          { return ActionEventCancelled }
func (UserStatusChangedDetails) Action() AuditAction       { return ActionUserStatusChanged }
func (UserRoleChangedDetails) Action() AuditAction         { return ActionUserRoleChanged }
func (UserPasswordResetDetails) Action() AuditAction       { return ActionUserPasswordReset }
func (UserDeletedDetails) Action() AuditAction             { return ActionUserDeleted }

func (EventCreatedDetails) auditDetails()            {}
func (EventUpdatedDetails) auditDetails()            {}
func (EventDeletedDetails) auditDetails()            {}
func (EventRegistrationClosedDetails) auditDetails() {}
func (EventCancelledDetails) auditDetails()          {}
func (UserStatusChangedDetails) auditDetails()       {}
func (UserRoleChangedDetails) auditDetails()         {}
func (UserPasswordResetDetails) auditDetails()       {}
func (UserDeletedDetails) auditDetails()             {}

// AuditEntry is one append-only audit record
type AuditEntry struct {
	ID         string       `json:"id"`
	ActorID    string       `json:"actor_id"`
	Action     AuditAction  `json:"action"`
	EntityType string       `json:"entity_type"`
	EntityID   string       `json:"entity_id"`
	Details    AuditDetails `json:"details"`
	CreatedAt  time.Time    `json:"created_at"`
}

// EncodeAuditDetails serializes details for storage
func EncodeAuditDetails(d AuditDetails) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeAuditDetails rebuilds the typed details for action
func DecodeAuditDetails(action AuditAction, raw []byte) (AuditDetails, error) {
	var d AuditDetails
	switch action {
	case ActionEventCreated:
		d = &EventCreatedDetails{}
	case ActionEventUpdated:
		d = &EventUpdatedDetails{}
	case ActionEventDeleted:
		d = &EventDeletedDetails{}
	case ActionEventRegistrationClosed:
		d = &EventRegistrationClosedDetails{}
	case ActionEventCancelled:
		d = &EventCancelledDetails{}
	case ActionUserStatusChanged:
		d = &UserStatusChangedDetails{}
	case ActionUserRoleChanged:
		d = &UserRoleChangedDetails{}
	case ActionUserPasswordReset:
		d = &UserPasswordResetDetails{}
	case ActionUserDeleted:
		d = &UserDeletedDetails{}
	default:
		return nil, fmt.Errorf("unknown audit action %q", action)
	}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("decode %s details: %w", action, err)
	}
	return deref(d), nil
}

func deref(d AuditDetails) AuditDetails {
	switch v := d.(type) {
	case *EventCreatedDetails:
		return *v
	case *EventUpdatedDetails:
		return *v
	case *EventDeletedDetails:
		return *v
	case *EventRegistrationClosedDetails:
		return *v
	case *EventCancelledDetails:
		return *v
	case *UserStatusChangedDetails:
		return *v
	case *UserRoleChangedDetails:
		return *v
	case *UserPasswordResetDetails:
		return *v
	case *UserDeletedDetails:
		return *v
	}
	return d
}
