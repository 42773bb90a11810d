package repository

import (
	"context"
	"errors"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
)

var (
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("duplicate record")
)

// Transactor runs fn as one all-or-nothing unit. Nested calls join the outer unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create inserts a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID returns nil, nil when the event does not exist
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// GetByIDForUpdate loads the event and locks it for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error)
	// List returns events ordered by start date
	List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error)
	// Update persists all mutable event fields
	Update(ctx context.Context, event *domain.Event) error
	// Delete removes an event
	Delete(ctx context.Context, id string) error
}

// RegistrationRepository defines the interface for registration data access
type RegistrationRepository interface {
	// Create inserts a registration; returns ErrDuplicate for a second active row per (event, user)
	Create(ctx context.Context, reg *domain.Registration) error
	// GetByID returns nil, nil when the registration does not exist
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	// FindActive returns the user's non-cancelled registration for the event, or nil
	FindActive(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	// CountActive counts non-cancelled registrations for an event
	CountActive(ctx context.Context, eventID string) (int, error)
	// CountActiveByEvents counts non-cancelled registrations for several events
	CountActiveByEvents(ctx context.Context, eventIDs []string) (map[string]int, error)
	// Delete hard-deletes a registration
	Delete(ctx context.Context, id string) error
	// ListByEvent returns registrations joined with registrant profiles, oldest first
	ListByEvent(ctx context.Context, eventID string) ([]*domain.RegistrationView, error)
	// ListByUser returns a user's registrations, newest first
	ListByUser(ctx context.Context, userID string) ([]*domain.Registration, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a user; returns ErrDuplicate for a taken email
	Create(ctx context.Context, user *domain.User) error
	// GetByID returns nil, nil when the user does not exist
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIDForUpdate loads the user and locks it for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error)
	// List returns users matching filter and the total match count
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error)
	// Update persists status, role, approval stamp, profile and password hash
	Update(ctx context.Context, user *domain.User) error
	// Delete removes a user
	Delete(ctx context.Context, id string) error
}

// AuditRepository is append-only
type AuditRepository interface {
	// Append stores one entry
	Append(ctx context.Context, entry *domain.AuditEntry) error
	// ListByEntity returns entries for an entity, oldest first
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEntry, error)
	// ListByActor returns entries written by an actor, oldest first
	ListByActor(ctx context.Context, actorID string) ([]*domain.AuditEntry, error)
}

// Store bundles the repositories sharing one transactional datastore
type Store struct {
	Tx            Transactor
	Events        EventRepository
	Registrations RegistrationRepository
	Users         UserRepository
	Audit         AuditRepository
	Ping          func(ctx context.Context) error
}
