package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/clock"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/repository"
	"github.com/prohmpiriya/community-portal/pkg/logger"
	"github.com/prohmpiriya/community-portal/pkg/telemetry"
)

// RegistrationLedger creates and cancels event registrations
type RegistrationLedger interface {
	Register(ctx context.Context, actor domain.Actor, in RegisterInput) (*domain.Registration, error)
	Cancel(ctx context.Context, actor domain.Actor, registrationID string) error
	ListByEvent(ctx context.Context, actor domain.Actor, eventID string) ([]*domain.RegistrationView, error)
	ListMine(ctx context.Context, actor domain.Actor) ([]*domain.Registration, error)
}

// EventLifecycleManager owns every event mutation
type EventLifecycleManager interface {
	Create(ctx context.Context, actor domain.Actor, in CreateEventInput) (*EventView, error)
	Update(ctx context.Context, actor domain.Actor, id string, in UpdateEventInput) (*EventView, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
	CloseRegistration(ctx context.Context, actor domain.Actor, id string) (*EventView, error)
	CancelEvent(ctx context.Context, actor domain.Actor, id, reason string) (*CancelResult, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*EventView, error)
	List(ctx context.Context, actor domain.Actor, filter domain.EventFilter) ([]*EventView, int, error)
}

// UserAccountStateMachine owns user status and role changes
type UserAccountStateMachine interface {
	SignUp(ctx context.Context, in SignUpInput) (*domain.User, error)
	ChangeStatus(ctx context.Context, actor domain.Actor, userID string, next domain.UserStatus) (*domain.User, error)
	ForceStatus(ctx context.Context, actor domain.Actor, userID string, next domain.UserStatus) (*domain.User, error)
	ChangeRole(ctx context.Context, actor domain.Actor, userID string, role domain.Role) (*domain.User, error)
	ResetPassword(ctx context.Context, actor domain.Actor, userID string) (string, error)
	Delete(ctx context.Context, actor domain.Actor, userID string) error
	Get(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error)
	List(ctx context.Context, actor domain.Actor, filter domain.UserFilter) ([]*domain.User, int, error)
}

// AuditLog records administrative mutations. Entries are never updated or deleted.
type AuditLog interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	QueryByEntity(ctx context.Context, actor domain.Actor, entityType, entityID string) ([]*domain.AuditEntry, error)
	QueryByActor(ctx context.Context, actor domain.Actor, actorID string) ([]*domain.AuditEntry, error)
}

// Exporter renders read-only CSV exports
type Exporter interface {
	ExportRegistrations(ctx context.Context, actor domain.Actor, eventID string) (*ExportFile, error)
	ExportUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter) (*ExportFile, error)
}

// Config holds the tunables shared by the portal services
type Config struct {
	MaxTeamMembers     int
	MaxNotesLength     int
	TempPasswordLength int
	CancellationMarker string
	ExportLocation     *time.Location
}

// DefaultConfig returns the service defaults
func DefaultConfig() Config {
	return Config{
		MaxTeamMembers:     20,
		MaxNotesLength:     2000,
		TempPasswordLength: 12,
		CancellationMarker: "CANCELLED",
		ExportLocation:     time.UTC,
	}
}

// Deps are the collaborators every service is built from
type Deps struct {
	Store   *repository.Store
	Clock   clock.Clock
	Logger  *logger.Logger
	Metrics *telemetry.PortalMetrics
	Config  Config
}

type base struct {
	store   *repository.Store
	clock   clock.Clock
	log     *logger.Logger
	metrics *telemetry.PortalMetrics
	cfg     Config
}

func newBase(d Deps, component string) base {
	l := d.Logger
	if l == nil {
		l = logger.NewNop()
	}
	c := d.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	cfg := d.Config
	def := DefaultConfig()
	if cfg.MaxTeamMembers <= 0 {
		cfg.MaxTeamMembers = def.MaxTeamMembers
	}
	if cfg.MaxNotesLength <= 0 {
		cfg.MaxNotesLength = def.MaxNotesLength
	}
	if cfg.TempPasswordLength <= 0 {
		cfg.TempPasswordLength = def.TempPasswordLength
	}
	if cfg.CancellationMarker == "" {
		cfg.CancellationMarker = def.CancellationMarker
	}
	if cfg.ExportLocation == nil {
		cfg.ExportLocation = def.ExportLocation
	}
	return base{
		store:   d.Store,
		clock:   c,
		log:     l.Named(component),
		metrics: d.Metrics,
		cfg:     cfg,
	}
}

// fail passes domain errors through and hides anything else behind Internal
func (b *base) fail(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	b.log.ErrorContext(ctx, op+" failed", zap.Error(err))
	return domain.Internal()
}

// startOp opens a span for op; the returned func ends it and records latency
func (b *base) startOp(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "portal."+op, attrs...)
	return ctx, func(err error) {
		telemetry.EndSpan(span, err)
		b.metrics.ObserveDuration(ctx, op, float64(time.Since(started).Microseconds())/1000)
	}
}
