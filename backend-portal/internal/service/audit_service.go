package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
)

type auditLog struct {
	base
}

// NewAuditLog creates the AuditLog
func NewAuditLog(d Deps) AuditLog {
	return &auditLog{base: newBase(d, "audit")}
}

// Append validates and stores one entry. When ctx carries a transaction the
// entry commits or rolls back with it.
func (s *auditLog) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil || entry.Details == nil {
		return fmt.Errorf("audit entry without details")
	}
	if entry.ActorID == "" || entry.EntityID == "" {
		return fmt.Errorf("audit entry %s missing actor or entity", entry.Details.Action())
	}
	if entry.Action == "" {
		entry.Action = entry.Details.Action()
	}
	if entry.Action != entry.Details.Action() {
		return fmt.Errorf("audit action %s does not match details %s", entry.Action, entry.Details.Action())
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}

	if err := s.store.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	s.log.WithContext(ctx).Debug("audit entry appended",
		zap.String("action", string(entry.Action)),
		zap.String("entity_type", entry.EntityType),
		zap.String("entity_id", entry.EntityID),
	)
	return nil
}

// QueryByEntity lists entries about one entity, oldest first. Admin only.
func (s *auditLog) QueryByEntity(ctx context.Context, actor domain.Actor, entityType, entityID string) (entries []*domain.AuditEntry, err error) {
	ctx, done := s.startOp(ctx, "audit.query_entity")
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	entityType = strings.ToUpper(strings.TrimSpace(entityType))
	if entityType != domain.EntityEvent && entityType != domain.EntityUser {
		return nil, domain.Validation("entity_type", "unknown entity type %q", entityType)
	}
	if entityID == "" {
		return nil, domain.Validation("entity_id", "entity id is required")
	}

	entries, err = s.store.Audit.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, s.fail(ctx, "audit.query_entity", err)
	}
	return entries, nil
}

// QueryByActor lists entries written by actorID, oldest first. Admin only.
func (s *auditLog) QueryByActor(ctx context.Context, actor domain.Actor, actorID string) (entries []*domain.AuditEntry, err error) {
	ctx, done := s.startOp(ctx, "audit.query_actor")
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if actorID == "" {
		return nil, domain.Validation("actor_id", "actor id is required")
	}

	entries, err = s.store.Audit.ListByActor(ctx, actorID)
	if err != nil {
		return nil, s.fail(ctx, "audit.query_actor", err)
	}
	return entries, nil
}

// record builds and appends the entry for a mutation performed by actor
func record(ctx context.Context, audit AuditLog, actor domain.Actor, entityType, entityID string, details domain.AuditDetails) error {
	return audit.Append(ctx, &domain.AuditEntry{
		ActorID:    actor.ID,
		Action:     details.Action(),
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
}
