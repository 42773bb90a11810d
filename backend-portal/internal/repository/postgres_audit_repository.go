package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
)

// PostgresAuditRepository implements AuditRepository using PostgreSQL
type PostgresAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditRepository creates a new PostgresAuditRepository
func NewPostgresAuditRepository(pool *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{pool: pool}
}

// Append stores one entry
func (r *PostgresAuditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	details, err := domain.EncodeAuditDetails(e.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.ActorID, string(e.Action), e.EntityType, e.EntityID, details, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns entries for an entity, oldest first
func (r *PostgresAuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEntry, error) {
	return r.list(ctx, `WHERE entity_type = $1 AND entity_id = $2`, entityType, entityID)
}

// ListByActor returns entries written by an actor, oldest first
func (r *PostgresAuditRepository) ListByActor(ctx context.Context, actorID string) ([]*domain.AuditEntry, error) {
	if !validID(actorID) {
		return nil, nil
	}
	return r.list(ctx, `WHERE actor_id = $1`, actorID)
}

func (r *PostgresAuditRepository) list(ctx context.Context, where string, args ...any) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, details, created_at
		FROM audit_log ` + where + `
		ORDER BY created_at ASC, id ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		e := &domain.AuditEntry{}
		var action string
		var raw []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.EntityType, &e.EntityID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = domain.AuditAction(action)
		if e.Details, err = domain.DecodeAuditDetails(e.Action, raw); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
