package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
)

const eventColumns = `
	id, title, description, event_type, start_date, end_date, venue,
	registration_required, registration_start_date, registration_end_date,
	participation_type, max_participants, published, created_by, published_at,
	created_at, updated_at`

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

func participationParam(p *domain.ParticipationType) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	e := &domain.Event{}
	var participation *string
	var eventType string
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &eventType, &e.StartDate, &e.EndDate, &e.Venue,
		&e.RegistrationRequired, &e.RegistrationStartDate, &e.RegistrationEndDate,
		&participation, &e.MaxParticipants, &e.Published, &e.CreatedBy, &e.PublishedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.EventType = domain.EventType(eventType)
	if participation != nil {
		p := domain.ParticipationType(*participation)
		e.ParticipationType = &p
	}
	return e, nil
}

// Create inserts a new event
func (r *PostgresEventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		e.ID, e.Title, e.Description, string(e.EventType), e.StartDate, e.EndDate, e.Venue,
		e.RegistrationRequired, e.RegistrationStartDate, e.RegistrationEndDate,
		participationParam(e.ParticipationType), e.MaxParticipants, e.Published, e.CreatedBy, e.PublishedAt,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) get(ctx context.Context, id string, forUpdate bool) (*domain.Event, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves and row-locks an event
func (r *PostgresEventRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.get(ctx, id, true)
}

// List retrieves events ordered by start date
func (r *PostgresEventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	whereClause := "WHERE TRUE"
	args := []interface{}{}
	argIndex := 1

	if filter.PublishedOnly {
		whereClause += " AND published"
	}
	if filter.From != nil {
		whereClause += fmt.Sprintf(" AND end_date >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, "SELECT COUNT(*) FROM events "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM events %s ORDER BY start_date ASC, id ASC LIMIT $%d OFFSET $%d`,
		eventColumns, whereClause, argIndex, argIndex+1)
	args = append(args, limit, filter.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}
	return events, total, nil
}

// Update persists all mutable fields
func (r *PostgresEventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET
			title = $2, description = $3, event_type = $4, start_date = $5, end_date = $6, venue = $7,
			registration_required = $8, registration_start_date = $9, registration_end_date = $10,
			participation_type = $11, max_participants = $12, published = $13, published_at = $14,
			updated_at = $15
		WHERE id = $1
	`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		e.ID, e.Title, e.Description, string(e.EventType), e.StartDate, e.EndDate, e.Venue,
		e.RegistrationRequired, e.RegistrationStartDate, e.RegistrationEndDate,
		participationParam(e.ParticipationType), e.MaxParticipants, e.Published, e.PublishedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
