package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/pkg/database"
)

const registrationColumns = `
	r.id, r.event_id, r.user_id, r.team_members, r.additional_notes, r.registration_status, r.registered_at`

// PostgresRegistrationRepository implements RegistrationRepository using PostgreSQL
type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistrationRepository creates a new PostgresRegistrationRepository
func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool}
}

func scanRegistration(row pgx.Row, extra ...any) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var team []byte
	var status string
	dest := append([]any{
		&reg.ID, &reg.EventID, &reg.UserID, &team, &reg.AdditionalNotes, &status, &reg.RegisteredAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	reg.RegistrationStatus = domain.RegistrationStatus(status)
	reg.TeamMembers = []domain.TeamMember{}
	if len(team) > 0 {
		if err := json.Unmarshal(team, &reg.TeamMembers); err != nil {
			return nil, fmt.Errorf("decode team members: %w", err)
		}
	}
	return reg, nil
}

// Create inserts a registration
func (r *PostgresRegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	members := reg.TeamMembers
	if members == nil {
		members = []domain.TeamMember{}
	}
	team, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encode team members: %w", err)
	}

	query := `
		INSERT INTO registrations (id, event_id, user_id, team_members, additional_notes, registration_status, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = conn(ctx, r.pool).Exec(ctx, query,
		reg.ID, reg.EventID, reg.UserID, team, reg.AdditionalNotes, string(reg.RegistrationStatus), reg.RegisteredAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// GetByID retrieves a registration by ID
func (r *PostgresRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.id = $1`
	reg, err := scanRegistration(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// FindActive returns the user's non-cancelled registration for an event
func (r *PostgresRegistrationRepository) FindActive(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	if !validID(eventID) || !validID(userID) {
		return nil, nil
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations r
		WHERE r.event_id = $1 AND r.user_id = $2 AND r.registration_status <> 'CANCELLED'
	`
	reg, err := scanRegistration(conn(ctx, r.pool).QueryRow(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active registration: %w", err)
	}
	return reg, nil
}

// CountActive counts non-cancelled registrations for an event
func (r *PostgresRegistrationRepository) CountActive(ctx context.Context, eventID string) (int, error) {
	if !validID(eventID) {
		return 0, nil
	}
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND registration_status <> 'CANCELLED'`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// CountActiveByEvents counts non-cancelled registrations for several events
func (r *PostgresRegistrationRepository) CountActiveByEvents(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(eventIDs))
	ids := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if validID(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return counts, nil
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT event_id::text, COUNT(*)
		FROM registrations
		WHERE event_id = ANY($1::uuid[]) AND registration_status <> 'CANCELLED'
		GROUP BY event_id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("count registrations by event: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan registration count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Delete hard-deletes a registration
func (r *PostgresRegistrationRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

// ListByEvent returns registrations with registrant profile columns, oldest first
func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.RegistrationView, error) {
	if !validID(eventID) {
		return nil, nil
	}
	query := `
		SELECT ` + registrationColumns + `,
		       COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.phone, ''),
		       COALESCE(u.building, ''), COALESCE(u.flat, '')
		FROM registrations r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY r.registered_at ASC, r.id ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var views []*domain.RegistrationView
	for rows.Next() {
		v := &domain.RegistrationView{}
		reg, err := scanRegistration(rows, &v.UserName, &v.UserEmail, &v.UserPhone, &v.Building, &v.Flat)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		v.Registration = *reg
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return views, nil
}

// ListByUser returns a user's registrations, newest first
func (r *PostgresRegistrationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	if !validID(userID) {
		return nil, nil
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations r
		WHERE r.user_id = $1
		ORDER BY r.registered_at DESC, r.id ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	defer rows.Close()

	var regs []*domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}
