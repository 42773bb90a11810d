package repository

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/migrations"
	"github.com/prohmpiriya/community-portal/pkg/database"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setupPostgresStore connects, migrates and removes the rows the test created
func setupPostgresStore(t *testing.T) (*Store, *database.PostgresDB) {
	skipIfNoIntegration(t)
	ctx := context.Background()

	port, _ := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	cfg := &database.PostgresConfig{
		Host:            getEnv("POSTGRES_HOST", "localhost"),
		Port:            port,
		User:            getEnv("POSTGRES_USER", "postgres"),
		Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
		Database:        getEnv("POSTGRES_DB", "community_portal_test"),
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
	}

	db, err := database.NewPostgres(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)
	require.NoError(t, migrations.Apply(ctx, db.Pool()))

	return NewPostgresStore(db), db
}

type pgFixture struct {
	store  *Store
	db     *database.PostgresDB
	events []string
	users  []string
}

func newPGFixture(t *testing.T) *pgFixture {
	store, db := setupPostgresStore(t)
	f := &pgFixture{store: store, db: db}
	t.Cleanup(func() {
		ctx := context.Background()
		if _, err := db.Pool().Exec(ctx, "DELETE FROM events WHERE id = ANY($1::uuid[])", f.events); err != nil {
			t.Logf("Warning: failed to cleanup events: %v", err)
		}
		if _, err := db.Pool().Exec(ctx, "DELETE FROM users WHERE id = ANY($1::uuid[])", f.users); err != nil {
			t.Logf("Warning: failed to cleanup users: %v", err)
		}
	})
	return f
}

func (f *pgFixture) user(t *testing.T) *domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &domain.User{
		ID:        uuid.New().String(),
		Name:      "Resident",
		Email:     "pg-" + uuid.New().String() + "@example.com",
		Role:      domain.RoleOwner,
		Status:    domain.UserApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	f.users = append(f.users, u.ID)
	return u
}

func (f *pgFixture) event(t *testing.T, maxParticipants *int, participation *domain.ParticipationType) *domain.Event {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	e := &domain.Event{
		ID:                   uuid.New().String(),
		Title:                "Pool party",
		EventType:            domain.EventTypeCommunity,
		StartDate:            now.Add(72 * time.Hour),
		EndDate:              now.Add(76 * time.Hour),
		RegistrationRequired: true,
		ParticipationType:    participation,
		MaxParticipants:      maxParticipants,
		Published:            true,
		CreatedBy:            uuid.New().String(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, f.store.Events.Create(context.Background(), e))
	f.events = append(f.events, e.ID)
	return e
}

func newRegistration(eventID, userID string) *domain.Registration {
	return &domain.Registration{
		ID:                 uuid.New().String(),
		EventID:            eventID,
		UserID:             userID,
		RegistrationStatus: domain.RegistrationRegistered,
		RegisteredAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

// claimSlot is the lock-count-insert sequence the ledger runs per registration
func claimSlot(ctx context.Context, store *Store, reg *domain.Registration) (bool, error) {
	claimed := false
	err := store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		event, err := store.Events.GetByIDForUpdate(ctx, reg.EventID)
		if err != nil {
			return err
		}
		count, err := store.Registrations.CountActive(ctx, event.ID)
		if err != nil {
			return err
		}
		if event.MaxParticipants != nil && count >= *event.MaxParticipants {
			return nil
		}
		if err := store.Registrations.Create(ctx, reg); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

func TestPostgresRegistrationRepository_LastSlotRace(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	one := 1
	event := f.event(t, &one, nil)
	racers := []*domain.User{f.user(t), f.user(t)}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for _, u := range racers {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			ok, err := claimSlot(ctx, f.store, newRegistration(event.ID, userID))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, claimed)
	count, err := f.store.Registrations.CountActive(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPostgresRegistrationRepository_Create(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	t.Run("second active registration is ErrDuplicate", func(t *testing.T) {
		event := f.event(t, nil, nil)
		alice := f.user(t)

		require.NoError(t, f.store.Registrations.Create(ctx, newRegistration(event.ID, alice.ID)))
		err := f.store.Registrations.Create(ctx, newRegistration(event.ID, alice.ID))
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("duplicate inside a transaction rolls back", func(t *testing.T) {
		event := f.event(t, nil, nil)
		alice := f.user(t)
		require.NoError(t, f.store.Registrations.Create(ctx, newRegistration(event.ID, alice.ID)))

		err := f.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return f.store.Registrations.Create(ctx, newRegistration(event.ID, alice.ID))
		})
		assert.ErrorIs(t, err, ErrDuplicate)

		count, err := f.store.Registrations.CountActive(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("cancelled row does not block a new one", func(t *testing.T) {
		event := f.event(t, nil, nil)
		alice := f.user(t)

		cancelled := newRegistration(event.ID, alice.ID)
		cancelled.RegistrationStatus = domain.RegistrationCancelled
		require.NoError(t, f.store.Registrations.Create(ctx, cancelled))
		require.NoError(t, f.store.Registrations.Create(ctx, newRegistration(event.ID, alice.ID)))

		count, err := f.store.Registrations.CountActive(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("team members round-trip in order", func(t *testing.T) {
		team := domain.ParticipationTeam
		event := f.event(t, nil, &team)
		alice := f.user(t)

		reg := newRegistration(event.ID, alice.ID)
		reg.TeamMembers = []domain.TeamMember{
			{Name: "Ann", Email: "ann@example.com", Phone: "555"},
			{Name: "Bob"},
		}
		require.NoError(t, f.store.Registrations.Create(ctx, reg))

		got, err := f.store.Registrations.GetByID(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, reg.TeamMembers, got.TeamMembers)
		assert.True(t, reg.RegisteredAt.Equal(got.RegisteredAt))
	})

	t.Run("individual registration reads back an empty team", func(t *testing.T) {
		event := f.event(t, nil, nil)
		alice := f.user(t)

		reg := newRegistration(event.ID, alice.ID)
		require.NoError(t, f.store.Registrations.Create(ctx, reg))

		got, err := f.store.Registrations.GetByID(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.TeamMembers)
	})
}
