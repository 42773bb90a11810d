package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/clock"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/repository"
)

var baseTime = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []EventCancelledNotification
}

func (r *recordingNotifier) EventCancelled(_ context.Context, n EventCancelledNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

type testEnv struct {
	store    *repository.Store
	clock    *clock.Manual
	notifier *recordingNotifier

	audit    AuditLog
	ledger   RegistrationLedger
	events   EventLifecycleManager
	users    UserAccountStateMachine
	exporter Exporter

	admin domain.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    repository.NewMemoryStore().Store(),
		clock:    clock.NewManual(baseTime),
		notifier: &recordingNotifier{},
	}
	cfg := DefaultConfig()
	cfg.MaxTeamMembers = 3
	cfg.MaxNotesLength = 50
	deps := Deps{Store: env.store, Clock: env.clock, Config: cfg}

	env.audit = NewAuditLog(deps)
	env.ledger = NewRegistrationLedger(deps)
	env.events = NewEventLifecycleManager(deps, env.audit, env.notifier)
	env.users = NewUserAccountStateMachine(deps, env.audit)
	env.exporter = NewExporter(deps)

	admin := env.seedUser(t, "admin@example.com", domain.RoleAdmin, domain.UserApproved)
	env.admin = domain.Actor{ID: admin.ID, Role: domain.RoleAdmin}
	return env
}

func (e *testEnv) seedUser(t *testing.T, email string, role domain.Role, status domain.UserStatus) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        uuid.New().String(),
		Name:      "User " + email,
		Email:     email,
		Phone:     "0800000000",
		Role:      role,
		Status:    status,
		UserType:  string(role),
		Building:  "B1",
		Flat:      "12",
		CreatedAt: e.clock.Now(),
		UpdatedAt: e.clock.Now(),
	}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) resident(t *testing.T, email string) domain.Actor {
	t.Helper()
	u := e.seedUser(t, email, domain.RoleOwner, domain.UserApproved)
	return domain.Actor{ID: u.ID, Role: u.Role}
}

// openEvent creates a published event that is open for registration now
func (e *testEnv) openEvent(t *testing.T, mutate func(in *CreateEventInput)) *EventView {
	t.Helper()
	regStart := baseTime.Add(-time.Hour)
	regEnd := baseTime.Add(48 * time.Hour)
	in := CreateEventInput{
		Title:                 "Badminton Cup",
		Description:           "Friendly tournament",
		EventType:             domain.EventTypeSports,
		StartDate:             baseTime.Add(72 * time.Hour),
		EndDate:               baseTime.Add(76 * time.Hour),
		Venue:                 "Club house",
		RegistrationRequired:  true,
		RegistrationStartDate: &regStart,
		RegistrationEndDate:   &regEnd,
		Published:             true,
	}
	if mutate != nil {
		mutate(&in)
	}
	view, err := e.events.Create(context.Background(), e.admin, in)
	require.NoError(t, err)
	return view
}

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func participation(p domain.ParticipationType) *domain.ParticipationType { return &p }
