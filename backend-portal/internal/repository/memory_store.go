package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
)

type memTxKey struct{}

// MemoryStore keeps all portal data in process. A transaction holds the store
// lock from begin to commit, so transactions are fully serialized; a failed
// transaction restores the snapshot taken at begin.
type MemoryStore struct {
	mu            sync.Mutex
	events        map[string]domain.Event
	registrations map[string]domain.Registration
	users         map[string]domain.User
	audit         []domain.AuditEntry
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        make(map[string]domain.Event),
		registrations: make(map[string]domain.Registration),
		users:         make(map[string]domain.User),
	}
}

// Store exposes the memory store through the repository interfaces
func (s *MemoryStore) Store() *Store {
	return &Store{
		Tx:            s,
		Events:        memEvents{s},
		Registrations: memRegistrations{s},
		Users:         memUsers{s},
		Audit:         memAudit{s},
		Ping:          func(context.Context) error { return nil },
	}
}

type memSnapshot struct {
	events        map[string]domain.Event
	registrations map[string]domain.Registration
	users         map[string]domain.User
	auditLen      int
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		events:        make(map[string]domain.Event, len(s.events)),
		registrations: make(map[string]domain.Registration, len(s.registrations)),
		users:         make(map[string]domain.User, len(s.users)),
		auditLen:      len(s.audit),
	}
	for k, v := range s.events {
		snap.events[k] = v
	}
	for k, v := range s.registrations {
		snap.registrations[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.events = snap.events
	s.registrations = snap.registrations
	s.users = snap.users
	s.audit = s.audit[:snap.auditLen]
}

// WithinTx implements Transactor
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock takes the store lock unless ctx already runs inside a transaction
func (s *MemoryStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneEvent(e domain.Event) *domain.Event {
	e.RegistrationStartDate = clonePtr(e.RegistrationStartDate)
	e.RegistrationEndDate = clonePtr(e.RegistrationEndDate)
	e.ParticipationType = clonePtr(e.ParticipationType)
	e.MaxParticipants = clonePtr(e.MaxParticipants)
	e.PublishedAt = clonePtr(e.PublishedAt)
	return &e
}

func cloneRegistration(r domain.Registration) *domain.Registration {
	r.TeamMembers = append([]domain.TeamMember{}, r.TeamMembers...)
	return &r
}

func cloneUser(u domain.User) *domain.User {
	u.ApprovedBy = clonePtr(u.ApprovedBy)
	u.ApprovedAt = clonePtr(u.ApprovedAt)
	return &u
}

type memEvents struct{ s *MemoryStore }

func (m memEvents) Create(ctx context.Context, e *domain.Event) error {
	defer m.s.lock(ctx)()
	if _, ok := m.s.events[e.ID]; ok {
		return ErrDuplicate
	}
	m.s.events[e.ID] = *cloneEvent(*e)
	return nil
}

func (m memEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	defer m.s.lock(ctx)()
	e, ok := m.s.events[id]
	if !ok {
		return nil, nil
	}
	return cloneEvent(e), nil
}

func (m memEvents) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return m.GetByID(ctx, id)
}

func (m memEvents) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	defer m.s.lock(ctx)()
	var all []*domain.Event
	for _, e := range m.s.events {
		if filter.PublishedOnly && !e.Published {
			continue
		}
		if filter.From != nil && e.EndDate.Before(*filter.From) {
			continue
		}
		all = append(all, cloneEvent(e))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartDate.Equal(all[j].StartDate) {
			return all[i].StartDate.Before(all[j].StartDate)
		}
		return all[i].ID < all[j].ID
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	return page(all, filter.Offset, limit), len(all), nil
}

func (m memEvents) Update(ctx context.Context, e *domain.Event) error {
	defer m.s.lock(ctx)()
	if _, ok := m.s.events[e.ID]; ok {
		m.s.events[e.ID] = *cloneEvent(*e)
	}
	return nil
}

func (m memEvents) Delete(ctx context.Context, id string) error {
	defer m.s.lock(ctx)()
	delete(m.s.events, id)
	for rid, r := range m.s.registrations {
		if r.EventID == id {
			delete(m.s.registrations, rid)
		}
	}
	return nil
}

type memRegistrations struct{ s *MemoryStore }

func active(r domain.Registration) bool {
	return r.RegistrationStatus != domain.RegistrationCancelled
}

func (m memRegistrations) Create(ctx context.Context, reg *domain.Registration) error {
	defer m.s.lock(ctx)()
	for _, r := range m.s.registrations {
		if active(r) && r.EventID == reg.EventID && r.UserID == reg.UserID {
			return ErrDuplicate
		}
	}
	m.s.registrations[reg.ID] = *cloneRegistration(*reg)
	return nil
}

func (m memRegistrations) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	defer m.s.lock(ctx)()
	r, ok := m.s.registrations[id]
	if !ok {
		return nil, nil
	}
	return cloneRegistration(r), nil
}

func (m memRegistrations) FindActive(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	defer m.s.lock(ctx)()
	for _, r := range m.s.registrations {
		if active(r) && r.EventID == eventID && r.UserID == userID {
			return cloneRegistration(r), nil
		}
	}
	return nil, nil
}

func (m memRegistrations) CountActive(ctx context.Context, eventID string) (int, error) {
	defer m.s.lock(ctx)()
	n := 0
	for _, r := range m.s.registrations {
		if active(r) && r.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (m memRegistrations) CountActiveByEvents(ctx context.Context, eventIDs []string) (map[string]int, error) {
	defer m.s.lock(ctx)()
	want := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		want[id] = true
	}
	counts := make(map[string]int, len(eventIDs))
	for _, r := range m.s.registrations {
		if active(r) && want[r.EventID] {
			counts[r.EventID]++
		}
	}
	return counts, nil
}

func (m memRegistrations) Delete(ctx context.Context, id string) error {
	defer m.s.lock(ctx)()
	delete(m.s.registrations, id)
	return nil
}

func (m memRegistrations) ListByEvent(ctx context.Context, eventID string) ([]*domain.RegistrationView, error) {
	defer m.s.lock(ctx)()
	var views []*domain.RegistrationView
	for _, r := range m.s.registrations {
		if r.EventID != eventID {
			continue
		}
		v := &domain.RegistrationView{Registration: *cloneRegistration(r)}
		if u, ok := m.s.users[r.UserID]; ok {
			v.UserName, v.UserEmail, v.UserPhone = u.Name, u.Email, u.Phone
			v.Building, v.Flat = u.Building, u.Flat
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].RegisteredAt.Equal(views[j].RegisteredAt) {
			return views[i].RegisteredAt.Before(views[j].RegisteredAt)
		}
		return views[i].ID < views[j].ID
	})
	return views, nil
}

func (m memRegistrations) ListByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	defer m.s.lock(ctx)()
	var regs []*domain.Registration
	for _, r := range m.s.registrations {
		if r.UserID == userID {
			regs = append(regs, cloneRegistration(r))
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].RegisteredAt.Equal(regs[j].RegisteredAt) {
			return regs[i].RegisteredAt.After(regs[j].RegisteredAt)
		}
		return regs[i].ID < regs[j].ID
	})
	return regs, nil
}

type memUsers struct{ s *MemoryStore }

func (m memUsers) Create(ctx context.Context, u *domain.User) error {
	defer m.s.lock(ctx)()
	for _, existing := range m.s.users {
		if existing.ID == u.ID || strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	m.s.users[u.ID] = *cloneUser(*u)
	return nil
}

func (m memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer m.s.lock(ctx)()
	u, ok := m.s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (m memUsers) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return m.GetByID(ctx, id)
}

func (m memUsers) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error) {
	defer m.s.lock(ctx)()
	search := strings.ToLower(filter.Search)
	var all []*domain.User
	for _, u := range m.s.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if filter.Limit <= 0 {
		return all, len(all), nil
	}
	return page(all, filter.Offset, filter.Limit), len(all), nil
}

func (m memUsers) Update(ctx context.Context, u *domain.User) error {
	defer m.s.lock(ctx)()
	if _, ok := m.s.users[u.ID]; ok {
		m.s.users[u.ID] = *cloneUser(*u)
	}
	return nil
}

func (m memUsers) Delete(ctx context.Context, id string) error {
	defer m.s.lock(ctx)()
	delete(m.s.users, id)
	for rid, r := range m.s.registrations {
		if r.UserID == id {
			delete(m.s.registrations, rid)
		}
	}
	return nil
}

type memAudit struct{ s *MemoryStore }

func (m memAudit) Append(ctx context.Context, e *domain.AuditEntry) error {
	defer m.s.lock(ctx)()
	m.s.audit = append(m.s.audit, *e)
	return nil
}

func (m memAudit) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEntry, error) {
	return m.filter(ctx, func(e domain.AuditEntry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	})
}

func (m memAudit) ListByActor(ctx context.Context, actorID string) ([]*domain.AuditEntry, error) {
	return m.filter(ctx, func(e domain.AuditEntry) bool { return e.ActorID == actorID })
}

func (m memAudit) filter(ctx context.Context, keep func(domain.AuditEntry) bool) ([]*domain.AuditEntry, error) {
	defer m.s.lock(ctx)()
	var out []*domain.AuditEntry
	for _, e := range m.s.audit {
		if keep(e) {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
