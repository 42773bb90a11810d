package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/pkg/telemetry"
)

const maxCancelReasonLength = 500

// EventView is an event with its live registration count and derived status
type EventView struct {
	*domain.Event
	RegistrationCount int                             `json:"registration_count"`
	Status            domain.RegistrationWindowStatus `json:"status"`
}

// CancelResult reports who has to be told about a cancellation
type CancelResult struct {
	Event         *EventView `json:"event"`
	AffectedCount int        `json:"affected_count"`
	NotifyUserIDs []string   `json:"notify_user_ids"`
}

// CreateEventInput carries the fields of a new event
type CreateEventInput struct {
	Title                 string
	Description           string
	EventType             domain.EventType
	StartDate             time.Time
	EndDate               time.Time
	Venue                 string
	RegistrationRequired  bool
	RegistrationStartDate *time.Time
	RegistrationEndDate   *time.Time
	ParticipationType     *domain.ParticipationType
	MaxParticipants       *int
	Published             bool
}

// UpdateEventInput is a partial update. Nil fields are left alone; Clear flags null a field.
type UpdateEventInput struct {
	Title                      *string
	Description                *string
	EventType                  *domain.EventType
	StartDate                  *time.Time
	EndDate                    *time.Time
	Venue                      *string
	RegistrationRequired       *bool
	RegistrationStartDate      *time.Time
	ClearRegistrationStartDate bool
	RegistrationEndDate        *time.Time
	ClearRegistrationEndDate   bool
	ParticipationType          *domain.ParticipationType
	ClearParticipationType     bool
	MaxParticipants            *int
	ClearMaxParticipants       bool
	Published                  *bool
}

type eventManager struct {
	base
	audit    AuditLog
	notifier Notifier
}

// NewEventLifecycleManager creates the EventLifecycleManager
func NewEventLifecycleManager(d Deps, audit AuditLog, notifier Notifier) EventLifecycleManager {
	b := newBase(d, "events")
	if notifier == nil {
		notifier = NewLogNotifier(d.Logger)
	}
	return &eventManager{base: b, audit: audit, notifier: notifier}
}

func (s *eventManager) view(e *domain.Event, count int, now time.Time) *EventView {
	return &EventView{Event: e, RegistrationCount: count, Status: e.Status(now, count)}
}

// Create stores a draft or published event
func (s *eventManager) Create(ctx context.Context, actor domain.Actor, in CreateEventInput) (view *EventView, err error) {
	ctx, done := s.startOp(ctx, "event.create", telemetry.ActorIDAttr(actor.ID))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &domain.Event{
		ID:                    uuid.New().String(),
		Title:                 strings.TrimSpace(in.Title),
		Description:           in.Description,
		EventType:             in.EventType,
		StartDate:             in.StartDate,
		EndDate:               in.EndDate,
		Venue:                 strings.TrimSpace(in.Venue),
		RegistrationRequired:  in.RegistrationRequired,
		RegistrationStartDate: in.RegistrationStartDate,
		RegistrationEndDate:   in.RegistrationEndDate,
		ParticipationType:     in.ParticipationType,
		MaxParticipants:       in.MaxParticipants,
		Published:             in.Published,
		CreatedBy:             actor.ID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if event.Published {
		event.PublishedAt = &now
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Events.Create(ctx, event); err != nil {
			return err
		}
		return record(ctx, s.audit, actor, domain.EntityEvent, event.ID, domain.EventCreatedDetails{
			Title:     event.Title,
			Published: event.Published,
		})
	})
	if err != nil {
		return nil, s.fail(ctx, "create event", err)
	}

	s.metrics.RecordEventMutation(ctx, "create")
	s.log.InfoContext(ctx, "event created", zap.String("event_id", event.ID), zap.Bool("published", event.Published))
	return s.view(event, 0, now), nil
}

// Update applies a partial update while protecting existing registrations
func (s *eventManager) Update(ctx context.Context, actor domain.Actor, id string, in UpdateEventInput) (view *EventView, err error) {
	ctx, done := s.startOp(ctx, "event.update", telemetry.EventIDAttr(id))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		event, err := s.store.Events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.NotFound("event not found")
		}
		count, err := s.store.Registrations.CountActive(ctx, event.ID)
		if err != nil {
			return err
		}

		wasRequired := event.RegistrationRequired
		wasTeam := event.IsTeam()
		changes := applyEventUpdate(event, in)
		if err := event.Validate(); err != nil {
			return err
		}

		if wasRequired && !event.RegistrationRequired && count > 0 {
			return domain.StateConflict("cannot disable registration while %d registrations exist", count)
		}
		if wasTeam != event.IsTeam() && count > 0 {
			return domain.StateConflict("cannot change participation type while %d registrations exist", count)
		}
		if in.MaxParticipants != nil && *in.MaxParticipants < count {
			return domain.StateConflict("max participants %d is below the %d existing registrations", *in.MaxParticipants, count)
		}
		if event.Published && event.PublishedAt == nil {
			event.PublishedAt = &now
		}
		event.UpdatedAt = now

		if err := s.store.Events.Update(ctx, event); err != nil {
			return err
		}
		if err := record(ctx, s.audit, actor, domain.EntityEvent, event.ID, domain.EventUpdatedDetails{Changes: changes}); err != nil {
			return err
		}
		view = s.view(event, count, now)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "update event", err)
	}

	s.metrics.RecordEventMutation(ctx, "update")
	s.log.InfoContext(ctx, "event updated", zap.String("event_id", id))
	return view, nil
}

// applyEventUpdate copies the set fields of in onto e and returns what changed
func applyEventUpdate(e *domain.Event, in UpdateEventInput) []domain.FieldChange {
	changes := []domain.FieldChange{}
	track := func(field, from, to string) {
		if from != to {
			changes = append(changes, domain.FieldChange{Field: field, From: from, To: to})
		}
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		track("title", e.Title, title)
		e.Title = title
	}
	if in.Description != nil {
		track("description", e.Description, *in.Description)
		e.Description = *in.Description
	}
	if in.EventType != nil {
		track("event_type", string(e.EventType), string(*in.EventType))
		e.EventType = *in.EventType
	}
	if in.StartDate != nil {
		track("start_date", formatTime(&e.StartDate), formatTime(in.StartDate))
		e.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		track("end_date", formatTime(&e.EndDate), formatTime(in.EndDate))
		e.EndDate = *in.EndDate
	}
	if in.Venue != nil {
		venue := strings.TrimSpace(*in.Venue)
		track("venue", e.Venue, venue)
		e.Venue = venue
	}
	if in.RegistrationRequired != nil {
		track("registration_required", strconv.FormatBool(e.RegistrationRequired), strconv.FormatBool(*in.RegistrationRequired))
		e.RegistrationRequired = *in.RegistrationRequired
	}
	if in.ClearRegistrationStartDate {
		track("registration_start_date", formatTime(e.RegistrationStartDate), "")
		e.RegistrationStartDate = nil
	} else if in.RegistrationStartDate != nil {
		track("registration_start_date", formatTime(e.RegistrationStartDate), formatTime(in.RegistrationStartDate))
		t := *in.RegistrationStartDate
		e.RegistrationStartDate = &t
	}
	if in.ClearRegistrationEndDate {
		track("registration_end_date", formatTime(e.RegistrationEndDate), "")
		e.RegistrationEndDate = nil
	} else if in.RegistrationEndDate != nil {
		track("registration_end_date", formatTime(e.RegistrationEndDate), formatTime(in.RegistrationEndDate))
		t := *in.RegistrationEndDate
		e.RegistrationEndDate = &t
	}
	if in.ClearParticipationType {
		track("participation_type", formatParticipation(e.ParticipationType), "")
		e.ParticipationType = nil
	} else if in.ParticipationType != nil {
		track("participation_type", formatParticipation(e.ParticipationType), string(*in.ParticipationType))
		p := *in.ParticipationType
		e.ParticipationType = &p
	}
	if in.ClearMaxParticipants {
		track("max_participants", formatInt(e.MaxParticipants), "")
		e.MaxParticipants = nil
	} else if in.MaxParticipants != nil {
		track("max_participants", formatInt(e.MaxParticipants), strconv.Itoa(*in.MaxParticipants))
		m := *in.MaxParticipants
		e.MaxParticipants = &m
	}
	if in.Published != nil {
		track("published", strconv.FormatBool(e.Published), strconv.FormatBool(*in.Published))
		e.Published = *in.Published
	}
	return changes
}

// Delete removes an event that has no registrations
func (s *eventManager) Delete(ctx context.Context, actor domain.Actor, id string) (err error) {
	ctx, done := s.startOp(ctx, "event.delete", telemetry.EventIDAttr(id))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		event, err := s.store.Events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.NotFound("event not found")
		}
		count, err := s.store.Registrations.CountActive(ctx, event.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.StateConflict("event has %d registrations", count)
		}
		if err := s.store.Events.Delete(ctx, event.ID); err != nil {
			return err
		}
		return record(ctx, s.audit, actor, domain.EntityEvent, event.ID, domain.EventDeletedDetails{Title: event.Title})
	})
	if err != nil {
		return s.fail(ctx, "delete event", err)
	}

	s.metrics.RecordEventMutation(ctx, "delete")
	s.log.InfoContext(ctx, "event deleted", zap.String("event_id", id))
	return nil
}

// CloseRegistration ends the registration window. An end already in the past
// is kept, so repeated calls leave the event unchanged.
func (s *eventManager) CloseRegistration(ctx context.Context, actor domain.Actor, id string) (view *EventView, err error) {
	ctx, done := s.startOp(ctx, "event.close_registration", telemetry.EventIDAttr(id))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	// The window end is stored strictly before now so status reads CLOSED immediately.
	closedAt := now.Truncate(time.Microsecond).Add(-time.Microsecond)

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		event, err := s.store.Events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.NotFound("event not found")
		}

		previous := clonePtr(event.RegistrationEndDate)
		if event.RegistrationEndDate == nil || event.RegistrationEndDate.After(closedAt) {
			end := closedAt
			event.RegistrationEndDate = &end
		}
		if event.RegistrationStartDate != nil && event.RegistrationStartDate.After(*event.RegistrationEndDate) {
			start := *event.RegistrationEndDate
			event.RegistrationStartDate = &start
		}
		event.UpdatedAt = now

		if err := s.store.Events.Update(ctx, event); err != nil {
			return err
		}
		count, err := s.store.Registrations.CountActive(ctx, event.ID)
		if err != nil {
			return err
		}
		if err := record(ctx, s.audit, actor, domain.EntityEvent, event.ID, domain.EventRegistrationClosedDetails{
			PreviousEnd: previous,
			NewEnd:      *event.RegistrationEndDate,
		}); err != nil {
			return err
		}
		view = s.view(event, count, now)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "close registration", err)
	}

	s.metrics.RecordEventMutation(ctx, "close_registration")
	s.log.InfoContext(ctx, "event registration closed", zap.String("event_id", id))
	return view, nil
}

// CancelEvent unpublishes the event, marks its description and hands the
// registrant list to the notifier once the change has committed
func (s *eventManager) CancelEvent(ctx context.Context, actor domain.Actor, id, reason string) (result *CancelResult, err error) {
	ctx, done := s.startOp(ctx, "event.cancel", telemetry.EventIDAttr(id))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxCancelReasonLength {
		return nil, domain.Validation("reason", "reason must not exceed %d characters", maxCancelReasonLength)
	}

	now := s.clock.Now()
	var title string
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		event, err := s.store.Events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.NotFound("event not found")
		}

		if !strings.HasPrefix(event.Description, "["+s.cfg.CancellationMarker) {
			prefix := domain.CancellationPrefix(s.cfg.CancellationMarker, reason)
			event.Description = strings.TrimSpace(prefix + " " + event.Description)
		}
		event.Published = false
		event.UpdatedAt = now

		views, err := s.store.Registrations.ListByEvent(ctx, event.ID)
		if err != nil {
			return err
		}
		userIDs := make([]string, 0, len(views))
		for _, v := range views {
			if v.RegistrationStatus != domain.RegistrationCancelled {
				userIDs = append(userIDs, v.UserID)
			}
		}

		if err := s.store.Events.Update(ctx, event); err != nil {
			return err
		}
		if err := record(ctx, s.audit, actor, domain.EntityEvent, event.ID, domain.EventCancelledDetails{
			Reason:        reason,
			AffectedCount: len(userIDs),
		}); err != nil {
			return err
		}

		title = event.Title
		result = &CancelResult{
			Event:         s.view(event, len(userIDs), now),
			AffectedCount: len(userIDs),
			NotifyUserIDs: userIDs,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "cancel event", err)
	}

	s.metrics.RecordEventMutation(ctx, "cancel")
	s.log.InfoContext(ctx, "event cancelled", zap.String("event_id", id), zap.Int("affected", result.AffectedCount))

	if result.AffectedCount > 0 {
		n := EventCancelledNotification{
			EventID:     id,
			Title:       title,
			Reason:      reason,
			UserIDs:     result.NotifyUserIDs,
			CancelledBy: actor.ID,
			CancelledAt: now,
		}
		if err := s.notifier.EventCancelled(ctx, n); err != nil {
			s.log.WarnContext(ctx, "cancellation notification not delivered", zap.String("event_id", id), zap.Error(err))
		}
	}
	return result, nil
}

// Get returns one event. Drafts are visible to admins only.
func (s *eventManager) Get(ctx context.Context, actor domain.Actor, id string) (view *EventView, err error) {
	ctx, done := s.startOp(ctx, "event.get", telemetry.EventIDAttr(id))
	defer func() { done(err) }()

	event, err := s.store.Events.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get event", err)
	}
	if event == nil || (!event.Published && !actor.IsAdmin()) {
		return nil, domain.NotFound("event not found")
	}
	count, err := s.store.Registrations.CountActive(ctx, event.ID)
	if err != nil {
		return nil, s.fail(ctx, "get event", err)
	}
	return s.view(event, count, s.clock.Now()), nil
}

// List returns events by start date. Non-admins only see published events.
func (s *eventManager) List(ctx context.Context, actor domain.Actor, filter domain.EventFilter) (views []*EventView, total int, err error) {
	ctx, done := s.startOp(ctx, "event.list")
	defer func() { done(err) }()

	if !actor.IsAdmin() {
		filter.PublishedOnly = true
	}
	events, total, err := s.store.Events.List(ctx, filter)
	if err != nil {
		return nil, 0, s.fail(ctx, "list events", err)
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	counts, err := s.store.Registrations.CountActiveByEvents(ctx, ids)
	if err != nil {
		return nil, 0, s.fail(ctx, "list events", err)
	}

	now := s.clock.Now()
	views = make([]*EventView, len(events))
	for i, e := range events {
		views[i] = s.view(e, counts[e.ID], now)
	}
	return views, total, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func formatParticipation(p *domain.ParticipationType) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
