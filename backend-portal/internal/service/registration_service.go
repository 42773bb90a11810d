package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/repository"
	"github.com/prohmpiriya/community-portal/pkg/telemetry"
)

// RegisterInput is a request to join an event. UserID defaults to the actor.
type RegisterInput struct {
	EventID     string
	UserID      string
	TeamMembers []domain.TeamMember
	Notes       string
}

type registrationLedger struct {
	base
}

// NewRegistrationLedger creates the RegistrationLedger
func NewRegistrationLedger(d Deps) RegistrationLedger {
	return &registrationLedger{base: newBase(d, "registrations")}
}

// Register counts and inserts inside one transaction that holds the event row
// lock, so two callers racing for the last slot cannot both succeed.
func (s *registrationLedger) Register(ctx context.Context, actor domain.Actor, in RegisterInput) (reg *domain.Registration, err error) {
	ctx, done := s.startOp(ctx, "registration.register", telemetry.EventIDAttr(in.EventID), telemetry.ActorIDAttr(actor.ID))
	defer func() {
		done(err)
		outcome := "success"
		if err != nil {
			outcome = string(domain.KindOf(err))
		}
		s.metrics.RecordRegistration(ctx, outcome)
	}()

	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	userID := in.UserID
	if userID == "" {
		userID = actor.ID
	}
	if userID != actor.ID && !actor.IsAdmin() {
		return nil, domain.Unauthorized("cannot register another user")
	}

	if strings.TrimSpace(in.EventID) == "" {
		return nil, domain.Validation("event_id", "event id is required")
	}
	if len(in.TeamMembers) > s.cfg.MaxTeamMembers {
		return nil, domain.Validation("team_members", "at most %d team members are allowed", s.cfg.MaxTeamMembers)
	}
	if len(in.Notes) > s.cfg.MaxNotesLength {
		return nil, domain.Validation("additional_notes", "notes must not exceed %d characters", s.cfg.MaxNotesLength)
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.store.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.NotFound("user not found")
		}
		if user.Status != domain.UserApproved {
			return domain.Unauthorized("account is not approved")
		}

		event, err := s.store.Events.GetByIDForUpdate(ctx, in.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.NotFound("event not found")
		}
		if !event.Published {
			return domain.NotOpen("event is not published")
		}

		// Read after the row lock so a close committed while we waited is seen.
		now := s.clock.Now()
		count, err := s.store.Registrations.CountActive(ctx, event.ID)
		if err != nil {
			return err
		}
		switch event.Status(now, count) {
		case domain.StatusNoRegistration:
			return domain.NotOpen("event does not take registrations")
		case domain.StatusNotStarted:
			return domain.NotOpen("registration has not started")
		case domain.StatusClosed:
			return domain.NotOpen("registration is closed")
		}

		members := []domain.TeamMember{}
		if event.IsTeam() {
			if !domain.HasNamedMember(in.TeamMembers) {
				return domain.Validation("team_members", "team events need at least one named member")
			}
			members = domain.NormalizeTeam(in.TeamMembers)
		}

		existing, err := s.store.Registrations.FindActive(ctx, event.ID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.AlreadyRegistered("already registered for this event")
		}
		if event.MaxParticipants != nil && count >= *event.MaxParticipants {
			return domain.CapacityExceeded("event is full")
		}

		reg = &domain.Registration{
			ID:                 uuid.New().String(),
			EventID:            event.ID,
			UserID:             userID,
			TeamMembers:        members,
			AdditionalNotes:    strings.TrimSpace(in.Notes),
			RegistrationStatus: domain.RegistrationRegistered,
			RegisteredAt:       now,
		}
		if err := s.store.Registrations.Create(ctx, reg); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.AlreadyRegistered("already registered for this event")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "register", err)
	}

	s.log.InfoContext(ctx, "registration created",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", reg.EventID),
		zap.String("user_id", reg.UserID),
	)
	return reg, nil
}

// Cancel hard-deletes the actor's own registration before the event starts
func (s *registrationLedger) Cancel(ctx context.Context, actor domain.Actor, registrationID string) (err error) {
	ctx, done := s.startOp(ctx, "registration.cancel", telemetry.ActorIDAttr(actor.ID))
	defer func() { done(err) }()

	if err := domain.RequireAuthenticated(actor); err != nil {
		return err
	}
	if strings.TrimSpace(registrationID) == "" {
		return domain.Validation("registration_id", "registration id is required")
	}

	var eventID string
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reg, err := s.store.Registrations.GetByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg == nil || reg.UserID != actor.ID {
			return domain.NotFound("registration not found")
		}

		event, err := s.store.Events.GetByIDForUpdate(ctx, reg.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.NotFound("event not found")
		}
		if !event.StartDate.After(s.clock.Now()) {
			return domain.EventAlreadyStarted("event has already started")
		}
		eventID = event.ID
		return s.store.Registrations.Delete(ctx, reg.ID)
	})
	if err != nil {
		return s.fail(ctx, "cancel registration", err)
	}

	s.metrics.RecordRegistration(ctx, "cancelled")
	s.log.InfoContext(ctx, "registration cancelled",
		zap.String("registration_id", registrationID),
		zap.String("event_id", eventID),
	)
	return nil
}

// ListByEvent returns registrants with their profiles. Admin only.
func (s *registrationLedger) ListByEvent(ctx context.Context, actor domain.Actor, eventID string) (views []*domain.RegistrationView, err error) {
	ctx, done := s.startOp(ctx, "registration.list_event", telemetry.EventIDAttr(eventID))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	event, err := s.store.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.fail(ctx, "list registrations", err)
	}
	if event == nil {
		return nil, domain.NotFound("event not found")
	}

	views, err = s.store.Registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(ctx, "list registrations", err)
	}
	return views, nil
}

// ListMine returns the actor's registrations, newest first
func (s *registrationLedger) ListMine(ctx context.Context, actor domain.Actor) (regs []*domain.Registration, err error) {
	ctx, done := s.startOp(ctx, "registration.list_mine", telemetry.ActorIDAttr(actor.ID))
	defer func() { done(err) }()

	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	regs, err = s.store.Registrations.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, s.fail(ctx, "list my registrations", err)
	}
	return regs, nil
}
