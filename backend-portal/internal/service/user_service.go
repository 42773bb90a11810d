package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/repository"
	"github.com/prohmpiriya/community-portal/pkg/telemetry"
)

const (
	minPasswordLength = 8
	tempPasswordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

// SignUpInput is a self-service account request
type SignUpInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	UserType string
	Building string
	Flat     string
	Floor    string
}

type userStateMachine struct {
	base
	audit AuditLog
}

// NewUserAccountStateMachine creates the UserAccountStateMachine
func NewUserAccountStateMachine(d Deps, audit AuditLog) UserAccountStateMachine {
	return &userStateMachine{base: newBase(d, "users"), audit: audit}
}

// SignUp creates a PENDING account whose role follows the requested type
func (s *userStateMachine) SignUp(ctx context.Context, in SignUpInput) (user *domain.User, err error) {
	ctx, done := s.startOp(ctx, "user.sign_up")
	defer func() { done(err) }()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validation("name", "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, domain.Validation("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Validation("password", "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.fail(ctx, "hash password", err)
	}

	now := s.clock.Now()
	user = &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         domain.RoleForRequestedType(in.UserType),
		Status:       domain.UserPending,
		UserType:     strings.ToUpper(strings.TrimSpace(in.UserType)),
		Building:     strings.TrimSpace(in.Building),
		Flat:         strings.TrimSpace(in.Flat),
		Floor:        strings.TrimSpace(in.Floor),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Validation("email", "email is already registered")
		}
		return nil, s.fail(ctx, "sign up", err)
	}

	s.log.InfoContext(ctx, "user signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// ChangeStatus applies one of the endorsed status transitions
func (s *userStateMachine) ChangeStatus(ctx context.Context, actor domain.Actor, userID string, next domain.UserStatus) (*domain.User, error) {
	return s.changeStatus(ctx, actor, userID, next, false)
}

// ForceStatus moves the user to any status. Self and admin guards still apply.
func (s *userStateMachine) ForceStatus(ctx context.Context, actor domain.Actor, userID string, next domain.UserStatus) (*domain.User, error) {
	return s.changeStatus(ctx, actor, userID, next, true)
}

func (s *userStateMachine) changeStatus(ctx context.Context, actor domain.Actor, userID string, next domain.UserStatus, forced bool) (user *domain.User, err error) {
	ctx, done := s.startOp(ctx, "user.change_status", telemetry.UserIDAttr(userID), telemetry.ActorIDAttr(actor.ID))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !next.IsValid() {
		return nil, domain.Validation("status", "unknown status %q", next)
	}
	if userID == actor.ID && (next == domain.UserSuspended || next == domain.UserRejected) {
		return nil, domain.SelfActionForbidden("cannot %s your own account", strings.ToLower(string(next)))
	}

	now := s.clock.Now()
	var previous domain.UserStatus
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err = s.store.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.NotFound("user not found")
		}

		previous = user.Status
		if previous == next {
			return domain.StateConflict("user is already %s", next)
		}
		if !forced && !previous.CanTransitionTo(next) {
			return domain.StateConflict("cannot move user from %s to %s", previous, next)
		}
		if user.Role == domain.RoleAdmin && next != domain.UserApproved {
			return domain.StateConflict("an admin must stay approved; change the role first")
		}

		user.ApplyStatus(next, actor.ID, now)
		if err := s.store.Users.Update(ctx, user); err != nil {
			return err
		}
		return record(ctx, s.audit, actor, domain.EntityUser, user.ID, domain.UserStatusChangedDetails{
			From:   previous,
			To:     next,
			Forced: forced,
		})
	})
	if err != nil {
		return nil, s.fail(ctx, "change user status", err)
	}

	s.metrics.RecordUserTransition(ctx, "status", string(next))
	s.log.InfoContext(ctx, "user status changed",
		zap.String("user_id", userID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.Bool("forced", forced),
	)
	return user, nil
}

// ChangeRole grants or revokes a role. Only approved users can become admins.
func (s *userStateMachine) ChangeRole(ctx context.Context, actor domain.Actor, userID string, role domain.Role) (user *domain.User, err error) {
	ctx, done := s.startOp(ctx, "user.change_role", telemetry.UserIDAttr(userID), telemetry.ActorIDAttr(actor.ID))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, domain.Validation("role", "unknown role %q", role)
	}
	if userID == actor.ID && role != domain.RoleAdmin {
		return nil, domain.SelfActionForbidden("cannot remove your own admin role")
	}

	now := s.clock.Now()
	var previous domain.Role
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err = s.store.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.NotFound("user not found")
		}

		previous = user.Role
		if previous == role {
			return domain.StateConflict("user already has role %s", role)
		}
		if role == domain.RoleAdmin && user.Status != domain.UserApproved {
			return domain.StateConflict("only approved users can become admins")
		}

		user.Role = role
		user.UpdatedAt = now
		if err := s.store.Users.Update(ctx, user); err != nil {
			return err
		}
		return record(ctx, s.audit, actor, domain.EntityUser, user.ID, domain.UserRoleChangedDetails{From: previous, To: role})
	})
	if err != nil {
		return nil, s.fail(ctx, "change user role", err)
	}

	s.metrics.RecordUserTransition(ctx, "role", string(user.Status))
	s.log.InfoContext(ctx, "user role changed",
		zap.String("user_id", userID),
		zap.String("from", string(previous)),
		zap.String("to", string(role)),
	)
	return user, nil
}

// ResetPassword stores the hash of a fresh temporary password and returns the
// plaintext. It is not retrievable afterwards.
func (s *userStateMachine) ResetPassword(ctx context.Context, actor domain.Actor, userID string) (secret string, err error) {
	ctx, done := s.startOp(ctx, "user.reset_password", telemetry.UserIDAttr(userID), telemetry.ActorIDAttr(actor.ID))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return "", err
	}

	secret, err = generateTempPassword(s.cfg.TempPasswordLength)
	if err != nil {
		return "", s.fail(ctx, "generate temporary password", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", s.fail(ctx, "hash temporary password", err)
	}

	now := s.clock.Now()
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.store.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.NotFound("user not found")
		}
		user.PasswordHash = string(hash)
		user.UpdatedAt = now
		if err := s.store.Users.Update(ctx, user); err != nil {
			return err
		}
		return record(ctx, s.audit, actor, domain.EntityUser, user.ID, domain.UserPasswordResetDetails{Email: user.Email})
	})
	if err != nil {
		return "", s.fail(ctx, "reset password", err)
	}

	s.log.InfoContext(ctx, "user password reset", zap.String("user_id", userID))
	return secret, nil
}

// Delete removes another user's account
func (s *userStateMachine) Delete(ctx context.Context, actor domain.Actor, userID string) (err error) {
	ctx, done := s.startOp(ctx, "user.delete", telemetry.UserIDAttr(userID), telemetry.ActorIDAttr(actor.ID))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	if userID == actor.ID {
		return domain.SelfActionForbidden("cannot delete your own account")
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.store.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.NotFound("user not found")
		}
		regs, err := s.store.Registrations.ListByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		active := 0
		for _, r := range regs {
			if r.RegistrationStatus != domain.RegistrationCancelled {
				active++
			}
		}
		if active > 0 {
			return domain.StateConflict("user has %d active registrations", active)
		}
		if err := s.store.Users.Delete(ctx, user.ID); err != nil {
			return err
		}
		return record(ctx, s.audit, actor, domain.EntityUser, user.ID, domain.UserDeletedDetails{
			Email:  user.Email,
			Role:   user.Role,
			Status: user.Status,
		})
	})
	if err != nil {
		return s.fail(ctx, "delete user", err)
	}

	s.log.InfoContext(ctx, "user deleted", zap.String("user_id", userID))
	return nil
}

// Get returns a user to an admin or to the user themselves
func (s *userStateMachine) Get(ctx context.Context, actor domain.Actor, userID string) (user *domain.User, err error) {
	ctx, done := s.startOp(ctx, "user.get", telemetry.UserIDAttr(userID))
	defer func() { done(err) }()

	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if userID != actor.ID && !actor.IsAdmin() {
		return nil, domain.Unauthorized("cannot view another user")
	}
	user, err = s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get user", err)
	}
	if user == nil {
		return nil, domain.NotFound("user not found")
	}
	return user, nil
}

// List returns users matching filter. Admin only.
func (s *userStateMachine) List(ctx context.Context, actor domain.Actor, filter domain.UserFilter) (users []*domain.User, total int, err error) {
	ctx, done := s.startOp(ctx, "user.list")
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, domain.Validation("status", "unknown status %q", filter.Status)
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, 0, domain.Validation("role", "unknown role %q", filter.Role)
	}

	users, total, err = s.store.Users.List(ctx, filter)
	if err != nil {
		return nil, 0, s.fail(ctx, "list users", err)
	}
	return users, total, nil
}

func generateTempPassword(length int) (string, error) {
	max := big.NewInt(int64(len(tempPasswordChars)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tempPasswordChars[n.Int64()]
	}
	return string(b), nil
}
