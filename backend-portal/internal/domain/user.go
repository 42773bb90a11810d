package domain

import (
	"strings"
	"time"
)

// Role grants privileges in the portal
type Role string

const (
	RolePublic Role = "PUBLIC"
	RoleOwner  Role = "OWNER"
	RoleTenant Role = "TENANT"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePublic, RoleOwner, RoleTenant, RoleAdmin:
		return true
	}
	return false
}

// RoleForRequestedType maps the account type chosen at sign-up to a role.
// ADMIN can never be requested.
func RoleForRequestedType(userType string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(userType))) {
	case RoleOwner:
		return RoleOwner
	case RoleTenant:
		return RoleTenant
	default:
		return RolePublic
	}
}

// UserStatus is the account lifecycle state
type UserStatus string

const (
	UserPending   UserStatus = "PENDING"
	UserApproved  UserStatus = "APPROVED"
	UserSuspended UserStatus = "SUSPENDED"
	UserRejected  UserStatus = "REJECTED"
)

// normalTransitions lists the endorsed status moves. Anything else needs a forced change.
var normalTransitions = map[UserStatus][]UserStatus{
	UserPending:   {UserApproved, UserRejected},
	UserApproved:  {UserSuspended, UserRejected},
	UserSuspended: {UserApproved, UserRejected},
	UserRejected:  {},
}

func (s UserStatus) IsValid() bool {
	_, ok := normalTransitions[s]
	return ok
}

// CanTransitionTo reports whether s -> target is a normal transition
func (s UserStatus) CanTransitionTo(target UserStatus) bool {
	for _, allowed := range normalTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// User is a portal account
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	UserType     string     `json:"user_type"`
	Building     string     `json:"building,omitempty"`
	Flat         string     `json:"flat,omitempty"`
	Floor        string     `json:"floor,omitempty"`
	ApprovedBy   *string    `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ApplyStatus moves the user to next and maintains the approver stamp.
// PENDING->APPROVED stamps approver; APPROVED->PENDING clears it.
func (u *User) ApplyStatus(next UserStatus, actorID string, now time.Time) {
	switch {
	case u.Status == UserPending && next == UserApproved:
		u.ApprovedBy = &actorID
		u.ApprovedAt = &now
	case u.Status == UserApproved && next == UserPending:
		u.ApprovedBy = nil
		u.ApprovedAt = nil
	}
	u.Status = next
	u.UpdatedAt = now
}

// UserFilter narrows user listings
type UserFilter struct {
	Status UserStatus
	Role   Role
	Search string
	Limit  int
	Offset int
}
