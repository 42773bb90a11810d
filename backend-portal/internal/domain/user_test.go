package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from UserStatus
		to   UserStatus
		want bool
	}{
		{UserPending, UserApproved, true},
		{UserPending, UserRejected, true},
		{UserPending, UserSuspended, false},
		{UserApproved, UserSuspended, true},
		{UserApproved, UserRejected, true},
		{UserApproved, UserApproved, false},
		{UserApproved, UserPending, false},
		{UserSuspended, UserApproved, true},
		{UserSuspended, UserRejected, true},
		{UserRejected, UserApproved, false},
		{UserRejected, UserRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.False(t, UserStatus("ARCHIVED").IsValid())
}

func TestRoleForRequestedType(t *testing.T) {
	assert.Equal(t, RoleOwner, RoleForRequestedType("owner"))
	assert.Equal(t, RoleTenant, RoleForRequestedType(" TENANT "))
	assert.Equal(t, RolePublic, RoleForRequestedType("ADMIN"))
	assert.Equal(t, RolePublic, RoleForRequestedType(""))
}

func TestUser_ApplyStatus(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	u := &User{Status: UserPending}
	u.ApplyStatus(UserApproved, "admin-1", now)
	require.NotNil(t, u.ApprovedBy)
	assert.Equal(t, "admin-1", *u.ApprovedBy)
	assert.Equal(t, now, *u.ApprovedAt)

	later := now.Add(time.Hour)
	u.ApplyStatus(UserSuspended, "admin-2", later)
	u.ApplyStatus(UserApproved, "admin-2", later)
	assert.Equal(t, "admin-1", *u.ApprovedBy, "resume does not re-stamp")
	assert.Equal(t, now, *u.ApprovedAt)

	u.ApplyStatus(UserPending, "admin-2", later)
	assert.Nil(t, u.ApprovedBy)
	assert.Nil(t, u.ApprovedAt)
}

func TestActorGuards(t *testing.T) {
	assert.NoError(t, RequireAdmin(Actor{ID: "a", Role: RoleAdmin}))
	assert.ErrorIs(t, RequireAdmin(Actor{ID: "a", Role: RoleOwner}), ErrUnauthorized)
	assert.ErrorIs(t, RequireAdmin(Actor{Role: RoleAdmin}), ErrUnauthorized)
	assert.ErrorIs(t, RequireAuthenticated(Actor{}), ErrUnauthorized)
}
