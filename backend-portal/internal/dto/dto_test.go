package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
)

func TestUpdateEventRequest_Validate(t *testing.T) {
	max := 10
	tests := []struct {
		name  string
		req   UpdateEventRequest
		valid bool
	}{
		{name: "empty", req: UpdateEventRequest{}, valid: false},
		{name: "title only", req: UpdateEventRequest{Title: new(string)}, valid: true},
		{name: "clear flag only", req: UpdateEventRequest{ClearMaxParticipants: true}, valid: true},
		{name: "set and clear", req: UpdateEventRequest{MaxParticipants: &max, ClearMaxParticipants: true}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := tt.req.Validate()
			assert.Equal(t, tt.valid, valid)
			if !tt.valid {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestCreateEventRequest_ToInput(t *testing.T) {
	team := "TEAM"
	req := CreateEventRequest{Title: "Cup", EventType: "sports", ParticipationType: &team}
	in := req.ToInput()
	assert.Equal(t, domain.EventTypeSports, in.EventType)
	assert.Equal(t, domain.ParticipationTeam, *in.ParticipationType)
}

func TestListEventsQuery_ToFilter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := ListEventsQuery{Page: 3, Limit: 10, Upcoming: true}
	f := q.ToFilter(now)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)
	assert.Equal(t, now, *f.From)

	q = ListEventsQuery{}
	f = q.ToFilter(now)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Nil(t, f.From)
}

func TestListUsersQuery_ToFilter(t *testing.T) {
	q := ListUsersQuery{Page: 2, Status: "PENDING", Search: " ann "}
	f := q.ToFilter()
	assert.Equal(t, domain.UserPending, f.Status)
	assert.Equal(t, "ann", f.Search)
	assert.Equal(t, 20, f.Offset)
}

func TestRegisterRequest_ToInput(t *testing.T) {
	req := RegisterRequest{TeamMembers: []TeamMemberRequest{{Name: "Ann", Phone: "1"}}, AdditionalNotes: "hi"}
	in := req.ToInput("e-1")
	assert.Equal(t, "e-1", in.EventID)
	assert.Equal(t, []domain.TeamMember{{Name: "Ann", Phone: "1"}}, in.TeamMembers)
	assert.Equal(t, "hi", in.Notes)
}
