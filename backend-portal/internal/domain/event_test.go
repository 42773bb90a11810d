package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() *Event {
	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	return &Event{
		Title:     "Summer Fair",
		EventType: EventTypeFestival,
		StartDate: start,
		EndDate:   start.Add(4 * time.Hour),
		Venue:     "Clubhouse",
	}
}

func TestEvent_Validate(t *testing.T) {
	team := ParticipationTeam
	bogus := ParticipationType("DUO")

	tests := []struct {
		name      string
		mutate    func(e *Event)
		wantField string
	}{
		{name: "valid", mutate: func(e *Event) {}},
		{name: "same start and end", mutate: func(e *Event) { e.EndDate = e.StartDate }},
		{name: "blank title", mutate: func(e *Event) { e.Title = "  " }, wantField: "title"},
		{name: "unknown type", mutate: func(e *Event) { e.EventType = "PARTY" }, wantField: "event_type"},
		{name: "end before start", mutate: func(e *Event) { e.EndDate = e.StartDate.Add(-time.Minute) }, wantField: "end_date"},
		{
			name: "registration end before start",
			mutate: func(e *Event) {
				e.RegistrationStartDate = ptrTime(e.StartDate.Add(-48 * time.Hour))
				e.RegistrationEndDate = ptrTime(e.StartDate.Add(-72 * time.Hour))
			},
			wantField: "registration_end_date",
		},
		{
			name: "only registration end set",
			mutate: func(e *Event) {
				e.RegistrationEndDate = ptrTime(e.StartDate.Add(-72 * time.Hour))
			},
		},
		{name: "team participation", mutate: func(e *Event) { e.ParticipationType = &team }},
		{name: "bad participation", mutate: func(e *Event) { e.ParticipationType = &bogus }, wantField: "participation_type"},
		{name: "zero capacity", mutate: func(e *Event) { e.MaxParticipants = ptrInt(0) }, wantField: "max_participants"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, tt.wantField, AsError(err).Field)
		})
	}
}

func TestEvent_IsTeam(t *testing.T) {
	e := validEvent()
	assert.False(t, e.IsTeam())

	team := ParticipationTeam
	e.ParticipationType = &team
	assert.True(t, e.IsTeam())
}

func TestCancellationPrefix(t *testing.T) {
	assert.Equal(t, "[CANCELLED: heavy rain]", CancellationPrefix("CANCELLED", " heavy rain "))
	assert.Equal(t, "[CANCELLED]", CancellationPrefix("CANCELLED", ""))
}

func TestTeamHelpers(t *testing.T) {
	members := []TeamMember{{Name: "  "}, {Name: " Ann ", Email: " ann@example.com "}}

	assert.True(t, HasNamedMember(members))
	assert.False(t, HasNamedMember([]TeamMember{{Name: ""}, {Name: "\t"}}))
	assert.False(t, HasNamedMember(nil))

	norm := NormalizeTeam(members)
	require.Len(t, norm, 1)
	assert.Equal(t, TeamMember{Name: "Ann", Email: "ann@example.com"}, norm[0])
}
