package dto

import (
	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
)

// TeamMemberRequest is one member of a team registration
type TeamMemberRequest struct {
	Name  string `json:"name" binding:"max=255"`
	Email string `json:"email" binding:"omitempty,email,max=255"`
	Phone string `json:"phone" binding:"omitempty,max=50"`
}

// RegisterRequest represents request to register for an event
type RegisterRequest struct {
	UserID          string              `json:"user_id" binding:"omitempty,uuid"`
	TeamMembers     []TeamMemberRequest `json:"team_members" binding:"omitempty,dive"`
	AdditionalNotes string              `json:"additional_notes"`
}

// ToInput converts the request into service input for eventID
func (r *RegisterRequest) ToInput(eventID string) service.RegisterInput {
	members := make([]domain.TeamMember, len(r.TeamMembers))
	for i, m := range r.TeamMembers {
		members[i] = domain.TeamMember{Name: m.Name, Email: m.Email, Phone: m.Phone}
	}
	return service.RegisterInput{
		EventID:     eventID,
		UserID:      r.UserID,
		TeamMembers: members,
		Notes:       r.AdditionalNotes,
	}
}
