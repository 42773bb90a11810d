package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
)

const (
	// TimestampLayout formats registration times
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout formats account dates
	DateLayout = "2006-01-02"
)

var registrationColumns = []string{"S.No", "Name", "Email", "Phone", "Building", "Flat", "Registered At", "Status"}

var userColumns = []string{"Name", "Email", "Phone", "Role", "Status", "User Type", "Building", "Flat", "Floor", "Registered On", "Approved On"}

// RegistrationHeader returns the registration export columns. Team events get a Team Members column before Notes.
func RegistrationHeader(team bool) []string {
	header := append([]string{}, registrationColumns...)
	if team {
		header = append(header, "Team Members")
	}
	return append(header, "Notes")
}

// UserHeader returns the user export columns
func UserHeader() []string {
	return append([]string{}, userColumns...)
}

// Registrations renders the registration export for one event. Times are written in loc.
func Registrations(team bool, views []*domain.RegistrationView, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]string, 0, len(views))
	for i, v := range views {
		row := []string{
			strconv.Itoa(i + 1),
			v.UserName,
			v.UserEmail,
			v.UserPhone,
			v.Building,
			v.Flat,
			v.RegisteredAt.In(loc).Format(TimestampLayout),
			string(v.RegistrationStatus),
		}
		if team {
			row = append(row, FormatTeam(v.TeamMembers))
		}
		rows = append(rows, append(row, v.AdditionalNotes))
	}
	return Render(RegistrationHeader(team), rows)
}

// Users renders the user export. Dates are written in loc.
func Users(users []*domain.User, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		approvedOn := ""
		if u.ApprovedAt != nil {
			approvedOn = u.ApprovedAt.In(loc).Format(DateLayout)
		}
		rows = append(rows, []string{
			u.Name,
			u.Email,
			u.Phone,
			string(u.Role),
			string(u.Status),
			u.UserType,
			u.Building,
			u.Flat,
			u.Floor,
			u.CreatedAt.In(loc).Format(DateLayout),
			approvedOn,
		})
	}
	return Render(UserHeader(), rows)
}

// FormatTeam renders members as "name (email, phone); ..." omitting empty contact details
func FormatTeam(members []domain.TeamMember) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		var contact []string
		if m.Email != "" {
			contact = append(contact, m.Email)
		}
		if m.Phone != "" {
			contact = append(contact, m.Phone)
		}
		if len(contact) == 0 {
			parts = append(parts, m.Name)
			continue
		}
		parts = append(parts, m.Name+" ("+strings.Join(contact, ", ")+")")
	}
	return strings.Join(parts, "; ")
}
