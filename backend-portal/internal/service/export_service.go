package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/export"
	"github.com/prohmpiriya/community-portal/pkg/telemetry"
)

// ExportFile is a rendered CSV document
type ExportFile struct {
	Filename    string
	ContentType string
	Body        string
}

const csvContentType = "text/csv; charset=utf-8"

type exporter struct {
	base
}

// NewExporter creates the Exporter
func NewExporter(d Deps) Exporter {
	return &exporter{base: newBase(d, "export")}
}

// ExportRegistrations renders every registration of an event. Admin only.
func (s *exporter) ExportRegistrations(ctx context.Context, actor domain.Actor, eventID string) (file *ExportFile, err error) {
	ctx, done := s.startOp(ctx, "export.registrations", telemetry.EventIDAttr(eventID))
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	event, err := s.store.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.fail(ctx, "export registrations", err)
	}
	if event == nil {
		return nil, domain.NotFound("event not found")
	}
	views, err := s.store.Registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(ctx, "export registrations", err)
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("registrations-%s-%s.csv", slug(event.Title), s.clock.Now().Format("20060102")),
		ContentType: csvContentType,
		Body:        export.Registrations(event.IsTeam(), views, s.cfg.ExportLocation),
	}, nil
}

// ExportUsers renders all users matching filter. Admin only.
func (s *exporter) ExportUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter) (file *ExportFile, err error) {
	ctx, done := s.startOp(ctx, "export.users")
	defer func() { done(err) }()

	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	filter.Limit, filter.Offset = 0, 0
	users, _, err := s.store.Users.List(ctx, filter)
	if err != nil {
		return nil, s.fail(ctx, "export users", err)
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("users-%s.csv", s.clock.Now().Format("20060102")),
		ContentType: csvContentType,
		Body:        export.Users(users, s.cfg.ExportLocation),
	}, nil
}

// slug keeps ASCII letters and digits of title, joined by single dashes
func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "event"
	}
	return out
}
