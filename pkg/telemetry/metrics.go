package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricOpts holds options for creating metrics
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
}

// Counter wraps an OTel counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a counter on the global meter
func NewCounter(opts MetricOpts) (*Counter, error) {
	counter, err := GetMeter().Int64Counter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

// Inc increments the counter by 1
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps an OTel histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a histogram on the global meter
func NewHistogram(opts MetricOpts, boundaries ...float64) (*Histogram, error) {
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(boundaries) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	histogram, err := GetMeter().Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: histogram}, nil
}

// Record records a value in the histogram
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Attribute keys
const (
	AttrOutcome    = "portal.outcome"
	AttrAction     = "portal.action"
	AttrUserStatus = "portal.user.status"
	AttrEventID    = "portal.event.id"
	AttrUserID     = "portal.user.id"
	AttrActorID    = "portal.actor.id"
)

func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

func ActionAttr(action string) attribute.KeyValue {
	return attribute.String(AttrAction, action)
}

func UserStatusAttr(status string) attribute.KeyValue {
	return attribute.String(AttrUserStatus, status)
}

func EventIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrEventID, id)
}

func UserIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

func ActorIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrActorID, id)
}

// PortalMetrics groups the instruments recorded by the portal services
type PortalMetrics struct {
	Registrations   *Counter
	UserTransitions *Counter
	EventMutations  *Counter
	OpDuration      *Histogram
}

// NewPortalMetrics registers the portal instruments on the global meter
func NewPortalMetrics() (*PortalMetrics, error) {
	registrations, err := NewCounter(MetricOpts{
		Name:        "portal_registrations_total",
		Description: "Registration attempts by outcome",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	transitions, err := NewCounter(MetricOpts{
		Name:        "portal_user_transitions_total",
		Description: "User status and role changes",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	mutations, err := NewCounter(MetricOpts{
		Name:        "portal_events_mutations_total",
		Description: "Event lifecycle mutations by action",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(MetricOpts{
		Name:        "portal_operation_duration_ms",
		Description: "Service operation latency",
		Unit:        "ms",
	}, 1, 5, 10, 25, 50, 100, 250, 500, 1000)
	if err != nil {
		return nil, err
	}

	return &PortalMetrics{
		Registrations:   registrations,
		UserTransitions: transitions,
		EventMutations:  mutations,
		OpDuration:      duration,
	}, nil
}

// RecordRegistration counts a registration attempt. Safe on a nil receiver.
func (m *PortalMetrics) RecordRegistration(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Registrations.Inc(ctx, OutcomeAttr(outcome))
}

// RecordUserTransition counts a user status or role change. Safe on a nil receiver.
func (m *PortalMetrics) RecordUserTransition(ctx context.Context, action, status string) {
	if m == nil {
		return
	}
	m.UserTransitions.Inc(ctx, ActionAttr(action), UserStatusAttr(status))
}

// RecordEventMutation counts an event mutation. Safe on a nil receiver.
func (m *PortalMetrics) RecordEventMutation(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.EventMutations.Inc(ctx, ActionAttr(action))
}

// ObserveDuration records how long op took. Safe on a nil receiver.
func (m *PortalMetrics) ObserveDuration(ctx context.Context, op string, ms float64) {
	if m == nil {
		return
	}
	m.OpDuration.Record(ctx, ms, ActionAttr(op))
}
