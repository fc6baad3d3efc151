package audit

import (
	"context"
	"time"

	id "donorhub/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers changes to personal data: accounts and donor records.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication outcomes and privilege changes.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine reads worth tracing.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	// Account events
	EventUserRegistered AuditEvent = "user_registered"
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"
	EventLogout         AuditEvent = "logout"
	EventUserUpdated    AuditEvent = "user_updated"
	EventUserDeleted    AuditEvent = "user_deleted"
	EventAdminBootstrap AuditEvent = "admin_bootstrapped"

	// Donor events
	EventDonorCreated        AuditEvent = "donor_created"
	EventDonorUpdated        AuditEvent = "donor_updated"
	EventDonorDeleted        AuditEvent = "donor_deleted"
	EventEligibilityChecked  AuditEvent = "eligibility_checked"
	EventStatisticsRequested AuditEvent = "statistics_requested"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered: CategoryCompliance,
	EventUserUpdated:    CategoryCompliance,
	EventUserDeleted:    CategoryCompliance,
	EventDonorCreated:   CategoryCompliance,
	EventDonorUpdated:   CategoryCompliance,
	EventDonorDeleted:   CategoryCompliance,

	EventLoginSucceeded: CategorySecurity,
	EventLoginFailed:    CategorySecurity,
	EventLogout:         CategorySecurity,
	EventAdminBootstrap: CategorySecurity,

	EventEligibilityChecked:  CategoryOperations,
	EventStatisticsRequested: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from services to capture key actions. It is
// transport-agnostic so sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Action    AuditEvent    `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	// ActorID is the authenticated account; nil for anonymous attempts such as failed logins.
	ActorID   id.UserID `json:"actor_id"`
	Subject   string    `json:"subject,omitempty"`
	Email     string    `json:"email,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
}

// Normalize fills Category and Timestamp when they are unset.
func (e Event) Normalize(now time.Time) Event {
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}

// Publisher delivers audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists audit events for later inspection.
type Store interface {
	Append(ctx context.Context, event Event) error
}
