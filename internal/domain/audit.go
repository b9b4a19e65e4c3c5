package domain

import "time"

// AuditEventType classifies a security-relevant gateway event.
type AuditEventType string

const (
	AuditEventLogin          AuditEventType = "LOGIN"
	AuditEventLoginFailed    AuditEventType = "LOGIN_FAILED"
	AuditEventLogout         AuditEventType = "LOGOUT"
	AuditEventSessionRevoked AuditEventType = "SESSION_REVOKED"
	AuditEventAdminChange    AuditEventType = "ADMIN_CHANGE"
	AuditEventAdminDenied    AuditEventType = "ADMIN_DENIED"
	AuditEventRouteReload    AuditEventType = "ROUTE_RELOAD"
)

// AuditActor identifies who caused an event.
type AuditActor struct {
	// Type is "user", "client", or "anonymous".
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	SourceIP string `json:"source_ip,omitempty"`
}

// AuditTarget identifies what an event acted on.
type AuditTarget struct {
	// Type names the aggregate: route, cluster, policy, user, session,
	// client.
	Type string `json:"type,omitempty"`
	ID   string `json:"id,omitempty"`
}

// AuditEvent is one entry in the security audit trail.
type AuditEvent struct {
	EventID   string         `json:"event_id"`
	EventType AuditEventType `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     AuditActor     `json:"actor"`
	Target    AuditTarget    `json:"target,omitempty"`
	Success   bool           `json:"success"`
	Reason    string         `json:"reason,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// NewAuditEvent creates an event of the given type; the audit service
// fills in the id and timestamp on emit.
func NewAuditEvent(eventType AuditEventType) *AuditEvent {
	return &AuditEvent{EventType: eventType, Success: true}
}
