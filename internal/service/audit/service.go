// Package audit emits the security audit trail: logins, logouts,
// session revocations, and admin mutations. Events go to the structured
// log as a distinct stream so they can be shipped and retained
// separately from operational logging.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/pkg/logger"
)

// Service records audit events. A disabled service swallows events, so
// callers never branch on configuration.
type Service struct {
	enabled bool
	only    map[domain.AuditEventType]bool
	now     func() time.Time
}

// NewService creates the audit service. An empty event list enables
// every event type.
func NewService(cfg config.AuditConfig) *Service {
	s := &Service{enabled: cfg.Enabled, now: time.Now}
	if len(cfg.Events) > 0 {
		s.only = make(map[domain.AuditEventType]bool, len(cfg.Events))
		for _, event := range cfg.Events {
			s.only[domain.AuditEventType(event)] = true
		}
	}
	return s
}

// Record emits one audit event.
func (s *Service) Record(event *domain.AuditEvent) {
	if !s.enabled {
		return
	}
	if s.only != nil && !s.only[event.EventType] {
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}

	logger.Info("audit",
		logger.String("event_id", event.EventID),
		logger.String("event_type", string(event.EventType)),
		logger.String("actor_type", event.Actor.Type),
		logger.String("actor_id", event.Actor.ID),
		logger.String("actor_username", event.Actor.Username),
		logger.String("source_ip", event.Actor.SourceIP),
		logger.String("target_type", event.Target.Type),
		logger.String("target_id", event.Target.ID),
		logger.Bool("success", event.Success),
		logger.String("reason", event.Reason),
		logger.String("request_id", event.RequestID),
	)
}

// Login records a login outcome.
func (s *Service) Login(username, sourceIP, requestID string, success bool, reason string) {
	event := domain.NewAuditEvent(domain.AuditEventLogin)
	if !success {
		event.EventType = domain.AuditEventLoginFailed
	}
	event.Actor = domain.AuditActor{Type: "user", Username: username, SourceIP: sourceIP}
	event.Success = success
	event.Reason = reason
	event.RequestID = requestID
	s.Record(event)
}

// Logout records a logout.
func (s *Service) Logout(username, sourceIP, requestID string) {
	event := domain.NewAuditEvent(domain.AuditEventLogout)
	event.Actor = domain.AuditActor{Type: "user", Username: username, SourceIP: sourceIP}
	event.RequestID = requestID
	s.Record(event)
}

// SessionRevoked records an administrative session revocation.
func (s *Service) SessionRevoked(clientID, sessionID, requestID string) {
	event := domain.NewAuditEvent(domain.AuditEventSessionRevoked)
	event.Actor = domain.AuditActor{Type: "client", ID: clientID}
	event.Target = domain.AuditTarget{Type: "session", ID: sessionID}
	event.RequestID = requestID
	s.Record(event)
}

// AdminChange records a mutation through the admin API.
func (s *Service) AdminChange(clientID, targetType, targetID, requestID string) {
	event := domain.NewAuditEvent(domain.AuditEventAdminChange)
	event.Actor = domain.AuditActor{Type: "client", ID: clientID}
	event.Target = domain.AuditTarget{Type: targetType, ID: targetID}
	event.RequestID = requestID
	s.Record(event)
}

// AdminDenied records a rejected admin authentication attempt.
func (s *Service) AdminDenied(clientID, sourceIP, requestID string) {
	event := domain.NewAuditEvent(domain.AuditEventAdminDenied)
	event.Actor = domain.AuditActor{Type: "client", ID: clientID, SourceIP: sourceIP}
	event.Success = false
	event.RequestID = requestID
	s.Record(event)
}
