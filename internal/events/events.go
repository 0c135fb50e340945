package events

import (
	"time"
)

// Stream names.
const (
	StreamEvents = "RIBBON_EVENTS"
)

// Subject constants.
const (
	SubjectQuotaEvent      = "ribbon.events.quota"
	SubjectSuggestionEvent = "ribbon.events.suggestion"
	SubjectAuditEvent      = "ribbon.events.audit"
)

// QuotaEvent is published when a quota check denies a request.
type QuotaEvent struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`   // "generation" or "refinement"
	Reason    string    `json:"reason"` // quota_exceeded, not_entitled
	Tier      string    `json:"tier"`
	Timestamp time.Time `json:"timestamp"`
}

// SuggestionEvent is published after a successful generation or refinement.
type SuggestionEvent struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"` // "generation" or "refinement"
	IdeaCount int       `json:"idea_count"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"` // info, warn, error
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}
