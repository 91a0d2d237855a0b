package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification channels used for candidate fan-out.
const (
	ChannelWhatsApp  = "whatsapp"
	ChannelEmail     = "email"
	ChannelDashboard = "dashboard"
)

// Accept surfaces. WhatsApp button and free-text replies are audited
// separately because they carry different spoofing risk.
const (
	AcceptChannelDashboard    = "dashboard"
	AcceptChannelWhatsAppBtn  = "whatsapp_button"
	AcceptChannelWhatsAppText = "whatsapp_text"
	AcceptChannelEmailLink    = "email_link"
)

type AttemptOutcome string

const (
	AttemptOutcomeSent   AttemptOutcome = "sent"
	AttemptOutcomeFailed AttemptOutcome = "failed"
)

// NotificationAttempt is an append-only audit record, one per
// (request, doctor, channel) tuple at dispatch time. Never mutated.
type NotificationAttempt struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	RequestID     uuid.UUID      `db:"request_id" json:"request_id"`
	DoctorID      uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Channel       string         `db:"channel" json:"channel"`
	Outcome       AttemptOutcome `db:"outcome" json:"outcome"`
	FailureReason *string        `db:"failure_reason" json:"failure_reason,omitempty"`
	DispatchedAt  time.Time      `db:"dispatched_at" json:"dispatched_at"`
}

// NotificationPayload is what the transports deliver: a request summary,
// a human-readable distance for in-person requests, and a signed accept
// reference the channel embeds in its button/link.
type NotificationPayload struct {
	RequestID       uuid.UUID       `json:"request_id"`
	ServiceID       uuid.UUID       `json:"service_id"`
	Category        RequestCategory `json:"category"`
	DistanceDisplay string          `json:"distance_display,omitempty"`
	AcceptToken     string          `json:"accept_token"`
	ExpiresAt       time.Time       `json:"expires_at"`
}
