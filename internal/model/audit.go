package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	DoctorID   uuid.UUID       `json:"doctor_id" db:"doctor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionAccepted     = "request_accepted"
	AuditActionAcceptLost   = "request_accept_lost"
	AuditActionNotified     = "request_notified"
	AuditActionExpired      = "request_expired"
	AuditActionCancelled    = "request_cancelled"
	AuditActionRoomAttached = "video_room_attached"

	// Entity types
	AuditEntityRequest = "service_request"
	AuditEntityDoctor  = "doctor"
)
