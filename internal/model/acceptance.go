package model

import (
	"time"

	"github.com/google/uuid"
)

type AcceptanceResult string

const (
	AcceptanceResultWon            AcceptanceResult = "won"
	AcceptanceResultAlreadyYours   AcceptanceResult = "already_won_by_you"
	AcceptanceResultLostAssigned   AcceptanceResult = "lost_already_assigned"
	AcceptanceResultLostIneligible AcceptanceResult = "lost_ineligible"
	AcceptanceResultLostExpired    AcceptanceResult = "lost_expired"
	AcceptanceResultLostCancelled  AcceptanceResult = "lost_cancelled"
)

// AcceptanceEvent is an append-only record of a single accept attempt,
// winning or losing. Every call to the arbiter produces exactly one.
type AcceptanceEvent struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	RequestID uuid.UUID        `db:"request_id" json:"request_id"`
	DoctorID  uuid.UUID        `db:"doctor_id" json:"doctor_id"`
	Channel   string           `db:"channel" json:"channel"`
	Result    AcceptanceResult `db:"result" json:"result"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
