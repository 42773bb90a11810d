package domain

import "time"

// RegistrationWindowStatus is derived on every read and never persisted
type RegistrationWindowStatus string

const (
	StatusNoRegistration RegistrationWindowStatus = "NO_REGISTRATION"
	StatusNotStarted     RegistrationWindowStatus = "NOT_STARTED"
	StatusClosed         RegistrationWindowStatus = "CLOSED"
	StatusFull           RegistrationWindowStatus = "FULL"
	StatusOpen           RegistrationWindowStatus = "OPEN"
)

// ComputeStatus evaluates, in order: not required, not yet started, closed, full, open.
// Closed is checked before full so a manual close always reads as CLOSED.
func ComputeStatus(now time.Time, required bool, regStart, regEnd *time.Time, maxParticipants *int, count int) RegistrationWindowStatus {
	if !required {
		return StatusNoRegistration
	}
	if regStart != nil && now.Before(*regStart) {
		return StatusNotStarted
	}
	if regEnd != nil && now.After(*regEnd) {
		return StatusClosed
	}
	if maxParticipants != nil && count >= *maxParticipants {
		return StatusFull
	}
	return StatusOpen
}
