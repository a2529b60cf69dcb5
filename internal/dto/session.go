package dto

import "time"

// MutabilityState is the time-derived classification of a session.
type MutabilityState string

const (
	StateFuture        MutabilityState = "future"
	StateOngoing       MutabilityState = "ongoing"
	StateRecentlyEnded MutabilityState = "recently_ended"
	StatePast          MutabilityState = "past"
)

// MutabilityResult tells callers what they may still change on a session.
type MutabilityResult struct {
	SessionID         string          `json:"sessionId"`
	State             MutabilityState `json:"state"`
	CanModify         bool            `json:"canModify"`
	CanDelete         bool            `json:"canDelete"`
	CanChangeRoom     bool            `json:"canChangeRoom"`
	CanChangeGroups   bool            `json:"canChangeGroups"`
	CanChangeSchedule bool            `json:"canChangeSchedule"`
	Reason            string          `json:"reason"`
}

// SessionStatus is the display oriented view of the mutability state.
type SessionStatus struct {
	SessionID   string          `json:"sessionId"`
	Status      MutabilityState `json:"status"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	CanModify   bool            `json:"canModify"`
}

// UpdateSessionRequest moves a session or changes its attendance. Nil fields are left untouched.
type UpdateSessionRequest struct {
	RoomID   *string    `json:"roomId" validate:"omitempty,uuid"`
	StartAt  *time.Time `json:"startAt"`
	GroupIDs []string   `json:"groupIds" validate:"omitempty,min=1,dive,uuid"`
}
