package calls

import (
	"strings"
	"time"
)

// CallRecord is one completed leg of a multi-target call.
//
// Invariants:
// - Created once at leg completion; never updated or deleted.
// - PhoneNumber is only populated when phone logging is enabled.
type CallRecord struct {
	ID         string `json:"id" db:"id"`
	CampaignID int64  `json:"campaign_id" db:"campaign_id"`
	TargetID   int64  `json:"target_id" db:"target_id"`

	// Location is the caller-supplied zipcode, if any.
	Location string `json:"location,omitempty" db:"location"`

	// ProviderCallID is the provider's identifier for the parent call (Twilio CallSid).
	ProviderCallID string `json:"call_id,omitempty" db:"call_id"`

	// CallIndex is the leg's position in the call's target list. The same
	// target may appear twice in one call when custom and location targets overlap.
	CallIndex int `json:"call_index" db:"call_index"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is the bridged leg duration.
	DurationSeconds int `json:"duration" db:"duration"`

	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`

	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}

// CallStatus is the terminal status of a dialed leg, as reported by the provider.
type CallStatus string

const (
	CallStatusCompleted CallStatus = "completed"
	CallStatusCanceled  CallStatus = "canceled"
	CallStatusFailed    CallStatus = "failed"
	CallStatusUnknown   CallStatus = "unknown"
	CallStatusBusy      CallStatus = "busy"
	CallStatusNoAnswer  CallStatus = "no-answer"
)

// ParseStatus maps a provider status string onto a CallStatus.
// Anything unrecognized, including an empty value, is unknown.
func ParseStatus(s string) CallStatus {
	switch st := CallStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case CallStatusCompleted, CallStatusCanceled, CallStatusFailed, CallStatusBusy, CallStatusNoAnswer:
		return st
	default:
		return CallStatusUnknown
	}
}
