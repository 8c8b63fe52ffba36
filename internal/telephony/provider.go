package telephony

import (
	"context"
	"fmt"
	"time"
)

// CallOriginator places outbound calls through the telephony provider.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Keep request/response types provider-agnostic.
type CallOriginator interface {
	PlaceCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error)
}

// OutboundCallRequest asks the provider to call To from From and fetch
// instructions from URL once answered.
type OutboundCallRequest struct {
	To   string `json:"to"`
	From string `json:"from"`

	URL            string `json:"url"`
	StatusCallback string `json:"status_callback,omitempty"`

	// TimeLimit caps the whole call; Timeout caps ringing.
	TimeLimit time.Duration `json:"time_limit"`
	Timeout   time.Duration `json:"timeout"`
}

type OutboundCallResult struct {
	ProviderCallID string `json:"provider_call_id"`
	// Status is the provider's initial call status (queued, failed, ...).
	Status string `json:"status"`
}

// ProviderError is a structured rejection from the provider API.
type ProviderError struct {
	Code    int
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("telephony: provider error %d: %s", e.Code, e.Message)
}
