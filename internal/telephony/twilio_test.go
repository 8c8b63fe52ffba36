package telephony

import (
	"context"
	"errors"
	"testing"
	"time"

	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type stubCalls struct {
	params *openapi.CreateCallParams
	call   *openapi.ApiV2010Call
	err    error
}

func (s *stubCalls) CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error) {
	s.params = params
	return s.call, s.err
}

func TestTwilioProvider_ImplementsCallOriginator(t *testing.T) {
	var _ CallOriginator = (*TwilioProvider)(nil)
}

func TestTwilioProvider_PlaceCall(t *testing.T) {
	sid, status := "CA42", "queued"
	stub := &stubCalls{call: &openapi.ApiV2010Call{Sid: &sid, Status: &status}}
	p := &TwilioProvider{calls: stub}

	res, err := p.PlaceCall(context.Background(), OutboundCallRequest{
		To:             "+15551234567",
		From:           "+15550000001",
		URL:            "https://calls.example.org/connection?campaignId=1",
		StatusCallback: "https://calls.example.org/call_complete_status?campaignId=1",
		TimeLimit:      time.Hour,
		Timeout:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.ProviderCallID != "CA42" || res.Status != "queued" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if stub.params.TimeLimit == nil || *stub.params.TimeLimit != 3600 {
		t.Fatalf("expected time limit in seconds")
	}
	if stub.params.Timeout == nil || *stub.params.Timeout != 30 {
		t.Fatalf("expected timeout in seconds")
	}
}

func TestTwilioProvider_RestErrorIsStructured(t *testing.T) {
	stub := &stubCalls{err: &twclient.TwilioRestError{Code: 21211, Status: 400, Message: "Invalid 'To' Phone Number"}}
	p := &TwilioProvider{calls: stub}

	_, err := p.PlaceCall(context.Background(), OutboundCallRequest{To: "x", From: "+1", URL: "https://x"})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Code != 21211 || perr.Message == "" {
		t.Fatalf("unexpected provider error: %+v", perr)
	}
}

func TestTwilioProvider_RequiresCredentials(t *testing.T) {
	if _, err := NewTwilioProvider("", ""); err == nil {
		t.Fatalf("expected error")
	}
}
