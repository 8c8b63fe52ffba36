package telephony

import (
	"context"
	"errors"
	"time"

	twilio "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// callCreator is the slice of the Twilio REST API the provider uses.
type callCreator interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
}

// TwilioProvider originates calls through the Twilio REST API.
type TwilioProvider struct {
	calls callCreator
}

func NewTwilioProvider(accountSID, authToken string) (*TwilioProvider, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("telephony: twilio credentials required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{calls: client.Api}, nil
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) PlaceCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error) {
	if p.calls == nil {
		return OutboundCallResult{}, errors.New("telephony: twilio client is nil")
	}
	if req.To == "" || req.From == "" || req.URL == "" {
		return OutboundCallResult{}, errors.New("telephony: to, from and url required")
	}
	if err := ctx.Err(); err != nil {
		return OutboundCallResult{}, err
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetUrl(req.URL)
	if req.StatusCallback != "" {
		params.SetStatusCallback(req.StatusCallback)
	}
	if req.TimeLimit > 0 {
		params.SetTimeLimit(seconds(req.TimeLimit))
	}
	if req.Timeout > 0 {
		params.SetTimeout(seconds(req.Timeout))
	}

	call, err := p.calls.CreateCall(params)
	if err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) {
			return OutboundCallResult{}, &ProviderError{Code: restErr.Code, Status: restErr.Status, Message: restErr.Message}
		}
		return OutboundCallResult{}, err
	}

	var out OutboundCallResult
	if call.Sid != nil {
		out.ProviderCallID = *call.Sid
	}
	if call.Status != nil {
		out.Status = *call.Status
	}
	return out, nil
}

func seconds(d time.Duration) int { return int(d / time.Second) }
