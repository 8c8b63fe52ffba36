package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// VoiceWebhook captures the subset of Twilio voice callback fields the call
// flow reads. Twilio sends application/x-www-form-urlencoded by default, but
// callbacks may also arrive as GET, so query and body are both read.
// Ref: https://www.twilio.com/docs/voice/twiml
//
// Keep it minimal and provider-adapter-only.
type VoiceWebhook struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	Direction  string
	CallStatus string

	// Digits is set by <Gather>.
	Digits string

	// Dial* are set on the <Dial action> callback.
	DialCallSid      string
	DialCallStatus   string
	DialCallDuration int
}

func ParseVoiceWebhook(r *http.Request) (VoiceWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhook{}, err
	}
	f := VoiceWebhook{
		CallSid:        r.FormValue("CallSid"),
		AccountSid:     r.FormValue("AccountSid"),
		From:           normalizePhone(r.FormValue("From")),
		To:             normalizePhone(r.FormValue("To")),
		Direction:      r.FormValue("Direction"),
		CallStatus:     r.FormValue("CallStatus"),
		Digits:         strings.TrimSpace(r.FormValue("Digits")),
		DialCallSid:    r.FormValue("DialCallSid"),
		DialCallStatus: r.FormValue("DialCallStatus"),
	}
	// Duration is informational; a malformed value is recorded as 0.
	if d, err := strconv.Atoi(strings.TrimSpace(r.FormValue("DialCallDuration"))); err == nil && d > 0 {
		f.DialCallDuration = d
	}
	return f, nil
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}
