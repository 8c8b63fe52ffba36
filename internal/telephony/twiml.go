package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives the call flow needs: say/play, gather, dial,
// redirect, hangup.

type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

func NewResponse() *Response { return &Response{} }

// Append adds verbs in order.
func (r *Response) Append(verbs ...any) *Response {
	r.Verbs = append(r.Verbs, verbs...)
	return r
}

type Say struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

// Gather collects digits and posts them to Action. Nested Say/Play verbs
// are interrupted by the first key press.
type Gather struct {
	XMLName   xml.Name `xml:"Gather"`
	NumDigits int      `xml:"numDigits,attr,omitempty"`
	Action    string   `xml:"action,attr,omitempty"`
	Method    string   `xml:"method,attr,omitempty"`
	Timeout   int      `xml:"timeout,attr,omitempty"`
	Verbs     []any    `xml:",any"`
}

// Dial bridges the caller to a number. Action receives DialCallStatus and
// DialCallDuration when the leg ends.
type Dial struct {
	XMLName      xml.Name `xml:"Dial"`
	Action       string   `xml:"action,attr,omitempty"`
	Method       string   `xml:"method,attr,omitempty"`
	CallerID     string   `xml:"callerId,attr,omitempty"`
	TimeLimit    int      `xml:"timeLimit,attr,omitempty"`
	Timeout      int      `xml:"timeout,attr,omitempty"`
	HangupOnStar bool     `xml:"hangupOnStar,attr,omitempty"`
	Number       string   `xml:"Number,omitempty"`
	Sip          *Sip     `xml:"Sip,omitempty"`
}

type Sip struct {
	URI string `xml:",chardata"`
}

type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type Reject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

// DialTo builds a Dial for a PSTN number or a sip: URI.
func DialTo(target string) (Dial, error) {
	if strings.TrimSpace(target) == "" {
		return Dial{}, errors.New("telephony: dial target required")
	}
	var d Dial
	if strings.HasPrefix(strings.ToLower(target), "sip:") {
		d.Sip = &Sip{URI: target}
	} else {
		d.Number = target
	}
	return d, nil
}

// Render encodes the response as a TwiML document.
func (r *Response) Render() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
