package callflow

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrBadParams means the request did not carry a usable state tuple.
var ErrBadParams = errors.New("callflow: bad parameters")

// Query parameter names round-tripped through the provider.
const (
	paramUserPhone  = "userPhone"
	paramCampaignID = "campaignId"
	paramZipcode    = "zipcode"
	paramTargetIDs  = "targetIds"
	paramCallIndex  = "call_index"
	paramZipAttempt = "zipAttempt"
)

// State is the progress of one call session. It is never stored: every
// webhook decodes it from the request and every instruction document
// encodes the next one into its callback URL.
type State struct {
	UserPhone  string
	CampaignID int64
	Zipcode    string
	TargetIDs  []int64
	CallIndex  int

	// ZipAttempt counts failed zip entries so far.
	ZipAttempt int
}

// ParseState decodes the state tuple from query/form values. Absent fields
// take their zero value; present but malformed fields are ErrBadParams.
func ParseState(v url.Values) (State, error) {
	s := State{
		UserPhone: strings.TrimSpace(v.Get(paramUserPhone)),
		Zipcode:   strings.TrimSpace(v.Get(paramZipcode)),
	}

	var err error
	if s.CampaignID, err = parseInt64(v.Get(paramCampaignID)); err != nil {
		return State{}, fmt.Errorf("%w: campaignId: %v", ErrBadParams, err)
	}
	if s.TargetIDs, err = parseTargetIDs(v[paramTargetIDs]); err != nil {
		return State{}, fmt.Errorf("%w: targetIds: %v", ErrBadParams, err)
	}

	idx, err := parseInt64(v.Get(paramCallIndex))
	if err != nil || idx < 0 {
		return State{}, fmt.Errorf("%w: call_index", ErrBadParams)
	}
	s.CallIndex = int(idx)

	attempt, err := parseInt64(v.Get(paramZipAttempt))
	if err != nil || attempt < 0 {
		return State{}, fmt.Errorf("%w: zipAttempt", ErrBadParams)
	}
	s.ZipAttempt = int(attempt)

	return s, nil
}

// Values encodes s. Empty fields are omitted; call_index is only carried
// once a target list exists.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.UserPhone != "" {
		v.Set(paramUserPhone, s.UserPhone)
	}
	if s.CampaignID != 0 {
		v.Set(paramCampaignID, strconv.FormatInt(s.CampaignID, 10))
	}
	if s.Zipcode != "" {
		v.Set(paramZipcode, s.Zipcode)
	}
	for _, id := range s.TargetIDs {
		v.Add(paramTargetIDs, strconv.FormatInt(id, 10))
	}
	if len(s.TargetIDs) > 0 {
		v.Set(paramCallIndex, strconv.Itoa(s.CallIndex))
	}
	if s.ZipAttempt > 0 {
		v.Set(paramZipAttempt, strconv.Itoa(s.ZipAttempt))
	}
	return v
}

// Path returns path with s encoded as its query string.
func (s State) Path(path string) string {
	q := s.Values().Encode()
	if q == "" {
		return path
	}
	return path + "?" + q
}

// URL is Path resolved against an absolute application root. Used where
// the provider needs a full URL (outbound origination).
func (s State) URL(root, path string) string {
	return strings.TrimRight(root, "/") + s.Path(path)
}

// WithIndex returns a copy of s positioned at target i.
func (s State) WithIndex(i int) State {
	s.CallIndex = i
	return s
}

// Last reports whether CallIndex is the final leg.
func (s State) Last() bool { return s.CallIndex == len(s.TargetIDs)-1 }

// CurrentTarget returns the target id at CallIndex.
func (s State) CurrentTarget() (int64, error) {
	if s.CallIndex < 0 || s.CallIndex >= len(s.TargetIDs) {
		return 0, fmt.Errorf("%w: call_index %d out of range (%d targets)", ErrBadParams, s.CallIndex, len(s.TargetIDs))
	}
	return s.TargetIDs[s.CallIndex], nil
}

func parseInt64(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// parseTargetIDs accepts repeated params and comma-separated lists, or a
// mix of both.
func parseTargetIDs(raw []string) ([]int64, error) {
	var out []int64
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
	}
	return out, nil
}
