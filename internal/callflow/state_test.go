package callflow

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
)

func TestParseState_RoundTrip(t *testing.T) {
	in := State{
		UserPhone:  "+15551234567",
		CampaignID: 1,
		Zipcode:    "90210",
		TargetIDs:  []int64{7, 9},
		CallIndex:  1,
		ZipAttempt: 2,
	}
	out, err := ParseState(in.Values())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestParseState_CommaSeparatedTargets(t *testing.T) {
	v := url.Values{"campaignId": {"3"}, "targetIds": {"7,9", "11"}}
	st, err := ParseState(v)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !reflect.DeepEqual(st.TargetIDs, []int64{7, 9, 11}) {
		t.Fatalf("unexpected targets: %v", st.TargetIDs)
	}
}

func TestParseState_Malformed(t *testing.T) {
	cases := []url.Values{
		{"campaignId": {"abc"}},
		{"campaignId": {"1"}, "targetIds": {"7,x"}},
		{"campaignId": {"1"}, "call_index": {"-1"}},
		{"campaignId": {"1"}, "zipAttempt": {"two"}},
	}
	for _, v := range cases {
		if _, err := ParseState(v); !errors.Is(err, ErrBadParams) {
			t.Fatalf("expected ErrBadParams for %v, got %v", v, err)
		}
	}
}

func TestState_ValuesOmitEmpty(t *testing.T) {
	v := State{CampaignID: 4}.Values()
	if v.Encode() != "campaignId=4" {
		t.Fatalf("unexpected encoding: %q", v.Encode())
	}
	if p := (State{}).Path("/zip_parse"); p != "/zip_parse" {
		t.Fatalf("unexpected path: %q", p)
	}
}

func TestState_URLUsesRoot(t *testing.T) {
	st := State{CampaignID: 1, TargetIDs: []int64{7}}
	got := st.URL("https://calls.example.org/", "/connection")
	want := "https://calls.example.org/connection?call_index=0&campaignId=1&targetIds=7"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestState_CurrentTargetAndLast(t *testing.T) {
	st := State{TargetIDs: []int64{7, 9}}
	if id, err := st.CurrentTarget(); err != nil || id != 7 {
		t.Fatalf("unexpected target: %d %v", id, err)
	}
	if st.Last() {
		t.Fatalf("index 0 of 2 is not last")
	}
	st = st.WithIndex(1)
	if !st.Last() {
		t.Fatalf("index 1 of 2 is last")
	}
	if _, err := st.WithIndex(2).CurrentTarget(); !errors.Is(err, ErrBadParams) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if _, err := (State{}).CurrentTarget(); !errors.Is(err, ErrBadParams) {
		t.Fatalf("expected error with no targets")
	}
}
