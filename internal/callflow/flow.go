package callflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"callpower/internal/calls"
	"callpower/internal/campaign"
	"callpower/internal/media"
	"callpower/internal/telephony"
	"callpower/pkg/logger"
)

// TargetLocator resolves a caller's zipcode to the ordered target ids for a campaign.
type TargetLocator interface {
	Locate(ctx context.Context, zipcode string, c campaign.Campaign) ([]int64, error)
}

// RecordSink accepts completed legs. Record must not block and must not
// report failure to the caller.
type RecordSink interface {
	Record(r calls.CallRecord)
}

// LegGuard detects repeated delivery of the same leg-completion callback.
type LegGuard interface {
	FirstDelivery(ctx context.Context, callSid string, callIndex int) (bool, error)
}

// CallerLimiter bounds concurrent outbound calls per caller phone.
// Release with a callSid must be idempotent for that call; an empty
// callSid always releases.
type CallerLimiter interface {
	Acquire(ctx context.Context, phone string) (bool, error)
	Release(ctx context.Context, phone, callSid string) error
}

// Config is everything the orchestrator reads besides its collaborators.
type Config struct {
	// ApplicationRoot is the public scheme+host the provider reaches us at.
	ApplicationRoot string

	// TimeLimit caps a call or dialed leg; Timeout caps ringing.
	TimeLimit time.Duration
	Timeout   time.Duration

	ZipDigits int
	// MaxZipAttempts is the number of failed zip entries before hanging up. 0 is unbounded.
	MaxZipAttempts int

	LogPhoneNumbers bool

	// DefaultCampaignID answers inbound calls that match no campaign.
	DefaultCampaignID int64

	Debug bool
}

const (
	defaultZipDigits      = 5
	confirmGatherTimeout  = 10
	pathIncomingCall      = "/incoming_call"
	pathCreate            = "/create"
	pathConnection        = "/connection"
	pathZipParse          = "/zip_parse"
	pathMakeCalls         = "/make_calls"
	pathMakeSingleCall    = "/make_single_call"
	pathCallComplete      = "/call_complete"
	pathCallCompleteState = "/call_complete_status"
)

// Deps are the orchestrator's collaborators. Store, Locator and Recorder
// are required; the rest are optional.
type Deps struct {
	Store    campaign.Store
	Locator  TargetLocator
	Recorder RecordSink

	// Originator places outbound calls for /create. Nil disables /create.
	Originator telephony.CallOriginator
	Media      media.Resolver
	Picker     campaign.NumberPicker

	Guard   LegGuard
	Limiter CallerLimiter

	Log *slog.Logger
}

// Flow is the webhook-driven call state machine. It holds no per-call
// state; every request is answered from its parameters and the store.
type Flow struct {
	cfg Config

	store      campaign.Store
	locator    TargetLocator
	recorder   RecordSink
	originator telephony.CallOriginator
	picker     campaign.NumberPicker
	guard      LegGuard
	limiter    CallerLimiter

	prompts prompter
	log     *slog.Logger
}

func New(cfg Config, d Deps) (*Flow, error) {
	if d.Store == nil || d.Locator == nil || d.Recorder == nil {
		return nil, errors.New("callflow: store, locator and recorder are required")
	}
	if cfg.ZipDigits <= 0 {
		cfg.ZipDigits = defaultZipDigits
	}
	if cfg.MaxZipAttempts < 0 {
		cfg.MaxZipAttempts = 0
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	resolver := d.Media
	if resolver == nil {
		resolver = media.StaticResolver{}
	}
	return &Flow{
		cfg:        cfg,
		store:      d.Store,
		locator:    d.Locator,
		recorder:   d.Recorder,
		originator: d.Originator,
		picker:     d.Picker,
		guard:      d.Guard,
		limiter:    d.Limiter,
		prompts:    prompter{media: resolver, log: log},
		log:        log,
	}, nil
}

// introZipGather is the AwaitZip entry: greeting, then the zip prompt.
func (f *Flow) introZipGather(ctx context.Context, st State, c campaign.Campaign) *telephony.Response {
	resp := telephony.NewResponse().Append(f.prompts.verb(ctx, c, campaign.SlotIntro, nil))
	return f.zipGather(ctx, resp, st, c)
}

func (f *Flow) zipGather(ctx context.Context, resp *telephony.Response, st State, c campaign.Campaign) *telephony.Response {
	st.Zipcode = ""
	st.TargetIDs = nil
	return resp.Append(telephony.Gather{
		NumDigits: f.cfg.ZipDigits,
		Method:    "POST",
		Action:    st.Path(pathZipParse),
		Verbs:     []any{f.prompts.verb(ctx, c, campaign.SlotAskZip, nil)},
	})
}

// confirmConnect greets a caller whose targets are already known and
// waits for one key press before dialing.
func (f *Flow) confirmConnect(ctx context.Context, st State, c campaign.Campaign) *telephony.Response {
	return telephony.NewResponse().Append(
		f.prompts.verb(ctx, c, campaign.SlotIntro, nil),
		telephony.Gather{
			NumDigits: 1,
			Method:    "POST",
			Timeout:   confirmGatherTimeout,
			Action:    st.Path(pathMakeCalls),
			Verbs:     []any{f.prompts.verb(ctx, c, campaign.SlotIntroConfirm, nil)},
		},
	)
}

// invalidZip re-prompts after a zip that located nothing, or hangs up once
// the attempt budget is spent.
func (f *Flow) invalidZip(ctx context.Context, st State, c campaign.Campaign) *telephony.Response {
	resp := telephony.NewResponse().Append(f.prompts.verb(ctx, c, campaign.SlotInvalidZip, nil))

	st.ZipAttempt++
	if f.cfg.MaxZipAttempts > 0 && st.ZipAttempt >= f.cfg.MaxZipAttempts {
		return resp.Append(telephony.Hangup{})
	}
	return f.zipGather(ctx, resp, st, c)
}

// announceBlock tells the caller how many offices follow and starts the
// dial sequence at index 0.
func (f *Flow) announceBlock(ctx context.Context, st State, c campaign.Campaign) *telephony.Response {
	n := len(st.TargetIDs)
	st.ZipAttempt = 0
	return telephony.NewResponse().Append(
		f.prompts.verb(ctx, c, campaign.SlotCallBlockIntro, map[string]any{
			"n_targets": n,
			"many_reps": n > 1,
		}),
		telephony.Redirect{Method: "POST", URL: st.WithIndex(0).Path(pathMakeSingleCall)},
	)
}

// dialTarget bridges the caller to the target at st.CallIndex.
func (f *Flow) dialTarget(ctx context.Context, st State, c campaign.Campaign, t campaign.Target) (*telephony.Response, error) {
	resp := telephony.NewResponse().Append(
		f.prompts.verb(ctx, c, campaign.SlotRepIntro, map[string]any{"name": t.FullName()}),
	)

	d, err := telephony.DialTo(t.Number)
	if err != nil {
		return nil, err
	}
	d.Action = st.Path(pathCallComplete)
	d.Method = "POST"
	d.CallerID = st.UserPhone
	d.TimeLimit = seconds(f.cfg.TimeLimit)
	d.Timeout = seconds(f.cfg.Timeout)
	d.HangupOnStar = true

	return resp.Append(d), nil
}

// skipTarget moves past a target that cannot be dialed. The leg is
// reported to /call_complete as failed so it is still recorded.
func (f *Flow) skipTarget(st State) *telephony.Response {
	v := st.Values()
	v.Set("DialCallStatus", string(calls.CallStatusFailed))
	return telephony.NewResponse().Append(
		telephony.Redirect{Method: "POST", URL: pathCallComplete + "?" + v.Encode()},
	)
}

// legComplete is the reply after leg st.CallIndex ended: final thanks on
// the last leg, otherwise between-thanks and the next dial.
func (f *Flow) legComplete(ctx context.Context, st State, c campaign.Campaign) *telephony.Response {
	if st.Last() {
		return telephony.NewResponse().Append(
			f.prompts.verb(ctx, c, campaign.SlotFinalThanks, nil),
			telephony.Hangup{},
		)
	}
	return telephony.NewResponse().Append(
		f.prompts.verb(ctx, c, campaign.SlotBetweenThanks, nil),
		telephony.Redirect{Method: "POST", URL: st.WithIndex(st.CallIndex + 1).Path(pathMakeSingleCall)},
	)
}

func (f *Flow) phoneAttr(phone string) string {
	return logger.Phone(phone, f.cfg.LogPhoneNumbers)
}

func seconds(d time.Duration) int { return int(d / time.Second) }
