package callflow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"callpower/internal/calls"
	"callpower/internal/campaign"
	"callpower/internal/telephony"
	"callpower/pkg/logger"

	"github.com/gin-gonic/gin"
)

var methods = []string{http.MethodGet, http.MethodPost}

// Register mounts every endpoint on r with no extra middleware.
func (f *Flow) Register(r gin.IRoutes) {
	f.RegisterAPI(r)
	f.RegisterWebhooks(r)
}

// RegisterAPI mounts /create. Campaign clients call it directly, so it never
// carries a provider signature and must not sit behind one.
func (f *Flow) RegisterAPI(r gin.IRoutes) {
	r.Match(methods, pathCreate, f.Create)
}

// RegisterWebhooks mounts the endpoints the provider calls back. Each accepts
// GET and POST with parameters in the query string or form body.
func (f *Flow) RegisterWebhooks(r gin.IRoutes) {
	r.Match(methods, pathIncomingCall, f.IncomingCall)
	r.Match(methods, pathConnection, f.Connection)
	r.Match(methods, pathZipParse, f.ZipParse)
	r.Match(methods, pathMakeCalls, f.MakeCalls)
	r.Match(methods, pathMakeSingleCall, f.MakeSingleCall)
	r.Match(methods, pathCallComplete, f.CallComplete)
	r.Match(methods, pathCallCompleteState, f.CallCompleteStatus)
}

// request is one decoded webhook: its state, the provider fields and the
// campaign re-read from the store.
type request struct {
	state    State
	hook     telephony.VoiceWebhook
	campaign campaign.Campaign
}

// decode parses the state tuple and resolves the campaign. When inbound is
// set, a missing campaignId falls back to the dialed number's campaign and
// then DefaultCampaignID. A false return means the request was aborted.
func (f *Flow) decode(c *gin.Context, inbound bool) (request, bool) {
	log := logger.FromGin(c)

	hook, err := telephony.ParseVoiceWebhook(c.Request)
	if err != nil {
		notFound(c, log, err)
		return request{}, false
	}
	st, err := ParseState(c.Request.Form)
	if err != nil {
		notFound(c, log, err)
		return request{}, false
	}

	ctx := c.Request.Context()
	var camp campaign.Campaign
	switch {
	case st.CampaignID > 0:
		camp, err = f.store.GetCampaign(ctx, st.CampaignID)
	case inbound:
		camp, err = f.inboundCampaign(ctx, hook.To)
	default:
		err = errors.New("campaignId required")
	}
	if err != nil {
		notFound(c, log, err)
		return request{}, false
	}
	st.CampaignID = camp.ID

	return request{state: st, hook: hook, campaign: camp}, true
}

func (f *Flow) inboundCampaign(ctx context.Context, to string) (campaign.Campaign, error) {
	if to != "" {
		camp, err := f.store.CampaignByNumber(ctx, to)
		if err == nil {
			return camp, nil
		}
		if !errors.Is(err, campaign.ErrNotFound) {
			return campaign.Campaign{}, err
		}
	}
	if f.cfg.DefaultCampaignID > 0 {
		return f.store.GetCampaign(ctx, f.cfg.DefaultCampaignID)
	}
	return campaign.Campaign{}, campaign.ErrNotFound
}

// ensureTargets fills TargetIDs from the zipcode when only a zipcode was supplied.
func (f *Flow) ensureTargets(ctx context.Context, log *slog.Logger, req *request) {
	if len(req.state.TargetIDs) > 0 || req.state.Zipcode == "" {
		return
	}
	ids, err := f.locator.Locate(ctx, req.state.Zipcode, req.campaign)
	if err != nil {
		log.Warn("target lookup failed", "err", err, "campaign_id", req.campaign.ID)
		return
	}
	req.state.TargetIDs = ids
}

// IncomingCall answers a caller who dialed a published number.
func (f *Flow) IncomingCall(c *gin.Context) {
	req, ok := f.decode(c, true)
	if !ok {
		return
	}
	if req.state.UserPhone == "" {
		req.state.UserPhone = req.hook.From
	}
	logger.FromGin(c).Debug("incoming call",
		"campaign_id", req.campaign.ID, "from", f.phoneAttr(req.state.UserPhone))

	telephony.WriteTwiML(c, f.introZipGather(c.Request.Context(), req.state, req.campaign))
}

// Create originates a call to userPhone that enters the flow at /connection.
func (f *Flow) Create(c *gin.Context) {
	log := logger.FromGin(c)
	req, ok := f.decode(c, false)
	if !ok {
		return
	}
	st := req.state
	if st.UserPhone == "" {
		notFound(c, log, errors.New("userPhone required"))
		return
	}
	if f.originator == nil {
		log.Error("outbound call requested but no originator is configured", "campaign_id", req.campaign.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "outbound calling is not configured", "debugMode": f.cfg.Debug})
		return
	}

	ctx := c.Request.Context()
	f.ensureTargets(ctx, log, &req)
	st = req.state

	if f.limiter != nil {
		acquired, err := f.limiter.Acquire(ctx, st.UserPhone)
		switch {
		case err != nil:
			log.Warn("caller limiter unavailable", "err", err)
		case !acquired:
			c.JSON(http.StatusOK, gin.H{"message": "a call to this number is already in progress", "debugMode": f.cfg.Debug})
			return
		}
	}

	from, err := f.picker.Pick(req.campaign)
	if err != nil {
		f.release(ctx, log, st.UserPhone, "")
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "debugMode": f.cfg.Debug})
		return
	}

	res, err := f.originator.PlaceCall(ctx, telephony.OutboundCallRequest{
		To:             st.UserPhone,
		From:           from,
		URL:            st.URL(f.cfg.ApplicationRoot, pathConnection),
		StatusCallback: st.URL(f.cfg.ApplicationRoot, pathCallCompleteState),
		TimeLimit:      f.cfg.TimeLimit,
		Timeout:        f.cfg.Timeout,
	})
	if err != nil {
		f.release(ctx, log, st.UserPhone, "")
		var perr *telephony.ProviderError
		if errors.As(err, &perr) {
			log.Warn("call origination rejected", "code", perr.Code, "message", perr.Message, "campaign_id", req.campaign.ID)
			c.JSON(http.StatusOK, gin.H{"message": perr.Message, "debugMode": f.cfg.Debug})
			return
		}
		log.Error("call origination failed", "err", err, "campaign_id", req.campaign.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error(), "debugMode": f.cfg.Debug})
		return
	}

	log.Info("call originated",
		"campaign_id", req.campaign.ID,
		"call_id", res.ProviderCallID,
		"status", res.Status,
		"to", f.phoneAttr(st.UserPhone),
	)
	status := http.StatusOK
	if res.Status == string(calls.CallStatusFailed) {
		f.release(ctx, log, st.UserPhone, res.ProviderCallID)
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"message": res.Status, "debugMode": f.cfg.Debug})
}

// Connection serves the first instructions of an originated call.
func (f *Flow) Connection(c *gin.Context) {
	req, ok := f.decode(c, false)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	f.ensureTargets(ctx, logger.FromGin(c), &req)

	if len(req.state.TargetIDs) > 0 {
		telephony.WriteTwiML(c, f.confirmConnect(ctx, req.state, req.campaign))
		return
	}
	telephony.WriteTwiML(c, f.introZipGather(ctx, req.state, req.campaign))
}

// ZipParse handles the gathered zip digits.
func (f *Flow) ZipParse(c *gin.Context) {
	log := logger.FromGin(c)
	req, ok := f.decode(c, false)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	zipcode := req.hook.Digits

	ids, err := f.locator.Locate(ctx, zipcode, req.campaign)
	if err != nil {
		log.Warn("target lookup failed", "err", err, "campaign_id", req.campaign.ID)
		ids = nil
	}
	log.Debug("zip parsed", "campaign_id", req.campaign.ID, "targets", len(ids), "attempt", req.state.ZipAttempt)

	if len(ids) == 0 {
		telephony.WriteTwiML(c, f.invalidZip(ctx, req.state, req.campaign))
		return
	}

	st := req.state
	st.Zipcode = zipcode
	st.TargetIDs = ids
	telephony.WriteTwiML(c, f.announceBlock(ctx, st, req.campaign))
}

// MakeCalls announces the call block and starts dialing.
func (f *Flow) MakeCalls(c *gin.Context) {
	req, ok := f.decode(c, false)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	f.ensureTargets(ctx, logger.FromGin(c), &req)

	if len(req.state.TargetIDs) == 0 {
		telephony.WriteTwiML(c, f.zipGather(ctx, telephony.NewResponse(), req.state, req.campaign))
		return
	}
	telephony.WriteTwiML(c, f.announceBlock(ctx, req.state, req.campaign))
}

// MakeSingleCall dials the target at call_index.
func (f *Flow) MakeSingleCall(c *gin.Context) {
	log := logger.FromGin(c)
	req, ok := f.decode(c, false)
	if !ok {
		return
	}
	st := req.state
	id, err := st.CurrentTarget()
	if err != nil {
		notFound(c, log, err)
		return
	}
	ctx := c.Request.Context()
	target, err := f.store.GetTarget(ctx, id)
	if err != nil {
		notFound(c, log, err)
		return
	}

	resp, err := f.dialTarget(ctx, st, req.campaign, target)
	if err != nil {
		log.Warn("target not dialable, skipping", "err", err, "campaign_id", req.campaign.ID, "target_id", id)
		telephony.WriteTwiML(c, f.skipTarget(st))
		return
	}
	log.Debug("dialing target",
		"campaign_id", req.campaign.ID,
		"call_index", st.CallIndex,
		"target_id", id,
		"from", f.phoneAttr(st.UserPhone),
	)
	telephony.WriteTwiML(c, resp)
}

// CallComplete records the finished leg and moves to the next one.
func (f *Flow) CallComplete(c *gin.Context) {
	log := logger.FromGin(c)
	req, ok := f.decode(c, false)
	if !ok {
		return
	}
	st := req.state
	targetID, err := st.CurrentTarget()
	if err != nil {
		notFound(c, log, err)
		return
	}
	ctx := c.Request.Context()

	if f.firstDelivery(ctx, log, req.hook.CallSid, st.CallIndex) {
		rec := calls.CallRecord{
			CampaignID:      req.campaign.ID,
			TargetID:        targetID,
			Location:        st.Zipcode,
			ProviderCallID:  req.hook.CallSid,
			CallIndex:       st.CallIndex,
			Status:          calls.ParseStatus(req.hook.DialCallStatus),
			DurationSeconds: req.hook.DialCallDuration,
		}
		if f.cfg.LogPhoneNumbers {
			rec.PhoneNumber = st.UserPhone
		}
		f.recorder.Record(rec)
	}

	log.Debug("leg complete",
		"campaign_id", req.campaign.ID,
		"call_index", st.CallIndex,
		"target_id", targetID,
		"status", req.hook.DialCallStatus,
	)
	telephony.WriteTwiML(c, f.legComplete(ctx, st, req.campaign))
}

func (f *Flow) firstDelivery(ctx context.Context, log *slog.Logger, callSid string, index int) bool {
	if f.guard == nil || callSid == "" {
		return true
	}
	first, err := f.guard.FirstDelivery(ctx, callSid, index)
	if err != nil {
		log.Warn("leg guard unavailable", "err", err, "call_id", callSid)
		return true
	}
	if !first {
		log.Info("duplicate leg completion ignored", "call_id", callSid, "call_index", index)
	}
	return first
}

// statusEcho is the /call_complete_status response body.
type statusEcho struct {
	PhoneNumber string  `json:"phoneNumber"`
	CallStatus  string  `json:"callStatus"`
	TargetIDs   []int64 `json:"targetIds"`
	CampaignID  int64   `json:"campaignId"`
}

// CallCompleteStatus is the provider's asynchronous status callback. It
// never influences the voice flow; anything it cannot interpret is logged.
func (f *Flow) CallCompleteStatus(c *gin.Context) {
	log := logger.FromGin(c)

	hook, err := telephony.ParseVoiceWebhook(c.Request)
	if err != nil {
		log.Warn("status callback unreadable", "err", err)
	}
	st, err := ParseState(c.Request.Form)
	if err != nil {
		log.Warn("status callback state unreadable", "err", err)
	}

	if st.UserPhone != "" {
		f.release(c.Request.Context(), log, st.UserPhone, hook.CallSid)
	}

	out := statusEcho{
		PhoneNumber: hook.To,
		CallStatus:  hook.CallStatus,
		TargetIDs:   st.TargetIDs,
		CampaignID:  st.CampaignID,
	}
	if out.CallStatus == "" {
		out.CallStatus = string(calls.CallStatusUnknown)
	}
	if out.TargetIDs == nil {
		out.TargetIDs = []int64{}
	}
	c.JSON(http.StatusOK, out)
}

func (f *Flow) release(ctx context.Context, log *slog.Logger, phone, callSid string) {
	if f.limiter == nil {
		return
	}
	if err := f.limiter.Release(ctx, phone, callSid); err != nil {
		log.Warn("caller limiter release failed", "err", err)
	}
}

func notFound(c *gin.Context, log *slog.Logger, err error) {
	log.Info("webhook rejected", "path", c.Request.URL.Path, "err", err)
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
}
