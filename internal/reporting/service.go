package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"callpower/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository is the read side of the call record log.
// calls.Repository satisfies it.
type Repository interface {
	ListByCampaign(ctx context.Context, campaignID int64, from, to time.Time) ([]calls.CallRecord, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	rows, err := s.list(ctx, req.CampaignID, req.Range)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{CampaignID: req.CampaignID}
	perSession := map[string]int{}
	var first, last time.Time
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.ProviderCallID != "" {
			if _, ok := perSession[c.ProviderCallID]; !ok {
				perSession[c.ProviderCallID] = 0
			}
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
			if c.ProviderCallID != "" {
				perSession[c.ProviderCallID]++
			}
			if first.IsZero() || c.CreatedAt.Before(first) {
				first = c.CreatedAt
			}
			if c.CreatedAt.After(last) {
				last = c.CreatedAt
			}
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		default:
			out.UnknownCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	out.Sessions = len(perSession)
	out.CallsPerSession = median(perSession)
	if !first.IsZero() {
		out.DateStart = first.UTC().Format("2006-01-02")
		out.DateEnd = last.UTC().AddDate(0, 0, 1).Format("2006-01-02")
	}
	return out, nil
}

// CallChart buckets legs by time, one series per terminal status.
func (s *Service) CallChart(ctx context.Context, req CallChartRequest) ([]Series, error) {
	if req.Timespan == "" {
		req.Timespan = TimespanDay
	}
	layout, ok := timespanLayouts[req.Timespan]
	if !ok {
		return nil, ErrInvalidRequest
	}
	rows, err := s.list(ctx, req.CampaignID, req.Range)
	if err != nil {
		return nil, err
	}

	series := []Series{
		{Name: "Completed", Data: map[string]int{}},
		{Name: "Canceled", Data: map[string]int{}},
		{Name: "Failed", Data: map[string]int{}},
	}
	for _, c := range rows {
		var i int
		switch c.Status {
		case calls.CallStatusCompleted:
			i = 0
		case calls.CallStatusCanceled:
			i = 1
		case calls.CallStatusFailed:
			i = 2
		default:
			continue
		}
		series[i].Data[c.CreatedAt.UTC().Format(layout)]++
	}
	return series, nil
}

func (s *Service) list(ctx context.Context, campaignID int64, r TimeRange) ([]calls.CallRecord, error) {
	if campaignID <= 0 {
		return nil, ErrInvalidRequest
	}
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	return s.repo.ListByCampaign(ctx, campaignID, r.From, r.To)
}

func median(counts map[string]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	vals := make([]int, 0, len(counts))
	for _, n := range counts {
		vals = append(vals, n)
	}
	sort.Ints(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return float64(vals[mid])
	}
	return float64(vals[mid-1]+vals[mid]) / 2
}
