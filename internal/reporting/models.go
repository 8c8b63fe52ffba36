package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated leg metrics for one campaign.
type CallsSummaryRequest struct {
	CampaignID int64     `json:"campaign_id"`
	Range      TimeRange `json:"range"`
}

type CallsSummary struct {
	CampaignID int64 `json:"campaign_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	NoAnswerCalls  int `json:"no_answer_calls"`
	BusyCalls      int `json:"busy_calls"`
	CanceledCalls  int `json:"canceled_calls"`
	UnknownCalls   int `json:"unknown_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// Sessions counts distinct provider calls; one session dials many targets.
	Sessions int `json:"sessions"`
	// CallsPerSession is the median number of completed legs per session.
	CallsPerSession float64 `json:"calls_per_session"`

	// DateStart/DateEnd bound the completed legs, end exclusive.
	DateStart string `json:"date_start,omitempty"`
	DateEnd   string `json:"date_end,omitempty"`
}

// Timespan buckets a call chart.
type Timespan string

const (
	TimespanHour  Timespan = "hour"
	TimespanDay   Timespan = "day"
	TimespanMonth Timespan = "month"
	TimespanYear  Timespan = "year"
)

var timespanLayouts = map[Timespan]string{
	TimespanHour:  "2006-01-02 15:00",
	TimespanDay:   "2006-01-02",
	TimespanMonth: "2006-01",
	TimespanYear:  "2006",
}

type CallChartRequest struct {
	CampaignID int64     `json:"campaign_id"`
	Range      TimeRange `json:"range"`
	Timespan   Timespan  `json:"timespan"`
}

// Series is one status line of a call chart: bucket label -> leg count.
type Series struct {
	Name string         `json:"name"`
	Data map[string]int `json:"data"`
}
