package models

import "time"

// HistoryRange selects which past orders the history view shows.
type HistoryRange string

const (
	RangeAll        HistoryRange = "all"
	RangeLast3Hours HistoryRange = "last3hours"
	RangeToday      HistoryRange = "today"
	RangeWeek       HistoryRange = "week"
	RangeCustom     HistoryRange = "custom"
)

// HistoryFilter narrows the order history. From/To are only read for RangeCustom.
type HistoryFilter struct {
	Range HistoryRange
	From  *time.Time
	To    *time.Time
}

// HistoryQuery is the set of query parameters sent to the history endpoint.
// At most one field is set.
type HistoryQuery struct {
	From  string `json:"from,omitempty"`
	Date  string `json:"date,omitempty"`
	Last  int    `json:"last,omitempty"`
	Range string `json:"range,omitempty"`
}
