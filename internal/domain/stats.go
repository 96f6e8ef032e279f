package domain

import "time"

// StatusOverview counts complaints per status inside a reporting window.
type StatusOverview struct {
	Total      int64    `json:"total"`
	Pending    int64    `json:"pending"`
	InProgress int64    `json:"inProgress"`
	Resolved   int64    `json:"resolved"`
	Closed     int64    `json:"closed"`
	Escalated  int64    `json:"escalated"`
	AvgRating  *float64 `json:"avgRating"`
}

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category ComplaintCategory `json:"category"`
	Count    int64             `json:"count"`
}

// DashboardStats is the reporting rollup returned to staff.
type DashboardStats struct {
	Timeframe     string          `json:"timeframe"`
	Since         time.Time       `json:"since"`
	Overview      StatusOverview  `json:"overview"`
	CategoryStats []CategoryCount `json:"categoryStats"`
}
