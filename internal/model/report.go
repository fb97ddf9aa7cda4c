package model

import "time"

// CountBucket is one row of an aggregated report: a day (YYYY-MM-DD) or
// a month (YYYY-MM) and how many events fell into it.
type CountBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Dashboard summarises client registration and login activity.
type Dashboard struct {
	RegisterData   []CountBucket `json:"registerData"`
	LoginData      []CountBucket `json:"loginData"`
	TotalRegisters int           `json:"totalRegisters"`
	TotalLogins    int           `json:"totalLogins"`
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
