package types

import "time"

type Interval string

const (
	OneMinute      Interval = "1"
	FiveMinutes    Interval = "5"
	FifteenMinutes Interval = "15"
	ThirtyMinutes  Interval = "30"
	Hour           Interval = "60"
	FourHours      Interval = "240"
	Day            Interval = "D"
	Week           Interval = "W"
)

var intervalToTime = map[Interval]time.Duration{
	OneMinute:      time.Minute,
	FiveMinutes:    time.Minute * 5,
	FifteenMinutes: time.Minute * 15,
	ThirtyMinutes:  time.Minute * 30,
	Hour:           time.Hour,
	FourHours:      time.Hour * 4,
	Day:            time.Hour * 24,
	Week:           time.Hour * 24 * 7,
}

// Duration returns the wall-clock span of one bar at this interval.
func (i Interval) Duration() time.Duration {
	return intervalToTime[i]
}
