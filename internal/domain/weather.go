package domain

import "time"

// Forecast filters understood by the weather gateway. Day-level forecasts
// return one period per calendar day; day/night forecasts split each day into
// a daytime and an overnight period.
const (
	ForecastFilterDay      = "day"
	ForecastFilterDayNight = "daynight"
)

// ForecastPeriod is one forecast period for the station. Pointer fields are
// nil when the provider omitted the value.
type ForecastPeriod struct {
	Date           time.Time // calendar day of the period, time part zero
	HighF          *int      // daily high, °F
	LowF           *int      // daily (or overnight) low, °F
	IsDay          *bool     // present only in day/night-split feeds
	Weather        string    // free-text conditions, e.g. "Snow Showers"
	WeatherPrimary string    // dominant condition classifier
	SnowIN         *float64  // expected snowfall, inches
	PoP            *int      // probability of precipitation, percent
}

// ObservationSummary aggregates a single past day of station observations.
type ObservationSummary struct {
	RainfallIN *float64 // total rainfall, inches; nil when unreported
}

// Observation is a current-conditions snapshot, used by the connectivity
// self-test only.
type Observation struct {
	TempF    *int
	Humidity *int
}

// Notification is a message destined for a human via the push gateway.
// Priority 0 is normal delivery; 1 requests urgent, interruptive delivery.
type Notification struct {
	Title    string
	Message  string
	Priority int
}

// AlertEvent records a fired rule for the optional downstream event stream.
type AlertEvent struct {
	Rule     string    `json:"rule"`
	Station  string    `json:"station"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Priority int       `json:"priority"`
	Value    float64   `json:"value"`
	FiredAt  time.Time `json:"fired_at"`
}
