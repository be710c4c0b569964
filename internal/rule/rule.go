// Package rule implements the six alert rules as pure decision functions.
//
// Each rule takes the cooldown record, its thresholds, and an explicit now,
// plus a lazy fetch closure for the weather data it needs. Gates (cooldown
// windows, season checks) are evaluated before the closure is called, so a
// suppressed rule never touches the network. The runner owns all writes to
// the cooldown store; rules only read it.
package rule

import (
	"fmt"
	"time"

	"github.com/couchcryptid/pws-alert-service/internal/domain"
)

// Status classifies a rule evaluation. NotMet and Unavailable both resolve to
// "no notification", but are kept distinct so logs and metrics can tell a
// quiet forecast from a gateway outage.
type Status int

const (
	// StatusNotMet means the data was inspected and the condition did not hold.
	StatusNotMet Status = iota
	// StatusFired means the condition held and a notification should be sent.
	StatusFired
	// StatusSuppressed means a gate (cooldown window, season, same-day guard)
	// short-circuited the rule before any data was fetched.
	StatusSuppressed
	// StatusUnavailable means the weather gateway failed; Err carries the cause.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusNotMet:
		return "not_met"
	case StatusFired:
		return "fired"
	case StatusSuppressed:
		return "suppressed"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DaySummary is one contributing forecast day in a rule's evidence.
type DaySummary struct {
	Date  time.Time
	HighF int
}

// Outcome is the result of evaluating one rule. It carries everything the
// runner needs to compose a notification without re-deriving it: the measured
// value (inches, degrees of drop, percent chance, or the triggering low) and
// a human-readable detail or list of contributing days.
type Outcome struct {
	Status Status
	Value  float64
	Detail string
	Days   []DaySummary
	Err    error
}

// Fired reports whether the rule decided to notify.
func (o Outcome) Fired() bool {
	return o.Status == StatusFired
}

// ForecastFunc fetches an ordered forecast on demand.
type ForecastFunc func() ([]domain.ForecastPeriod, error)

// SummaryFunc fetches yesterday's observation summary on demand.
type SummaryFunc func() (domain.ObservationSummary, error)

func suppressed(detail string) Outcome {
	return Outcome{Status: StatusSuppressed, Detail: detail}
}

func unavailable(err error) Outcome {
	return Outcome{Status: StatusUnavailable, Err: err}
}

const dateLayout = "2006-01-02"
