// Package domain models the weather data consumed by the alert rules.
//
// # Data Source
//
// Forecast and observation records come from the Aeris Weather API for a
// single personal weather station (PWS). Day-level forecasts carry one period
// per calendar day; day/night-split forecasts carry two periods per day with
// an isDay marker. Observation summaries aggregate one past day.
//
// # Optional Fields
//
// The provider omits fields it has no data for, so numeric and boolean fields
// that can be absent are pointers. A nil pointer means "no data" and must
// never be read as a triggering value. The single exception, fixed by the
// rainfall rule's contract, is yesterday's rainfall total: a nil total is
// evaluated as zero inches.
//
// # Units
//
// Temperatures are whole degrees Fahrenheit, snowfall and rainfall are
// inches, and precipitation probability is an integer percentage in [0, 100],
// matching the provider's *F/*IN/pop fields.
package domain
